package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with an
// optional .env file underneath. CLI flags override individual fields.
type Config struct {
	Addr      string `env:"FUNDREF_ADDR" envDefault:":8080"`
	RPCSocket string `env:"FUNDREF_RPC_SOCKET" envDefault:"/tmp/fundref.sock"`
	DBPath    string `env:"FUNDREF_DB_PATH" envDefault:"fundref.db"`
	LogLevel  string `env:"FUNDREF_LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	// Not an error when absent; .env is a local development convenience.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
