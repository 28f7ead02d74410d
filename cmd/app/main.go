package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	sqliteadapter "github.com/atvirokodosprendimai/fundref/internal/adapters/db/sqlite"
	httpadapter "github.com/atvirokodosprendimai/fundref/internal/adapters/http"
	"github.com/atvirokodosprendimai/fundref/internal/adapters/ingest"
	rpcadapter "github.com/atvirokodosprendimai/fundref/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/fundref/internal/application"
	"github.com/atvirokodosprendimai/fundref/internal/config"
	"github.com/atvirokodosprendimai/fundref/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "fundref",
		Usage: "Fund reference data server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			ingestCommand(),
			configCommand(),
			fundsCommand(),
			hierarchyCommand(),
			legalCommand(),
			managementCommand(),
			subFundsCommand(),
			shareClassesCommand(),
			statsCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		logrus.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.Addr = c.String("addr")
			}
			if c.IsSet("rpc-socket") {
				cfg.RPCSocket = c.String("rpc-socket")
			}
			if c.IsSet("db-path") {
				cfg.DBPath = c.String("db-path")
			}
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := logrus.StandardLogger()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := sqliteadapter.NewReferentialRepository(db, logger)
	service := application.NewReferentialService(repo)

	router := httpadapter.NewRouter(service)
	srv := &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.WithField("socket", cfg.RPCSocket).Info("json-rpc listening")

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("http listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Bulk-load reference CSV files into the store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Required: true, Usage: "directory holding the reference CSV files"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
			&cli.BoolFlag{Name: "reset", Usage: "truncate all reference tables before loading"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.IsSet("db-path") {
				cfg.DBPath = c.String("db-path")
			}

			logger := logrus.StandardLogger()
			db, err := sqliteadapter.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
				return err
			}

			repo := sqliteadapter.NewReferentialRepository(db, logger)
			loader := ingest.NewLoader(repo, logger)
			summary, err := loader.Load(ctx, c.String("dir"), c.Bool("reset"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(summary)
			}
			printIngestSummary(summary)
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage CLI transport settings",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Persist CLI transport settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Usage: "HTTP API base URL"},
					&cli.StringFlag{Name: "socket", Usage: "JSON-RPC unix socket path"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if c.IsSet("transport") {
						cfg.Transport = c.String("transport")
					}
					if c.IsSet("server") {
						cfg.Server = c.String("server")
					}
					if c.IsSet("socket") {
						cfg.Socket = c.String("socket")
					}
					if cfg.Transport != "uds" && cfg.Transport != "http" {
						return fmt.Errorf("unsupported transport %q", cfg.Transport)
					}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("config saved")
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show CLI transport settings",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					printKV([][2]string{
						{"transport", cfg.Transport},
						{"server", cfg.Server},
						{"socket", cfg.Socket},
					})
					return nil
				},
			},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "filter", Usage: "field=value, repeatable"},
		&cli.IntFlag{Name: "page"},
		&cli.IntFlag{Name: "page-size"},
		&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
	}
}

func parseFilters(pairs []string) (domain.Filters, error) {
	filters := domain.Filters{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid filter %q, expected field=value", pair)
		}
		filters[strings.TrimSpace(name)] = value
	}
	return filters, nil
}

// parseAttrs turns repeated key=value pairs into a patch map. Values that
// parse as numbers are sent as numbers so numeric columns stay numeric.
func parseAttrs(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected field=value", pair)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			attrs[strings.TrimSpace(name)] = f
			continue
		}
		attrs[strings.TrimSpace(name)] = value
	}
	return attrs, nil
}

func fundsCommand() *cli.Command {
	return &cli.Command{
		Name:  "funds",
		Usage: "Fund commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Get fund by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.FundView
					if err := doFundsGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundView(out)
					return nil
				},
			},
			{
				Name:  "get-by-code",
				Usage: "Get fund by code",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.FundView
					if err := doFundsGetByCode(ctx, cfg, c.String("code"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundView(out)
					return nil
				},
			},
			{
				Name:  "search",
				Usage: "Search funds",
				Flags: searchFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					filters, err := parseFilters(c.StringSlice("filter"))
					if err != nil {
						return err
					}
					var out domain.Page[domain.FundView]
					if err := doFundsSearch(ctx, cfg, filters, c.Int("page"), c.Int("page-size"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundPage(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create fund; fund id is allocated when omitted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "explicit fund id, allocated when empty"},
					&cli.StringFlag{Name: "mgmt-id", Required: true},
					&cli.StringFlag{Name: "le-id", Required: true},
					&cli.StringFlag{Name: "code", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "type"},
					&cli.StringFlag{Name: "base-currency"},
					&cli.StringFlag{Name: "domicile"},
					&cli.StringFlag{Name: "isin-master"},
					&cli.StringFlag{Name: "status", Value: "ACTIVE"},
					&cli.StringFlag{Name: "inception-date"},
					&cli.FloatFlag{Name: "aum"},
					&cli.FloatFlag{Name: "expense-ratio"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					f := domain.Fund{
						FundID:        c.String("id"),
						MgmtID:        c.String("mgmt-id"),
						LEID:          c.String("le-id"),
						FundCode:      c.String("code"),
						FundName:      c.String("name"),
						FundType:      c.String("type"),
						BaseCurrency:  c.String("base-currency"),
						Domicile:      c.String("domicile"),
						ISINMaster:    c.String("isin-master"),
						Status:        c.String("status"),
						InceptionDate: c.String("inception-date"),
						AUM:           c.Float("aum"),
						ExpenseRatio:  c.Float("expense-ratio"),
					}
					var out domain.Fund
					if err := doFundsCreate(ctx, cfg, f, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFund(out)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update fund attributes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringSliceFlag{Name: "set", Required: true, Usage: "field=value, repeatable"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					attrs, err := parseAttrs(c.StringSlice("set"))
					if err != nil {
						return err
					}
					var out domain.Fund
					if err := doFundsUpdate(ctx, cfg, c.String("id"), attrs, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFund(out)
					return nil
				},
			},
		},
	}
}

func hierarchyCommand() *cli.Command {
	return &cli.Command{
		Name:  "hierarchy",
		Usage: "Ownership hierarchy commands",
		Commands: []*cli.Command{
			{
				Name:  "children",
				Usage: "List sub-funds below a fund",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "fund id"},
					&cli.IntFlag{Name: "depth", Usage: "traversal bound, defaults server-side"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.FundHierarchy
					if err := doHierarchyChildren(ctx, cfg, c.String("id"), c.Int("depth"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundChildren(out)
					return nil
				},
			},
			{
				Name:  "parents",
				Usage: "List parent chain above a fund or sub-fund",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "fund or sub-fund id"},
					&cli.IntFlag{Name: "depth", Usage: "traversal bound, defaults server-side"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ParentHierarchy
					if err := doHierarchyParents(ctx, cfg, c.String("id"), c.Int("depth"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundParents(out)
					return nil
				},
			},
			{
				Name:  "full",
				Usage: "Show parents and children around a node",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "fund or sub-fund id"},
					&cli.IntFlag{Name: "depth", Usage: "traversal bound, defaults server-side"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.FullHierarchy
					if err := doHierarchyFull(ctx, cfg, c.String("id"), c.Int("depth"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFullHierarchy(out)
					return nil
				},
			},
		},
	}
}

func legalCommand() *cli.Command {
	return &cli.Command{
		Name:  "legal",
		Usage: "Legal entity commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Get legal entity by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.LegalEntity
					if err := doLegalGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLegalEntity(out)
					return nil
				},
			},
			{
				Name:  "search",
				Usage: "Search legal entities",
				Flags: searchFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					filters, err := parseFilters(c.StringSlice("filter"))
					if err != nil {
						return err
					}
					var out domain.Page[domain.LegalEntity]
					if err := doLegalSearch(ctx, cfg, filters, c.Int("page"), c.Int("page-size"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLegalEntityPage(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create legal entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "lei"},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "jurisdiction"},
					&cli.StringFlag{Name: "entity-type"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					le := domain.LegalEntity{
						LEID:         c.String("id"),
						LEI:          c.String("lei"),
						LegalName:    c.String("name"),
						Jurisdiction: c.String("jurisdiction"),
						EntityType:   c.String("entity-type"),
					}
					var out domain.LegalEntity
					if err := doLegalCreate(ctx, cfg, le, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLegalEntity(out)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update legal entity attributes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringSliceFlag{Name: "set", Required: true, Usage: "field=value, repeatable"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					attrs, err := parseAttrs(c.StringSlice("set"))
					if err != nil {
						return err
					}
					var out domain.LegalEntity
					if err := doLegalUpdate(ctx, cfg, c.String("id"), attrs, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLegalEntity(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a legal entity with no remaining references",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doLegalDelete(ctx, cfg, c.String("id")); err != nil {
						return err
					}
					fmt.Printf("deleted %s\n", c.String("id"))
					return nil
				},
			},
		},
	}
}

func managementCommand() *cli.Command {
	return &cli.Command{
		Name:  "management",
		Usage: "Management entity commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Get management entity by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ManagementEntityView
					if err := doManagementGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printManagementView(out)
					return nil
				},
			},
			{
				Name:  "search",
				Usage: "Search management entities",
				Flags: searchFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					filters, err := parseFilters(c.StringSlice("filter"))
					if err != nil {
						return err
					}
					var out domain.Page[domain.ManagementEntityView]
					if err := doManagementSearch(ctx, cfg, filters, c.Int("page"), c.Int("page-size"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printManagementPage(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create management entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "le-id", Required: true},
					&cli.StringFlag{Name: "registration-no"},
					&cli.StringFlag{Name: "domicile"},
					&cli.StringFlag{Name: "entity-type"},
					&cli.StringFlag{Name: "status", Value: "ACTIVE"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					me := domain.ManagementEntity{
						MgmtID:         c.String("id"),
						LEID:           c.String("le-id"),
						RegistrationNo: c.String("registration-no"),
						Domicile:       c.String("domicile"),
						EntityType:     c.String("entity-type"),
						Status:         c.String("status"),
					}
					var out domain.ManagementEntity
					if err := doManagementCreate(ctx, cfg, me, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printManagementEntity(out)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update management entity attributes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringSliceFlag{Name: "set", Required: true, Usage: "field=value, repeatable"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					attrs, err := parseAttrs(c.StringSlice("set"))
					if err != nil {
						return err
					}
					var out domain.ManagementEntity
					if err := doManagementUpdate(ctx, cfg, c.String("id"), attrs, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printManagementEntity(out)
					return nil
				},
			},
			{
				Name:  "funds",
				Usage: "List funds run by a management entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.IntFlag{Name: "page"},
					&cli.IntFlag{Name: "page-size"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Page[domain.FundView]
					if err := doManagementFunds(ctx, cfg, c.String("id"), c.Int("page"), c.Int("page-size"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundPage(out)
					return nil
				},
			},
		},
	}
}

func subFundsCommand() *cli.Command {
	return &cli.Command{
		Name:  "subfunds",
		Usage: "Sub-fund commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Get sub-fund by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.SubFundView
					if err := doSubFundsGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSubFund(out.SubFund)
					return nil
				},
			},
			{
				Name:  "search",
				Usage: "Search sub-funds",
				Flags: searchFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					filters, err := parseFilters(c.StringSlice("filter"))
					if err != nil {
						return err
					}
					var out domain.Page[domain.SubFund]
					if err := doSubFundsSearch(ctx, cfg, filters, c.Int("page"), c.Int("page-size"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSubFundPage(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create sub-fund",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "parent-fund-id", Required: true},
					&cli.StringFlag{Name: "mgmt-id"},
					&cli.StringFlag{Name: "le-id"},
					&cli.StringFlag{Name: "isin-sub"},
					&cli.StringFlag{Name: "currency"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					sf := domain.SubFund{
						SubfundID:    c.String("id"),
						ParentFundID: c.String("parent-fund-id"),
						MgmtID:       c.String("mgmt-id"),
						LEID:         c.String("le-id"),
						ISINSub:      c.String("isin-sub"),
						Currency:     c.String("currency"),
					}
					var out domain.SubFund
					if err := doSubFundsCreate(ctx, cfg, sf, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSubFund(out)
					return nil
				},
			},
		},
	}
}

func shareClassesCommand() *cli.Command {
	return &cli.Command{
		Name:  "shareclasses",
		Usage: "Share class commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Get share class by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ShareClass
					if err := doShareClassesGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printShareClass(out)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List share classes, optionally for one owner",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "fund or sub-fund id"},
					&cli.IntFlag{Name: "page"},
					&cli.IntFlag{Name: "page-size"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Page[domain.ShareClass]
					if err := doShareClassesList(ctx, cfg, c.String("owner"), c.Int("page"), c.Int("page-size"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printShareClassPage(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create share class",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "owner", Required: true, Usage: "fund or sub-fund id"},
					&cli.StringFlag{Name: "isin"},
					&cli.StringFlag{Name: "currency"},
					&cli.StringFlag{Name: "distribution"},
					&cli.FloatFlag{Name: "fee-mgmt"},
					&cli.FloatFlag{Name: "perf-fee"},
					&cli.FloatFlag{Name: "expense-ratio"},
					&cli.FloatFlag{Name: "nav"},
					&cli.FloatFlag{Name: "aum"},
					&cli.StringFlag{Name: "status", Value: "ACTIVE"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					sc := domain.ShareClass{
						SCID:         c.String("id"),
						OwnerID:      c.String("owner"),
						ISINSC:       c.String("isin"),
						Currency:     c.String("currency"),
						Distribution: c.String("distribution"),
						FeeMgmt:      c.Float("fee-mgmt"),
						PerfFee:      c.Float("perf-fee"),
						ExpenseRatio: c.Float("expense-ratio"),
						NAV:          c.Float("nav"),
						AUM:          c.Float("aum"),
						Status:       c.String("status"),
					}
					var out domain.ShareClass
					if err := doShareClassesCreate(ctx, cfg, sc, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printShareClass(out)
					return nil
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Aggregation statistics commands",
		Commands: []*cli.Command{
			{
				Name:  "funds",
				Usage: "Fund statistics",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.FundStatistics
					if err := doStatsFunds(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFundStatistics(out)
					return nil
				},
			},
			{
				Name:  "management",
				Usage: "Management entity statistics",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ManagementStatistics
					if err := doStatsManagement(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printManagementStatistics(out)
					return nil
				},
			},
			{
				Name:  "dashboard",
				Usage: "Combined dashboard statistics",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.DashboardStatistics
					if err := doStatsDashboard(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printDashboardStatistics(out)
					return nil
				},
			},
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
