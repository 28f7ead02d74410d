package sqlite

import "time"

type LegalEntityModel struct {
	ID           uint   `gorm:"primaryKey"`
	LEID         string `gorm:"column:le_id;uniqueIndex;not null"`
	LEI          string `gorm:"column:lei;index"`
	LegalName    string `gorm:"not null"`
	Jurisdiction string
	EntityType   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (LegalEntityModel) TableName() string { return "legal_entities" }

type ManagementEntityModel struct {
	ID             uint   `gorm:"primaryKey"`
	MgmtID         string `gorm:"column:mgmt_id;uniqueIndex;not null"`
	LEID           string `gorm:"column:le_id;not null;index"`
	RegistrationNo string `gorm:"index"`
	Domicile       string
	EntityType     string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ManagementEntityModel) TableName() string { return "management_entities" }

type FundModel struct {
	ID            uint   `gorm:"primaryKey"`
	FundID        string `gorm:"column:fund_id;uniqueIndex;not null"`
	MgmtID        string `gorm:"column:mgmt_id;not null;index"`
	LEID          string `gorm:"column:le_id;not null;index"`
	FundCode      string `gorm:"index"`
	FundName      string `gorm:"not null"`
	FundType      string `gorm:"index"`
	BaseCurrency  string
	Domicile      string
	ISINMaster    string `gorm:"column:isin_master;index"`
	Status        string `gorm:"index"`
	InceptionDate string
	AUM           float64 `gorm:"column:aum"`
	ExpenseRatio  float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (FundModel) TableName() string { return "funds" }

type SubFundModel struct {
	ID           uint   `gorm:"primaryKey"`
	SubfundID    string `gorm:"column:subfund_id;uniqueIndex;not null"`
	ParentFundID string `gorm:"column:parent_fund_id;not null;index"`
	MgmtID       string `gorm:"column:mgmt_id;index"`
	LEID         string `gorm:"column:le_id;index"`
	ISINSub      string `gorm:"column:isin_sub;index"`
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SubFundModel) TableName() string { return "subfunds" }

type ShareClassModel struct {
	ID           uint   `gorm:"primaryKey"`
	SCID         string `gorm:"column:sc_id;uniqueIndex;not null"`
	OwnerID      string `gorm:"column:owner_id;not null;index"`
	ISINSC       string `gorm:"column:isin_sc;index"`
	Currency     string
	Distribution string
	FeeMgmt      float64
	PerfFee      float64
	ExpenseRatio float64
	NAV          float64 `gorm:"column:nav"`
	AUM          float64 `gorm:"column:aum"`
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ShareClassModel) TableName() string { return "share_classes" }
