package domain

// LegalEntity is the leaf node of the ownership graph. Funds, sub-funds and
// management entities all anchor to one.
type LegalEntity struct {
	LEID         string `json:"le_id"`
	LEI          string `json:"lei"`
	LegalName    string `json:"legal_name"`
	Jurisdiction string `json:"jurisdiction"`
	EntityType   string `json:"entity_type"`
}

type ManagementEntity struct {
	MgmtID         string `json:"mgmt_id"`
	LEID           string `json:"le_id"`
	RegistrationNo string `json:"registration_no"`
	Domicile       string `json:"domicile"`
	EntityType     string `json:"entity_type"`
	Status         string `json:"status"`
}

type Fund struct {
	FundID        string  `json:"fund_id"`
	MgmtID        string  `json:"mgmt_id"`
	LEID          string  `json:"le_id"`
	FundCode      string  `json:"fund_code"`
	FundName      string  `json:"fund_name"`
	FundType      string  `json:"fund_type"`
	BaseCurrency  string  `json:"base_currency"`
	Domicile      string  `json:"domicile"`
	ISINMaster    string  `json:"isin_master"`
	Status        string  `json:"status"`
	InceptionDate string  `json:"inception_date"`
	AUM           float64 `json:"aum"`
	ExpenseRatio  float64 `json:"expense_ratio"`
}

// SubFund hangs under a fund or under another sub-fund through ParentFundID.
type SubFund struct {
	SubfundID    string `json:"subfund_id"`
	ParentFundID string `json:"parent_fund_id"`
	MgmtID       string `json:"mgmt_id"`
	LEID         string `json:"le_id"`
	ISINSub      string `json:"isin_sub"`
	Currency     string `json:"currency"`
}

// ShareClass belongs to exactly one owner; OwnerID names a fund or sub-fund.
type ShareClass struct {
	SCID         string  `json:"sc_id"`
	OwnerID      string  `json:"owner_id"`
	ISINSC       string  `json:"isin_sc"`
	Currency     string  `json:"currency"`
	Distribution string  `json:"distribution"`
	FeeMgmt      float64 `json:"fee_mgmt"`
	PerfFee      float64 `json:"perf_fee"`
	ExpenseRatio float64 `json:"expense_ratio"`
	NAV          float64 `json:"nav"`
	AUM          float64 `json:"aum"`
	Status       string  `json:"status"`
}

// Read views. Related entities are pointers without omitempty: nil serializes
// as an explicit null, meaning the reference did not resolve.

type ManagementEntityView struct {
	ManagementEntity
	LegalEntity *LegalEntity `json:"legal_entity"`
	TotalFunds  int64        `json:"total_funds"`
}

type FundView struct {
	Fund
	ManagementEntity *ManagementEntityView `json:"management_entity"`
	LegalEntity      *LegalEntity          `json:"legal_entity"`
	ShareClasses     []ShareClass          `json:"share_classes"`
	SubFunds         []SubFund             `json:"subfunds"`
}

type SubFundView struct {
	SubFund
	ManagementEntity *ManagementEntityView `json:"management_entity"`
	LegalEntity      *LegalEntity          `json:"legal_entity"`
	ShareClasses     []ShareClass          `json:"share_classes"`
}

// Node type labels in hierarchy results.
const (
	NodeTypeFund    = "Fund"
	NodeTypeSubFund = "SubFund"
)

// HierarchyEntry is one node reached by a bounded traversal, annotated with
// the hop distance from the queried root. Exactly one of Fund/SubFund is set,
// matching NodeType. ManagementEntity and LegalEntity are resolved only for
// combined hierarchy results; plain descendant/ancestor entries stay bare.
type HierarchyEntry struct {
	NodeType string   `json:"node_type"`
	Depth    int      `json:"depth"`
	Fund     *Fund    `json:"fund,omitempty"`
	SubFund  *SubFund `json:"subfund,omitempty"`

	ManagementEntity *ManagementEntity `json:"management_entity,omitempty"`
	LegalEntity      *LegalEntity      `json:"legal_entity,omitempty"`
}

// FundHierarchy is the descendant view of a fund: every sub-fund whose parent
// chain reaches the root within Depth hops.
type FundHierarchy struct {
	Root     FundView         `json:"root"`
	Children []HierarchyEntry `json:"children"`
	Depth    int              `json:"depth"`
}

// ParentHierarchy is the ancestor view of a fund or sub-fund. A plain fund
// has NodeType "Fund" and an empty parent list.
type ParentHierarchy struct {
	NodeType string           `json:"node_type"`
	Fund     *FundView        `json:"fund,omitempty"`
	SubFund  *SubFundView     `json:"subfund,omitempty"`
	Parents  []HierarchyEntry `json:"parents"`
	Depth    int              `json:"depth"`
}

// FullHierarchy combines both directions around a single node.
type FullHierarchy struct {
	NodeType string           `json:"node_type"`
	Fund     *FundView        `json:"fund,omitempty"`
	SubFund  *SubFundView     `json:"subfund,omitempty"`
	Parents  []HierarchyEntry `json:"parents"`
	Children []HierarchyEntry `json:"children"`
	Depth    int              `json:"depth"`
}

// Filters maps filter field name to raw value. Empty values are skipped;
// unrecognized names are rejected by the store.
type Filters map[string]string

type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is the paginated result envelope. Total and Data come from two
// separate reads, so Total may be stale relative to concurrent writes.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPage[T any](data []T, total int64, req PageRequest) Page[T] {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}
}

type NameCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type FundStatistics struct {
	TotalFunds      int64            `json:"total_funds"`
	ActiveFunds     int64            `json:"active_funds"`
	InactiveFunds   int64            `json:"inactive_funds"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
	FundsByType     []NameCount      `json:"funds_by_type"`
}

type ManagementStatistics struct {
	TotalManagementEntities int64            `json:"total_management_entities"`
	StatusBreakdown         map[string]int64 `json:"status_breakdown"`
}

// DashboardStatistics merges fund and management statistics. The management
// breakdown keeps its own key so the two namespaces stay disjoint.
type DashboardStatistics struct {
	FundStatistics
	TotalManagementEntities   int64            `json:"total_management_entities"`
	ManagementStatusBreakdown map[string]int64 `json:"management_status_breakdown"`
}

// IngestSummary reports per-file row counts after a bulk load.
type IngestSummary struct {
	LegalEntities      int `json:"legal_entities"`
	ManagementEntities int `json:"management_entities"`
	Funds              int `json:"funds"`
	SubFunds           int `json:"subfunds"`
	ShareClasses       int `json:"share_classes"`
}
