package domain

import "context"

// ReferentialRepository is the storage port for the ownership graph.
//
// Update methods take a map of mutable attribute names; keys and ownership
// references are never updatable and unknown names fail with
// ErrInvalidArgument. Search methods accept whitelisted filters and a page
// request that the caller has already validated.
type ReferentialRepository interface {
	GetLegalEntity(ctx context.Context, leID string) (LegalEntity, error)
	SearchLegalEntities(ctx context.Context, filters Filters, page PageRequest) (Page[LegalEntity], error)
	CreateLegalEntity(ctx context.Context, le LegalEntity) (LegalEntity, error)
	UpdateLegalEntity(ctx context.Context, leID string, attrs map[string]any) (LegalEntity, error)
	// DeleteLegalEntity refuses with ErrStillReferenced while any management
	// entity, fund or sub-fund still points at the target.
	DeleteLegalEntity(ctx context.Context, leID string) error

	GetManagementEntity(ctx context.Context, mgmtID string) (ManagementEntityView, error)
	SearchManagementEntities(ctx context.Context, filters Filters, page PageRequest) (Page[ManagementEntityView], error)
	CreateManagementEntity(ctx context.Context, me ManagementEntity) (ManagementEntity, error)
	UpdateManagementEntity(ctx context.Context, mgmtID string, attrs map[string]any) (ManagementEntity, error)
	FundsByManagementEntity(ctx context.Context, mgmtID string, page PageRequest) (Page[FundView], error)

	GetFund(ctx context.Context, fundID string) (FundView, error)
	GetFundByCode(ctx context.Context, fundCode string) (FundView, error)
	SearchFunds(ctx context.Context, filters Filters, page PageRequest) (Page[FundView], error)
	// CreateFund allocates the next fund id when the incoming record carries
	// none; bulk loads supply explicit ids through the same method.
	CreateFund(ctx context.Context, f Fund) (Fund, error)
	UpdateFund(ctx context.Context, fundID string, attrs map[string]any) (Fund, error)

	GetSubFund(ctx context.Context, subfundID string) (SubFundView, error)
	SearchSubFunds(ctx context.Context, filters Filters, page PageRequest) (Page[SubFund], error)
	CreateSubFund(ctx context.Context, sf SubFund) (SubFund, error)
	UpdateSubFund(ctx context.Context, subfundID string, attrs map[string]any) (SubFund, error)

	GetShareClass(ctx context.Context, scID string) (ShareClass, error)
	SearchShareClasses(ctx context.Context, filters Filters, page PageRequest) (Page[ShareClass], error)
	CreateShareClass(ctx context.Context, sc ShareClass) (ShareClass, error)
	UpdateShareClass(ctx context.Context, scID string, attrs map[string]any) (ShareClass, error)

	// FundDescendants walks down the parent-fund edges from fundID, at most
	// depth hops. FundAncestors walks up from a fund or sub-fund key.
	FundDescendants(ctx context.Context, fundID string, depth int) (FundHierarchy, error)
	FundAncestors(ctx context.Context, key string, depth int) (ParentHierarchy, error)
	// DescendantsOf walks down from any fund or sub-fund key without
	// resolving a root view. The combined hierarchy operation uses it after
	// FundAncestors has already identified the root.
	DescendantsOf(ctx context.Context, key string, depth int) ([]HierarchyEntry, error)
	// AttachChainRelations resolves the management and legal entities
	// referenced by hierarchy entries, for combined results.
	AttachChainRelations(ctx context.Context, entries []HierarchyEntry) ([]HierarchyEntry, error)

	FundStatistics(ctx context.Context) (FundStatistics, error)
	ManagementStatistics(ctx context.Context) (ManagementStatistics, error)

	// Reset truncates the five reference tables. Used by bulk ingest.
	Reset(ctx context.Context) error
}
