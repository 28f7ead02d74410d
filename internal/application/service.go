package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

const (
	defaultTraversalDepth = 3
	maxTraversalDepth     = 16
)

// ReferentialService validates requests and orchestrates the repository.
// Everything storage-specific stays behind the domain port.
type ReferentialService struct {
	repo domain.ReferentialRepository
}

func NewReferentialService(repo domain.ReferentialRepository) *ReferentialService {
	return &ReferentialService{repo: repo}
}

func (s *ReferentialService) GetLegalEntity(ctx context.Context, leID string) (domain.LegalEntity, error) {
	if strings.TrimSpace(leID) == "" {
		return domain.LegalEntity{}, fmt.Errorf("%w: le_id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetLegalEntity(ctx, leID)
}

func (s *ReferentialService) SearchLegalEntities(ctx context.Context, filters domain.Filters, page, pageSize int) (domain.Page[domain.LegalEntity], error) {
	req, err := normalizePage(page, pageSize)
	if err != nil {
		return domain.Page[domain.LegalEntity]{}, err
	}
	return s.repo.SearchLegalEntities(ctx, filters, req)
}

func (s *ReferentialService) CreateLegalEntity(ctx context.Context, le domain.LegalEntity) (domain.LegalEntity, error) {
	if strings.TrimSpace(le.LEID) == "" || strings.TrimSpace(le.LegalName) == "" {
		return domain.LegalEntity{}, fmt.Errorf("%w: le_id and legal_name are required", domain.ErrInvalidArgument)
	}
	return s.repo.CreateLegalEntity(ctx, le)
}

func (s *ReferentialService) UpdateLegalEntity(ctx context.Context, leID string, attrs map[string]any) (domain.LegalEntity, error) {
	if strings.TrimSpace(leID) == "" {
		return domain.LegalEntity{}, fmt.Errorf("%w: le_id is required", domain.ErrInvalidArgument)
	}
	if len(attrs) == 0 {
		return domain.LegalEntity{}, fmt.Errorf("%w: no attributes to update", domain.ErrInvalidArgument)
	}
	return s.repo.UpdateLegalEntity(ctx, leID, attrs)
}

func (s *ReferentialService) DeleteLegalEntity(ctx context.Context, leID string) error {
	if strings.TrimSpace(leID) == "" {
		return fmt.Errorf("%w: le_id is required", domain.ErrInvalidArgument)
	}
	return s.repo.DeleteLegalEntity(ctx, leID)
}

func (s *ReferentialService) GetManagementEntity(ctx context.Context, mgmtID string) (domain.ManagementEntityView, error) {
	if strings.TrimSpace(mgmtID) == "" {
		return domain.ManagementEntityView{}, fmt.Errorf("%w: mgmt_id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetManagementEntity(ctx, mgmtID)
}

func (s *ReferentialService) SearchManagementEntities(ctx context.Context, filters domain.Filters, page, pageSize int) (domain.Page[domain.ManagementEntityView], error) {
	req, err := normalizePage(page, pageSize)
	if err != nil {
		return domain.Page[domain.ManagementEntityView]{}, err
	}
	return s.repo.SearchManagementEntities(ctx, filters, req)
}

func (s *ReferentialService) CreateManagementEntity(ctx context.Context, me domain.ManagementEntity) (domain.ManagementEntity, error) {
	if strings.TrimSpace(me.MgmtID) == "" || strings.TrimSpace(me.LEID) == "" {
		return domain.ManagementEntity{}, fmt.Errorf("%w: mgmt_id and le_id are required", domain.ErrInvalidArgument)
	}
	return s.repo.CreateManagementEntity(ctx, me)
}

func (s *ReferentialService) UpdateManagementEntity(ctx context.Context, mgmtID string, attrs map[string]any) (domain.ManagementEntity, error) {
	if strings.TrimSpace(mgmtID) == "" {
		return domain.ManagementEntity{}, fmt.Errorf("%w: mgmt_id is required", domain.ErrInvalidArgument)
	}
	if len(attrs) == 0 {
		return domain.ManagementEntity{}, fmt.Errorf("%w: no attributes to update", domain.ErrInvalidArgument)
	}
	return s.repo.UpdateManagementEntity(ctx, mgmtID, attrs)
}

func (s *ReferentialService) FundsByManagementEntity(ctx context.Context, mgmtID string, page, pageSize int) (domain.Page[domain.FundView], error) {
	if strings.TrimSpace(mgmtID) == "" {
		return domain.Page[domain.FundView]{}, fmt.Errorf("%w: mgmt_id is required", domain.ErrInvalidArgument)
	}
	req, err := normalizePage(page, pageSize)
	if err != nil {
		return domain.Page[domain.FundView]{}, err
	}
	return s.repo.FundsByManagementEntity(ctx, mgmtID, req)
}

func (s *ReferentialService) GetFund(ctx context.Context, fundID string) (domain.FundView, error) {
	if strings.TrimSpace(fundID) == "" {
		return domain.FundView{}, fmt.Errorf("%w: fund_id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetFund(ctx, fundID)
}

func (s *ReferentialService) GetFundByCode(ctx context.Context, fundCode string) (domain.FundView, error) {
	if strings.TrimSpace(fundCode) == "" {
		return domain.FundView{}, fmt.Errorf("%w: fund_code is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetFundByCode(ctx, fundCode)
}

func (s *ReferentialService) SearchFunds(ctx context.Context, filters domain.Filters, page, pageSize int) (domain.Page[domain.FundView], error) {
	req, err := normalizePage(page, pageSize)
	if err != nil {
		return domain.Page[domain.FundView]{}, err
	}
	return s.repo.SearchFunds(ctx, filters, req)
}

func (s *ReferentialService) CreateFund(ctx context.Context, f domain.Fund) (domain.Fund, error) {
	if strings.TrimSpace(f.MgmtID) == "" || strings.TrimSpace(f.LEID) == "" {
		return domain.Fund{}, fmt.Errorf("%w: mgmt_id and le_id are required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(f.FundName) == "" {
		return domain.Fund{}, fmt.Errorf("%w: fund_name is required", domain.ErrInvalidArgument)
	}
	return s.repo.CreateFund(ctx, f)
}

func (s *ReferentialService) UpdateFund(ctx context.Context, fundID string, attrs map[string]any) (domain.Fund, error) {
	if strings.TrimSpace(fundID) == "" {
		return domain.Fund{}, fmt.Errorf("%w: fund_id is required", domain.ErrInvalidArgument)
	}
	if len(attrs) == 0 {
		return domain.Fund{}, fmt.Errorf("%w: no attributes to update", domain.ErrInvalidArgument)
	}
	return s.repo.UpdateFund(ctx, fundID, attrs)
}

func (s *ReferentialService) GetSubFund(ctx context.Context, subfundID string) (domain.SubFundView, error) {
	if strings.TrimSpace(subfundID) == "" {
		return domain.SubFundView{}, fmt.Errorf("%w: subfund_id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetSubFund(ctx, subfundID)
}

func (s *ReferentialService) SearchSubFunds(ctx context.Context, filters domain.Filters, page, pageSize int) (domain.Page[domain.SubFund], error) {
	req, err := normalizePage(page, pageSize)
	if err != nil {
		return domain.Page[domain.SubFund]{}, err
	}
	return s.repo.SearchSubFunds(ctx, filters, req)
}

func (s *ReferentialService) CreateSubFund(ctx context.Context, sf domain.SubFund) (domain.SubFund, error) {
	if strings.TrimSpace(sf.SubfundID) == "" || strings.TrimSpace(sf.ParentFundID) == "" {
		return domain.SubFund{}, fmt.Errorf("%w: subfund_id and parent_fund_id are required", domain.ErrInvalidArgument)
	}
	return s.repo.CreateSubFund(ctx, sf)
}

func (s *ReferentialService) UpdateSubFund(ctx context.Context, subfundID string, attrs map[string]any) (domain.SubFund, error) {
	if strings.TrimSpace(subfundID) == "" {
		return domain.SubFund{}, fmt.Errorf("%w: subfund_id is required", domain.ErrInvalidArgument)
	}
	if len(attrs) == 0 {
		return domain.SubFund{}, fmt.Errorf("%w: no attributes to update", domain.ErrInvalidArgument)
	}
	return s.repo.UpdateSubFund(ctx, subfundID, attrs)
}

func (s *ReferentialService) GetShareClass(ctx context.Context, scID string) (domain.ShareClass, error) {
	if strings.TrimSpace(scID) == "" {
		return domain.ShareClass{}, fmt.Errorf("%w: sc_id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetShareClass(ctx, scID)
}

func (s *ReferentialService) SearchShareClasses(ctx context.Context, filters domain.Filters, page, pageSize int) (domain.Page[domain.ShareClass], error) {
	req, err := normalizePage(page, pageSize)
	if err != nil {
		return domain.Page[domain.ShareClass]{}, err
	}
	return s.repo.SearchShareClasses(ctx, filters, req)
}

func (s *ReferentialService) CreateShareClass(ctx context.Context, sc domain.ShareClass) (domain.ShareClass, error) {
	if strings.TrimSpace(sc.SCID) == "" || strings.TrimSpace(sc.OwnerID) == "" {
		return domain.ShareClass{}, fmt.Errorf("%w: sc_id and owner_id are required", domain.ErrInvalidArgument)
	}
	return s.repo.CreateShareClass(ctx, sc)
}

func (s *ReferentialService) UpdateShareClass(ctx context.Context, scID string, attrs map[string]any) (domain.ShareClass, error) {
	if strings.TrimSpace(scID) == "" {
		return domain.ShareClass{}, fmt.Errorf("%w: sc_id is required", domain.ErrInvalidArgument)
	}
	if len(attrs) == 0 {
		return domain.ShareClass{}, fmt.Errorf("%w: no attributes to update", domain.ErrInvalidArgument)
	}
	return s.repo.UpdateShareClass(ctx, scID, attrs)
}

// normalizeDepth defaults an unset depth and rejects negatives. Requests
// above the traversal ceiling are clamped rather than rejected.
func normalizeDepth(depth int) (int, error) {
	if depth == 0 {
		return defaultTraversalDepth, nil
	}
	if depth < 0 {
		return 0, fmt.Errorf("%w: depth must be >= 1, got %d", domain.ErrInvalidArgument, depth)
	}
	if depth > maxTraversalDepth {
		return maxTraversalDepth, nil
	}
	return depth, nil
}

func (s *ReferentialService) FundDescendants(ctx context.Context, fundID string, depth int) (domain.FundHierarchy, error) {
	if strings.TrimSpace(fundID) == "" {
		return domain.FundHierarchy{}, fmt.Errorf("%w: fund_id is required", domain.ErrInvalidArgument)
	}
	d, err := normalizeDepth(depth)
	if err != nil {
		return domain.FundHierarchy{}, err
	}
	return s.repo.FundDescendants(ctx, fundID, d)
}

func (s *ReferentialService) FundAncestors(ctx context.Context, key string, depth int) (domain.ParentHierarchy, error) {
	if strings.TrimSpace(key) == "" {
		return domain.ParentHierarchy{}, fmt.Errorf("%w: id is required", domain.ErrInvalidArgument)
	}
	d, err := normalizeDepth(depth)
	if err != nil {
		return domain.ParentHierarchy{}, err
	}
	return s.repo.FundAncestors(ctx, key, d)
}

// FundHierarchy resolves both directions around one node. Descendants are
// resolved for fund and sub-fund roots alike, since a sub-fund may parent
// further sub-funds. Chain entries carry their management and legal entity.
func (s *ReferentialService) FundHierarchy(ctx context.Context, key string, depth int) (domain.FullHierarchy, error) {
	if strings.TrimSpace(key) == "" {
		return domain.FullHierarchy{}, fmt.Errorf("%w: id is required", domain.ErrInvalidArgument)
	}
	d, err := normalizeDepth(depth)
	if err != nil {
		return domain.FullHierarchy{}, err
	}

	parents, err := s.repo.FundAncestors(ctx, key, d)
	if err != nil {
		return domain.FullHierarchy{}, err
	}
	children, err := s.repo.DescendantsOf(ctx, key, d)
	if err != nil {
		return domain.FullHierarchy{}, err
	}

	chainParents, err := s.repo.AttachChainRelations(ctx, parents.Parents)
	if err != nil {
		return domain.FullHierarchy{}, err
	}
	chainChildren, err := s.repo.AttachChainRelations(ctx, children)
	if err != nil {
		return domain.FullHierarchy{}, err
	}

	return domain.FullHierarchy{
		NodeType: parents.NodeType,
		Fund:     parents.Fund,
		SubFund:  parents.SubFund,
		Parents:  chainParents,
		Children: chainChildren,
		Depth:    d,
	}, nil
}

func (s *ReferentialService) FundStatistics(ctx context.Context) (domain.FundStatistics, error) {
	return s.repo.FundStatistics(ctx)
}

func (s *ReferentialService) ManagementStatistics(ctx context.Context) (domain.ManagementStatistics, error) {
	return s.repo.ManagementStatistics(ctx)
}

func (s *ReferentialService) DashboardStatistics(ctx context.Context) (domain.DashboardStatistics, error) {
	funds, err := s.repo.FundStatistics(ctx)
	if err != nil {
		return domain.DashboardStatistics{}, err
	}
	mgmt, err := s.repo.ManagementStatistics(ctx)
	if err != nil {
		return domain.DashboardStatistics{}, err
	}
	return domain.DashboardStatistics{
		FundStatistics:            funds,
		TotalManagementEntities:   mgmt.TotalManagementEntities,
		ManagementStatusBreakdown: mgmt.StatusBreakdown,
	}, nil
}

func (s *ReferentialService) Reset(ctx context.Context) error {
	return s.repo.Reset(ctx)
}
