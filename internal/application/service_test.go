package application

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

// stubRepo records the arguments the service hands down and returns canned
// hierarchy results.
type stubRepo struct {
	lastPage  domain.PageRequest
	lastDepth int

	ancestors   domain.ParentHierarchy
	descendants domain.FundHierarchy
}

func (s *stubRepo) GetLegalEntity(ctx context.Context, leID string) (domain.LegalEntity, error) {
	return domain.LegalEntity{LEID: leID}, nil
}

func (s *stubRepo) SearchLegalEntities(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.LegalEntity], error) {
	s.lastPage = page
	return domain.NewPage([]domain.LegalEntity{}, 0, page), nil
}

func (s *stubRepo) CreateLegalEntity(ctx context.Context, le domain.LegalEntity) (domain.LegalEntity, error) {
	return le, nil
}

func (s *stubRepo) UpdateLegalEntity(ctx context.Context, leID string, attrs map[string]any) (domain.LegalEntity, error) {
	return domain.LegalEntity{LEID: leID}, nil
}

func (s *stubRepo) DeleteLegalEntity(ctx context.Context, leID string) error { return nil }

func (s *stubRepo) GetManagementEntity(ctx context.Context, mgmtID string) (domain.ManagementEntityView, error) {
	return domain.ManagementEntityView{}, nil
}

func (s *stubRepo) SearchManagementEntities(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.ManagementEntityView], error) {
	s.lastPage = page
	return domain.NewPage([]domain.ManagementEntityView{}, 0, page), nil
}

func (s *stubRepo) CreateManagementEntity(ctx context.Context, me domain.ManagementEntity) (domain.ManagementEntity, error) {
	return me, nil
}

func (s *stubRepo) UpdateManagementEntity(ctx context.Context, mgmtID string, attrs map[string]any) (domain.ManagementEntity, error) {
	return domain.ManagementEntity{MgmtID: mgmtID}, nil
}

func (s *stubRepo) FundsByManagementEntity(ctx context.Context, mgmtID string, page domain.PageRequest) (domain.Page[domain.FundView], error) {
	s.lastPage = page
	return domain.NewPage([]domain.FundView{}, 0, page), nil
}

func (s *stubRepo) GetFund(ctx context.Context, fundID string) (domain.FundView, error) {
	return domain.FundView{}, nil
}

func (s *stubRepo) GetFundByCode(ctx context.Context, fundCode string) (domain.FundView, error) {
	return domain.FundView{}, nil
}

func (s *stubRepo) SearchFunds(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.FundView], error) {
	s.lastPage = page
	return domain.NewPage([]domain.FundView{}, 0, page), nil
}

func (s *stubRepo) CreateFund(ctx context.Context, f domain.Fund) (domain.Fund, error) { return f, nil }

func (s *stubRepo) UpdateFund(ctx context.Context, fundID string, attrs map[string]any) (domain.Fund, error) {
	return domain.Fund{FundID: fundID}, nil
}

func (s *stubRepo) GetSubFund(ctx context.Context, subfundID string) (domain.SubFundView, error) {
	return domain.SubFundView{}, nil
}

func (s *stubRepo) SearchSubFunds(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.SubFund], error) {
	s.lastPage = page
	return domain.NewPage([]domain.SubFund{}, 0, page), nil
}

func (s *stubRepo) CreateSubFund(ctx context.Context, sf domain.SubFund) (domain.SubFund, error) {
	return sf, nil
}

func (s *stubRepo) UpdateSubFund(ctx context.Context, subfundID string, attrs map[string]any) (domain.SubFund, error) {
	return domain.SubFund{SubfundID: subfundID}, nil
}

func (s *stubRepo) GetShareClass(ctx context.Context, scID string) (domain.ShareClass, error) {
	return domain.ShareClass{SCID: scID}, nil
}

func (s *stubRepo) SearchShareClasses(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.ShareClass], error) {
	s.lastPage = page
	return domain.NewPage([]domain.ShareClass{}, 0, page), nil
}

func (s *stubRepo) CreateShareClass(ctx context.Context, sc domain.ShareClass) (domain.ShareClass, error) {
	return sc, nil
}

func (s *stubRepo) UpdateShareClass(ctx context.Context, scID string, attrs map[string]any) (domain.ShareClass, error) {
	return domain.ShareClass{SCID: scID}, nil
}

func (s *stubRepo) FundDescendants(ctx context.Context, fundID string, depth int) (domain.FundHierarchy, error) {
	s.lastDepth = depth
	out := s.descendants
	out.Depth = depth
	return out, nil
}

func (s *stubRepo) FundAncestors(ctx context.Context, key string, depth int) (domain.ParentHierarchy, error) {
	s.lastDepth = depth
	out := s.ancestors
	out.Depth = depth
	return out, nil
}

func (s *stubRepo) DescendantsOf(ctx context.Context, key string, depth int) ([]domain.HierarchyEntry, error) {
	s.lastDepth = depth
	return s.descendants.Children, nil
}

func (s *stubRepo) AttachChainRelations(ctx context.Context, entries []domain.HierarchyEntry) ([]domain.HierarchyEntry, error) {
	return entries, nil
}

func (s *stubRepo) FundStatistics(ctx context.Context) (domain.FundStatistics, error) {
	return domain.FundStatistics{
		TotalFunds:      5,
		ActiveFunds:     4,
		InactiveFunds:   1,
		StatusBreakdown: map[string]int64{"ACTIVE": 4, "CLOSED": 1},
	}, nil
}

func (s *stubRepo) ManagementStatistics(ctx context.Context) (domain.ManagementStatistics, error) {
	return domain.ManagementStatistics{
		TotalManagementEntities: 2,
		StatusBreakdown:         map[string]int64{"ACTIVE": 2},
	}, nil
}

func (s *stubRepo) Reset(ctx context.Context) error { return nil }

func TestServiceRejectsMissingRequiredKeys(t *testing.T) {
	ctx := context.Background()
	svc := NewReferentialService(&stubRepo{})

	if _, err := svc.GetFund(ctx, "  "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("GetFund blank id: %v", err)
	}
	if _, err := svc.CreateFund(ctx, domain.Fund{MgmtID: "M", LEID: "L"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("CreateFund without name: %v", err)
	}
	if _, err := svc.CreateFund(ctx, domain.Fund{FundName: "N", LEID: "L"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("CreateFund without mgmt_id: %v", err)
	}
	if _, err := svc.UpdateFund(ctx, "F000001", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("UpdateFund empty attrs: %v", err)
	}
	if _, err := svc.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-1"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("CreateSubFund without parent: %v", err)
	}
	if _, err := svc.CreateShareClass(ctx, domain.ShareClass{SCID: "SC-1"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("CreateShareClass without owner: %v", err)
	}
	if err := svc.DeleteLegalEntity(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("DeleteLegalEntity blank id: %v", err)
	}
}

func TestServiceNormalizesPaging(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{}
	svc := NewReferentialService(repo)

	if _, err := svc.SearchFunds(ctx, nil, 0, 0); err != nil {
		t.Fatalf("SearchFunds: %v", err)
	}
	if repo.lastPage.Page != 1 || repo.lastPage.PageSize != 10 {
		t.Fatalf("defaults not applied: %+v", repo.lastPage)
	}

	if _, err := svc.SearchFunds(ctx, nil, 2, 50); err != nil {
		t.Fatalf("SearchFunds explicit: %v", err)
	}
	if repo.lastPage.Page != 2 || repo.lastPage.PageSize != 50 {
		t.Fatalf("explicit paging lost: %+v", repo.lastPage)
	}

	if _, err := svc.SearchFunds(ctx, nil, 1, 1000); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument above page size cap, got %v", err)
	}
}

func TestServiceNormalizesDepth(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{}
	svc := NewReferentialService(repo)

	if _, err := svc.FundDescendants(ctx, "F000001", 0); err != nil {
		t.Fatalf("FundDescendants: %v", err)
	}
	if repo.lastDepth != 3 {
		t.Fatalf("expected default depth 3, got %d", repo.lastDepth)
	}

	if _, err := svc.FundDescendants(ctx, "F000001", 99); err != nil {
		t.Fatalf("FundDescendants clamp: %v", err)
	}
	if repo.lastDepth != 16 {
		t.Fatalf("expected clamp at 16, got %d", repo.lastDepth)
	}

	if _, err := svc.FundDescendants(ctx, "F000001", -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative depth, got %v", err)
	}
	if _, err := svc.FundAncestors(ctx, "SF-1", -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative depth, got %v", err)
	}
}

func TestFundHierarchyCombinesDirections(t *testing.T) {
	ctx := context.Background()
	fund := domain.Fund{FundID: "F000001", FundName: "Umbrella"}
	sub := domain.SubFund{SubfundID: "SF-1", ParentFundID: "F000001"}

	repo := &stubRepo{
		ancestors: domain.ParentHierarchy{
			NodeType: domain.NodeTypeFund,
			Fund:     &domain.FundView{Fund: fund},
			Parents:  []domain.HierarchyEntry{},
		},
		descendants: domain.FundHierarchy{
			Root: domain.FundView{Fund: fund},
			Children: []domain.HierarchyEntry{
				{NodeType: domain.NodeTypeSubFund, Depth: 1, SubFund: &sub},
			},
		},
	}
	svc := NewReferentialService(repo)

	full, err := svc.FundHierarchy(ctx, "F000001", 0)
	if err != nil {
		t.Fatalf("FundHierarchy: %v", err)
	}
	if full.NodeType != domain.NodeTypeFund || full.Fund == nil {
		t.Fatalf("fund root lost: %+v", full)
	}
	if len(full.Children) != 1 || full.Children[0].SubFund.SubfundID != "SF-1" {
		t.Fatalf("descendants missing: %+v", full.Children)
	}
	if full.Depth != 3 {
		t.Fatalf("expected normalized depth 3, got %d", full.Depth)
	}

	// A sub-fund root resolves both directions: its ancestor chain and any
	// sub-funds parented under it.
	leaf := domain.SubFund{SubfundID: "SF-2", ParentFundID: "SF-1"}
	repo.ancestors = domain.ParentHierarchy{
		NodeType: domain.NodeTypeSubFund,
		SubFund:  &domain.SubFundView{SubFund: sub},
		Parents: []domain.HierarchyEntry{
			{NodeType: domain.NodeTypeFund, Depth: 1, Fund: &fund},
		},
	}
	repo.descendants = domain.FundHierarchy{
		Children: []domain.HierarchyEntry{
			{NodeType: domain.NodeTypeSubFund, Depth: 1, SubFund: &leaf},
		},
	}
	full, err = svc.FundHierarchy(ctx, "SF-1", 2)
	if err != nil {
		t.Fatalf("FundHierarchy subfund: %v", err)
	}
	if full.NodeType != domain.NodeTypeSubFund || full.SubFund == nil {
		t.Fatalf("subfund root lost: %+v", full)
	}
	if len(full.Parents) != 1 || len(full.Children) != 1 {
		t.Fatalf("unexpected hierarchy shape: parents=%d children=%d", len(full.Parents), len(full.Children))
	}
	if full.Children[0].SubFund == nil || full.Children[0].SubFund.SubfundID != "SF-2" {
		t.Fatalf("descendants of sub-fund root missing: %+v", full.Children)
	}
}

func TestDashboardStatisticsMergesBothSides(t *testing.T) {
	ctx := context.Background()
	svc := NewReferentialService(&stubRepo{})

	stats, err := svc.DashboardStatistics(ctx)
	if err != nil {
		t.Fatalf("DashboardStatistics: %v", err)
	}
	if stats.TotalFunds != 5 || stats.ActiveFunds != 4 {
		t.Fatalf("fund side missing: %+v", stats)
	}
	if stats.TotalManagementEntities != 2 || stats.ManagementStatusBreakdown["ACTIVE"] != 2 {
		t.Fatalf("management side missing: %+v", stats)
	}
}
