package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

func newTestRepo(t *testing.T) *ReferentialRepository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fundref_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewReferentialRepository(db, nil)
}

// seedBase creates one legal entity and one management entity that fund
// fixtures can hang off.
func seedBase(t *testing.T, repo *ReferentialRepository) (string, string) {
	t.Helper()
	ctx := context.Background()

	le, err := repo.CreateLegalEntity(ctx, domain.LegalEntity{LEID: "LE-001", LEI: "5493001KJTIIGC8Y1R12", LegalName: "Umbrella Holdings SA", Jurisdiction: "LU"})
	if err != nil {
		t.Fatalf("create legal entity: %v", err)
	}
	me, err := repo.CreateManagementEntity(ctx, domain.ManagementEntity{MgmtID: "MGM-001", LEID: le.LEID, RegistrationNo: "B123456", Domicile: "LU", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create management entity: %v", err)
	}
	return le.LEID, me.MgmtID
}

func TestFundIDAllocationSequence(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	first, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundCode: "UMB-EQ", FundName: "Umbrella Equity", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create first fund: %v", err)
	}
	if first.FundID != "F000001" {
		t.Fatalf("expected F000001, got %s", first.FundID)
	}

	second, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundCode: "UMB-FI", FundName: "Umbrella Fixed Income", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create second fund: %v", err)
	}
	if second.FundID != "F000002" {
		t.Fatalf("expected F000002, got %s", second.FundID)
	}

	explicit, err := repo.CreateFund(ctx, domain.Fund{FundID: "F000042", MgmtID: mgmtID, LEID: leID, FundCode: "UMB-ALT", FundName: "Umbrella Alternatives", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create explicit fund: %v", err)
	}
	if explicit.FundID != "F000042" {
		t.Fatalf("explicit id not preserved, got %s", explicit.FundID)
	}

	next, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundCode: "UMB-MM", FundName: "Umbrella Money Market", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create fund after explicit id: %v", err)
	}
	if next.FundID != "F000043" {
		t.Fatalf("expected allocation to continue at F000043, got %s", next.FundID)
	}
}

func TestCreateFundValidatesReferences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	_, err := repo.CreateFund(ctx, domain.Fund{MgmtID: "MGM-MISSING", LEID: leID, FundName: "Orphan"})
	if !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound for missing management entity, got %v", err)
	}

	_, err = repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: "LE-MISSING", FundName: "Orphan"})
	if !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound for missing legal entity, got %v", err)
	}

	if _, err := repo.CreateFund(ctx, domain.Fund{FundID: "F000100", MgmtID: mgmtID, LEID: leID, FundName: "Dup Target"}); err != nil {
		t.Fatalf("create fund: %v", err)
	}
	_, err = repo.CreateFund(ctx, domain.Fund{FundID: "F000100", MgmtID: mgmtID, LEID: leID, FundName: "Dup"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for duplicate fund id, got %v", err)
	}
}

func TestGetAndUpdateFund(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	_, err := repo.GetFund(ctx, "F999999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	f, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundCode: "UMB-EQ", FundName: "Umbrella Equity", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}

	_, err = repo.UpdateFund(ctx, f.FundID, map[string]any{"fund_id": "F777777"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for key update, got %v", err)
	}

	updated, err := repo.UpdateFund(ctx, f.FundID, map[string]any{"status": "CLOSED", "aum": 125.5})
	if err != nil {
		t.Fatalf("update fund: %v", err)
	}
	if updated.Status != "CLOSED" || updated.AUM != 125.5 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.FundName != "Umbrella Equity" {
		t.Fatalf("untouched column changed: %+v", updated)
	}

	byCode, err := repo.GetFundByCode(ctx, "UMB-EQ")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byCode.FundID != f.FundID {
		t.Fatalf("get by code returned wrong fund: %s", byCode.FundID)
	}
	if byCode.ManagementEntity == nil || byCode.ManagementEntity.MgmtID != mgmtID {
		t.Fatalf("expected management entity attached to fund view")
	}
}

func TestDeleteLegalEntityGuardsReferences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, _ := seedBase(t, repo)

	err := repo.DeleteLegalEntity(ctx, leID)
	if !errors.Is(err, domain.ErrStillReferenced) {
		t.Fatalf("expected ErrStillReferenced while management entity points at target, got %v", err)
	}

	free, err := repo.CreateLegalEntity(ctx, domain.LegalEntity{LEID: "LE-FREE", LegalName: "Unreferenced AB"})
	if err != nil {
		t.Fatalf("create legal entity: %v", err)
	}
	if err := repo.DeleteLegalEntity(ctx, free.LEID); err != nil {
		t.Fatalf("delete unreferenced legal entity: %v", err)
	}
	if _, err := repo.GetLegalEntity(ctx, free.LEID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := repo.DeleteLegalEntity(ctx, "LE-NOPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown legal entity, got %v", err)
	}
}

func TestFundDescendantsHonorsDepth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	f, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundName: "Umbrella", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-1", ParentFundID: f.FundID}); err != nil {
		t.Fatalf("create SF-1: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-2", ParentFundID: "SF-1"}); err != nil {
		t.Fatalf("create SF-2: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-3", ParentFundID: "SF-2"}); err != nil {
		t.Fatalf("create SF-3: %v", err)
	}

	full, err := repo.FundDescendants(ctx, f.FundID, 3)
	if err != nil {
		t.Fatalf("descendants depth 3: %v", err)
	}
	if len(full.Children) != 3 {
		t.Fatalf("expected 3 descendants, got %d", len(full.Children))
	}
	wantDepth := map[string]int{"SF-1": 1, "SF-2": 2, "SF-3": 3}
	for _, entry := range full.Children {
		if entry.NodeType != domain.NodeTypeSubFund || entry.SubFund == nil {
			t.Fatalf("descendant entry malformed: %+v", entry)
		}
		if entry.Depth != wantDepth[entry.SubFund.SubfundID] {
			t.Fatalf("wrong depth for %s: %d", entry.SubFund.SubfundID, entry.Depth)
		}
	}

	shallow, err := repo.FundDescendants(ctx, f.FundID, 1)
	if err != nil {
		t.Fatalf("descendants depth 1: %v", err)
	}
	if len(shallow.Children) != 1 || shallow.Children[0].SubFund.SubfundID != "SF-1" {
		t.Fatalf("expected only SF-1 at depth 1, got %+v", shallow.Children)
	}

	if _, err := repo.FundDescendants(ctx, "SF-1", 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for sub-fund root, got %v", err)
	}
}

func TestFundAncestorsWalksUp(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	f, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundName: "Umbrella", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	_, _ = repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-1", ParentFundID: f.FundID})
	_, _ = repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-2", ParentFundID: "SF-1"})

	h, err := repo.FundAncestors(ctx, "SF-2", 5)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if h.NodeType != domain.NodeTypeSubFund || h.SubFund == nil {
		t.Fatalf("expected sub-fund root, got %+v", h)
	}
	if len(h.Parents) != 2 {
		t.Fatalf("expected 2 ancestors, got %d", len(h.Parents))
	}
	if h.Parents[0].NodeType != domain.NodeTypeSubFund || h.Parents[0].SubFund.SubfundID != "SF-1" || h.Parents[0].Depth != 1 {
		t.Fatalf("first ancestor wrong: %+v", h.Parents[0])
	}
	if h.Parents[1].NodeType != domain.NodeTypeFund || h.Parents[1].Fund.FundID != f.FundID || h.Parents[1].Depth != 2 {
		t.Fatalf("second ancestor wrong: %+v", h.Parents[1])
	}

	bounded, err := repo.FundAncestors(ctx, "SF-2", 1)
	if err != nil {
		t.Fatalf("ancestors depth 1: %v", err)
	}
	if len(bounded.Parents) != 1 || bounded.Parents[0].SubFund.SubfundID != "SF-1" {
		t.Fatalf("expected only direct parent at depth 1, got %+v", bounded.Parents)
	}

	root, err := repo.FundAncestors(ctx, f.FundID, 3)
	if err != nil {
		t.Fatalf("ancestors of fund: %v", err)
	}
	if root.NodeType != domain.NodeTypeFund || root.Fund == nil || len(root.Parents) != 0 {
		t.Fatalf("fund root should have no parents: %+v", root)
	}

	if _, err := repo.FundAncestors(ctx, "NOPE", 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown key, got %v", err)
	}
}

func TestSearchFundsFiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	for i := 1; i <= 15; i++ {
		status := "ACTIVE"
		if i > 12 {
			status = "CLOSED"
		}
		_, err := repo.CreateFund(ctx, domain.Fund{
			MgmtID:   mgmtID,
			LEID:     leID,
			FundCode: fmt.Sprintf("UMB-%02d", i),
			FundName: fmt.Sprintf("Umbrella Fund %02d", i),
			FundType: "UCITS",
			Status:   status,
		})
		if err != nil {
			t.Fatalf("create fund %d: %v", i, err)
		}
	}

	page1, err := repo.SearchFunds(ctx, nil, domain.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("search page 1: %v", err)
	}
	if page1.Total != 15 || page1.TotalPages != 2 || len(page1.Data) != 10 {
		t.Fatalf("unexpected page 1: total=%d pages=%d rows=%d", page1.Total, page1.TotalPages, len(page1.Data))
	}
	if page1.Data[0].FundID != "F000001" {
		t.Fatalf("expected fund id ordering, got %s first", page1.Data[0].FundID)
	}

	page2, err := repo.SearchFunds(ctx, nil, domain.PageRequest{Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("search page 2: %v", err)
	}
	if len(page2.Data) != 5 {
		t.Fatalf("expected 5 rows on page 2, got %d", len(page2.Data))
	}

	byName, err := repo.SearchFunds(ctx, domain.Filters{"fund_name": "Fund 03"}, domain.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("substring search: %v", err)
	}
	if byName.Total != 1 || byName.Data[0].FundCode != "UMB-03" {
		t.Fatalf("substring filter failed: %+v", byName)
	}

	closed, err := repo.SearchFunds(ctx, domain.Filters{"status": "CLOSED"}, domain.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("exact search: %v", err)
	}
	if closed.Total != 3 {
		t.Fatalf("expected 3 closed funds, got %d", closed.Total)
	}

	partial, err := repo.SearchFunds(ctx, domain.Filters{"status": "CLOS"}, domain.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("exact search partial value: %v", err)
	}
	if partial.Total != 0 {
		t.Fatalf("exact match field must not substring-match, got %d rows", partial.Total)
	}

	if _, err := repo.SearchFunds(ctx, domain.Filters{"nav": "1"}, domain.PageRequest{Page: 1, PageSize: 10}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown filter, got %v", err)
	}
}

func TestStatisticsBuckets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	specs := []struct {
		fundType string
		status   string
	}{
		{"UCITS", "ACTIVE"},
		{"UCITS", "ACTIVE"},
		{"UCITS", "CLOSED"},
		{"AIF", "ACTIVE"},
	}
	for i, spec := range specs {
		_, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundName: fmt.Sprintf("Fund %d", i), FundType: spec.fundType, Status: spec.status})
		if err != nil {
			t.Fatalf("create fund %d: %v", i, err)
		}
	}
	if _, err := repo.CreateManagementEntity(ctx, domain.ManagementEntity{MgmtID: "MGM-BLANK", LEID: leID}); err != nil {
		t.Fatalf("create management entity without status: %v", err)
	}

	fs, err := repo.FundStatistics(ctx)
	if err != nil {
		t.Fatalf("fund statistics: %v", err)
	}
	if fs.TotalFunds != 4 || fs.ActiveFunds != 3 || fs.InactiveFunds != 1 {
		t.Fatalf("unexpected fund totals: %+v", fs)
	}
	if fs.StatusBreakdown["ACTIVE"] != 3 || fs.StatusBreakdown["CLOSED"] != 1 {
		t.Fatalf("unexpected status breakdown: %+v", fs.StatusBreakdown)
	}
	if len(fs.FundsByType) != 2 || fs.FundsByType[0].Name != "UCITS" || fs.FundsByType[0].Value != 3 {
		t.Fatalf("funds by type should order by count desc: %+v", fs.FundsByType)
	}

	ms, err := repo.ManagementStatistics(ctx)
	if err != nil {
		t.Fatalf("management statistics: %v", err)
	}
	if ms.TotalManagementEntities != 2 {
		t.Fatalf("expected 2 management entities, got %d", ms.TotalManagementEntities)
	}
	if ms.StatusBreakdown["ACTIVE"] != 1 || ms.StatusBreakdown["UNKNOWN"] != 1 {
		t.Fatalf("blank status should bucket as UNKNOWN: %+v", ms.StatusBreakdown)
	}
}

func TestShareClassOwnerResolution(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	f, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundName: "Umbrella", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-1", ParentFundID: f.FundID}); err != nil {
		t.Fatalf("create subfund: %v", err)
	}

	if _, err := repo.CreateShareClass(ctx, domain.ShareClass{SCID: "SC-1", OwnerID: f.FundID, Currency: "EUR"}); err != nil {
		t.Fatalf("share class on fund: %v", err)
	}
	if _, err := repo.CreateShareClass(ctx, domain.ShareClass{SCID: "SC-2", OwnerID: "SF-1", Currency: "USD"}); err != nil {
		t.Fatalf("share class on subfund: %v", err)
	}
	if _, err := repo.CreateShareClass(ctx, domain.ShareClass{SCID: "SC-3", OwnerID: "NOPE"}); !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound for unknown owner, got %v", err)
	}

	view, err := repo.GetFund(ctx, f.FundID)
	if err != nil {
		t.Fatalf("get fund: %v", err)
	}
	if len(view.ShareClasses) != 1 || view.ShareClasses[0].SCID != "SC-1" {
		t.Fatalf("fund view should carry its own share classes: %+v", view.ShareClasses)
	}
	if len(view.SubFunds) != 1 || view.SubFunds[0].SubfundID != "SF-1" {
		t.Fatalf("fund view should list direct subfunds: %+v", view.SubFunds)
	}

	sfView, err := repo.GetSubFund(ctx, "SF-1")
	if err != nil {
		t.Fatalf("get subfund: %v", err)
	}
	if len(sfView.ShareClasses) != 1 || sfView.ShareClasses[0].SCID != "SC-2" {
		t.Fatalf("subfund view should carry its own share classes: %+v", sfView.ShareClasses)
	}
}

func TestResetTruncatesEverything(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	f, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundName: "Umbrella"})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-1", ParentFundID: f.FundID}); err != nil {
		t.Fatalf("create subfund: %v", err)
	}

	if err := repo.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	page, err := repo.SearchFunds(ctx, nil, domain.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("search after reset: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected empty store after reset, got %d funds", page.Total)
	}
	if _, err := repo.GetLegalEntity(ctx, leID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected legal entities cleared, got %v", err)
	}

	// Allocation restarts from scratch on an empty table.
	_, _ = repo.CreateLegalEntity(ctx, domain.LegalEntity{LEID: leID, LegalName: "Umbrella Holdings SA"})
	_, _ = repo.CreateManagementEntity(ctx, domain.ManagementEntity{MgmtID: mgmtID, LEID: leID})
	fresh, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundName: "Restarted"})
	if err != nil {
		t.Fatalf("create fund after reset: %v", err)
	}
	if fresh.FundID != "F000001" {
		t.Fatalf("expected allocation to restart at F000001, got %s", fresh.FundID)
	}
}

func TestHierarchyDirectionsAreInverse(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	leID, mgmtID := seedBase(t, repo)

	f, err := repo.CreateFund(ctx, domain.Fund{MgmtID: mgmtID, LEID: leID, FundCode: "UMB-EQ", FundName: "Umbrella Equity", Status: "ACTIVE"})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-1", ParentFundID: f.FundID, MgmtID: mgmtID, LEID: leID, ISINSub: "LU0000000101"}); err != nil {
		t.Fatalf("create SF-1: %v", err)
	}
	if _, err := repo.CreateSubFund(ctx, domain.SubFund{SubfundID: "SF-2", ParentFundID: "SF-1", MgmtID: mgmtID, LEID: leID, ISINSub: "LU0000000102"}); err != nil {
		t.Fatalf("create SF-2: %v", err)
	}

	down, err := repo.FundDescendants(ctx, f.FundID, 3)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(down.Children) != 2 {
		t.Fatalf("expected 2 descendants, got %d", len(down.Children))
	}

	// Every descendant at depth k must see the fund among its ancestors at
	// the same depth k.
	for _, child := range down.Children {
		up, err := repo.FundAncestors(ctx, child.SubFund.SubfundID, 3)
		if err != nil {
			t.Fatalf("ancestors of %s: %v", child.SubFund.SubfundID, err)
		}
		found := false
		for _, parent := range up.Parents {
			if parent.Fund != nil && parent.Fund.FundID == f.FundID {
				found = true
				if parent.Depth != child.Depth {
					t.Fatalf("depth mismatch for %s: descendants say %d, ancestors say %d", child.SubFund.SubfundID, child.Depth, parent.Depth)
				}
			}
		}
		if !found {
			t.Fatalf("fund %s missing from ancestors of %s: %+v", f.FundID, child.SubFund.SubfundID, up.Parents)
		}
	}

	// A sub-fund key is a valid downward root: SF-2 hangs under SF-1.
	entries, err := repo.DescendantsOf(ctx, "SF-1", 3)
	if err != nil {
		t.Fatalf("descendants of SF-1: %v", err)
	}
	if len(entries) != 1 || entries[0].SubFund.SubfundID != "SF-2" || entries[0].Depth != 1 {
		t.Fatalf("unexpected sub-fund descendants: %+v", entries)
	}

	enriched, err := repo.AttachChainRelations(ctx, entries)
	if err != nil {
		t.Fatalf("attach chain relations: %v", err)
	}
	if enriched[0].ManagementEntity == nil || enriched[0].ManagementEntity.MgmtID != mgmtID {
		t.Fatalf("management entity not attached along the chain: %+v", enriched[0])
	}
	if enriched[0].LegalEntity == nil || enriched[0].LegalEntity.LEID != leID {
		t.Fatalf("legal entity not attached along the chain: %+v", enriched[0])
	}
}
