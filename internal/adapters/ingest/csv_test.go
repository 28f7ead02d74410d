package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/fundref/internal/adapters/db/sqlite"
	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

func newTestRepo(t *testing.T) *sqlite.ReferentialRepository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ingest_test.db")

	db, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return sqlite.NewReferentialRepository(db, nil)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadReferenceDirectory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dir := t.TempDir()

	writeFile(t, dir, "legal_entity.csv",
		"LE_ID,LEI,LEGAL_NAME,JURISDICTION,ENTITY_TYPE\n"+
			"LE-001,5493001KJTIIGC8Y1R12,Umbrella Holdings SA,LU,SICAV\n")
	writeFile(t, dir, "management_entity.csv",
		"MGMT_ID,LE_ID,REGISTRATION_NO,DOMICILE,ENTITY_TYPE,STATUS\n"+
			"MGM-001,LE-001,B123456,LU,ManCo,ACTIVE\n")
	writeFile(t, dir, "fund_master.csv",
		"FUND_ID,MGMT_ID,LE_ID,FUND_CODE,FUND_NAME,FUND_TYPE,BASE_CURRENCY,DOMICILE,ISIN_MASTER,STATUS,INCEPTION_DATE,AUM,EXPENSE_RATIO\n"+
			"F000001,MGM-001,LE-001,UMB-EQ,Umbrella Equity,UCITS,EUR,LU,LU0000000001,ACTIVE,2019-03-01,1250.5,0.85\n"+
			"F000002,MGM-001,LE-001,UMB-FI,Umbrella Fixed Income,UCITS,EUR,LU,LU0000000002,ACTIVE,2020-06-15,830,0.6\n")
	writeFile(t, dir, "sub_fund.csv",
		"SUBFUND_ID,PARENT_FUND_ID,MGMT_ID,LE_ID,ISIN_SUB,CURRENCY\n"+
			"SF-001,F000001,MGM-001,LE-001,LU0000000101,EUR\n")
	writeFile(t, dir, "share_class.csv",
		"SC_ID,FUND_ID,ISIN_SC,CURRENCY,DISTRIBUTION,FEE_MGMT,PERF_FEE,EXPENSE_RATIO,NAV,AUM,STATUS\n"+
			"SC-001,F000001,LU0000000201,EUR,ACC,0.5,0.1,0.85,102.34,500,ACTIVE\n"+
			"SC-002,SF-001,LU0000000202,USD,DIST,0.4,0,0.7,99.1,120,ACTIVE\n")

	loader := NewLoader(repo, nil)
	summary, err := loader.Load(ctx, dir, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := domain.IngestSummary{LegalEntities: 1, ManagementEntities: 1, Funds: 2, SubFunds: 1, ShareClasses: 2}
	if summary != want {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	view, err := repo.GetFund(ctx, "F000001")
	if err != nil {
		t.Fatalf("get fund: %v", err)
	}
	if view.AUM != 1250.5 || view.ExpenseRatio != 0.85 {
		t.Fatalf("numeric columns not parsed: %+v", view.Fund)
	}
	if len(view.ShareClasses) != 1 || view.ShareClasses[0].SCID != "SC-001" {
		t.Fatalf("share class not attached to fund: %+v", view.ShareClasses)
	}
	if len(view.SubFunds) != 1 || view.SubFunds[0].SubfundID != "SF-001" {
		t.Fatalf("subfund not attached to fund: %+v", view.SubFunds)
	}
}

func TestLoadSkipsMissingFilesAndReset(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dir := t.TempDir()

	writeFile(t, dir, "legal_entity.csv",
		"LE_ID,LEI,LEGAL_NAME,JURISDICTION,ENTITY_TYPE\n"+
			"LE-001,,Solo Entity AB,SE,AB\n")

	loader := NewLoader(repo, nil)
	summary, err := loader.Load(ctx, dir, false)
	if err != nil {
		t.Fatalf("load partial dir: %v", err)
	}
	if summary.LegalEntities != 1 || summary.Funds != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// A second pass with reset truncates first, so the unique key does not
	// collide.
	summary, err = loader.Load(ctx, dir, true)
	if err != nil {
		t.Fatalf("load with reset: %v", err)
	}
	if summary.LegalEntities != 1 {
		t.Fatalf("unexpected summary after reset: %+v", summary)
	}

	if _, err := loader.Load(ctx, dir, false); err == nil {
		t.Fatalf("expected duplicate key error without reset")
	}
}

func TestLoadAbortsOnBrokenReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dir := t.TempDir()

	writeFile(t, dir, "fund_master.csv",
		"FUND_ID,MGMT_ID,LE_ID,FUND_CODE,FUND_NAME,FUND_TYPE,BASE_CURRENCY,DOMICILE,ISIN_MASTER,STATUS,INCEPTION_DATE,AUM,EXPENSE_RATIO\n"+
			"F000001,MGM-NOPE,LE-NOPE,UMB-EQ,Umbrella Equity,UCITS,EUR,LU,LU0000000001,ACTIVE,2019-03-01,1250.5,0.85\n")

	loader := NewLoader(repo, nil)
	if _, err := loader.Load(ctx, dir, false); err == nil {
		t.Fatalf("expected reference error for dangling mgmt/le ids")
	}
}
