// Package ingest bulk-loads the five reference CSV files through the same
// write contracts the API uses, so reference checks apply to file loads too.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
	"github.com/sirupsen/logrus"
)

// File names expected in the ingest directory. Loaded in dependency order:
// parents before children.
const (
	legalEntityFile = "legal_entity.csv"
	managementFile  = "management_entity.csv"
	fundFile        = "fund_master.csv"
	subFundFile     = "sub_fund.csv"
	shareClassFile  = "share_class.csv"
)

type Loader struct {
	repo domain.ReferentialRepository
	log  *logrus.Logger
}

func NewLoader(repo domain.ReferentialRepository, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{repo: repo, log: log}
}

// Load reads every reference file under dir and inserts the rows. Missing
// files are skipped with a warning; a malformed row aborts the load.
func (l *Loader) Load(ctx context.Context, dir string, reset bool) (domain.IngestSummary, error) {
	var summary domain.IngestSummary

	if reset {
		if err := l.repo.Reset(ctx); err != nil {
			return summary, fmt.Errorf("reset store: %w", err)
		}
		l.log.Info("reference tables truncated")
	}

	loaders := []struct {
		file  string
		count *int
		load  func(context.Context, map[string]string) error
	}{
		{legalEntityFile, &summary.LegalEntities, l.loadLegalEntity},
		{managementFile, &summary.ManagementEntities, l.loadManagementEntity},
		{fundFile, &summary.Funds, l.loadFund},
		{subFundFile, &summary.SubFunds, l.loadSubFund},
		{shareClassFile, &summary.ShareClasses, l.loadShareClass},
	}

	for _, entry := range loaders {
		path := filepath.Join(dir, entry.file)
		n, err := l.loadFile(ctx, path, entry.load)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				l.log.WithField("file", entry.file).Warn("ingest file missing, skipped")
				continue
			}
			return summary, fmt.Errorf("load %s: %w", entry.file, err)
		}
		*entry.count = n
		l.log.WithFields(logrus.Fields{"file": entry.file, "rows": n}).Info("ingested")
	}

	return summary, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, insert func(context.Context, map[string]string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		if err := insert(ctx, row); err != nil {
			return count, fmt.Errorf("row %d: %w", count+2, err)
		}
		count++
	}
	return count, nil
}

func (l *Loader) loadLegalEntity(ctx context.Context, row map[string]string) error {
	_, err := l.repo.CreateLegalEntity(ctx, domain.LegalEntity{
		LEID:         row["LE_ID"],
		LEI:          row["LEI"],
		LegalName:    row["LEGAL_NAME"],
		Jurisdiction: row["JURISDICTION"],
		EntityType:   row["ENTITY_TYPE"],
	})
	return err
}

func (l *Loader) loadManagementEntity(ctx context.Context, row map[string]string) error {
	_, err := l.repo.CreateManagementEntity(ctx, domain.ManagementEntity{
		MgmtID:         row["MGMT_ID"],
		LEID:           row["LE_ID"],
		RegistrationNo: row["REGISTRATION_NO"],
		Domicile:       row["DOMICILE"],
		EntityType:     row["ENTITY_TYPE"],
		Status:         row["STATUS"],
	})
	return err
}

func (l *Loader) loadFund(ctx context.Context, row map[string]string) error {
	_, err := l.repo.CreateFund(ctx, domain.Fund{
		FundID:        row["FUND_ID"],
		MgmtID:        row["MGMT_ID"],
		LEID:          row["LE_ID"],
		FundCode:      row["FUND_CODE"],
		FundName:      row["FUND_NAME"],
		FundType:      row["FUND_TYPE"],
		BaseCurrency:  row["BASE_CURRENCY"],
		Domicile:      row["DOMICILE"],
		ISINMaster:    row["ISIN_MASTER"],
		Status:        row["STATUS"],
		InceptionDate: row["INCEPTION_DATE"],
		AUM:           parseFloat(row["AUM"]),
		ExpenseRatio:  parseFloat(row["EXPENSE_RATIO"]),
	})
	return err
}

func (l *Loader) loadSubFund(ctx context.Context, row map[string]string) error {
	_, err := l.repo.CreateSubFund(ctx, domain.SubFund{
		SubfundID:    row["SUBFUND_ID"],
		ParentFundID: row["PARENT_FUND_ID"],
		MgmtID:       row["MGMT_ID"],
		LEID:         row["LE_ID"],
		ISINSub:      row["ISIN_SUB"],
		Currency:     row["CURRENCY"],
	})
	return err
}

func (l *Loader) loadShareClass(ctx context.Context, row map[string]string) error {
	owner := row["FUND_ID"]
	if owner == "" {
		owner = row["OWNER_ID"]
	}
	_, err := l.repo.CreateShareClass(ctx, domain.ShareClass{
		SCID:         row["SC_ID"],
		OwnerID:      owner,
		ISINSC:       row["ISIN_SC"],
		Currency:     row["CURRENCY"],
		Distribution: row["DISTRIBUTION"],
		FeeMgmt:      parseFloat(row["FEE_MGMT"]),
		PerfFee:      parseFloat(row["PERF_FEE"]),
		ExpenseRatio: parseFloat(row["EXPENSE_RATIO"]),
		NAV:          parseFloat(row["NAV"]),
		AUM:          parseFloat(row["AUM"]),
		Status:       row["STATUS"],
	})
	return err
}

func parseFloat(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
