package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type ReferentialRepository struct {
	db  *gorm.DB
	log *logrus.Logger
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewReferentialRepository(db *gorm.DB, log *logrus.Logger) *ReferentialRepository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReferentialRepository{db: db, log: log}
}

// storeErr logs a failed store operation with its query and parameters, then
// hands the error back unchanged.
func (r *ReferentialRepository) storeErr(op, query string, args []any, err error) error {
	r.log.WithFields(logrus.Fields{
		"op":     op,
		"query":  strings.Join(strings.Fields(query), " "),
		"params": args,
	}).WithError(err).Error("store query failed")
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func wrapNotFound(err error, kind, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, key)
	}
	return err
}

// Mutable columns per entity. Business keys and ownership references are
// deliberately absent.
var (
	legalEntityMutable = map[string]string{
		"lei":          "lei",
		"legal_name":   "legal_name",
		"jurisdiction": "jurisdiction",
		"entity_type":  "entity_type",
	}
	managementMutable = map[string]string{
		"registration_no": "registration_no",
		"domicile":        "domicile",
		"entity_type":     "entity_type",
		"status":          "status",
	}
	fundMutable = map[string]string{
		"fund_code":      "fund_code",
		"fund_name":      "fund_name",
		"fund_type":      "fund_type",
		"base_currency":  "base_currency",
		"domicile":       "domicile",
		"isin_master":    "isin_master",
		"status":         "status",
		"inception_date": "inception_date",
		"aum":            "aum",
		"expense_ratio":  "expense_ratio",
	}
	subFundMutable = map[string]string{
		"isin_sub": "isin_sub",
		"currency": "currency",
	}
	shareClassMutable = map[string]string{
		"isin_sc":       "isin_sc",
		"currency":      "currency",
		"distribution":  "distribution",
		"fee_mgmt":      "fee_mgmt",
		"perf_fee":      "perf_fee",
		"expense_ratio": "expense_ratio",
		"nav":           "nav",
		"aum":           "aum",
		"status":        "status",
	}
)

func updateColumns(attrs map[string]any, allowed map[string]string) (map[string]any, error) {
	cols := make(map[string]any, len(attrs))
	for name, value := range attrs {
		col, ok := allowed[name]
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q is not updatable", domain.ErrInvalidArgument, name)
		}
		cols[col] = value
	}
	return cols, nil
}

// Model to domain mapping.

func legalEntityFromModel(m LegalEntityModel) domain.LegalEntity {
	return domain.LegalEntity{
		LEID:         m.LEID,
		LEI:          m.LEI,
		LegalName:    m.LegalName,
		Jurisdiction: m.Jurisdiction,
		EntityType:   m.EntityType,
	}
}

func managementFromModel(m ManagementEntityModel) domain.ManagementEntity {
	return domain.ManagementEntity{
		MgmtID:         m.MgmtID,
		LEID:           m.LEID,
		RegistrationNo: m.RegistrationNo,
		Domicile:       m.Domicile,
		EntityType:     m.EntityType,
		Status:         m.Status,
	}
}

func fundFromModel(m FundModel) domain.Fund {
	return domain.Fund{
		FundID:        m.FundID,
		MgmtID:        m.MgmtID,
		LEID:          m.LEID,
		FundCode:      m.FundCode,
		FundName:      m.FundName,
		FundType:      m.FundType,
		BaseCurrency:  m.BaseCurrency,
		Domicile:      m.Domicile,
		ISINMaster:    m.ISINMaster,
		Status:        m.Status,
		InceptionDate: m.InceptionDate,
		AUM:           m.AUM,
		ExpenseRatio:  m.ExpenseRatio,
	}
}

func subFundFromModel(m SubFundModel) domain.SubFund {
	return domain.SubFund{
		SubfundID:    m.SubfundID,
		ParentFundID: m.ParentFundID,
		MgmtID:       m.MgmtID,
		LEID:         m.LEID,
		ISINSub:      m.ISINSub,
		Currency:     m.Currency,
	}
}

func shareClassFromModel(m ShareClassModel) domain.ShareClass {
	return domain.ShareClass{
		SCID:         m.SCID,
		OwnerID:      m.OwnerID,
		ISINSC:       m.ISINSC,
		Currency:     m.Currency,
		Distribution: m.Distribution,
		FeeMgmt:      m.FeeMgmt,
		PerfFee:      m.PerfFee,
		ExpenseRatio: m.ExpenseRatio,
		NAV:          m.NAV,
		AUM:          m.AUM,
		Status:       m.Status,
	}
}

// Existence checks used by reference validation inside write transactions.

func legalEntityExists(tx *gorm.DB, leID string) (bool, error) {
	var count int64
	err := tx.Model(&LegalEntityModel{}).Where("le_id = ?", leID).Count(&count).Error
	return count > 0, err
}

func managementExists(tx *gorm.DB, mgmtID string) (bool, error) {
	var count int64
	err := tx.Model(&ManagementEntityModel{}).Where("mgmt_id = ?", mgmtID).Count(&count).Error
	return count > 0, err
}

func fundExists(tx *gorm.DB, fundID string) (bool, error) {
	var count int64
	err := tx.Model(&FundModel{}).Where("fund_id = ?", fundID).Count(&count).Error
	return count > 0, err
}

func subFundExists(tx *gorm.DB, subfundID string) (bool, error) {
	var count int64
	err := tx.Model(&SubFundModel{}).Where("subfund_id = ?", subfundID).Count(&count).Error
	return count > 0, err
}

// ownerExists resolves an owner/parent key against funds and subfunds.
func ownerExists(tx *gorm.DB, key string) (bool, error) {
	ok, err := fundExists(tx, key)
	if err != nil || ok {
		return ok, err
	}
	return subFundExists(tx, key)
}

// Legal entities.

func (r *ReferentialRepository) GetLegalEntity(ctx context.Context, leID string) (domain.LegalEntity, error) {
	var m LegalEntityModel
	if err := r.db.WithContext(ctx).Where("le_id = ?", leID).First(&m).Error; err != nil {
		return domain.LegalEntity{}, wrapNotFound(err, "legal entity", leID)
	}
	return legalEntityFromModel(m), nil
}

func (r *ReferentialRepository) SearchLegalEntities(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.LegalEntity], error) {
	where, args, err := buildWhere(filters, legalEntityFilterFields)
	if err != nil {
		return domain.Page[domain.LegalEntity]{}, err
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&LegalEntityModel{}).Where(where, args...).Count(&total).Error; err != nil {
		return domain.Page[domain.LegalEntity]{}, r.storeErr("legal.search", where, args, err)
	}

	rows := make([]LegalEntityModel, 0)
	if err := r.db.WithContext(ctx).Model(&LegalEntityModel{}).Where(where, args...).
		Order("le_id ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return domain.Page[domain.LegalEntity]{}, r.storeErr("legal.search", where, args, err)
	}

	result := make([]domain.LegalEntity, 0, len(rows))
	for _, m := range rows {
		result = append(result, legalEntityFromModel(m))
	}
	return domain.NewPage(result, total, page), nil
}

func (r *ReferentialRepository) CreateLegalEntity(ctx context.Context, le domain.LegalEntity) (domain.LegalEntity, error) {
	m := LegalEntityModel{
		LEID:         le.LEID,
		LEI:          le.LEI,
		LegalName:    le.LegalName,
		Jurisdiction: le.Jurisdiction,
		EntityType:   le.EntityType,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.LegalEntity{}, fmt.Errorf("%w: legal entity %s", domain.ErrAlreadyExists, le.LEID)
		}
		return domain.LegalEntity{}, err
	}
	return legalEntityFromModel(m), nil
}

func (r *ReferentialRepository) UpdateLegalEntity(ctx context.Context, leID string, attrs map[string]any) (domain.LegalEntity, error) {
	cols, err := updateColumns(attrs, legalEntityMutable)
	if err != nil {
		return domain.LegalEntity{}, err
	}

	var m LegalEntityModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("le_id = ?", leID).First(&m).Error; err != nil {
			return wrapNotFound(err, "legal entity", leID)
		}
		if err := tx.Model(&LegalEntityModel{}).Where("le_id = ?", leID).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("le_id = ?", leID).First(&m).Error
	})
	if err != nil {
		return domain.LegalEntity{}, err
	}
	return legalEntityFromModel(m), nil
}

func (r *ReferentialRepository) DeleteLegalEntity(ctx context.Context, leID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := legalEntityExists(tx, leID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: legal entity %s", domain.ErrNotFound, leID)
		}

		var refs int64
		if err := tx.Raw(`
SELECT (SELECT COUNT(*) FROM management_entities WHERE le_id = ?)
     + (SELECT COUNT(*) FROM funds WHERE le_id = ?)
     + (SELECT COUNT(*) FROM subfunds WHERE le_id = ?)
`, leID, leID, leID).Scan(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: legal entity %s has %d dependent records", domain.ErrStillReferenced, leID, refs)
		}

		return tx.Where("le_id = ?", leID).Delete(&LegalEntityModel{}).Error
	})
}

// Management entities.

func (r *ReferentialRepository) managementView(ctx context.Context, m ManagementEntityModel) (domain.ManagementEntityView, error) {
	view := domain.ManagementEntityView{ManagementEntity: managementFromModel(m)}

	var le LegalEntityModel
	err := r.db.WithContext(ctx).Where("le_id = ?", m.LEID).First(&le).Error
	switch {
	case err == nil:
		v := legalEntityFromModel(le)
		view.LegalEntity = &v
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ManagementEntityView{}, err
	}

	if err := r.db.WithContext(ctx).Model(&FundModel{}).Where("mgmt_id = ?", m.MgmtID).Count(&view.TotalFunds).Error; err != nil {
		return domain.ManagementEntityView{}, err
	}
	return view, nil
}

func (r *ReferentialRepository) GetManagementEntity(ctx context.Context, mgmtID string) (domain.ManagementEntityView, error) {
	var m ManagementEntityModel
	if err := r.db.WithContext(ctx).Where("mgmt_id = ?", mgmtID).First(&m).Error; err != nil {
		return domain.ManagementEntityView{}, wrapNotFound(err, "management entity", mgmtID)
	}
	return r.managementView(ctx, m)
}

func (r *ReferentialRepository) SearchManagementEntities(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.ManagementEntityView], error) {
	where, args, err := buildWhere(filters, managementFilterFields)
	if err != nil {
		return domain.Page[domain.ManagementEntityView]{}, err
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&ManagementEntityModel{}).Where(where, args...).Count(&total).Error; err != nil {
		return domain.Page[domain.ManagementEntityView]{}, r.storeErr("management.search", where, args, err)
	}

	rows := make([]ManagementEntityModel, 0)
	if err := r.db.WithContext(ctx).Model(&ManagementEntityModel{}).Where(where, args...).
		Order("mgmt_id ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return domain.Page[domain.ManagementEntityView]{}, r.storeErr("management.search", where, args, err)
	}

	result := make([]domain.ManagementEntityView, 0, len(rows))
	for _, m := range rows {
		view, err := r.managementView(ctx, m)
		if err != nil {
			return domain.Page[domain.ManagementEntityView]{}, err
		}
		result = append(result, view)
	}
	return domain.NewPage(result, total, page), nil
}

func (r *ReferentialRepository) CreateManagementEntity(ctx context.Context, me domain.ManagementEntity) (domain.ManagementEntity, error) {
	m := ManagementEntityModel{
		MgmtID:         me.MgmtID,
		LEID:           me.LEID,
		RegistrationNo: me.RegistrationNo,
		Domicile:       me.Domicile,
		EntityType:     me.EntityType,
		Status:         me.Status,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := legalEntityExists(tx, me.LEID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: legal entity %s", domain.ErrReferenceNotFound, me.LEID)
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ManagementEntity{}, fmt.Errorf("%w: management entity %s", domain.ErrAlreadyExists, me.MgmtID)
		}
		return domain.ManagementEntity{}, err
	}
	return managementFromModel(m), nil
}

func (r *ReferentialRepository) UpdateManagementEntity(ctx context.Context, mgmtID string, attrs map[string]any) (domain.ManagementEntity, error) {
	cols, err := updateColumns(attrs, managementMutable)
	if err != nil {
		return domain.ManagementEntity{}, err
	}

	var m ManagementEntityModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mgmt_id = ?", mgmtID).First(&m).Error; err != nil {
			return wrapNotFound(err, "management entity", mgmtID)
		}
		if err := tx.Model(&ManagementEntityModel{}).Where("mgmt_id = ?", mgmtID).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("mgmt_id = ?", mgmtID).First(&m).Error
	})
	if err != nil {
		return domain.ManagementEntity{}, err
	}
	return managementFromModel(m), nil
}

func (r *ReferentialRepository) FundsByManagementEntity(ctx context.Context, mgmtID string, page domain.PageRequest) (domain.Page[domain.FundView], error) {
	ok, err := managementExists(r.db.WithContext(ctx), mgmtID)
	if err != nil {
		return domain.Page[domain.FundView]{}, err
	}
	if !ok {
		return domain.Page[domain.FundView]{}, fmt.Errorf("%w: management entity %s", domain.ErrNotFound, mgmtID)
	}
	return r.SearchFunds(ctx, domain.Filters{"mgmt_id": mgmtID}, page)
}

// Funds.

func (r *ReferentialRepository) fundView(ctx context.Context, m FundModel) (domain.FundView, error) {
	view := domain.FundView{Fund: fundFromModel(m)}

	var me ManagementEntityModel
	err := r.db.WithContext(ctx).Where("mgmt_id = ?", m.MgmtID).First(&me).Error
	switch {
	case err == nil:
		mv, err := r.managementView(ctx, me)
		if err != nil {
			return domain.FundView{}, err
		}
		view.ManagementEntity = &mv
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return domain.FundView{}, err
	}

	var le LegalEntityModel
	err = r.db.WithContext(ctx).Where("le_id = ?", m.LEID).First(&le).Error
	switch {
	case err == nil:
		v := legalEntityFromModel(le)
		view.LegalEntity = &v
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return domain.FundView{}, err
	}

	scs, err := r.shareClassesByOwner(ctx, m.FundID)
	if err != nil {
		return domain.FundView{}, err
	}
	view.ShareClasses = scs

	sfRows := make([]SubFundModel, 0)
	if err := r.db.WithContext(ctx).Where("parent_fund_id = ?", m.FundID).Order("subfund_id ASC").Find(&sfRows).Error; err != nil {
		return domain.FundView{}, err
	}
	view.SubFunds = make([]domain.SubFund, 0, len(sfRows))
	for _, sf := range sfRows {
		view.SubFunds = append(view.SubFunds, subFundFromModel(sf))
	}

	return view, nil
}

func (r *ReferentialRepository) shareClassesByOwner(ctx context.Context, ownerID string) ([]domain.ShareClass, error) {
	rows := make([]ShareClassModel, 0)
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("sc_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ShareClass, 0, len(rows))
	for _, m := range rows {
		result = append(result, shareClassFromModel(m))
	}
	return result, nil
}

func (r *ReferentialRepository) GetFund(ctx context.Context, fundID string) (domain.FundView, error) {
	var m FundModel
	if err := r.db.WithContext(ctx).Where("fund_id = ?", fundID).First(&m).Error; err != nil {
		return domain.FundView{}, wrapNotFound(err, "fund", fundID)
	}
	return r.fundView(ctx, m)
}

func (r *ReferentialRepository) GetFundByCode(ctx context.Context, fundCode string) (domain.FundView, error) {
	var m FundModel
	if err := r.db.WithContext(ctx).Where("fund_code = ?", fundCode).First(&m).Error; err != nil {
		return domain.FundView{}, wrapNotFound(err, "fund with code", fundCode)
	}
	return r.fundView(ctx, m)
}

func (r *ReferentialRepository) SearchFunds(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.FundView], error) {
	where, args, err := buildWhere(filters, fundFilterFields)
	if err != nil {
		return domain.Page[domain.FundView]{}, err
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&FundModel{}).Where(where, args...).Count(&total).Error; err != nil {
		return domain.Page[domain.FundView]{}, r.storeErr("funds.search", where, args, err)
	}

	rows := make([]FundModel, 0)
	if err := r.db.WithContext(ctx).Model(&FundModel{}).Where(where, args...).
		Order("fund_id ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return domain.Page[domain.FundView]{}, r.storeErr("funds.search", where, args, err)
	}

	result := make([]domain.FundView, 0, len(rows))
	for _, m := range rows {
		view, err := r.fundView(ctx, m)
		if err != nil {
			return domain.Page[domain.FundView]{}, err
		}
		result = append(result, view)
	}
	return domain.NewPage(result, total, page), nil
}

// nextFundID reads the highest allocated fund id and returns its successor.
// Must run inside the same transaction as the insert it feeds; the UNIQUE
// index on fund_id is the backstop.
func nextFundID(tx *gorm.DB) (string, error) {
	var last string
	if err := tx.Raw(`SELECT fund_id FROM funds ORDER BY fund_id DESC LIMIT 1`).Scan(&last).Error; err != nil {
		return "", err
	}
	if last == "" {
		return "F000001", nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(last, "F"))
	if err != nil {
		return "", fmt.Errorf("malformed fund id %q in store: %w", last, err)
	}
	return fmt.Sprintf("F%06d", n+1), nil
}

func (r *ReferentialRepository) CreateFund(ctx context.Context, f domain.Fund) (domain.Fund, error) {
	m := FundModel{
		FundID:        f.FundID,
		MgmtID:        f.MgmtID,
		LEID:          f.LEID,
		FundCode:      f.FundCode,
		FundName:      f.FundName,
		FundType:      f.FundType,
		BaseCurrency:  f.BaseCurrency,
		Domicile:      f.Domicile,
		ISINMaster:    f.ISINMaster,
		Status:        f.Status,
		InceptionDate: f.InceptionDate,
		AUM:           f.AUM,
		ExpenseRatio:  f.ExpenseRatio,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := managementExists(tx, f.MgmtID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: management entity %s", domain.ErrReferenceNotFound, f.MgmtID)
		}
		ok, err = legalEntityExists(tx, f.LEID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: legal entity %s", domain.ErrReferenceNotFound, f.LEID)
		}

		if strings.TrimSpace(m.FundID) == "" {
			id, err := nextFundID(tx)
			if err != nil {
				return err
			}
			m.FundID = id
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Fund{}, fmt.Errorf("%w: fund %s", domain.ErrAlreadyExists, m.FundID)
		}
		return domain.Fund{}, err
	}
	return fundFromModel(m), nil
}

func (r *ReferentialRepository) UpdateFund(ctx context.Context, fundID string, attrs map[string]any) (domain.Fund, error) {
	cols, err := updateColumns(attrs, fundMutable)
	if err != nil {
		return domain.Fund{}, err
	}

	var m FundModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fund_id = ?", fundID).First(&m).Error; err != nil {
			return wrapNotFound(err, "fund", fundID)
		}
		if err := tx.Model(&FundModel{}).Where("fund_id = ?", fundID).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("fund_id = ?", fundID).First(&m).Error
	})
	if err != nil {
		return domain.Fund{}, err
	}
	return fundFromModel(m), nil
}

// Sub-funds.

func (r *ReferentialRepository) subFundView(ctx context.Context, m SubFundModel) (domain.SubFundView, error) {
	view := domain.SubFundView{SubFund: subFundFromModel(m)}

	if m.MgmtID != "" {
		var me ManagementEntityModel
		err := r.db.WithContext(ctx).Where("mgmt_id = ?", m.MgmtID).First(&me).Error
		switch {
		case err == nil:
			mv, err := r.managementView(ctx, me)
			if err != nil {
				return domain.SubFundView{}, err
			}
			view.ManagementEntity = &mv
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return domain.SubFundView{}, err
		}
	}

	if m.LEID != "" {
		var le LegalEntityModel
		err := r.db.WithContext(ctx).Where("le_id = ?", m.LEID).First(&le).Error
		switch {
		case err == nil:
			v := legalEntityFromModel(le)
			view.LegalEntity = &v
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return domain.SubFundView{}, err
		}
	}

	scs, err := r.shareClassesByOwner(ctx, m.SubfundID)
	if err != nil {
		return domain.SubFundView{}, err
	}
	view.ShareClasses = scs
	return view, nil
}

func (r *ReferentialRepository) GetSubFund(ctx context.Context, subfundID string) (domain.SubFundView, error) {
	var m SubFundModel
	if err := r.db.WithContext(ctx).Where("subfund_id = ?", subfundID).First(&m).Error; err != nil {
		return domain.SubFundView{}, wrapNotFound(err, "subfund", subfundID)
	}
	return r.subFundView(ctx, m)
}

func (r *ReferentialRepository) SearchSubFunds(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.SubFund], error) {
	where, args, err := buildWhere(filters, subFundFilterFields)
	if err != nil {
		return domain.Page[domain.SubFund]{}, err
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&SubFundModel{}).Where(where, args...).Count(&total).Error; err != nil {
		return domain.Page[domain.SubFund]{}, r.storeErr("subfunds.search", where, args, err)
	}

	rows := make([]SubFundModel, 0)
	if err := r.db.WithContext(ctx).Model(&SubFundModel{}).Where(where, args...).
		Order("subfund_id ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return domain.Page[domain.SubFund]{}, r.storeErr("subfunds.search", where, args, err)
	}

	result := make([]domain.SubFund, 0, len(rows))
	for _, m := range rows {
		result = append(result, subFundFromModel(m))
	}
	return domain.NewPage(result, total, page), nil
}

func (r *ReferentialRepository) CreateSubFund(ctx context.Context, sf domain.SubFund) (domain.SubFund, error) {
	m := SubFundModel{
		SubfundID:    sf.SubfundID,
		ParentFundID: sf.ParentFundID,
		MgmtID:       sf.MgmtID,
		LEID:         sf.LEID,
		ISINSub:      sf.ISINSub,
		Currency:     sf.Currency,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := ownerExists(tx, sf.ParentFundID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: parent fund %s", domain.ErrReferenceNotFound, sf.ParentFundID)
		}
		if sf.MgmtID != "" {
			ok, err := managementExists(tx, sf.MgmtID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: management entity %s", domain.ErrReferenceNotFound, sf.MgmtID)
			}
		}
		if sf.LEID != "" {
			ok, err := legalEntityExists(tx, sf.LEID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: legal entity %s", domain.ErrReferenceNotFound, sf.LEID)
			}
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.SubFund{}, fmt.Errorf("%w: subfund %s", domain.ErrAlreadyExists, sf.SubfundID)
		}
		return domain.SubFund{}, err
	}
	return subFundFromModel(m), nil
}

func (r *ReferentialRepository) UpdateSubFund(ctx context.Context, subfundID string, attrs map[string]any) (domain.SubFund, error) {
	cols, err := updateColumns(attrs, subFundMutable)
	if err != nil {
		return domain.SubFund{}, err
	}

	var m SubFundModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subfund_id = ?", subfundID).First(&m).Error; err != nil {
			return wrapNotFound(err, "subfund", subfundID)
		}
		if err := tx.Model(&SubFundModel{}).Where("subfund_id = ?", subfundID).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("subfund_id = ?", subfundID).First(&m).Error
	})
	if err != nil {
		return domain.SubFund{}, err
	}
	return subFundFromModel(m), nil
}

// Share classes.

func (r *ReferentialRepository) GetShareClass(ctx context.Context, scID string) (domain.ShareClass, error) {
	var m ShareClassModel
	if err := r.db.WithContext(ctx).Where("sc_id = ?", scID).First(&m).Error; err != nil {
		return domain.ShareClass{}, wrapNotFound(err, "share class", scID)
	}
	return shareClassFromModel(m), nil
}

func (r *ReferentialRepository) SearchShareClasses(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page[domain.ShareClass], error) {
	where, args, err := buildWhere(filters, shareClassFilterFields)
	if err != nil {
		return domain.Page[domain.ShareClass]{}, err
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&ShareClassModel{}).Where(where, args...).Count(&total).Error; err != nil {
		return domain.Page[domain.ShareClass]{}, r.storeErr("shareclasses.search", where, args, err)
	}

	rows := make([]ShareClassModel, 0)
	if err := r.db.WithContext(ctx).Model(&ShareClassModel{}).Where(where, args...).
		Order("sc_id ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return domain.Page[domain.ShareClass]{}, r.storeErr("shareclasses.search", where, args, err)
	}

	result := make([]domain.ShareClass, 0, len(rows))
	for _, m := range rows {
		result = append(result, shareClassFromModel(m))
	}
	return domain.NewPage(result, total, page), nil
}

func (r *ReferentialRepository) CreateShareClass(ctx context.Context, sc domain.ShareClass) (domain.ShareClass, error) {
	m := ShareClassModel{
		SCID:         sc.SCID,
		OwnerID:      sc.OwnerID,
		ISINSC:       sc.ISINSC,
		Currency:     sc.Currency,
		Distribution: sc.Distribution,
		FeeMgmt:      sc.FeeMgmt,
		PerfFee:      sc.PerfFee,
		ExpenseRatio: sc.ExpenseRatio,
		NAV:          sc.NAV,
		AUM:          sc.AUM,
		Status:       sc.Status,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := ownerExists(tx, sc.OwnerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: owner %s", domain.ErrReferenceNotFound, sc.OwnerID)
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ShareClass{}, fmt.Errorf("%w: share class %s", domain.ErrAlreadyExists, sc.SCID)
		}
		return domain.ShareClass{}, err
	}
	return shareClassFromModel(m), nil
}

func (r *ReferentialRepository) UpdateShareClass(ctx context.Context, scID string, attrs map[string]any) (domain.ShareClass, error) {
	cols, err := updateColumns(attrs, shareClassMutable)
	if err != nil {
		return domain.ShareClass{}, err
	}

	var m ShareClassModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sc_id = ?", scID).First(&m).Error; err != nil {
			return wrapNotFound(err, "share class", scID)
		}
		if err := tx.Model(&ShareClassModel{}).Where("sc_id = ?", scID).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("sc_id = ?", scID).First(&m).Error
	})
	if err != nil {
		return domain.ShareClass{}, err
	}
	return shareClassFromModel(m), nil
}

// Hierarchy traversal.

type hopRow struct {
	NodeID string
	Depth  int
}

const descendantsQuery = `
WITH RECURSIVE walk(node_id, depth, path) AS (
    SELECT s.subfund_id, 1, ',' || s.subfund_id || ','
    FROM subfunds s
    WHERE s.parent_fund_id = ?
    UNION ALL
    SELECT s.subfund_id, walk.depth + 1, walk.path || s.subfund_id || ','
    FROM subfunds s
    JOIN walk ON s.parent_fund_id = walk.node_id
    WHERE walk.depth < ?
      AND instr(walk.path, ',' || s.subfund_id || ',') = 0
)
SELECT node_id, MIN(depth) AS depth
FROM walk
GROUP BY node_id
ORDER BY depth ASC, node_id ASC
`

func (r *ReferentialRepository) FundDescendants(ctx context.Context, fundID string, depth int) (domain.FundHierarchy, error) {
	var rootModel FundModel
	if err := r.db.WithContext(ctx).Where("fund_id = ?", fundID).First(&rootModel).Error; err != nil {
		return domain.FundHierarchy{}, wrapNotFound(err, "fund", fundID)
	}
	root, err := r.fundView(ctx, rootModel)
	if err != nil {
		return domain.FundHierarchy{}, err
	}

	children, err := r.descendantEntries(ctx, fundID, depth)
	if err != nil {
		return domain.FundHierarchy{}, err
	}

	return domain.FundHierarchy{Root: root, Children: children, Depth: depth}, nil
}

// DescendantsOf walks down from a fund or sub-fund key. The combined
// hierarchy operation calls it after the root is already resolved, so no
// root lookup happens here.
func (r *ReferentialRepository) DescendantsOf(ctx context.Context, key string, depth int) ([]domain.HierarchyEntry, error) {
	return r.descendantEntries(ctx, key, depth)
}

// descendantEntries runs the downward walk. The CTE seeds on parent_fund_id,
// which may name a fund or a sub-fund, so any key works as a starting point.
func (r *ReferentialRepository) descendantEntries(ctx context.Context, key string, depth int) ([]domain.HierarchyEntry, error) {
	args := []any{key, depth}
	hops := make([]hopRow, 0)
	if err := r.db.WithContext(ctx).Raw(descendantsQuery, args...).Scan(&hops).Error; err != nil {
		return nil, r.storeErr("hierarchy.descendants", descendantsQuery, args, err)
	}

	children := make([]domain.HierarchyEntry, 0, len(hops))
	if len(hops) > 0 {
		ids := make([]string, 0, len(hops))
		for _, h := range hops {
			ids = append(ids, h.NodeID)
		}
		models := make([]SubFundModel, 0, len(ids))
		if err := r.db.WithContext(ctx).Where("subfund_id IN ?", ids).Find(&models).Error; err != nil {
			return nil, err
		}
		byID := make(map[string]SubFundModel, len(models))
		for _, m := range models {
			byID[m.SubfundID] = m
		}
		for _, h := range hops {
			m, ok := byID[h.NodeID]
			if !ok {
				continue
			}
			sf := subFundFromModel(m)
			children = append(children, domain.HierarchyEntry{
				NodeType: domain.NodeTypeSubFund,
				Depth:    h.Depth,
				SubFund:  &sf,
			})
		}
	}

	return children, nil
}

const ancestorsQuery = `
WITH RECURSIVE up(node_id, depth, path) AS (
    SELECT s.parent_fund_id, 1, ',' || s.subfund_id || ',' || s.parent_fund_id || ','
    FROM subfunds s
    WHERE s.subfund_id = ?
    UNION ALL
    SELECT s.parent_fund_id, up.depth + 1, up.path || s.parent_fund_id || ','
    FROM subfunds s
    JOIN up ON s.subfund_id = up.node_id
    WHERE up.depth < ?
      AND instr(up.path, ',' || s.parent_fund_id || ',') = 0
)
SELECT node_id, MIN(depth) AS depth
FROM up
GROUP BY node_id
ORDER BY depth ASC, node_id ASC
`

func (r *ReferentialRepository) FundAncestors(ctx context.Context, key string, depth int) (domain.ParentHierarchy, error) {
	var fm FundModel
	err := r.db.WithContext(ctx).Where("fund_id = ?", key).First(&fm).Error
	switch {
	case err == nil:
		// Funds are roots of the ownership tree; nothing above them.
		view, err := r.fundView(ctx, fm)
		if err != nil {
			return domain.ParentHierarchy{}, err
		}
		return domain.ParentHierarchy{
			NodeType: domain.NodeTypeFund,
			Fund:     &view,
			Parents:  []domain.HierarchyEntry{},
			Depth:    depth,
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ParentHierarchy{}, err
	}

	var sm SubFundModel
	if err := r.db.WithContext(ctx).Where("subfund_id = ?", key).First(&sm).Error; err != nil {
		return domain.ParentHierarchy{}, wrapNotFound(err, "fund or subfund", key)
	}
	view, err := r.subFundView(ctx, sm)
	if err != nil {
		return domain.ParentHierarchy{}, err
	}

	args := []any{key, depth}
	hops := make([]hopRow, 0)
	if err := r.db.WithContext(ctx).Raw(ancestorsQuery, args...).Scan(&hops).Error; err != nil {
		return domain.ParentHierarchy{}, r.storeErr("hierarchy.ancestors", ancestorsQuery, args, err)
	}

	parents, err := r.resolveHierarchyNodes(ctx, hops)
	if err != nil {
		return domain.ParentHierarchy{}, err
	}

	return domain.ParentHierarchy{
		NodeType: domain.NodeTypeSubFund,
		SubFund:  &view,
		Parents:  parents,
		Depth:    depth,
	}, nil
}

// resolveHierarchyNodes looks each traversal hop up against both funds and
// subfunds and tags the result. Dangling keys are skipped.
func (r *ReferentialRepository) resolveHierarchyNodes(ctx context.Context, hops []hopRow) ([]domain.HierarchyEntry, error) {
	entries := make([]domain.HierarchyEntry, 0, len(hops))
	if len(hops) == 0 {
		return entries, nil
	}

	ids := make([]string, 0, len(hops))
	for _, h := range hops {
		ids = append(ids, h.NodeID)
	}

	fundRows := make([]FundModel, 0)
	if err := r.db.WithContext(ctx).Where("fund_id IN ?", ids).Find(&fundRows).Error; err != nil {
		return nil, err
	}
	fundsByID := make(map[string]FundModel, len(fundRows))
	for _, m := range fundRows {
		fundsByID[m.FundID] = m
	}

	sfRows := make([]SubFundModel, 0)
	if err := r.db.WithContext(ctx).Where("subfund_id IN ?", ids).Find(&sfRows).Error; err != nil {
		return nil, err
	}
	sfByID := make(map[string]SubFundModel, len(sfRows))
	for _, m := range sfRows {
		sfByID[m.SubfundID] = m
	}

	for _, h := range hops {
		if m, ok := fundsByID[h.NodeID]; ok {
			f := fundFromModel(m)
			entries = append(entries, domain.HierarchyEntry{NodeType: domain.NodeTypeFund, Depth: h.Depth, Fund: &f})
			continue
		}
		if m, ok := sfByID[h.NodeID]; ok {
			sf := subFundFromModel(m)
			entries = append(entries, domain.HierarchyEntry{NodeType: domain.NodeTypeSubFund, Depth: h.Depth, SubFund: &sf})
		}
	}
	return entries, nil
}

// AttachChainRelations resolves the management and legal entities referenced
// by hierarchy entries. Only the combined operation wants these; plain
// descendant/ancestor results keep bare records.
func (r *ReferentialRepository) AttachChainRelations(ctx context.Context, entries []domain.HierarchyEntry) ([]domain.HierarchyEntry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	mgmtIDs := make([]string, 0, len(entries))
	leIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		mgmtID, leID := entryRefs(e)
		if mgmtID != "" {
			mgmtIDs = append(mgmtIDs, mgmtID)
		}
		if leID != "" {
			leIDs = append(leIDs, leID)
		}
	}

	mgmtByID := make(map[string]ManagementEntityModel)
	if len(mgmtIDs) > 0 {
		rows := make([]ManagementEntityModel, 0, len(mgmtIDs))
		if err := r.db.WithContext(ctx).Where("mgmt_id IN ?", mgmtIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, m := range rows {
			mgmtByID[m.MgmtID] = m
		}
	}

	leByID := make(map[string]LegalEntityModel)
	if len(leIDs) > 0 {
		rows := make([]LegalEntityModel, 0, len(leIDs))
		if err := r.db.WithContext(ctx).Where("le_id IN ?", leIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, m := range rows {
			leByID[m.LEID] = m
		}
	}

	out := make([]domain.HierarchyEntry, len(entries))
	for i, e := range entries {
		mgmtID, leID := entryRefs(e)
		if m, ok := mgmtByID[mgmtID]; ok {
			me := managementFromModel(m)
			e.ManagementEntity = &me
		}
		if m, ok := leByID[leID]; ok {
			le := legalEntityFromModel(m)
			e.LegalEntity = &le
		}
		out[i] = e
	}
	return out, nil
}

func entryRefs(e domain.HierarchyEntry) (string, string) {
	switch {
	case e.Fund != nil:
		return e.Fund.MgmtID, e.Fund.LEID
	case e.SubFund != nil:
		return e.SubFund.MgmtID, e.SubFund.LEID
	}
	return "", ""
}

// Statistics.

func (r *ReferentialRepository) FundStatistics(ctx context.Context) (domain.FundStatistics, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&FundModel{}).Count(&total).Error; err != nil {
		return domain.FundStatistics{}, err
	}
	var active int64
	if err := r.db.WithContext(ctx).Model(&FundModel{}).Where("status = ?", "ACTIVE").Count(&active).Error; err != nil {
		return domain.FundStatistics{}, err
	}

	breakdownRows := make([]domain.NameCount, 0)
	breakdownQuery := `SELECT status AS name, COUNT(*) AS value FROM funds GROUP BY status`
	if err := r.db.WithContext(ctx).Raw(breakdownQuery).Scan(&breakdownRows).Error; err != nil {
		return domain.FundStatistics{}, r.storeErr("stats.funds", breakdownQuery, nil, err)
	}
	breakdown := make(map[string]int64, len(breakdownRows))
	for _, row := range breakdownRows {
		breakdown[row.Name] = row.Value
	}

	byType := make([]domain.NameCount, 0)
	byTypeQuery := `SELECT fund_type AS name, COUNT(*) AS value FROM funds GROUP BY fund_type ORDER BY value DESC, name ASC`
	if err := r.db.WithContext(ctx).Raw(byTypeQuery).Scan(&byType).Error; err != nil {
		return domain.FundStatistics{}, r.storeErr("stats.funds", byTypeQuery, nil, err)
	}

	return domain.FundStatistics{
		TotalFunds:      total,
		ActiveFunds:     active,
		InactiveFunds:   total - active,
		StatusBreakdown: breakdown,
		FundsByType:     byType,
	}, nil
}

func (r *ReferentialRepository) ManagementStatistics(ctx context.Context) (domain.ManagementStatistics, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ManagementEntityModel{}).Count(&total).Error; err != nil {
		return domain.ManagementStatistics{}, err
	}

	rows := make([]domain.NameCount, 0)
	q := `SELECT COALESCE(NULLIF(status, ''), 'UNKNOWN') AS name, COUNT(*) AS value FROM management_entities GROUP BY name`
	if err := r.db.WithContext(ctx).Raw(q).Scan(&rows).Error; err != nil {
		return domain.ManagementStatistics{}, r.storeErr("stats.management", q, nil, err)
	}
	breakdown := make(map[string]int64, len(rows))
	for _, row := range rows {
		breakdown[row.Name] = row.Value
	}

	return domain.ManagementStatistics{
		TotalManagementEntities: total,
		StatusBreakdown:         breakdown,
	}, nil
}

// Reset truncates the reference tables, children first.
func (r *ReferentialRepository) Reset(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"share_classes", "subfunds", "funds", "management_entities", "legal_entities"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
