package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

// matchKind decides how a filter value binds: identifier-ish fields match by
// substring, categorical fields by equality.
type matchKind int

const (
	matchSubstring matchKind = iota
	matchExact
)

type fieldSpec struct {
	column string
	kind   matchKind
}

var fundFilterFields = map[string]fieldSpec{
	"fund_id":       {"fund_id", matchSubstring},
	"fund_code":     {"fund_code", matchSubstring},
	"fund_name":     {"fund_name", matchSubstring},
	"isin_master":   {"isin_master", matchSubstring},
	"mgmt_id":       {"mgmt_id", matchSubstring},
	"le_id":         {"le_id", matchSubstring},
	"fund_type":     {"fund_type", matchExact},
	"status":        {"status", matchExact},
	"base_currency": {"base_currency", matchExact},
	"domicile":      {"domicile", matchExact},
}

var legalEntityFilterFields = map[string]fieldSpec{
	"le_id":        {"le_id", matchSubstring},
	"lei":          {"lei", matchSubstring},
	"legal_name":   {"legal_name", matchSubstring},
	"jurisdiction": {"jurisdiction", matchExact},
	"entity_type":  {"entity_type", matchExact},
}

var managementFilterFields = map[string]fieldSpec{
	"mgmt_id":         {"mgmt_id", matchSubstring},
	"le_id":           {"le_id", matchSubstring},
	"registration_no": {"registration_no", matchSubstring},
	"domicile":        {"domicile", matchExact},
	"entity_type":     {"entity_type", matchExact},
	"status":          {"status", matchExact},
}

var subFundFilterFields = map[string]fieldSpec{
	"subfund_id":     {"subfund_id", matchSubstring},
	"parent_fund_id": {"parent_fund_id", matchSubstring},
	"mgmt_id":        {"mgmt_id", matchSubstring},
	"le_id":          {"le_id", matchSubstring},
	"isin_sub":       {"isin_sub", matchSubstring},
	"currency":       {"currency", matchExact},
}

var shareClassFilterFields = map[string]fieldSpec{
	"sc_id":        {"sc_id", matchSubstring},
	"owner_id":     {"owner_id", matchSubstring},
	"isin_sc":      {"isin_sc", matchSubstring},
	"currency":     {"currency", matchExact},
	"distribution": {"distribution", matchExact},
	"status":       {"status", matchExact},
}

// buildWhere compiles filters into a WHERE body with bound parameters.
// Empty values are skipped, unknown names rejected, and clauses AND-combine
// in sorted field order so the same filter set always produces the same SQL.
func buildWhere(filters domain.Filters, fields map[string]fieldSpec) (string, []any, error) {
	if len(filters) == 0 {
		return "1=1", nil, nil
	}

	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	clauses := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		value := strings.TrimSpace(filters[name])
		if value == "" {
			continue
		}
		spec, ok := fields[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown filter %q", domain.ErrInvalidArgument, name)
		}
		switch spec.kind {
		case matchSubstring:
			clauses = append(clauses, spec.column+" LIKE ?")
			args = append(args, "%"+value+"%")
		default:
			clauses = append(clauses, spec.column+" = ?")
			args = append(args, value)
		}
	}

	if len(clauses) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}
