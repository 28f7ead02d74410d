package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

// searchQuery renders filters plus paging as an HTTP query string. Zero page
// values are omitted so the server applies its own defaults.
func searchQuery(filters domain.Filters, page, pageSize int) string {
	values := url.Values{}
	for name, value := range filters {
		values.Set(name, value)
	}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		values.Set("page_size", strconv.Itoa(pageSize))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

func depthQuery(depth int) string {
	if depth <= 0 {
		return ""
	}
	return "?depth=" + strconv.Itoa(depth)
}

func doFundsGet(ctx context.Context, cfg cliConfig, fundID string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "funds.get", map[string]any{"fund_id": fundID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/funds/"+url.PathEscape(fundID), nil, out)
}

func doFundsGetByCode(ctx context.Context, cfg cliConfig, fundCode string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "funds.get_by_code", map[string]any{"fund_code": fundCode}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/funds/code/"+url.PathEscape(fundCode), nil, out)
}

func doFundsSearch(ctx context.Context, cfg cliConfig, filters domain.Filters, page, pageSize int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "funds.search", map[string]any{"filters": filters, "page": page, "page_size": pageSize}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/funds"+searchQuery(filters, page, pageSize), nil, out)
}

func doFundsCreate(ctx context.Context, cfg cliConfig, f domain.Fund, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "funds.create", f, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/funds", f, out)
}

func doFundsUpdate(ctx context.Context, cfg cliConfig, fundID string, attrs map[string]any, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "funds.update", map[string]any{"fund_id": fundID, "attrs": attrs}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPatch, "/api/funds/"+url.PathEscape(fundID), attrs, out)
}

func doHierarchyChildren(ctx context.Context, cfg cliConfig, fundID string, depth int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "hierarchy.children", map[string]any{"fund_id": fundID, "depth": depth}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/funds/"+url.PathEscape(fundID)+"/hierarchy/children"+depthQuery(depth), nil, out)
}

func doHierarchyParents(ctx context.Context, cfg cliConfig, id string, depth int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "hierarchy.parents", map[string]any{"id": id, "depth": depth}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/hierarchy/"+url.PathEscape(id)+"/parents"+depthQuery(depth), nil, out)
}

func doHierarchyFull(ctx context.Context, cfg cliConfig, id string, depth int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "hierarchy.full", map[string]any{"id": id, "depth": depth}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/hierarchy/"+url.PathEscape(id)+depthQuery(depth), nil, out)
}

func doLegalGet(ctx context.Context, cfg cliConfig, leID string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "legal.get", map[string]any{"le_id": leID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/legal-entities/"+url.PathEscape(leID), nil, out)
}

func doLegalSearch(ctx context.Context, cfg cliConfig, filters domain.Filters, page, pageSize int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "legal.search", map[string]any{"filters": filters, "page": page, "page_size": pageSize}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/legal-entities"+searchQuery(filters, page, pageSize), nil, out)
}

func doLegalCreate(ctx context.Context, cfg cliConfig, le domain.LegalEntity, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "legal.create", le, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/legal-entities", le, out)
}

func doLegalUpdate(ctx context.Context, cfg cliConfig, leID string, attrs map[string]any, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "legal.update", map[string]any{"le_id": leID, "attrs": attrs}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPatch, "/api/legal-entities/"+url.PathEscape(leID), attrs, out)
}

func doLegalDelete(ctx context.Context, cfg cliConfig, leID string) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "legal.delete", map[string]any{"le_id": leID}, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodDelete, "/api/legal-entities/"+url.PathEscape(leID), nil, nil)
}

func doManagementGet(ctx context.Context, cfg cliConfig, mgmtID string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "management.get", map[string]any{"mgmt_id": mgmtID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/management/"+url.PathEscape(mgmtID), nil, out)
}

func doManagementSearch(ctx context.Context, cfg cliConfig, filters domain.Filters, page, pageSize int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "management.search", map[string]any{"filters": filters, "page": page, "page_size": pageSize}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/management"+searchQuery(filters, page, pageSize), nil, out)
}

func doManagementCreate(ctx context.Context, cfg cliConfig, me domain.ManagementEntity, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "management.create", me, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/management", me, out)
}

func doManagementUpdate(ctx context.Context, cfg cliConfig, mgmtID string, attrs map[string]any, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "management.update", map[string]any{"mgmt_id": mgmtID, "attrs": attrs}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPatch, "/api/management/"+url.PathEscape(mgmtID), attrs, out)
}

func doManagementFunds(ctx context.Context, cfg cliConfig, mgmtID string, page, pageSize int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "management.funds", map[string]any{"mgmt_id": mgmtID, "page": page, "page_size": pageSize}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/management/"+url.PathEscape(mgmtID)+"/funds"+searchQuery(nil, page, pageSize), nil, out)
}

func doSubFundsGet(ctx context.Context, cfg cliConfig, subfundID string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "subfunds.get", map[string]any{"subfund_id": subfundID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/subfunds/"+url.PathEscape(subfundID), nil, out)
}

func doSubFundsSearch(ctx context.Context, cfg cliConfig, filters domain.Filters, page, pageSize int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "subfunds.search", map[string]any{"filters": filters, "page": page, "page_size": pageSize}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/subfunds"+searchQuery(filters, page, pageSize), nil, out)
}

func doSubFundsCreate(ctx context.Context, cfg cliConfig, sf domain.SubFund, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "subfunds.create", sf, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/subfunds", sf, out)
}

func doShareClassesGet(ctx context.Context, cfg cliConfig, scID string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "shareclasses.get", map[string]any{"sc_id": scID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/share-classes/"+url.PathEscape(scID), nil, out)
}

func doShareClassesList(ctx context.Context, cfg cliConfig, ownerID string, page, pageSize int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "shareclasses.list", map[string]any{"owner_id": ownerID, "page": page, "page_size": pageSize}, out)
	}
	filters := domain.Filters{}
	if ownerID != "" {
		filters["owner_id"] = ownerID
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/share-classes"+searchQuery(filters, page, pageSize), nil, out)
}

func doShareClassesCreate(ctx context.Context, cfg cliConfig, sc domain.ShareClass, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "shareclasses.create", sc, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/share-classes", sc, out)
}

func doStatsFunds(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "stats.funds", map[string]any{}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/statistics/funds", nil, out)
}

func doStatsManagement(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "stats.management", map[string]any{}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/statistics/management", nil, out)
}

func doStatsDashboard(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "stats.dashboard", map[string]any{}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/statistics/dashboard", nil, out)
}
