package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printPageFooter(page, totalPages int, total int64) {
	fmt.Printf("page %d of %d (%d total)\n", page, totalPages, total)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func printFundPage(page domain.Page[domain.FundView]) {
	rows := make([][]string, 0, len(page.Data))
	for _, item := range page.Data {
		rows = append(rows, []string{
			item.FundID,
			item.FundCode,
			item.FundName,
			item.FundType,
			item.BaseCurrency,
			item.Domicile,
			item.Status,
		})
	}
	printTable([]string{"FUND_ID", "CODE", "NAME", "TYPE", "CCY", "DOMICILE", "STATUS"}, rows)
	printPageFooter(page.Page, page.TotalPages, page.Total)
}

func printFundView(item domain.FundView) {
	rows := [][2]string{
		{"fund_id", item.FundID},
		{"fund_code", item.FundCode},
		{"fund_name", item.FundName},
		{"fund_type", item.FundType},
		{"base_currency", item.BaseCurrency},
		{"domicile", item.Domicile},
		{"isin_master", item.ISINMaster},
		{"status", item.Status},
		{"inception_date", item.InceptionDate},
		{"aum", formatFloat(item.AUM)},
		{"expense_ratio", formatFloat(item.ExpenseRatio)},
		{"mgmt_id", item.MgmtID},
		{"le_id", item.LEID},
		{"share_classes", strconv.Itoa(len(item.ShareClasses))},
		{"subfunds", strconv.Itoa(len(item.SubFunds))},
	}
	printKV(rows)
}

func printFund(item domain.Fund) {
	printKV([][2]string{
		{"fund_id", item.FundID},
		{"fund_code", item.FundCode},
		{"fund_name", item.FundName},
		{"fund_type", item.FundType},
		{"base_currency", item.BaseCurrency},
		{"domicile", item.Domicile},
		{"isin_master", item.ISINMaster},
		{"status", item.Status},
		{"mgmt_id", item.MgmtID},
		{"le_id", item.LEID},
	})
}

func printLegalEntityPage(page domain.Page[domain.LegalEntity]) {
	rows := make([][]string, 0, len(page.Data))
	for _, item := range page.Data {
		rows = append(rows, []string{item.LEID, item.LEI, item.LegalName, item.Jurisdiction, item.EntityType})
	}
	printTable([]string{"LE_ID", "LEI", "LEGAL_NAME", "JURISDICTION", "ENTITY_TYPE"}, rows)
	printPageFooter(page.Page, page.TotalPages, page.Total)
}

func printLegalEntity(item domain.LegalEntity) {
	printKV([][2]string{
		{"le_id", item.LEID},
		{"lei", item.LEI},
		{"legal_name", item.LegalName},
		{"jurisdiction", item.Jurisdiction},
		{"entity_type", item.EntityType},
	})
}

func printManagementPage(page domain.Page[domain.ManagementEntityView]) {
	rows := make([][]string, 0, len(page.Data))
	for _, item := range page.Data {
		rows = append(rows, []string{
			item.MgmtID,
			item.RegistrationNo,
			item.Domicile,
			item.EntityType,
			item.Status,
			strconv.FormatInt(item.TotalFunds, 10),
		})
	}
	printTable([]string{"MGMT_ID", "REGISTRATION_NO", "DOMICILE", "ENTITY_TYPE", "STATUS", "FUNDS"}, rows)
	printPageFooter(page.Page, page.TotalPages, page.Total)
}

func printManagementView(item domain.ManagementEntityView) {
	rows := [][2]string{
		{"mgmt_id", item.MgmtID},
		{"le_id", item.LEID},
		{"registration_no", item.RegistrationNo},
		{"domicile", item.Domicile},
		{"entity_type", item.EntityType},
		{"status", item.Status},
		{"total_funds", strconv.FormatInt(item.TotalFunds, 10)},
	}
	if item.LegalEntity != nil {
		rows = append(rows, [2]string{"legal_name", item.LegalEntity.LegalName})
	}
	printKV(rows)
}

func printManagementEntity(item domain.ManagementEntity) {
	printKV([][2]string{
		{"mgmt_id", item.MgmtID},
		{"le_id", item.LEID},
		{"registration_no", item.RegistrationNo},
		{"domicile", item.Domicile},
		{"entity_type", item.EntityType},
		{"status", item.Status},
	})
}

func printSubFundPage(page domain.Page[domain.SubFund]) {
	rows := make([][]string, 0, len(page.Data))
	for _, item := range page.Data {
		rows = append(rows, []string{item.SubfundID, item.ParentFundID, item.ISINSub, item.Currency})
	}
	printTable([]string{"SUBFUND_ID", "PARENT_FUND_ID", "ISIN_SUB", "CURRENCY"}, rows)
	printPageFooter(page.Page, page.TotalPages, page.Total)
}

func printSubFund(item domain.SubFund) {
	printKV([][2]string{
		{"subfund_id", item.SubfundID},
		{"parent_fund_id", item.ParentFundID},
		{"mgmt_id", item.MgmtID},
		{"le_id", item.LEID},
		{"isin_sub", item.ISINSub},
		{"currency", item.Currency},
	})
}

func printShareClassPage(page domain.Page[domain.ShareClass]) {
	rows := make([][]string, 0, len(page.Data))
	for _, item := range page.Data {
		rows = append(rows, []string{
			item.SCID,
			item.OwnerID,
			item.ISINSC,
			item.Currency,
			item.Distribution,
			formatFloat(item.NAV),
			item.Status,
		})
	}
	printTable([]string{"SC_ID", "OWNER_ID", "ISIN_SC", "CCY", "DISTRIBUTION", "NAV", "STATUS"}, rows)
	printPageFooter(page.Page, page.TotalPages, page.Total)
}

func printShareClass(item domain.ShareClass) {
	printKV([][2]string{
		{"sc_id", item.SCID},
		{"owner_id", item.OwnerID},
		{"isin_sc", item.ISINSC},
		{"currency", item.Currency},
		{"distribution", item.Distribution},
		{"fee_mgmt", formatFloat(item.FeeMgmt)},
		{"perf_fee", formatFloat(item.PerfFee)},
		{"expense_ratio", formatFloat(item.ExpenseRatio)},
		{"nav", formatFloat(item.NAV)},
		{"aum", formatFloat(item.AUM)},
		{"status", item.Status},
	})
}

func hierarchyRows(entries []domain.HierarchyEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		id, label := "", ""
		switch {
		case entry.Fund != nil:
			id = entry.Fund.FundID
			label = entry.Fund.FundName
		case entry.SubFund != nil:
			id = entry.SubFund.SubfundID
			label = entry.SubFund.ISINSub
		}
		rows = append(rows, []string{strconv.Itoa(entry.Depth), entry.NodeType, id, label})
	}
	return rows
}

func printFundChildren(h domain.FundHierarchy) {
	printFundView(h.Root)
	fmt.Println()
	printTable([]string{"DEPTH", "NODE_TYPE", "ID", "LABEL"}, hierarchyRows(h.Children))
}

func printFundParents(h domain.ParentHierarchy) {
	printTable([]string{"DEPTH", "NODE_TYPE", "ID", "LABEL"}, hierarchyRows(h.Parents))
}

func printFullHierarchy(h domain.FullHierarchy) {
	if h.Fund != nil {
		printFundView(*h.Fund)
	}
	if h.SubFund != nil {
		printSubFund(h.SubFund.SubFund)
	}
	fmt.Println()
	fmt.Println("parents:")
	printTable([]string{"DEPTH", "NODE_TYPE", "ID", "LABEL"}, hierarchyRows(h.Parents))
	fmt.Println()
	fmt.Println("children:")
	printTable([]string{"DEPTH", "NODE_TYPE", "ID", "LABEL"}, hierarchyRows(h.Children))
}

func printFundStatistics(stats domain.FundStatistics) {
	rows := [][2]string{
		{"total_funds", strconv.FormatInt(stats.TotalFunds, 10)},
		{"active_funds", strconv.FormatInt(stats.ActiveFunds, 10)},
		{"inactive_funds", strconv.FormatInt(stats.InactiveFunds, 10)},
	}
	for status, count := range stats.StatusBreakdown {
		rows = append(rows, [2]string{"status/" + status, strconv.FormatInt(count, 10)})
	}
	for _, entry := range stats.FundsByType {
		rows = append(rows, [2]string{"type/" + entry.Name, strconv.FormatInt(entry.Value, 10)})
	}
	printKV(rows)
}

func printManagementStatistics(stats domain.ManagementStatistics) {
	rows := [][2]string{
		{"total_management_entities", strconv.FormatInt(stats.TotalManagementEntities, 10)},
	}
	for status, count := range stats.StatusBreakdown {
		rows = append(rows, [2]string{"status/" + status, strconv.FormatInt(count, 10)})
	}
	printKV(rows)
}

func printDashboardStatistics(stats domain.DashboardStatistics) {
	printFundStatistics(stats.FundStatistics)
	rows := [][2]string{
		{"total_management_entities", strconv.FormatInt(stats.TotalManagementEntities, 10)},
	}
	for status, count := range stats.ManagementStatusBreakdown {
		rows = append(rows, [2]string{"management_status/" + status, strconv.FormatInt(count, 10)})
	}
	printKV(rows)
}

func printIngestSummary(summary domain.IngestSummary) {
	printKV([][2]string{
		{"legal_entities", strconv.Itoa(summary.LegalEntities)},
		{"management_entities", strconv.Itoa(summary.ManagementEntities)},
		{"funds", strconv.Itoa(summary.Funds)},
		{"subfunds", strconv.Itoa(summary.SubFunds)},
		{"share_classes", strconv.Itoa(summary.ShareClasses)},
	})
}
