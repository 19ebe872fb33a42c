package google

import (
	"fmt"
	"strings"
	"time"

	"weddingbudget/internal/core"
	ports "weddingbudget/internal/sheets"
)

var ledgerHeader = []any{"Vendor", "Service Type", "Date", "Amount", "Paid By", "Cumulative Paid", "Remaining", "Notes"}

// ledgerRows renders one row per payment, grouped by vendor, with a blank
// row between groups.
func ledgerRows(r ports.Report) [][]any {
	rows := [][]any{ledgerHeader}
	for i, g := range r.Ledger {
		if i > 0 {
			rows = append(rows, []any{})
		}
		for _, e := range g.Entries {
			rows = append(rows, []any{
				g.VendorName,
				g.ServiceType,
				e.Expense.Date.String(),
				amount(e.Expense.Amount),
				string(e.Expense.PaidBy),
				amount(e.CumulativePaid),
				amount(e.Remaining),
				e.Expense.Notes,
			})
		}
	}
	return rows
}

// summaryRows renders the headline figures, the per-person breakdown and
// the vendor progress table.
func summaryRows(r ports.Report) [][]any {
	s := r.Summary
	rows := [][]any{
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total Budget", amount(s.TotalBudget)},
		{"Total Paid", amount(s.TotalPaid)},
		{"Budget Left", amount(s.BudgetLeft)},
		{"Left To Pay", amount(s.LeftToPay)},
		{"Left To Pay (Selected)", amount(s.LeftToPayBySelectedVendors)},
		{"Actual Remaining", amount(s.ActualRemaining)},
		{"Selected Contracts", amount(s.SelectedContractTotal)},
		{},
		{"Person", "Promised", "Spent", "Remaining"},
	}
	for _, p := range s.People {
		rows = append(rows, []any{string(p.Person), amount(p.Promised), amount(p.Spent), amount(p.Remaining)})
	}
	rows = append(rows, []any{}, []any{"Vendor", "Paid", "Remaining", "Progress", "Status"})
	for _, p := range s.Vendors {
		rows = append(rows, []any{
			r.VendorName(p.VendorID),
			amount(p.TotalPaid),
			amount(p.Remaining),
			fmt.Sprintf("%.0f%%", p.Percentage),
			string(p.Severity),
		})
	}
	return rows
}

// amount renders money as a plain decimal that USER_ENTERED parses as a number.
func amount(m core.Money) string {
	return m.String()
}

// userSheetName returns "<base> <uid>".
func userSheetName(base, uid string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", strings.TrimSpace(base), uid))
}

// quoteSheet quotes a sheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
