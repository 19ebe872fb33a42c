package http

import (
	"weddingbudget/internal/core"
	"weddingbudget/internal/reconcile"
	"weddingbudget/internal/selection"
)

type moneyJSON struct {
	Cents  int64  `json:"cents"`
	Amount string `json:"amount"`
}

func toMoney(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Amount: m.String()}
}

type vendorJSON struct {
	ID            string    `json:"id"`
	ServiceType   string    `json:"serviceType"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contactNumber"`
	Email         string    `json:"email,omitempty"`
	PackageName   string    `json:"packageName"`
	ContractPrice moneyJSON `json:"contractPrice"`
	Notes         string    `json:"notes,omitempty"`
}

func toVendorJSON(v core.Vendor) vendorJSON {
	return vendorJSON{
		ID:            v.ID,
		ServiceType:   v.ServiceType,
		Name:          v.Name,
		ContactNumber: v.ContactNumber,
		Email:         v.Email,
		PackageName:   v.PackageName,
		ContractPrice: toMoney(v.ContractPrice),
		Notes:         v.Notes,
	}
}

func toVendorsJSON(vendors []core.Vendor) []vendorJSON {
	out := make([]vendorJSON, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, toVendorJSON(v))
	}
	return out
}

type vendorGroupJSON struct {
	ServiceType string       `json:"serviceType"`
	Vendors     []vendorJSON `json:"vendors"`
}

func toVendorGroupsJSON(groups []reconcile.VendorGroup) []vendorGroupJSON {
	out := make([]vendorGroupJSON, 0, len(groups))
	for _, g := range groups {
		out = append(out, vendorGroupJSON{ServiceType: g.ServiceType, Vendors: toVendorsJSON(g.Vendors)})
	}
	return out
}

type expenseJSON struct {
	ID         string    `json:"id"`
	VendorID   string    `json:"vendorId"`
	VendorType string    `json:"vendorType"`
	Amount     moneyJSON `json:"amount"`
	Date       string    `json:"date"`
	PaidBy     string    `json:"paidBy"`
	Notes      string    `json:"notes,omitempty"`
}

func toExpenseJSON(e core.BudgetExpense) expenseJSON {
	return expenseJSON{
		ID:         e.ID,
		VendorID:   e.VendorID,
		VendorType: e.VendorType,
		Amount:     toMoney(e.Amount),
		Date:       e.Date.String(),
		PaidBy:     string(e.PaidBy),
		Notes:      e.Notes,
	}
}

func toExpensesJSON(expenses []core.BudgetExpense) []expenseJSON {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

type contributionJSON struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Amount moneyJSON `json:"amount"`
}

func toContributionJSON(c core.BudgetContribution) contributionJSON {
	return contributionJSON{ID: c.ID, Name: c.Name, Amount: toMoney(c.Amount)}
}

func toContributionsJSON(cs []core.BudgetContribution) []contributionJSON {
	out := make([]contributionJSON, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContributionJSON(c))
	}
	return out
}

type progressJSON struct {
	VendorID   string    `json:"vendorId"`
	Percentage float64   `json:"percentage"`
	TotalPaid  moneyJSON `json:"totalPaid"`
	Remaining  moneyJSON `json:"remaining"`
	Severity   string    `json:"severity"`
}

func toProgressJSON(p reconcile.Progress) progressJSON {
	return progressJSON{
		VendorID:   p.VendorID,
		Percentage: p.Percentage,
		TotalPaid:  toMoney(p.TotalPaid),
		Remaining:  toMoney(p.Remaining),
		Severity:   string(p.Severity),
	}
}

type breakdownJSON struct {
	Person    string    `json:"person"`
	Promised  moneyJSON `json:"promised"`
	Spent     moneyJSON `json:"spent"`
	Remaining moneyJSON `json:"remaining"`
}

type summaryJSON struct {
	TotalBudget                moneyJSON       `json:"totalBudget"`
	TotalPaid                  moneyJSON       `json:"totalPaid"`
	BudgetLeft                 moneyJSON       `json:"budgetLeft"`
	LeftToPay                  moneyJSON       `json:"leftToPay"`
	LeftToPayBySelectedVendors moneyJSON       `json:"leftToPayBySelectedVendors"`
	ActualRemaining            moneyJSON       `json:"actualRemaining"`
	SelectedContractTotal      moneyJSON       `json:"selectedContractTotal"`
	People                     []breakdownJSON `json:"people"`
	Vendors                    []progressJSON  `json:"vendors"`
	OrphanedSelections         int             `json:"orphanedSelections"`
}

func toSummaryJSON(s reconcile.Summary) summaryJSON {
	out := summaryJSON{
		TotalBudget:                toMoney(s.TotalBudget),
		TotalPaid:                  toMoney(s.TotalPaid),
		BudgetLeft:                 toMoney(s.BudgetLeft),
		LeftToPay:                  toMoney(s.LeftToPay),
		LeftToPayBySelectedVendors: toMoney(s.LeftToPayBySelectedVendors),
		ActualRemaining:            toMoney(s.ActualRemaining),
		SelectedContractTotal:      toMoney(s.SelectedContractTotal),
		People:                     make([]breakdownJSON, 0, len(s.People)),
		Vendors:                    make([]progressJSON, 0, len(s.Vendors)),
		OrphanedSelections:         s.OrphanedSelections,
	}
	for _, b := range s.People {
		out.People = append(out.People, breakdownJSON{
			Person:    string(b.Person),
			Promised:  toMoney(b.Promised),
			Spent:     toMoney(b.Spent),
			Remaining: toMoney(b.Remaining),
		})
	}
	for _, p := range s.Vendors {
		out.Vendors = append(out.Vendors, toProgressJSON(p))
	}
	return out
}

type ledgerEntryJSON struct {
	Expense        expenseJSON `json:"expense"`
	CumulativePaid moneyJSON   `json:"cumulativePaid"`
	Remaining      moneyJSON   `json:"remaining"`
}

func toLedgerEntriesJSON(entries []reconcile.LedgerEntry) []ledgerEntryJSON {
	out := make([]ledgerEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryJSON{
			Expense:        toExpenseJSON(e.Expense),
			CumulativePaid: toMoney(e.CumulativePaid),
			Remaining:      toMoney(e.Remaining),
		})
	}
	return out
}

type ledgerGroupJSON struct {
	VendorID      string            `json:"vendorId"`
	VendorName    string            `json:"vendorName"`
	ServiceType   string            `json:"serviceType"`
	ContractPrice moneyJSON         `json:"contractPrice"`
	Known         bool              `json:"known"`
	TotalPaid     moneyJSON         `json:"totalPaid"`
	Entries       []ledgerEntryJSON `json:"entries"`
}

func toLedgerJSON(groups []reconcile.LedgerGroup) []ledgerGroupJSON {
	out := make([]ledgerGroupJSON, 0, len(groups))
	for _, g := range groups {
		out = append(out, ledgerGroupJSON{
			VendorID:      g.VendorID,
			VendorName:    g.VendorName,
			ServiceType:   g.ServiceType,
			ContractPrice: toMoney(g.ContractPrice),
			Known:         g.Known,
			TotalPaid:     toMoney(g.TotalPaid()),
			Entries:       toLedgerEntriesJSON(g.Entries),
		})
	}
	return out
}

// toSelectionJSON always renders the canonical array form.
func toSelectionJSON(m selection.Map) map[string][]string {
	return selection.Normalize(m)
}
