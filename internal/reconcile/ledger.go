package reconcile

import (
	"slices"

	"weddingbudget/internal/core"
)

// UnknownVendorName labels ledger groups whose vendor no longer exists.
const UnknownVendorName = "Unknown Vendor"

// LedgerEntry is one payment with the running total paid to its vendor.
type LedgerEntry struct {
	Expense        core.BudgetExpense
	CumulativePaid core.Money
	Remaining      core.Money
}

// LedgerGroup holds the chronological payments made to one vendor.
type LedgerGroup struct {
	VendorID      string
	VendorName    string
	ServiceType   string
	ContractPrice core.Money
	Known         bool
	Entries       []LedgerEntry
}

// TotalPaid returns the cumulative amount of the last entry.
func (g LedgerGroup) TotalPaid() core.Money {
	if len(g.Entries) == 0 {
		return core.Money{}
	}
	return g.Entries[len(g.Entries)-1].CumulativePaid
}

// VendorExpenseChronology returns the expenses recorded against vendorID
// ordered by date. Expenses on the same date keep their input order.
func VendorExpenseChronology(expenses []core.BudgetExpense, vendorID string) []core.BudgetExpense {
	var out []core.BudgetExpense
	for _, e := range expenses {
		if e.VendorID == vendorID {
			out = append(out, e)
		}
	}
	sortByDate(out)
	return out
}

// VendorLedger pairs every payment to vendor with the amount paid so far and
// the contract balance left after it.
func VendorLedger(vendor core.Vendor, expenses []core.BudgetExpense) []LedgerEntry {
	return ledgerEntries(vendor.ContractPrice, VendorExpenseChronology(expenses, vendor.ID))
}

// ExpenseLedger groups expenses by vendor. Groups are ordered by their
// earliest payment, ties keeping the order in which vendors first appear.
func ExpenseLedger(expenses []core.BudgetExpense, vendors []core.Vendor) []LedgerGroup {
	byID := indexVendors(vendors)

	var order []string
	buckets := make(map[string][]core.BudgetExpense)
	for _, e := range expenses {
		if _, seen := buckets[e.VendorID]; !seen {
			order = append(order, e.VendorID)
		}
		buckets[e.VendorID] = append(buckets[e.VendorID], e)
	}

	groups := make([]LedgerGroup, 0, len(order))
	for _, vendorID := range order {
		rows := buckets[vendorID]
		sortByDate(rows)

		g := LedgerGroup{VendorID: vendorID, VendorName: UnknownVendorName}
		if v, ok := byID[vendorID]; ok {
			g.VendorName = v.Name
			g.ServiceType = v.ServiceType
			g.ContractPrice = v.ContractPrice
			g.Known = true
		} else if len(rows) > 0 {
			g.ServiceType = rows[0].VendorType
		}
		g.Entries = ledgerEntries(g.ContractPrice, rows)
		groups = append(groups, g)
	}

	slices.SortStableFunc(groups, func(a, b LedgerGroup) int {
		return a.Entries[0].Expense.Date.Compare(b.Entries[0].Expense.Date.Time)
	})
	return groups
}

func ledgerEntries(contract core.Money, chronological []core.BudgetExpense) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(chronological))
	var cumulative core.Money
	for _, e := range chronological {
		cumulative = cumulative.Add(e.Amount)
		entries = append(entries, LedgerEntry{
			Expense:        e,
			CumulativePaid: cumulative,
			Remaining:      contract.Sub(cumulative).ClampZero(),
		})
	}
	return entries
}

// sortByDate sorts in place; zero dates sort first.
func sortByDate(expenses []core.BudgetExpense) {
	slices.SortStableFunc(expenses, func(a, b core.BudgetExpense) int {
		return a.Date.Compare(b.Date.Time)
	})
}
