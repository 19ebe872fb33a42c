// Package reconcile computes budget and vendor payment figures from a
// snapshot of vendors, expenses, contributions and selections.
//
// All functions are total: they never return an error, never panic on empty
// or malformed input and never modify their arguments. Missing amounts are
// zero by the time they reach this package.
package reconcile

import (
	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
)

// Breakdown is the promised, spent and remaining figures for one person.
type Breakdown struct {
	Person    core.Payer
	Promised  core.Money
	Spent     core.Money
	Remaining core.Money
}

// TotalBudget sums every contribution.
func TotalBudget(contributions []core.BudgetContribution) core.Money {
	var total core.Money
	for _, c := range contributions {
		total = total.Add(c.Amount)
	}
	return total
}

// TotalPaid sums every expense.
func TotalPaid(expenses []core.BudgetExpense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// BudgetLeft is TotalBudget minus TotalPaid. A negative value means overspend.
func BudgetLeft(contributions []core.BudgetContribution, expenses []core.BudgetExpense) core.Money {
	return TotalBudget(contributions).Sub(TotalPaid(expenses))
}

// PaidToVendor sums the expenses recorded against vendorID.
func PaidToVendor(expenses []core.BudgetExpense, vendorID string) core.Money {
	var total core.Money
	for _, e := range expenses {
		if e.VendorID == vendorID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// LeftToPayByUniqueVendors sums the outstanding contract balance of every
// distinct vendor that has at least one expense. A vendor id that does not
// resolve counts with a contract price of zero.
func LeftToPayByUniqueVendors(expenses []core.BudgetExpense, vendors []core.Vendor) core.Money {
	byID := indexVendors(vendors)
	paid := paidByVendor(expenses)

	var total core.Money
	for vendorID, amount := range paid {
		var contract core.Money
		if v, ok := byID[vendorID]; ok {
			contract = v.ContractPrice
		}
		total = total.Add(contract.Sub(amount).ClampZero())
	}
	return total
}

// LeftToPayBySelectedVendors sums the outstanding contract balance of every
// selected vendor that still exists. Vendors without a selection are ignored
// even when they have expenses, and a vendor selected twice counts once.
func LeftToPayBySelectedVendors(expenses []core.BudgetExpense, vendors []core.Vendor, selected selection.Map) core.Money {
	byID := indexVendors(vendors)
	paid := paidByVendor(expenses)

	var total core.Money
	for _, vendorID := range selection.IDs(selected) {
		v, ok := byID[vendorID]
		if !ok {
			continue
		}
		total = total.Add(v.ContractPrice.Sub(paid[vendorID]).ClampZero())
	}
	return total
}

// LeftToPay applies the default policy, which is LeftToPayByUniqueVendors.
func LeftToPay(expenses []core.BudgetExpense, vendors []core.Vendor) core.Money {
	return LeftToPayByUniqueVendors(expenses, vendors)
}

// ActualRemaining is the budget left after settling every contract that has
// been started.
func ActualRemaining(contributions []core.BudgetContribution, expenses []core.BudgetExpense, vendors []core.Vendor) core.Money {
	return BudgetLeft(contributions, expenses).Sub(LeftToPayByUniqueVendors(expenses, vendors))
}

// PersonalBreakdown reports what person promised and spent. Only the first
// contribution carrying the person's name counts as the promise.
func PersonalBreakdown(person core.Payer, contributions []core.BudgetContribution, expenses []core.BudgetExpense) Breakdown {
	b := Breakdown{Person: person}
	for _, c := range contributions {
		if c.Name == string(person) {
			b.Promised = c.Amount
			break
		}
	}
	for _, e := range expenses {
		if e.PaidBy == person {
			b.Spent = b.Spent.Add(e.Amount)
		}
	}
	b.Remaining = b.Promised.Sub(b.Spent)
	return b
}

func indexVendors(vendors []core.Vendor) map[string]core.Vendor {
	byID := make(map[string]core.Vendor, len(vendors))
	for _, v := range vendors {
		if _, dup := byID[v.ID]; dup {
			continue
		}
		byID[v.ID] = v
	}
	return byID
}

func paidByVendor(expenses []core.BudgetExpense) map[string]core.Money {
	paid := make(map[string]core.Money)
	for _, e := range expenses {
		paid[e.VendorID] = paid[e.VendorID].Add(e.Amount)
	}
	return paid
}
