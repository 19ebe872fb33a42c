package reconcile

import (
	"cmp"
	"slices"

	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/snapshot"
)

// VendorGroup is the vendors offering one service type.
type VendorGroup struct {
	ServiceType string
	Vendors     []core.Vendor
}

// Summary holds every headline figure of the budget dashboard.
type Summary struct {
	TotalBudget                core.Money
	TotalPaid                  core.Money
	BudgetLeft                 core.Money
	LeftToPay                  core.Money // unique-vendor policy
	LeftToPayBySelectedVendors core.Money
	ActualRemaining            core.Money
	SelectedContractTotal      core.Money
	People                     []Breakdown
	Vendors                    []Progress
	OrphanedSelections         int
}

// GroupVendors groups vendors by service type. Groups are sorted by service
// type and vendors within a group by name.
func GroupVendors(vendors []core.Vendor) []VendorGroup {
	byType := make(map[string][]core.Vendor)
	for _, v := range vendors {
		byType[v.ServiceType] = append(byType[v.ServiceType], v)
	}
	groups := make([]VendorGroup, 0, len(byType))
	for _, serviceType := range ServiceTypes(vendors) {
		vs := byType[serviceType]
		slices.SortStableFunc(vs, func(a, b core.Vendor) int { return cmp.Compare(a.Name, b.Name) })
		groups = append(groups, VendorGroup{ServiceType: serviceType, Vendors: vs})
	}
	return groups
}

// ServiceTypes returns the distinct service types of vendors, sorted.
func ServiceTypes(vendors []core.Vendor) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range vendors {
		if _, dup := seen[v.ServiceType]; dup {
			continue
		}
		seen[v.ServiceType] = struct{}{}
		out = append(out, v.ServiceType)
	}
	slices.Sort(out)
	return out
}

// VendorIDs returns the set of ids in vendors.
func VendorIDs(vendors []core.Vendor) selection.Set {
	s := make(selection.Set, len(vendors))
	for _, v := range vendors {
		s[v.ID] = struct{}{}
	}
	return s
}

// SelectedContractTotal sums the contract price of every selected vendor
// that still exists, counting each vendor once.
func SelectedContractTotal(vendors []core.Vendor, selected selection.Map) core.Money {
	byID := indexVendors(vendors)
	var total core.Money
	for _, vendorID := range selection.IDs(selected) {
		if v, ok := byID[vendorID]; ok {
			total = total.Add(v.ContractPrice)
		}
	}
	return total
}

// Summarize computes the dashboard figures for snap. A breakdown is produced
// for each member, in the given order, and a progress entry for every vendor
// ordered by service type and name.
func Summarize(snap snapshot.Snapshot, members []core.Payer) Summary {
	valid := VendorIDs(snap.Vendors)
	_, orphaned := selection.CleanupOrphans(snap.Selection, valid)

	s := Summary{
		TotalBudget:                TotalBudget(snap.Contributions),
		TotalPaid:                  TotalPaid(snap.Expenses),
		BudgetLeft:                 BudgetLeft(snap.Contributions, snap.Expenses),
		LeftToPay:                  LeftToPay(snap.Expenses, snap.Vendors),
		LeftToPayBySelectedVendors: LeftToPayBySelectedVendors(snap.Expenses, snap.Vendors, snap.Selection),
		ActualRemaining:            ActualRemaining(snap.Contributions, snap.Expenses, snap.Vendors),
		SelectedContractTotal:      SelectedContractTotal(snap.Vendors, snap.Selection),
		OrphanedSelections:         orphaned,
	}
	for _, m := range members {
		s.People = append(s.People, PersonalBreakdown(m, snap.Contributions, snap.Expenses))
	}
	for _, g := range GroupVendors(snap.Vendors) {
		for _, v := range g.Vendors {
			s.Vendors = append(s.Vendors, VendorPaymentProgress(v, snap.Expenses))
		}
	}
	return s
}
