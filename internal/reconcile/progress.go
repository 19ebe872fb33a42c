package reconcile

import (
	"math"

	"weddingbudget/internal/core"
)

// Severity is the display band of a payment progress percentage.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMid      Severity = "mid"
	SeverityComplete Severity = "complete"
)

// Progress describes how much of a vendor contract has been paid.
type Progress struct {
	VendorID   string
	Percentage float64 // 0..100
	TotalPaid  core.Money
	Remaining  core.Money
	Severity   Severity
}

// SeverityFor maps a percentage to its display band.
func SeverityFor(percentage float64) Severity {
	switch {
	case percentage >= 100:
		return SeverityComplete
	case percentage >= 50:
		return SeverityMid
	default:
		return SeverityLow
	}
}

// VendorPaymentProgress computes the paid percentage, the total paid and the
// outstanding balance for vendor. A vendor without a positive contract price
// reports 0 percent.
func VendorPaymentProgress(vendor core.Vendor, expenses []core.BudgetExpense) Progress {
	paid := PaidToVendor(expenses, vendor.ID)
	p := Progress{
		VendorID:  vendor.ID,
		TotalPaid: paid,
		Remaining: vendor.ContractPrice.Sub(paid).ClampZero(),
	}
	if vendor.ContractPrice.Cents > 0 {
		pct := float64(paid.Cents) / float64(vendor.ContractPrice.Cents) * 100
		if math.IsNaN(pct) || pct < 0 {
			pct = 0
		}
		p.Percentage = math.Min(100, pct)
	}
	p.Severity = SeverityFor(p.Percentage)
	return p
}
