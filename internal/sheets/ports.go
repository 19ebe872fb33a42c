package sheets

import (
	"context"
	"time"

	"weddingbudget/internal/core"
	"weddingbudget/internal/reconcile"
	"weddingbudget/internal/snapshot"
)

// Report is everything exported for one user.
type Report struct {
	UserID      string
	GeneratedAt time.Time
	Summary     reconcile.Summary
	Ledger      []reconcile.LedgerGroup
	Vendors     []core.Vendor
}

// BuildReport computes the report for a snapshot.
func BuildReport(uid string, snap snapshot.Snapshot, members []core.Payer, now time.Time) Report {
	return Report{
		UserID:      uid,
		GeneratedAt: now,
		Summary:     reconcile.Summarize(snap, members),
		Ledger:      reconcile.ExpenseLedger(snap.Expenses, snap.Vendors),
		Vendors:     snap.Vendors,
	}
}

// VendorName resolves a vendor id in the report, or returns the id itself.
func (r Report) VendorName(id string) string {
	for _, v := range r.Vendors {
		if v.ID == id {
			return v.Name
		}
	}
	return id
}

// Ports for outbound adapters.
type (
	// LedgerExporter publishes a report to an external destination, replacing
	// whatever was exported for the same user before.
	LedgerExporter interface {
		ExportLedger(ctx context.Context, r Report) error
	}
)
