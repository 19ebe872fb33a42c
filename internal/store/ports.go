// Package store defines the persistence ports used by the services.
package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/snapshot"
)

// ErrNotFound is returned when a record does not exist for the user.
var ErrNotFound = errors.New("not found")

// Ports for persistence adapters. Every record is scoped by user id.
type (
	VendorRepository interface {
		// ListVendors returns the user's vendors ordered by name.
		ListVendors(ctx context.Context, uid string) ([]core.Vendor, error)
		GetVendor(ctx context.Context, uid, id string) (core.Vendor, error)
		// SaveVendor inserts or replaces the vendor with v.ID.
		SaveVendor(ctx context.Context, uid string, v core.Vendor) error
		// DeleteVendor removes the vendor. Selections referencing it are left
		// alone and become orphans.
		DeleteVendor(ctx context.Context, uid, id string) error
	}

	ExpenseRepository interface {
		// ListExpenses returns the user's expenses in insertion order.
		ListExpenses(ctx context.Context, uid string) ([]core.BudgetExpense, error)
		GetExpense(ctx context.Context, uid, id string) (core.BudgetExpense, error)
		SaveExpense(ctx context.Context, uid string, e core.BudgetExpense) error
		DeleteExpense(ctx context.Context, uid, id string) error
	}

	ContributionRepository interface {
		// ListContributions returns the user's contributions in insertion order.
		ListContributions(ctx context.Context, uid string) ([]core.BudgetContribution, error)
		GetContribution(ctx context.Context, uid, id string) (core.BudgetContribution, error)
		SaveContribution(ctx context.Context, uid string, c core.BudgetContribution) error
	}

	SelectionRepository interface {
		// GetSelection returns the stored selection map, empty when none.
		GetSelection(ctx context.Context, uid string) (selection.Map, error)
		// PutSelection replaces the stored selection map with its canonical form.
		PutSelection(ctx context.Context, uid string, m selection.Map) error
	}

	// Backend is a complete persistence adapter.
	Backend interface {
		VendorRepository
		ExpenseRepository
		ContributionRepository
		SelectionRepository
		Ping(ctx context.Context) error
		Close() error
	}
)

// LoadSnapshot reads the four collections of uid concurrently.
func LoadSnapshot(ctx context.Context, b Backend, uid string) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Vendors, err = b.ListVendors(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		snap.Expenses, err = b.ListExpenses(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		snap.Contributions, err = b.ListContributions(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		snap.Selection, err = b.GetSelection(ctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot for %s: %w", uid, err)
	}
	return snap, nil
}

// ImportSnapshot writes every record of snap for uid, replacing records with
// the same id and the stored selection.
func ImportSnapshot(ctx context.Context, b Backend, uid string, snap snapshot.Snapshot) error {
	for _, v := range snap.Vendors {
		if err := b.SaveVendor(ctx, uid, v); err != nil {
			return fmt.Errorf("import vendor %s: %w", v.ID, err)
		}
	}
	for _, e := range snap.Expenses {
		if err := b.SaveExpense(ctx, uid, e); err != nil {
			return fmt.Errorf("import expense %s: %w", e.ID, err)
		}
	}
	for _, c := range snap.Contributions {
		if err := b.SaveContribution(ctx, uid, c); err != nil {
			return fmt.Errorf("import contribution %s: %w", c.ID, err)
		}
	}
	if err := b.PutSelection(ctx, uid, snap.Selection); err != nil {
		return fmt.Errorf("import selection: %w", err)
	}
	return nil
}
