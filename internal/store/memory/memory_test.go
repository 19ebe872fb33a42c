package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/store"
)

const seed = `
users:
  demo:
    vendors:
      - id: v2
        serviceType: Photo
        name: Snap
        contractPrice: 10000
      - id: v1
        serviceType: Catering
        name: Feast
        contractPrice: "20000.50"
    expenses:
      - id: e1
        vendor: v1
        vendorType: Catering
        amount: 5000
        date: 2025-02-01
        paidBy: Isaac
      - id: e2
        vendor: v1
        amount: oops
        date: someday
        paidBy: Andrea
    contributions:
      - id: c1
        name: Andrea
        amount: 50000
    selectedVendors:
      Catering: [v1, v1]
      Photo: []
`

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.LoadSeed([]byte(seed)); err != nil {
		t.Fatalf("LoadSeed() error: %v", err)
	}

	vendors, _ := s.ListVendors(ctx, "demo")
	if len(vendors) != 2 || vendors[0].Name != "Feast" || vendors[0].ContractPrice.Cents != 2000050 {
		t.Errorf("vendors = %+v", vendors)
	}

	expenses, _ := s.ListExpenses(ctx, "demo")
	if len(expenses) != 2 || expenses[0].Amount.Cents != 500000 || expenses[0].Date.String() != "2025-02-01" {
		t.Fatalf("expenses = %+v", expenses)
	}
	if expenses[1].Amount.Cents != 0 || !expenses[1].Date.IsZero() {
		t.Errorf("malformed expense = %+v", expenses[1])
	}

	sel, _ := s.GetSelection(ctx, "demo")
	if !selection.Equal(sel, selection.Map{"Catering": {"v1"}}) {
		t.Errorf("selection = %v", sel)
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile() error: %v", err)
	}
	if cs, _ := s.ListContributions(context.Background(), "demo"); len(cs) != 1 {
		t.Errorf("contributions = %+v", cs)
	}

	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing seed file")
	}
	if _, err := NewFromFile(""); err != nil {
		t.Errorf("NewFromFile(\"\") error: %v", err)
	}
}

func TestVendorCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	v := core.Vendor{ID: "v1", Name: "Feast", ServiceType: "Catering", ContractPrice: core.Money{Cents: 100}}

	if err := s.SaveVendor(ctx, "u1", v); err != nil {
		t.Fatal(err)
	}
	v.Name = "Feast & Co"
	if err := s.SaveVendor(ctx, "u1", v); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetVendor(ctx, "u1", "v1")
	if err != nil || got.Name != "Feast & Co" {
		t.Fatalf("GetVendor() = %+v, %v", got, err)
	}
	if vs, _ := s.ListVendors(ctx, "u1"); len(vs) != 1 {
		t.Errorf("upsert duplicated vendor: %+v", vs)
	}
	if _, err := s.GetVendor(ctx, "u2", "v1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetVendor() for other user err = %v, want ErrNotFound", err)
	}

	if err := s.DeleteVendor(ctx, "u1", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteVendor(ctx, "u1", "v1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteVendor() err = %v, want ErrNotFound", err)
	}
}

func TestDeleteVendorKeepsSelection(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.SaveVendor(ctx, "u1", core.Vendor{ID: "v1", Name: "Feast"})
	_ = s.PutSelection(ctx, "u1", selection.Map{"Catering": {"v1"}})

	if err := s.DeleteVendor(ctx, "u1", "v1"); err != nil {
		t.Fatal(err)
	}

	sel, _ := s.GetSelection(ctx, "u1")
	if !selection.Equal(sel, selection.Map{"Catering": {"v1"}}) {
		t.Errorf("selection = %v, want orphan kept", sel)
	}
}

func TestExpensesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"b", "a", "c"} {
		_ = s.SaveExpense(ctx, "u1", core.BudgetExpense{ID: id, VendorID: "v1", Amount: core.Money{Cents: 1}})
	}
	_ = s.SaveExpense(ctx, "u1", core.BudgetExpense{ID: "a", VendorID: "v1", Amount: core.Money{Cents: 7}})

	es, _ := s.ListExpenses(ctx, "u1")
	if len(es) != 3 || es[0].ID != "b" || es[1].ID != "a" || es[1].Amount.Cents != 7 || es[2].ID != "c" {
		t.Errorf("expenses = %+v", es)
	}
	if err := s.DeleteExpense(ctx, "u1", "zzz"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteExpense() err = %v, want ErrNotFound", err)
	}
}

func TestLoadSnapshotAndImport(t *testing.T) {
	ctx := context.Background()
	src := New()
	if err := src.LoadSeed([]byte(seed)); err != nil {
		t.Fatal(err)
	}

	snap, err := store.LoadSnapshot(ctx, src, "demo")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(snap.Vendors) != 2 || len(snap.Expenses) != 2 || len(snap.Contributions) != 1 || len(snap.Selection) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	dst := New()
	if err := store.ImportSnapshot(ctx, dst, "copy", snap); err != nil {
		t.Fatalf("ImportSnapshot() error: %v", err)
	}
	copied, _ := store.LoadSnapshot(ctx, dst, "copy")
	if len(copied.Vendors) != 2 || !selection.Equal(copied.Selection, snap.Selection) {
		t.Errorf("copied snapshot = %+v", copied)
	}
}
