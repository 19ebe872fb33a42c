package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"weddingbudget/internal/amqp"
	"weddingbudget/internal/cache"
	"weddingbudget/internal/core"
	"weddingbudget/internal/reconcile"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/snapshot"
	"weddingbudget/internal/store"
	"weddingbudget/internal/store/memory"
)

const uid = "user-1"

type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.BudgetEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e amqp.BudgetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) kinds() []amqp.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []amqp.EventKind
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(t *testing.T, opts ...Option) (*BudgetService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	base := []Option{
		WithPublisher(pub),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }),
	}
	svc := NewBudgetService(memory.New(), []core.Payer{"Andrea", "Isaac"}, append(base, opts...)...)
	return svc, pub
}

func validVendor(name, serviceType string, contract int64) core.Vendor {
	return core.Vendor{
		Name:          name,
		ServiceType:   serviceType,
		ContactNumber: "09171234567",
		PackageName:   "Standard",
		ContractPrice: core.Money{Cents: contract},
	}
}

func mustCreateVendor(t *testing.T, svc *BudgetService, v core.Vendor) core.Vendor {
	t.Helper()
	created, err := svc.CreateVendor(context.Background(), uid, v)
	if err != nil {
		t.Fatalf("CreateVendor() error = %v", err)
	}
	return created
}

func expenseFor(vendorID string, cents int64, day int) core.BudgetExpense {
	return core.BudgetExpense{
		VendorID: vendorID,
		Amount:   core.Money{Cents: cents},
		Date:     core.NewDate(2026, 3, day),
		PaidBy:   "Andrea",
	}
}

func TestCreateVendor(t *testing.T) {
	tests := []struct {
		name    string
		vendor  core.Vendor
		wantErr error
	}{
		{name: "valid", vendor: validVendor("Lumière Studio", "Photography", 80000_00)},
		{name: "missing name", vendor: validVendor("  ", "Photography", 1), wantErr: core.ErrEmptyName},
		{name: "bad contact", vendor: func() core.Vendor {
			v := validVendor("A", "Catering", 1)
			v.ContactNumber = "12345"
			return v
		}(), wantErr: core.ErrInvalidContactNumber},
		{name: "zero contract", vendor: validVendor("A", "Catering", 0), wantErr: core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			got, err := svc.CreateVendor(context.Background(), uid, tt.vendor)
			if tt.wantErr != nil {
				if !errors.Is(err, ErrInvalid) || !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateVendor() error = %v, want ErrInvalid wrapping %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateVendor() error = %v", err)
			}
			if got.ID != "id-1" {
				t.Errorf("ID = %q, want id-1", got.ID)
			}
			stored, err := svc.GetVendor(context.Background(), uid, got.ID)
			if err != nil || stored.Name != tt.vendor.Name {
				t.Errorf("GetVendor() = %+v, %v", stored, err)
			}
		})
	}
}

func TestUpdateVendorUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.UpdateVendor(context.Background(), uid, "nope", validVendor("A", "B", 1))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateVendor() error = %v, want ErrNotFound", err)
	}
}

func TestAddExpenseCopiesServiceType(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)
	v := mustCreateVendor(t, svc, validVendor("Bloom", "Flowers", 20000_00))

	e, err := svc.AddExpense(ctx, uid, expenseFor(v.ID, 5000_00, 1))
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	if e.VendorType != "Flowers" {
		t.Errorf("VendorType = %q, want Flowers", e.VendorType)
	}

	// Renaming the service type later does not rewrite history.
	v.ServiceType = "Florist"
	if _, err := svc.UpdateVendor(ctx, uid, v.ID, v); err != nil {
		t.Fatalf("UpdateVendor() error = %v", err)
	}
	expenses, _ := svc.ListExpenses(ctx, uid)
	if len(expenses) != 1 || expenses[0].VendorType != "Flowers" {
		t.Errorf("expenses after vendor update = %+v", expenses)
	}

	// Editing the amount keeps the recorded type.
	updated, err := svc.UpdateExpense(ctx, uid, e.ID, expenseFor(v.ID, 6000_00, 2))
	if err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if updated.VendorType != "Flowers" {
		t.Errorf("VendorType after update = %q, want Flowers", updated.VendorType)
	}

	if got := pub.kinds(); len(got) != 2 || got[0] != amqp.ExpenseChanged || got[1] != amqp.ExpenseChanged {
		t.Errorf("published = %v, want two expense.changed", got)
	}
}

func TestAddExpenseRejects(t *testing.T) {
	svc, _ := newTestService(t)
	v := mustCreateVendor(t, svc, validVendor("Bloom", "Flowers", 100))

	unknownPayer := expenseFor(v.ID, 100, 1)
	unknownPayer.PaidBy = "Mallory"
	noDate := expenseFor(v.ID, 100, 1)
	noDate.Date = core.Date{}

	tests := []struct {
		name    string
		expense core.BudgetExpense
		wantErr error
	}{
		{name: "unknown vendor", expense: expenseFor("ghost", 100, 1)},
		{name: "unknown payer", expense: unknownPayer, wantErr: core.ErrUnknownPayer},
		{name: "zero amount", expense: expenseFor(v.ID, 0, 1), wantErr: core.ErrInvalidAmount},
		{name: "missing date", expense: noDate, wantErr: core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddExpense(context.Background(), uid, tt.expense)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("AddExpense() error = %v, want ErrInvalid", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("AddExpense() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	v := mustCreateVendor(t, svc, validVendor("Bloom", "Flowers", 100))
	e, _ := svc.AddExpense(ctx, uid, expenseFor(v.ID, 50, 1))

	if err := svc.DeleteExpense(ctx, uid, e.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if err := svc.DeleteExpense(ctx, uid, e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteExpense() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteVendorLeavesOrphansForCleanup(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)
	keep := mustCreateVendor(t, svc, validVendor("Keep", "Catering", 100))
	gone := mustCreateVendor(t, svc, validVendor("Gone", "Catering", 100))

	for _, id := range []string{keep.ID, gone.ID} {
		if _, err := svc.ToggleSelection(ctx, uid, "Catering", id); err != nil {
			t.Fatalf("ToggleSelection() error = %v", err)
		}
	}
	if err := svc.DeleteVendor(ctx, uid, gone.ID); err != nil {
		t.Fatalf("DeleteVendor() error = %v", err)
	}

	sel, _ := svc.GetSelection(ctx, uid)
	if !selection.IsSelected(sel, "Catering", gone.ID) {
		t.Fatal("deleting a vendor must not touch selections")
	}
	last := pub.events[len(pub.events)-1]
	if last.Kind != amqp.VendorDeleted || last.VendorID != gone.ID || last.UserID != uid {
		t.Errorf("last event = %+v, want vendor.deleted for %s", last, gone.ID)
	}

	removed, err := svc.CleanupOrphans(ctx, uid)
	if err != nil || removed != 1 {
		t.Fatalf("CleanupOrphans() = %d, %v; want 1", removed, err)
	}
	sel, _ = svc.GetSelection(ctx, uid)
	want := selection.Map{"Catering": {keep.ID}}
	if !selection.Equal(sel, want) {
		t.Errorf("selection after cleanup = %v, want %v", sel, want)
	}
	if removed, _ := svc.CleanupOrphans(ctx, uid); removed != 0 {
		t.Errorf("second CleanupOrphans() removed %d, want 0", removed)
	}
}

func TestToggleSelection(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	first, err := svc.ToggleSelection(ctx, uid, "Venue", "v1")
	if err != nil || !selection.IsSelected(first, "Venue", "v1") {
		t.Fatalf("first toggle = %v, %v", first, err)
	}
	second, err := svc.ToggleSelection(ctx, uid, "Venue", "v1")
	if err != nil || len(second) != 0 {
		t.Fatalf("second toggle = %v, %v; want empty", second, err)
	}
	if got := pub.kinds(); len(got) != 2 || got[0] != amqp.SelectionChanged {
		t.Errorf("published = %v", got)
	}

	for _, args := range [][2]string{{"", "v1"}, {"Venue", " "}} {
		if _, err := svc.ToggleSelection(ctx, uid, args[0], args[1]); !errors.Is(err, ErrInvalid) {
			t.Errorf("ToggleSelection(%q, %q) error = %v, want ErrInvalid", args[0], args[1], err)
		}
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	if _, err := svc.AddContribution(context.Background(), uid, core.BudgetContribution{Name: "Andrea", Amount: core.Money{Cents: 100}}); err != nil {
		t.Fatalf("AddContribution() error = %v, want nil despite publish failure", err)
	}
	list, _ := svc.ListContributions(context.Background(), uid)
	if len(list) != 1 {
		t.Errorf("contributions = %d, want 1", len(list))
	}
}

func TestNilPublisher(t *testing.T) {
	svc := NewBudgetService(memory.New(), []core.Payer{"Andrea"})
	if _, err := svc.ToggleSelection(context.Background(), uid, "Venue", "v1"); err != nil {
		t.Fatalf("ToggleSelection() error = %v", err)
	}
}

func TestUpdateContribution(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c, err := svc.AddContribution(ctx, uid, core.BudgetContribution{Name: "Isaac", Amount: core.Money{Cents: 100}})
	if err != nil {
		t.Fatalf("AddContribution() error = %v", err)
	}
	if _, err := svc.UpdateContribution(ctx, uid, c.ID, core.BudgetContribution{Name: "Isaac", Amount: core.Money{Cents: -1}}); !errors.Is(err, ErrInvalid) {
		t.Errorf("negative amount error = %v, want ErrInvalid", err)
	}
	if _, err := svc.UpdateContribution(ctx, uid, "missing", core.BudgetContribution{Name: "Isaac"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown contribution error = %v, want ErrNotFound", err)
	}
	updated, err := svc.UpdateContribution(ctx, uid, c.ID, core.BudgetContribution{Name: "Isaac", Amount: core.Money{Cents: 250}})
	if err != nil || updated.Amount.Cents != 250 || updated.ID != c.ID {
		t.Errorf("UpdateContribution() = %+v, %v", updated, err)
	}
}

func TestDashboardCacheInvalidatedByWrites(t *testing.T) {
	ctx := context.Background()
	summaries := cache.NewLRUCache[reconcile.Summary](10, time.Hour)
	svc, _ := newTestService(t, WithSummaryCache(summaries))

	if _, err := svc.AddContribution(ctx, uid, core.BudgetContribution{Name: "Andrea", Amount: core.Money{Cents: 1000}}); err != nil {
		t.Fatal(err)
	}
	first, err := svc.Dashboard(ctx, uid)
	if err != nil || first.TotalBudget.Cents != 1000 {
		t.Fatalf("Dashboard() = %+v, %v", first.TotalBudget, err)
	}
	if summaries.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", summaries.Size())
	}

	if _, err := svc.AddContribution(ctx, uid, core.BudgetContribution{Name: "Isaac", Amount: core.Money{Cents: 500}}); err != nil {
		t.Fatal(err)
	}
	if summaries.Size() != 0 {
		t.Errorf("write should invalidate the cached dashboard")
	}
	second, _ := svc.Dashboard(ctx, uid)
	if second.TotalBudget.Cents != 1500 {
		t.Errorf("TotalBudget = %d, want 1500", second.TotalBudget.Cents)
	}
	if len(second.People) != 2 || second.People[0].Person != "Andrea" {
		t.Errorf("People = %+v", second.People)
	}
}

// interleavingStore runs onList once, in the middle of ListContributions.
type interleavingStore struct {
	*memory.Store
	once   sync.Once
	onList func()
}

func (s *interleavingStore) ListContributions(ctx context.Context, uid string) ([]core.BudgetContribution, error) {
	out, err := s.Store.ListContributions(ctx, uid)
	s.once.Do(s.onList)
	return out, err
}

func TestDashboardNotCachedAcrossConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	summaries := cache.NewLRUCache[reconcile.Summary](10, time.Hour)
	backend := &interleavingStore{Store: memory.New()}
	svc := NewBudgetService(backend, []core.Payer{"Andrea", "Isaac"},
		WithSummaryCache(summaries),
		WithIDGenerator(sequentialIDs()),
	)
	backend.onList = func() {
		if _, err := svc.AddContribution(ctx, uid, core.BudgetContribution{Name: "Andrea", Amount: core.Money{Cents: 5000000}}); err != nil {
			t.Errorf("AddContribution() error = %v", err)
		}
	}

	first, err := svc.Dashboard(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalBudget.Cents != 0 {
		t.Fatalf("first TotalBudget = %d, want the pre-write 0", first.TotalBudget.Cents)
	}
	if summaries.Size() != 0 {
		t.Errorf("dashboard computed before a write was cached")
	}

	second, err := svc.Dashboard(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if second.TotalBudget.Cents != 5000000 {
		t.Errorf("second TotalBudget = %d, want 5000000", second.TotalBudget.Cents)
	}
	if summaries.Size() != 1 {
		t.Errorf("cache size = %d, want 1", summaries.Size())
	}
}

func TestVendorReads(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	v := mustCreateVendor(t, svc, validVendor("Hall", "Venue", 1000))
	for day, cents := range map[int]int64{3: 300, 1: 200} {
		if _, err := svc.AddExpense(ctx, uid, expenseFor(v.ID, cents, day)); err != nil {
			t.Fatal(err)
		}
	}

	progress, err := svc.VendorProgress(ctx, uid, v.ID)
	if err != nil {
		t.Fatalf("VendorProgress() error = %v", err)
	}
	if progress.Percentage != 50 || progress.Remaining.Cents != 500 || progress.Severity != reconcile.SeverityMid {
		t.Errorf("VendorProgress() = %+v", progress)
	}

	entries, err := svc.VendorLedger(ctx, uid, v.ID)
	if err != nil || len(entries) != 2 {
		t.Fatalf("VendorLedger() = %v, %v", entries, err)
	}
	if entries[0].Expense.Amount.Cents != 200 || entries[1].CumulativePaid.Cents != 500 {
		t.Errorf("VendorLedger() not chronological: %+v", entries)
	}

	groups, err := svc.Ledger(ctx, uid)
	if err != nil || len(groups) != 1 || groups[0].VendorName != "Hall" {
		t.Errorf("Ledger() = %+v, %v", groups, err)
	}

	if _, err := svc.VendorProgress(ctx, uid, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("VendorProgress(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.VendorLedger(ctx, uid, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("VendorLedger(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestImportAndReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	snap := snapshot.Snapshot{
		Vendors: []core.Vendor{{ID: "v1", Name: "Hall", ServiceType: "Venue", ContractPrice: core.Money{Cents: 1000}}},
		Expenses: []core.BudgetExpense{
			{ID: "e1", VendorID: "v1", VendorType: "Venue", Amount: core.Money{Cents: 400}, Date: core.NewDate(2026, 1, 5), PaidBy: "Isaac"},
		},
		Contributions: []core.BudgetContribution{{ID: "c1", Name: "Isaac", Amount: core.Money{Cents: 2000}}},
		Selection:     selection.Map{"Venue": {"v1", "v1", ""}, "Empty": {}},
	}
	if err := svc.Import(ctx, uid, snap); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	sel, _ := svc.GetSelection(ctx, uid)
	if !selection.Equal(sel, selection.Map{"Venue": {"v1"}}) {
		t.Errorf("imported selection = %v, want canonical form", sel)
	}

	report, err := svc.Report(ctx, uid)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.UserID != uid || report.Summary.TotalPaid.Cents != 400 || report.Summary.ActualRemaining.Cents != 1000 {
		t.Errorf("Report() summary = %+v", report.Summary)
	}
	if !report.GeneratedAt.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("GeneratedAt = %v", report.GeneratedAt)
	}
}

func TestReplaceSelectionNormalizes(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.ReplaceSelection(context.Background(), uid, selection.Map{"Venue": {"a", "a"}, "": {"b"}})
	if err != nil {
		t.Fatal(err)
	}
	if !selection.Equal(got, selection.Map{"Venue": {"a"}}) {
		t.Errorf("ReplaceSelection() = %v", got)
	}
}
