package worker

import (
	"context"
	"errors"
	"testing"

	"weddingbudget/internal/amqp"
	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/services"
	"weddingbudget/internal/store/memory"
)

type fakeCleaner struct {
	calls   []string
	removed int
	err     error
}

func (f *fakeCleaner) CleanupOrphans(_ context.Context, uid string) (int, error) {
	f.calls = append(f.calls, uid)
	return f.removed, f.err
}

type fakeScheduler struct{ dirty []string }

func (f *fakeScheduler) MarkDirty(uid string) { f.dirty = append(f.dirty, uid) }

type sliceConsumer struct {
	events []amqp.BudgetEvent
	errs   []error
}

func (c *sliceConsumer) Consume(ctx context.Context, handler func(context.Context, amqp.BudgetEvent) error) error {
	for _, e := range c.events {
		c.errs = append(c.errs, handler(ctx, e))
	}
	return nil
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name        string
		kind        amqp.EventKind
		cleanerErr  error
		wantCleanup bool
		wantErr     bool
		wantDirty   bool
	}{
		{name: "vendor deleted cleans and exports", kind: amqp.VendorDeleted, wantCleanup: true, wantDirty: true},
		{name: "expense changed exports only", kind: amqp.ExpenseChanged, wantDirty: true},
		{name: "selection changed exports only", kind: amqp.SelectionChanged, wantDirty: true},
		{name: "cleanup failure requeues", kind: amqp.VendorDeleted, cleanerErr: errors.New("db down"), wantCleanup: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaner := &fakeCleaner{removed: 1, err: tt.cleanerErr}
			scheduler := &fakeScheduler{}
			w := NewReconcileWorker(cleaner, scheduler, nil)

			err := w.HandleEvent(context.Background(), amqp.NewBudgetEvent("u1", tt.kind, "v1"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (len(cleaner.calls) == 1) != tt.wantCleanup {
				t.Errorf("cleanup calls = %v, want cleanup %v", cleaner.calls, tt.wantCleanup)
			}
			if (len(scheduler.dirty) == 1) != tt.wantDirty {
				t.Errorf("dirty = %v, want dirty %v", scheduler.dirty, tt.wantDirty)
			}
		})
	}
}

func TestHandleEventWithoutExporter(t *testing.T) {
	w := NewReconcileWorker(&fakeCleaner{}, nil, nil)
	if err := w.HandleEvent(context.Background(), amqp.NewBudgetEvent("u1", amqp.ContributionChanged, "")); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
}

func TestRunCleansOrphansEndToEnd(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	svc := services.NewBudgetService(backend, []core.Payer{"Andrea"})

	if err := backend.PutSelection(ctx, "u1", selection.Map{"Venue": {"deleted-vendor"}}); err != nil {
		t.Fatal(err)
	}
	consumer := &sliceConsumer{events: []amqp.BudgetEvent{amqp.NewBudgetEvent("u1", amqp.VendorDeleted, "deleted-vendor")}}

	w := NewReconcileWorker(svc, nil, nil)
	if err := w.Run(ctx, consumer); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if consumer.errs[0] != nil {
		t.Fatalf("handler error = %v", consumer.errs[0])
	}
	sel, _ := backend.GetSelection(ctx, "u1")
	if len(sel) != 0 {
		t.Errorf("selection after worker run = %v, want empty", sel)
	}
}
