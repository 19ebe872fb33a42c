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

func TestLocalPublisherRequiresWorker(t *testing.T) {
	p := NewLocalPublisher()
	err := p.Publish(context.Background(), amqp.NewBudgetEvent("u1", amqp.ExpenseChanged, ""))
	if !errors.Is(err, errNotAttached) {
		t.Fatalf("Publish() error = %v, want errNotAttached", err)
	}
}

func TestLocalPublisherCleansSelectionOnVendorDelete(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	local := NewLocalPublisher()
	svc := services.NewBudgetService(backend, []core.Payer{"Andrea"}, services.WithPublisher(local))
	scheduler := &fakeScheduler{}
	local.Attach(NewReconcileWorker(svc, scheduler, nil))

	v, err := svc.CreateVendor(ctx, "u1", core.Vendor{
		Name:          "Villa",
		ServiceType:   "Venue",
		ContactNumber: "09171234567",
		PackageName:   "Full day",
		ContractPrice: core.Money{Cents: 500000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleSelection(ctx, "u1", "Venue", v.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteVendor(ctx, "u1", v.ID); err != nil {
		t.Fatal(err)
	}

	sel, _ := backend.GetSelection(ctx, "u1")
	if selection.IsSelected(sel, "Venue", v.ID) {
		t.Errorf("deleted vendor still selected: %v", sel)
	}
	// toggle + delete
	if len(scheduler.dirty) != 2 {
		t.Errorf("dirty = %v, want 2 entries", scheduler.dirty)
	}
}
