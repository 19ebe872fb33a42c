// Package worker reacts to budget change events published by the API.
package worker

import (
	"context"
	"fmt"

	"weddingbudget/internal/amqp"
	"weddingbudget/internal/log"
)

// OrphanCleaner removes selections that reference deleted vendors.
type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context, uid string) (int, error)
}

// ExportScheduler queues a ledger export for a user.
type ExportScheduler interface {
	MarkDirty(uid string)
}

// Consumer delivers events to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, amqp.BudgetEvent) error) error
}

// ReconcileWorker keeps derived state in line with the records: it cleans up
// orphaned selections after a vendor is deleted and schedules ledger exports.
type ReconcileWorker struct {
	cleaner OrphanCleaner
	exports ExportScheduler
	logger  *log.Logger
}

// NewReconcileWorker creates a worker. exports may be nil when no exporter
// is configured.
func NewReconcileWorker(cleaner OrphanCleaner, exports ExportScheduler, logger *log.Logger) *ReconcileWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReconcileWorker{
		cleaner: cleaner,
		exports: exports,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one event. An error makes the consumer requeue it.
func (w *ReconcileWorker) HandleEvent(ctx context.Context, e amqp.BudgetEvent) error {
	w.logger.InfoContext(ctx, "Processing budget event",
		log.FieldUserID, e.UserID,
		log.FieldEventKind, string(e.Kind),
		log.FieldVendorID, e.VendorID)

	if e.Kind == amqp.VendorDeleted {
		removed, err := w.cleaner.CleanupOrphans(ctx, e.UserID)
		if err != nil {
			return fmt.Errorf("cleanup orphans for %s: %w", e.UserID, err)
		}
		w.logger.InfoContext(ctx, "Selections reconciled after vendor deletion",
			log.FieldUserID, e.UserID,
			log.FieldVendorID, e.VendorID,
			log.FieldRemoved, removed)
	}

	if w.exports != nil {
		w.exports.MarkDirty(e.UserID)
	}
	return nil
}

// Run consumes events until ctx is cancelled.
func (w *ReconcileWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Reconcile worker started")
	err := consumer.Consume(ctx, w.HandleEvent)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume budget events: %w", err)
	}
	w.logger.InfoContext(ctx, "Reconcile worker stopped")
	return nil
}
