package worker

import (
	"context"
	"errors"
	"sync"

	"weddingbudget/internal/amqp"
)

var errNotAttached = errors.New("local publisher has no worker attached")

// LocalPublisher delivers events straight to a ReconcileWorker in the same
// process. It stands in for the broker when AMQP is not configured.
type LocalPublisher struct {
	mu     sync.RWMutex
	worker *ReconcileWorker
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{}
}

// Attach sets the worker that receives events. The worker usually depends
// on the service that publishes, so it is attached after construction.
func (p *LocalPublisher) Attach(w *ReconcileWorker) {
	p.mu.Lock()
	p.worker = w
	p.mu.Unlock()
}

// Publish handles e synchronously.
func (p *LocalPublisher) Publish(ctx context.Context, e amqp.BudgetEvent) error {
	p.mu.RLock()
	w := p.worker
	p.mu.RUnlock()
	if w == nil {
		return errNotAttached
	}
	return w.HandleEvent(ctx, e)
}
