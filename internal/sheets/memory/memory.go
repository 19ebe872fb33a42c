// Package memory is an in-process sheets.LedgerExporter that keeps the last
// report per user.
package memory

import (
	"context"
	"errors"
	"sync"

	"weddingbudget/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	reports map[string]sheets.Report
	count   int
	fail    error
}

var _ sheets.LedgerExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{reports: make(map[string]sheets.Report)}
}

// FailWith makes subsequent exports return err. Passing nil clears it.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

func (e *Exporter) ExportLedger(ctx context.Context, r sheets.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.UserID == "" {
		return errors.New("report without user id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.reports[r.UserID] = r
	e.count++
	return nil
}

// Last returns the most recent report exported for uid.
func (e *Exporter) Last(uid string) (sheets.Report, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.reports[uid]
	return r, ok
}

// Count returns the number of successful exports.
func (e *Exporter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
