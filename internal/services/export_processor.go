package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"weddingbudget/internal/log"
	"weddingbudget/internal/sheets"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often pending users are exported (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of users exported per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of failed attempts before a user is dropped (default: 3)
	MaxRetries int
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// ReportSource builds the export report of a user.
type ReportSource interface {
	Report(ctx context.Context, uid string) (sheets.Report, error)
}

// ExportProcessor coalesces change notifications into periodic ledger
// exports: a user marked dirty several times between polls is exported once.
type ExportProcessor struct {
	source   ReportSource
	exporter sheets.LedgerExporter
	config   ExportProcessorConfig
	logger   *log.Logger

	pendingMu sync.Mutex
	pending   map[string]int // uid -> failed attempts
	order     []string

	mu      sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewExportProcessor(source ReportSource, exporter sheets.LedgerExporter, config ExportProcessorConfig, logger *log.Logger) *ExportProcessor {
	defaults := DefaultExportProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportProcessor{
		source:   source,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentSheets),
		pending:  make(map[string]int),
	}
}

// MarkDirty schedules an export for uid.
func (p *ExportProcessor) MarkDirty(uid string) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if _, ok := p.pending[uid]; ok {
		return
	}
	p.pending[uid] = 0
	p.order = append(p.order, uid)
}

// Pending returns the number of users waiting for an export.
func (p *ExportProcessor) Pending() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.order)
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopping = false
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop flushes one last batch and waits for the loop to exit. It may be
// called again after a timeout to keep waiting.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if !p.stopping {
		p.stopping = true
		close(p.stopCh)
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			// Final flush uses a fresh context: ctx may be the one being torn down.
			p.ProcessBatch(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch exports up to BatchSize pending users and returns how many
// exports succeeded. Failed users are retried on a later batch until
// MaxRetries is reached.
func (p *ExportProcessor) ProcessBatch(ctx context.Context) int {
	exported := 0
	for _, item := range p.take(p.config.BatchSize) {
		if err := p.export(ctx, item.uid); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		exported++
	}
	return exported
}

type pendingExport struct {
	uid      string
	attempts int
}

// take removes up to n users from the queue. A user marked dirty again while
// its export is in flight is queued anew.
func (p *ExportProcessor) take(n int) []pendingExport {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if n > len(p.order) {
		n = len(p.order)
	}
	batch := make([]pendingExport, 0, n)
	for _, uid := range p.order[:n] {
		batch = append(batch, pendingExport{uid: uid, attempts: p.pending[uid]})
		delete(p.pending, uid)
	}
	p.order = p.order[n:]
	return batch
}

func (p *ExportProcessor) export(ctx context.Context, uid string) error {
	report, err := p.source.Report(ctx, uid)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	if err := p.exporter.ExportLedger(ctx, report); err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	p.logger.InfoContext(ctx, "Ledger exported",
		log.FieldUserID, uid,
		log.FieldOperation, log.OpExport,
		"groups", len(report.Ledger))
	return nil
}

func (p *ExportProcessor) handleFailure(ctx context.Context, item pendingExport, exportErr error) {
	attempts := item.attempts + 1
	p.logger.WarnContext(ctx, "Ledger export failed",
		log.FieldUserID, item.uid,
		"attempt", attempts,
		log.FieldError, exportErr.Error())

	if attempts >= p.config.MaxRetries {
		p.logger.ErrorContext(ctx, "Ledger export dropped after max retries",
			log.FieldUserID, item.uid,
			"attempts", attempts)
		return
	}

	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if _, queued := p.pending[item.uid]; queued {
		return
	}
	p.pending[item.uid] = attempts
	p.order = append(p.order, item.uid)
}
