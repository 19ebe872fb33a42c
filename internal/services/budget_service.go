// Package services orchestrates budget writes and reads across the store,
// the reconciliation engine and the event publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"weddingbudget/internal/amqp"
	"weddingbudget/internal/cache"
	"weddingbudget/internal/core"
	"weddingbudget/internal/log"
	"weddingbudget/internal/reconcile"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/sheets"
	"weddingbudget/internal/snapshot"
	"weddingbudget/internal/store"
)

// ErrInvalid marks input rejected by validation. The underlying reason is
// wrapped alongside it.
var ErrInvalid = errors.New("invalid input")

const dashboardView = "dashboard"

// BudgetService is the application layer behind the HTTP API, the worker
// and the admin CLI.
type BudgetService struct {
	backend   store.Backend
	members   []core.Payer
	publisher amqp.Publisher
	summaries cache.Cache[reconcile.Summary]
	// generations counts invalidations per user so a dashboard computed
	// before a write is never stored after it.
	genMu       sync.Mutex
	generations map[string]uint64
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
	newID     func() string
}

// Option configures a BudgetService.
type Option func(*BudgetService)

// WithPublisher publishes change events after successful writes.
func WithPublisher(p amqp.Publisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

// WithSummaryCache caches dashboards per user until the next write.
func WithSummaryCache(c cache.Cache[reconcile.Summary]) Option {
	return func(s *BudgetService) { s.summaries = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BudgetService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *BudgetService) { s.newID = newID }
}

func NewBudgetService(backend store.Backend, members []core.Payer, opts ...Option) *BudgetService {
	s := &BudgetService{
		backend:     backend,
		members:     members,
		generations: make(map[string]uint64),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Members returns the configured household members.
func (s *BudgetService) Members() []core.Payer {
	return s.members
}

// Ping checks the backend.
func (s *BudgetService) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// Vendors

func (s *BudgetService) ListVendors(ctx context.Context, uid string) ([]core.Vendor, error) {
	return s.backend.ListVendors(ctx, uid)
}

// VendorGroups returns the user's vendors grouped by service type.
func (s *BudgetService) VendorGroups(ctx context.Context, uid string) ([]reconcile.VendorGroup, error) {
	vendors, err := s.backend.ListVendors(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reconcile.GroupVendors(vendors), nil
}

func (s *BudgetService) GetVendor(ctx context.Context, uid, id string) (core.Vendor, error) {
	return s.backend.GetVendor(ctx, uid, id)
}

// CreateVendor validates v, assigns a new id and stores it.
func (s *BudgetService) CreateVendor(ctx context.Context, uid string, v core.Vendor) (core.Vendor, error) {
	v = trimVendor(v)
	if err := v.Validate(); err != nil {
		return core.Vendor{}, invalid(err)
	}
	v.ID = s.newID()
	if err := s.backend.SaveVendor(ctx, uid, v); err != nil {
		return core.Vendor{}, fmt.Errorf("save vendor: %w", err)
	}
	s.written(ctx, uid, log.OpCreate, "vendor", v.ID)
	return v, nil
}

// UpdateVendor replaces an existing vendor. Expenses keep the service type
// they were recorded with.
func (s *BudgetService) UpdateVendor(ctx context.Context, uid, id string, v core.Vendor) (core.Vendor, error) {
	if _, err := s.backend.GetVendor(ctx, uid, id); err != nil {
		return core.Vendor{}, err
	}
	v = trimVendor(v)
	v.ID = id
	if err := v.Validate(); err != nil {
		return core.Vendor{}, invalid(err)
	}
	if err := s.backend.SaveVendor(ctx, uid, v); err != nil {
		return core.Vendor{}, fmt.Errorf("save vendor: %w", err)
	}
	s.written(ctx, uid, log.OpUpdate, "vendor", id)
	return v, nil
}

// DeleteVendor removes the vendor and announces it. Selections are cleaned
// up by whoever consumes the event, or by an explicit CleanupOrphans.
func (s *BudgetService) DeleteVendor(ctx context.Context, uid, id string) error {
	if err := s.backend.DeleteVendor(ctx, uid, id); err != nil {
		return err
	}
	s.invalidate(uid)
	s.events.LogRecordWritten(ctx, uid, log.OpDelete, "vendor", id)
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.VendorDeleted, id))
	return nil
}

func trimVendor(v core.Vendor) core.Vendor {
	v.Name = strings.TrimSpace(v.Name)
	v.ServiceType = strings.TrimSpace(v.ServiceType)
	v.ContactNumber = strings.TrimSpace(v.ContactNumber)
	v.Email = strings.TrimSpace(v.Email)
	v.PackageName = strings.TrimSpace(v.PackageName)
	return v
}

// Expenses

func (s *BudgetService) ListExpenses(ctx context.Context, uid string) ([]core.BudgetExpense, error) {
	return s.backend.ListExpenses(ctx, uid)
}

// AddExpense records a payment. The vendor must exist; its current service
// type is copied onto the expense.
func (s *BudgetService) AddExpense(ctx context.Context, uid string, e core.BudgetExpense) (core.BudgetExpense, error) {
	if err := e.Validate(s.members); err != nil {
		return core.BudgetExpense{}, invalid(err)
	}
	vendor, err := s.resolveVendor(ctx, uid, e.VendorID)
	if err != nil {
		return core.BudgetExpense{}, err
	}
	e.ID = s.newID()
	e.VendorType = vendor.ServiceType
	if err := s.backend.SaveExpense(ctx, uid, e); err != nil {
		return core.BudgetExpense{}, fmt.Errorf("save expense: %w", err)
	}
	s.written(ctx, uid, log.OpCreate, "expense", e.ID)
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.ExpenseChanged, e.VendorID))
	return e, nil
}

// UpdateExpense replaces an existing expense. The recorded service type is
// kept unless the expense moves to another vendor.
func (s *BudgetService) UpdateExpense(ctx context.Context, uid, id string, e core.BudgetExpense) (core.BudgetExpense, error) {
	existing, err := s.backend.GetExpense(ctx, uid, id)
	if err != nil {
		return core.BudgetExpense{}, err
	}
	if err := e.Validate(s.members); err != nil {
		return core.BudgetExpense{}, invalid(err)
	}
	e.ID = id
	e.VendorType = existing.VendorType
	if e.VendorID != existing.VendorID {
		vendor, err := s.resolveVendor(ctx, uid, e.VendorID)
		if err != nil {
			return core.BudgetExpense{}, err
		}
		e.VendorType = vendor.ServiceType
	}
	if err := s.backend.SaveExpense(ctx, uid, e); err != nil {
		return core.BudgetExpense{}, fmt.Errorf("save expense: %w", err)
	}
	s.written(ctx, uid, log.OpUpdate, "expense", id)
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.ExpenseChanged, e.VendorID))
	return e, nil
}

func (s *BudgetService) DeleteExpense(ctx context.Context, uid, id string) error {
	existing, err := s.backend.GetExpense(ctx, uid, id)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteExpense(ctx, uid, id); err != nil {
		return err
	}
	s.written(ctx, uid, log.OpDelete, "expense", id)
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.ExpenseChanged, existing.VendorID))
	return nil
}

func (s *BudgetService) resolveVendor(ctx context.Context, uid, id string) (core.Vendor, error) {
	vendor, err := s.backend.GetVendor(ctx, uid, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Vendor{}, invalid(fmt.Errorf("unknown vendor %q", id))
	}
	if err != nil {
		return core.Vendor{}, fmt.Errorf("resolve vendor: %w", err)
	}
	return vendor, nil
}

// Contributions

func (s *BudgetService) ListContributions(ctx context.Context, uid string) ([]core.BudgetContribution, error) {
	return s.backend.ListContributions(ctx, uid)
}

func (s *BudgetService) AddContribution(ctx context.Context, uid string, c core.BudgetContribution) (core.BudgetContribution, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.BudgetContribution{}, invalid(err)
	}
	c.ID = s.newID()
	if err := s.backend.SaveContribution(ctx, uid, c); err != nil {
		return core.BudgetContribution{}, fmt.Errorf("save contribution: %w", err)
	}
	s.written(ctx, uid, log.OpCreate, "contribution", c.ID)
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.ContributionChanged, ""))
	return c, nil
}

func (s *BudgetService) UpdateContribution(ctx context.Context, uid, id string, c core.BudgetContribution) (core.BudgetContribution, error) {
	if _, err := s.backend.GetContribution(ctx, uid, id); err != nil {
		return core.BudgetContribution{}, err
	}
	c.ID = id
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.BudgetContribution{}, invalid(err)
	}
	if err := s.backend.SaveContribution(ctx, uid, c); err != nil {
		return core.BudgetContribution{}, fmt.Errorf("save contribution: %w", err)
	}
	s.written(ctx, uid, log.OpUpdate, "contribution", id)
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.ContributionChanged, ""))
	return c, nil
}

// Selections

func (s *BudgetService) GetSelection(ctx context.Context, uid string) (selection.Map, error) {
	return s.backend.GetSelection(ctx, uid)
}

// ToggleSelection flips vendorID under serviceType and stores the result.
func (s *BudgetService) ToggleSelection(ctx context.Context, uid, serviceType, vendorID string) (selection.Map, error) {
	serviceType = strings.TrimSpace(serviceType)
	vendorID = strings.TrimSpace(vendorID)
	if serviceType == "" {
		return nil, invalid(core.ErrEmptyServiceType)
	}
	if vendorID == "" {
		return nil, invalid(core.ErrEmptyVendor)
	}
	current, err := s.backend.GetSelection(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	next := selection.Toggle(current, serviceType, vendorID)
	if err := s.backend.PutSelection(ctx, uid, next); err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	s.invalidate(uid)
	s.logger.InfoContext(ctx, "Selection toggled",
		log.FieldUserID, uid,
		log.FieldServiceType, serviceType,
		log.FieldVendorID, vendorID,
		"selected", selection.IsSelected(next, serviceType, vendorID))
	s.publish(ctx, amqp.NewBudgetEvent(uid, amqp.SelectionChanged, vendorID))
	return next, nil
}

// ReplaceSelection stores the canonical form of m.
func (s *BudgetService) ReplaceSelection(ctx context.Context, uid string, m selection.Map) (selection.Map, error) {
	m = selection.Normalize(m)
	if err := s.backend.PutSelection(ctx, uid, m); err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	s.written(ctx, uid, log.OpUpdate, "selection", uid)
	return m, nil
}

// CleanupOrphans drops selections that reference deleted vendors and
// returns how many ids were removed. Nothing is written when none are.
func (s *BudgetService) CleanupOrphans(ctx context.Context, uid string) (int, error) {
	vendors, err := s.backend.ListVendors(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("load vendors: %w", err)
	}
	current, err := s.backend.GetSelection(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("load selection: %w", err)
	}
	cleaned, removed := selection.CleanupOrphans(current, reconcile.VendorIDs(vendors))
	if removed == 0 {
		return 0, nil
	}
	if err := s.backend.PutSelection(ctx, uid, cleaned); err != nil {
		return 0, fmt.Errorf("store selection: %w", err)
	}
	s.invalidate(uid)
	s.events.LogOrphansRemoved(ctx, uid, removed)
	return removed, nil
}

// Reads

// Snapshot loads every collection of the user.
func (s *BudgetService) Snapshot(ctx context.Context, uid string) (snapshot.Snapshot, error) {
	return store.LoadSnapshot(ctx, s.backend, uid)
}

// Dashboard returns the headline figures, served from the cache when fresh.
func (s *BudgetService) Dashboard(ctx context.Context, uid string) (reconcile.Summary, error) {
	key := cache.UserKey(dashboardView, uid)
	if s.summaries != nil {
		if summary, ok := s.summaries.Get(key); ok {
			return summary, nil
		}
	}
	gen := s.generation(uid)
	snap, err := s.Snapshot(ctx, uid)
	if err != nil {
		return reconcile.Summary{}, err
	}
	summary := reconcile.Summarize(snap, s.members)
	if s.summaries != nil {
		s.genMu.Lock()
		if s.generations[uid] == gen {
			s.summaries.Set(key, summary)
		}
		s.genMu.Unlock()
	}
	return summary, nil
}

// Ledger returns every expense grouped by vendor with running totals.
func (s *BudgetService) Ledger(ctx context.Context, uid string) ([]reconcile.LedgerGroup, error) {
	snap, err := s.Snapshot(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reconcile.ExpenseLedger(snap.Expenses, snap.Vendors), nil
}

func (s *BudgetService) VendorProgress(ctx context.Context, uid, vendorID string) (reconcile.Progress, error) {
	vendor, expenses, err := s.vendorWithExpenses(ctx, uid, vendorID)
	if err != nil {
		return reconcile.Progress{}, err
	}
	return reconcile.VendorPaymentProgress(vendor, expenses), nil
}

func (s *BudgetService) VendorLedger(ctx context.Context, uid, vendorID string) ([]reconcile.LedgerEntry, error) {
	vendor, expenses, err := s.vendorWithExpenses(ctx, uid, vendorID)
	if err != nil {
		return nil, err
	}
	return reconcile.VendorLedger(vendor, expenses), nil
}

func (s *BudgetService) vendorWithExpenses(ctx context.Context, uid, vendorID string) (core.Vendor, []core.BudgetExpense, error) {
	vendor, err := s.backend.GetVendor(ctx, uid, vendorID)
	if err != nil {
		return core.Vendor{}, nil, err
	}
	expenses, err := s.backend.ListExpenses(ctx, uid)
	if err != nil {
		return core.Vendor{}, nil, fmt.Errorf("load expenses: %w", err)
	}
	return vendor, expenses, nil
}

// Report builds the export report for the user.
func (s *BudgetService) Report(ctx context.Context, uid string) (sheets.Report, error) {
	snap, err := s.Snapshot(ctx, uid)
	if err != nil {
		return sheets.Report{}, err
	}
	return sheets.BuildReport(uid, snap, s.members, s.now().UTC()), nil
}

// Import writes an externally decoded snapshot for the user. Records keep
// their ids and the selection is stored in canonical form.
func (s *BudgetService) Import(ctx context.Context, uid string, snap snapshot.Snapshot) error {
	snap.Selection = selection.Normalize(snap.Selection)
	if err := store.ImportSnapshot(ctx, s.backend, uid, snap); err != nil {
		return err
	}
	s.invalidate(uid)
	s.logger.InfoContext(ctx, "Snapshot imported",
		log.FieldUserID, uid,
		log.FieldOperation, log.OpImport,
		"vendors", len(snap.Vendors),
		"expenses", len(snap.Expenses),
		"contributions", len(snap.Contributions))
	return nil
}

func (s *BudgetService) written(ctx context.Context, uid, op, kind, id string) {
	s.invalidate(uid)
	s.events.LogRecordWritten(ctx, uid, op, kind, id)
}

func (s *BudgetService) generation(uid string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[uid]
}

func (s *BudgetService) invalidate(uid string) {
	if s.summaries == nil {
		return
	}
	s.genMu.Lock()
	s.generations[uid]++
	s.summaries.Delete(cache.UserKey(dashboardView, uid))
	s.genMu.Unlock()
}

// publish never fails the caller: the write already succeeded.
func (s *BudgetService) publish(ctx context.Context, e amqp.BudgetEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping event", log.FieldEventKind, string(e.Kind))
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish budget event",
			log.FieldUserID, e.UserID,
			log.FieldEventKind, string(e.Kind),
			log.FieldError, err.Error())
	}
}
