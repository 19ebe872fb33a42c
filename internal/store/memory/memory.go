// Package memory is an in-process store.Backend, optionally seeded from a
// YAML file. It is the default backend for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/snapshot"
	"weddingbudget/internal/store"
)

type userData struct {
	vendors       []core.Vendor
	expenses      []core.BudgetExpense
	contributions []core.BudgetContribution
	selection     selection.Map
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userData)}
}

// NewFromFile creates a store seeded from the YAML file at path. An empty
// path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	if err := s.LoadSeed(b); err != nil {
		return nil, fmt.Errorf("load seed file %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) user(uid string) *userData {
	u, ok := s.users[uid]
	if !ok {
		u = &userData{selection: selection.Map{}}
		s.users[uid] = u
	}
	return u
}

func (s *Store) ListVendors(_ context.Context, uid string) ([]core.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.user(uid).vendors)
	slices.SortStableFunc(out, func(a, b core.Vendor) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetVendor(_ context.Context, uid, id string) (core.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := s.user(uid).vendors
	if i := slices.IndexFunc(vs, func(v core.Vendor) bool { return v.ID == id }); i >= 0 {
		return vs[i], nil
	}
	return core.Vendor{}, fmt.Errorf("vendor %s: %w", id, store.ErrNotFound)
}

func (s *Store) SaveVendor(_ context.Context, uid string, v core.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	u.vendors = upsert(u.vendors, v, func(x core.Vendor) bool { return x.ID == v.ID })
	return nil
}

func (s *Store) DeleteVendor(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	n := len(u.vendors)
	u.vendors = slices.DeleteFunc(u.vendors, func(v core.Vendor) bool { return v.ID == id })
	if len(u.vendors) == n {
		return fmt.Errorf("vendor %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListExpenses(_ context.Context, uid string) ([]core.BudgetExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.user(uid).expenses), nil
}

func (s *Store) GetExpense(_ context.Context, uid, id string) (core.BudgetExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.user(uid).expenses
	if i := slices.IndexFunc(es, func(e core.BudgetExpense) bool { return e.ID == id }); i >= 0 {
		return es[i], nil
	}
	return core.BudgetExpense{}, fmt.Errorf("expense %s: %w", id, store.ErrNotFound)
}

func (s *Store) SaveExpense(_ context.Context, uid string, e core.BudgetExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	u.expenses = upsert(u.expenses, e, func(x core.BudgetExpense) bool { return x.ID == e.ID })
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	n := len(u.expenses)
	u.expenses = slices.DeleteFunc(u.expenses, func(e core.BudgetExpense) bool { return e.ID == id })
	if len(u.expenses) == n {
		return fmt.Errorf("expense %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListContributions(_ context.Context, uid string) ([]core.BudgetContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.user(uid).contributions), nil
}

func (s *Store) GetContribution(_ context.Context, uid, id string) (core.BudgetContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.user(uid).contributions
	if i := slices.IndexFunc(cs, func(c core.BudgetContribution) bool { return c.ID == id }); i >= 0 {
		return cs[i], nil
	}
	return core.BudgetContribution{}, fmt.Errorf("contribution %s: %w", id, store.ErrNotFound)
}

func (s *Store) SaveContribution(_ context.Context, uid string, c core.BudgetContribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	u.contributions = upsert(u.contributions, c, func(x core.BudgetContribution) bool { return x.ID == c.ID })
	return nil
}

func (s *Store) GetSelection(_ context.Context, uid string) (selection.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return selection.Clone(s.user(uid).selection), nil
}

func (s *Store) PutSelection(_ context.Context, uid string, m selection.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(uid).selection = selection.Normalize(m)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func upsert[T any](items []T, item T, match func(T) bool) []T {
	if i := slices.IndexFunc(items, match); i >= 0 {
		items[i] = item
		return items
	}
	return append(items, item)
}

// Seed file layout.
type (
	seedFile struct {
		Users map[string]seedUser `yaml:"users"`
	}

	seedUser struct {
		Vendors         []seedVendor        `yaml:"vendors"`
		Expenses        []seedExpense       `yaml:"expenses"`
		Contributions   []seedContribution  `yaml:"contributions"`
		SelectedVendors map[string][]string `yaml:"selectedVendors"`
	}

	seedVendor struct {
		ID            string `yaml:"id"`
		ServiceType   string `yaml:"serviceType"`
		Name          string `yaml:"name"`
		ContactNumber string `yaml:"contactNumber"`
		Email         string `yaml:"email"`
		PackageName   string `yaml:"packageName"`
		ContractPrice string `yaml:"contractPrice"`
		Notes         string `yaml:"notes"`
	}

	seedExpense struct {
		ID         string `yaml:"id"`
		Vendor     string `yaml:"vendor"`
		VendorType string `yaml:"vendorType"`
		Amount     string `yaml:"amount"`
		Date       string `yaml:"date"`
		PaidBy     string `yaml:"paidBy"`
		Notes      string `yaml:"notes"`
	}

	seedContribution struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Amount string `yaml:"amount"`
	}
)

// LoadSeed adds the users described by a YAML document to the store.
// Amounts are read leniently; an unparsable date is kept as the zero date.
func (s *Store) LoadSeed(b []byte) error {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, su := range f.Users {
		u := s.user(uid)
		for _, v := range su.Vendors {
			u.vendors = append(u.vendors, core.Vendor{
				ID:            v.ID,
				ServiceType:   v.ServiceType,
				Name:          v.Name,
				ContactNumber: v.ContactNumber,
				Email:         v.Email,
				PackageName:   v.PackageName,
				ContractPrice: snapshot.ParseLenientAmount(v.ContractPrice),
				Notes:         v.Notes,
			})
		}
		for _, e := range su.Expenses {
			date, _ := core.ParseDate(e.Date)
			u.expenses = append(u.expenses, core.BudgetExpense{
				ID:         e.ID,
				VendorID:   e.Vendor,
				VendorType: e.VendorType,
				Amount:     snapshot.ParseLenientAmount(e.Amount),
				Date:       date,
				PaidBy:     core.Payer(e.PaidBy),
				Notes:      e.Notes,
			})
		}
		for _, c := range su.Contributions {
			u.contributions = append(u.contributions, core.BudgetContribution{
				ID:     c.ID,
				Name:   c.Name,
				Amount: snapshot.ParseLenientAmount(c.Amount),
			})
		}
		u.selection = selection.Normalize(selection.Map(su.SelectedVendors))
	}
	return nil
}
