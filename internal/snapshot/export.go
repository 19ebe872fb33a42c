package snapshot

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"weddingbudget/internal/core"
)

// Options tune how an export is decoded.
type Options struct {
	// DesanitizeKeys restores "/" in selection keys written as "-" by the
	// legacy writer.
	DesanitizeKeys bool
}

type exportFile struct {
	Vendors       map[string]json.RawMessage `json:"vendors"`
	Expenses      map[string]json.RawMessage `json:"budgetExpenses"`
	Contributions map[string]json.RawMessage `json:"budgetContributions"`
	Selected      map[string]json.RawMessage `json:"selectedVendors"`
}

type vendorRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ServiceType   string `json:"serviceType"`
	ContactNumber string `json:"contactNumber"`
	ContactInfo   string `json:"contactInfo"`
	Email         string `json:"email"`
	PackageName   string `json:"packageName"`
	ContractPrice Amount `json:"contractPrice"`
	Notes         string `json:"notes"`
}

type expenseRecord struct {
	ID         string `json:"id"`
	Vendor     string `json:"vendor"`
	VendorType string `json:"vendorType"`
	Amount     Amount `json:"amount"`
	Date       string `json:"date"`
	PaidBy     string `json:"paidBy"`
	Notes      string `json:"notes"`
}

type contributionRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
}

// DecodeExport reads a realtime-database JSON export and returns the
// snapshot stored under uid. Collections missing from the export are empty.
// Records are ordered by key and take their id from the key when they carry
// none. Malformed records are skipped.
func DecodeExport(r io.Reader, uid string, opts Options) (Snapshot, error) {
	var f exportFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Snapshot{}, fmt.Errorf("decode export: %w", err)
	}

	var snap Snapshot
	for _, rec := range records[vendorRecord](f.Vendors[uid]) {
		snap.Vendors = append(snap.Vendors, rec.value.vendor(rec.key))
	}
	for _, rec := range records[expenseRecord](f.Expenses[uid]) {
		snap.Expenses = append(snap.Expenses, rec.value.expense(rec.key))
	}
	for _, rec := range records[contributionRecord](f.Contributions[uid]) {
		snap.Contributions = append(snap.Contributions, rec.value.contribution(rec.key))
	}
	snap.Selection = DecodeSelection(f.Selected[uid], opts)
	return snap, nil
}

type keyed[T any] struct {
	key   string
	value T
}

// records decodes an id-keyed object, or an array as written for dense
// numeric keys, into values sorted by key.
func records[T any](raw json.RawMessage) []keyed[T] {
	if len(raw) == 0 {
		return nil
	}
	items := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &items); err != nil {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		for i, item := range list {
			items[strconv.Itoa(i)] = item
		}
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	out := make([]keyed[T], 0, len(keys))
	for _, k := range keys {
		item := items[k]
		if len(item) == 0 || string(item) == "null" {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, keyed[T]{key: k, value: v})
	}
	return out
}

// compareKeys orders numeric keys numerically ahead of every other key,
// which are ordered bytewise. Timestamp ids and push ids are both
// chronological under this order.
func compareKeys(a, b string) int {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(ai, bi)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func (r vendorRecord) vendor(key string) core.Vendor {
	contact := r.ContactNumber
	if contact == "" {
		contact = r.ContactInfo
	}
	return core.Vendor{
		ID:            firstNonEmpty(r.ID, key),
		ServiceType:   r.ServiceType,
		Name:          r.Name,
		ContactNumber: contact,
		Email:         r.Email,
		PackageName:   r.PackageName,
		ContractPrice: r.ContractPrice.Money,
		Notes:         r.Notes,
	}
}

func (r expenseRecord) expense(key string) core.BudgetExpense {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		date = core.Date{}
	}
	return core.BudgetExpense{
		ID:         firstNonEmpty(r.ID, key),
		VendorID:   r.Vendor,
		VendorType: r.VendorType,
		Amount:     r.Amount.Money,
		Date:       date,
		PaidBy:     core.Payer(r.PaidBy),
		Notes:      r.Notes,
	}
}

func (r contributionRecord) contribution(key string) core.BudgetContribution {
	return core.BudgetContribution{
		ID:     firstNonEmpty(r.ID, key),
		Name:   r.Name,
		Amount: r.Amount.Money,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
