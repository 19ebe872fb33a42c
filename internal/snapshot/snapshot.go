// Package snapshot converts externally shaped records into the values the
// reconciliation engine works on.
//
// Realtime-database exports are loosely typed: amounts may be numbers,
// numeric strings, null or missing, and the selection map exists in a legacy
// single-id form next to the canonical array form. Everything is normalized
// here so that no other package has to care.
package snapshot

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"weddingbudget/internal/core"
	"weddingbudget/internal/selection"
)

// Snapshot is every collection the engine needs for one user.
type Snapshot struct {
	Vendors       []core.Vendor
	Expenses      []core.BudgetExpense
	Contributions []core.BudgetContribution
	Selection     selection.Map
}

// Amount is a lenient monetary value. It decodes from a JSON number, a numeric
// string or null; anything that is not a finite number becomes zero.
type Amount struct {
	core.Money
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	a.Money = core.Money{Cents: lenientCents(b)}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

func lenientCents(raw json.RawMessage) int64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.CentsFromFloat(f)
	}
	cents, err := core.CentsFromDecimal(d)
	if err != nil {
		return 0
	}
	return cents
}

// ParseLenientAmount converts a loosely typed amount string to money.
func ParseLenientAmount(s string) core.Money {
	b, err := json.Marshal(s)
	if err != nil {
		return core.Money{}
	}
	return core.Money{Cents: lenientCents(b)}
}
