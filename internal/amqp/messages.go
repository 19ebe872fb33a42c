package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies what changed for a user.
type EventKind string

const (
	VendorDeleted       EventKind = "vendor.deleted"
	ExpenseChanged      EventKind = "expense.changed"
	ContributionChanged EventKind = "contribution.changed"
	SelectionChanged    EventKind = "selection.changed"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case VendorDeleted, ExpenseChanged, ContributionChanged, SelectionChanged:
		return true
	}
	return false
}

// BudgetEvent is a lightweight change notification. It carries no record
// data; consumers reload the user's snapshot from the store.
type BudgetEvent struct {
	UserID    string    `json:"user_id"`
	Kind      EventKind `json:"kind"`
	VendorID  string    `json:"vendor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetEvent creates an event stamped with the current time.
func NewBudgetEvent(uid string, kind EventKind, vendorID string) BudgetEvent {
	return BudgetEvent{
		UserID:    uid,
		Kind:      kind,
		VendorID:  vendorID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e BudgetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BudgetEventFromJSON decodes and checks an event body.
func BudgetEventFromJSON(data []byte) (BudgetEvent, error) {
	var e BudgetEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BudgetEvent{}, err
	}
	if e.UserID == "" {
		return BudgetEvent{}, fmt.Errorf("event without user id")
	}
	if !e.Kind.Valid() {
		return BudgetEvent{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return e, nil
}
