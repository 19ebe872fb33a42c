package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type (
	// Payer is the household member who made a payment.
	Payer string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Vendor struct {
		ID            string
		ServiceType   string // Grouping key, free-form
		Name          string
		ContactNumber string
		Email         string
		PackageName   string
		ContractPrice Money // Agreed total owed to this vendor
		Notes         string
	}

	// BudgetExpense is a single installment paid to a vendor.
	BudgetExpense struct {
		ID         string
		VendorID   string // May dangle once the vendor is deleted
		VendorType string // Vendor service type at the time of payment
		Amount     Money
		Date       Date
		PaidBy     Payer
		Notes      string
	}

	BudgetContribution struct {
		ID     string
		Name   string
		Amount Money
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyName            = errors.New("empty name")
	ErrEmptyServiceType     = errors.New("empty service type")
	ErrEmptyPackage         = errors.New("empty package name")
	ErrInvalidContactNumber = errors.New("invalid contact number")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrEmptyVendor          = errors.New("empty vendor")
	ErrInvalidDate          = errors.New("invalid date")
	ErrUnknownPayer         = errors.New("unknown payer")
)

var (
	contactNumberRe = regexp.MustCompile(`^(09|\+639)\d{9}$`)
	emailRe         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD, or an empty string for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (v Vendor) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(v.ServiceType) == "" {
		return ErrEmptyServiceType
	}
	if strings.TrimSpace(v.PackageName) == "" {
		return ErrEmptyPackage
	}
	if !contactNumberRe.MatchString(strings.TrimSpace(v.ContactNumber)) {
		return ErrInvalidContactNumber
	}
	if email := strings.TrimSpace(v.Email); email != "" && !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	if v.ContractPrice.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the expense against the configured household members.
func (e BudgetExpense) Validate(members []Payer) error {
	if strings.TrimSpace(e.VendorID) == "" {
		return ErrEmptyVendor
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.PaidBy.In(members) {
		return ErrUnknownPayer
	}
	return nil
}

func (c BudgetContribution) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// In reports whether p is one of members.
func (p Payer) In(members []Payer) bool {
	for _, m := range members {
		if m == p {
			return true
		}
	}
	return false
}

// ParsePayers splits a comma separated member list, dropping blanks and duplicates.
func ParsePayers(s string) []Payer {
	var out []Payer
	for _, part := range strings.Split(s, ",") {
		p := Payer(strings.TrimSpace(part))
		if p == "" || p.In(out) {
			continue
		}
		out = append(out, p)
	}
	return out
}
