// This file implements decoding and validation of JSON request bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"weddingbudget/internal/core"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// AmountInput accepts an amount as a JSON number or string, with either a
// dot or a comma as decimal separator.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	*a = AmountInput(b)
	return nil
}

// Money parses the amount. Zero is accepted; callers validate the range.
func (a AmountInput) Money() (core.Money, error) {
	if strings.TrimSpace(string(a)) == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseAmount(string(a))
	if err != nil {
		return core.Money{}, fmt.Errorf("amount %s: %w", strconv.Quote(string(a)), err)
	}
	return core.Money{Cents: cents}, nil
}

type vendorRequest struct {
	ServiceType   string      `json:"serviceType"`
	Name          string      `json:"name"`
	ContactNumber string      `json:"contactNumber"`
	Email         string      `json:"email"`
	PackageName   string      `json:"packageName"`
	ContractPrice AmountInput `json:"contractPrice"`
	Notes         string      `json:"notes"`
}

func (req vendorRequest) toVendor() (core.Vendor, error) {
	price, err := req.ContractPrice.Money()
	if err != nil {
		return core.Vendor{}, err
	}
	return core.Vendor{
		ServiceType:   sanitizeInput(req.ServiceType),
		Name:          sanitizeInput(req.Name),
		ContactNumber: sanitizeInput(req.ContactNumber),
		Email:         sanitizeInput(req.Email),
		PackageName:   sanitizeInput(req.PackageName),
		ContractPrice: price,
		Notes:         sanitizeInput(req.Notes),
	}, nil
}

type expenseRequest struct {
	VendorID string      `json:"vendorId"`
	Amount   AmountInput `json:"amount"`
	Date     string      `json:"date"`
	PaidBy   string      `json:"paidBy"`
	Notes    string      `json:"notes"`
}

func (req expenseRequest) toExpense() (core.BudgetExpense, error) {
	amount, err := req.Amount.Money()
	if err != nil {
		return core.BudgetExpense{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.BudgetExpense{}, fmt.Errorf("date %q: %w", req.Date, err)
	}
	return core.BudgetExpense{
		VendorID: sanitizeInput(req.VendorID),
		Amount:   amount,
		Date:     date,
		PaidBy:   core.Payer(sanitizeInput(req.PaidBy)),
		Notes:    sanitizeInput(req.Notes),
	}, nil
}

type contributionRequest struct {
	Name   string      `json:"name"`
	Amount AmountInput `json:"amount"`
}

func (req contributionRequest) toContribution() (core.BudgetContribution, error) {
	amount, err := req.Amount.Money()
	if err != nil {
		return core.BudgetContribution{}, err
	}
	return core.BudgetContribution{Name: sanitizeInput(req.Name), Amount: amount}, nil
}

type toggleRequest struct {
	ServiceType string `json:"serviceType"`
	VendorID    string `json:"vendorId"`
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
