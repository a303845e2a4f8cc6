// Package http exposes the budget engine as a JSON API.
//
// This file turns request bodies, headers and query strings into domain
// inputs. Everything here is pure so it can be tested without a server.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetbuddy/internal/core"
)

const (
	HeaderOwnerID    = "X-Owner-ID"
	HeaderOwnerEmail = "X-Owner-Email"

	maxOwnerIDLength = 128
	maxListLimit     = 1000
)

var (
	ErrMissingOwner = errors.New("missing " + HeaderOwnerID + " header")
	ErrInvalidLimit = errors.New("limit must be a non-negative integer")
)

// decimalText holds an amount as sent by the client. Both JSON strings
// ("12.50") and JSON numbers (12.5) are accepted; the text is parsed with
// decimal precision, never through float64.
type decimalText string

func (d *decimalText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a decimal string or number")
	}
	*d = decimalText(n.String())
	return nil
}

type categoryRequest struct {
	Name   string      `json:"name"`
	Budget decimalText `json:"budget"`
	Color  string      `json:"color"`
	Icon   string      `json:"icon"`
}

func (r categoryRequest) toInput() (core.CategoryInput, error) {
	budget := core.Money{}
	if strings.TrimSpace(string(r.Budget)) != "" {
		var err error
		if budget, err = core.ParseBudget(string(r.Budget)); err != nil {
			return core.CategoryInput{}, err
		}
	}
	return core.CategoryInput{
		Name:   sanitizeInput(r.Name),
		Budget: budget,
		Color:  strings.TrimSpace(r.Color),
		Icon:   core.Icon(strings.TrimSpace(r.Icon)),
	}, nil
}

type categoryPatchRequest struct {
	Name   *string      `json:"name"`
	Budget *decimalText `json:"budget"`
	Color  *string      `json:"color"`
	Icon   *string      `json:"icon"`
}

func (r categoryPatchRequest) toUpdate() (core.CategoryUpdate, error) {
	var u core.CategoryUpdate
	if r.Name != nil {
		name := sanitizeInput(*r.Name)
		u.Name = &name
	}
	if r.Budget != nil {
		budget, err := core.ParseBudget(string(*r.Budget))
		if err != nil {
			return core.CategoryUpdate{}, err
		}
		u.Budget = &budget
	}
	if r.Color != nil {
		color := strings.TrimSpace(*r.Color)
		u.Color = &color
	}
	if r.Icon != nil {
		icon := core.Icon(strings.TrimSpace(*r.Icon))
		u.Icon = &icon
	}
	return u, nil
}

type transactionRequest struct {
	Name       string      `json:"name"`
	Amount     decimalText `json:"amount"`
	CategoryID string      `json:"categoryId"`
	Date       string      `json:"date"`
}

// toInput converts the request. An empty date means today in UTC.
func (r transactionRequest) toInput(now time.Time) (core.TransactionInput, error) {
	amount, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return core.TransactionInput{}, err
	}
	date := core.DateOf(now.UTC())
	if strings.TrimSpace(r.Date) != "" {
		if date, err = core.ParseDate(r.Date); err != nil {
			return core.TransactionInput{}, err
		}
	}
	return core.TransactionInput{
		Name:       sanitizeInput(r.Name),
		Amount:     amount,
		CategoryID: strings.TrimSpace(r.CategoryID),
		Date:       date,
	}, nil
}

// transactionPatchRequest distinguishes an absent categoryId from an empty
// one; the latter uncategorizes the transaction.
type transactionPatchRequest struct {
	Name       *string      `json:"name"`
	Amount     *decimalText `json:"amount"`
	CategoryID *string      `json:"categoryId"`
	Date       *string      `json:"date"`
}

func (r transactionPatchRequest) toUpdate() (core.TransactionUpdate, error) {
	var u core.TransactionUpdate
	if r.Name != nil {
		name := sanitizeInput(*r.Name)
		u.Name = &name
	}
	if r.Amount != nil {
		amount, err := core.ParseAmount(string(*r.Amount))
		if err != nil {
			return core.TransactionUpdate{}, err
		}
		u.Amount = &amount
	}
	if r.CategoryID != nil {
		id := strings.TrimSpace(*r.CategoryID)
		u.CategoryID = &id
	}
	if r.Date != nil {
		date, err := core.ParseDate(*r.Date)
		if err != nil {
			return core.TransactionUpdate{}, err
		}
		u.Date = &date
	}
	return u, nil
}

// ParseOwner reads the acting owner from the proxy-set headers.
func ParseOwner(id, email string) (core.Owner, error) {
	owner := core.Owner{
		ID:    sanitizeInput(id),
		Email: sanitizeInput(email),
	}
	if owner.ID == "" {
		return core.Owner{}, ErrMissingOwner
	}
	if len(owner.ID) > maxOwnerIDLength {
		return core.Owner{}, fmt.Errorf("%s longer than %d characters", HeaderOwnerID, maxOwnerIDLength)
	}
	return owner, owner.Validate()
}

// ParseLimit parses an optional non-negative limit. Empty means fallback.
func ParseLimit(v string, fallback int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, ErrInvalidLimit
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
