// Package core provides the budget domain model and money handling.
//
// Amounts are held as signed integer cents so that aggregation is exact and
// repeated passes over the same ledger always produce the same totals. Text
// conversion goes through shopspring/decimal.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// maxCents bounds parsed amounts well below int64 overflow so that sums over
// a full ledger stay representable.
const maxCents = int64(1e15)

var hundred = decimal.NewFromInt(100)

// Cents is a shorthand constructor for Money.
func Cents(c int64) Money { return Money{Cents: c} }

// ParseAmount converts a signed decimal string to Money.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Values
// with more than two fractional digits are rounded half away from zero.
//
// Examples:
//
//	ParseAmount("-12.34")  -> -1234
//	ParseAmount("12,345")  -> 1235
//	ParseAmount("-12.345") -> -1235
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// ParseBudget parses a non-negative budget amount.
func ParseBudget(s string) (Money, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return Money{}, err
	}
	if m.IsNegative() {
		return Money{}, ErrNegativeBudget
	}
	return m, nil
}

// FromDecimal rounds d to cents, half away from zero.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Mul(hundred)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) IsNegative() bool { return m.Cents < 0 }

func (m Money) IsPositive() bool { return m.Cents > 0 }

// Percent returns m as a percentage of whole, rounded to two decimals.
// A zero whole yields zero.
func (m Money) Percent(whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(m.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(whole.Cents)).
		Round(2).
		InexactFloat64()
}

func (m Money) checkRange() error {
	if m.Cents > maxCents || m.Cents < -maxCents {
		return ErrAmountTooLarge
	}
	return nil
}
