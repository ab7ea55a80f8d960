// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so that totals and the ×12 annualization
// stay exact.
package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// Money is a US dollar amount in cents.
type Money struct {
	Cents int64
}

// ErrInvalidAmount is returned for unparseable or non-positive amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseDollarsToCents converts a dollar token such as "$1,234.56" to cents.
//
// A leading "$" is optional and commas are treated as thousands separators.
// At most two fractional digits are accepted. Zero is returned without error
// so callers can skip "$0.00" placeholders themselves; negative values and
// malformed input return ErrInvalidAmount.
//
// Examples:
//
//	ParseDollarsToCents("$12.50")    -> 1250, nil
//	ParseDollarsToCents("1,299")     -> 129900, nil
//	ParseDollarsToCents("$0.00")     -> 0, nil
//	ParseDollarsToCents("12.345")    -> 0, ErrInvalidAmount
func ParseDollarsToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" || (hasFrac && (fracPart == "" || len(fracPart) > 2)) {
		return 0, ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
		}
	}
	return iv*100 + fracCents, nil
}

// Dollars returns the dollar value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m + o, saturating at the int64 bounds.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: sum}
}

// Times returns m scaled by n, saturating at the int64 bounds.
func (m Money) Times(n int64) Money {
	if m.Cents == 0 || n == 0 {
		return Money{}
	}
	p := m.Cents * n
	if p/n != m.Cents || (m.Cents == -1 && n == math.MinInt64) || (n == -1 && m.Cents == math.MinInt64) {
		if (m.Cents > 0) == (n > 0) {
			return Money{Cents: math.MaxInt64}
		}
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: p}
}

// IsZero reports whether the amount is zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String formats the amount as "$1,234.56".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON renders the amount as a decimal number of dollars.
func (m Money) MarshalJSON() ([]byte, error) {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return []byte(fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)), nil
}

// UnmarshalJSON accepts a decimal number of dollars.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	neg := strings.HasPrefix(s, "-")
	cents, err := ParseDollarsToCents(strings.TrimPrefix(s, "-"))
	if err != nil {
		return fmt.Errorf("money %q: %w", s, err)
	}
	if neg {
		cents = -cents
	}
	m.Cents = cents
	return nil
}
