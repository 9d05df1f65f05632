// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents, decimals and their JSON representation.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
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
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseAmount reads a loosely formatted amount as produced by receipt parsing:
// JSON numbers, numeric strings with either decimal separator, optional
// currency symbol. Unlike ParseDecimalToCents it accepts zero and negatives;
// filtering those is up to the caller.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case float64:
		return decimal.NewFromFloat(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "€")
		s = strings.TrimSuffix(s, "€")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "EUR"))
		if strings.Contains(s, ",") {
			// "1.234,56" -> "1234.56"
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// maxMoneyCents bounds amounts to what fits in int64 cents.
var maxMoneyCents = decimal.NewFromInt(math.MaxInt64)

// MoneyFromDecimal rounds d to the cent. Amounts whose cents do not fit in an
// int64 are invalid.
func MoneyFromDecimal(d decimal.Decimal) Money {
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(maxMoneyCents) {
		return Money{Invalid: true}
	}
	return Money{Cents: cents.IntPart()}
}

func (m Money) Validate() error {
	if m.Invalid || m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Numeric reports whether the amount can take part in sums.
func (m Money) Numeric() bool {
	return !m.Invalid
}

// Positive reports whether the amount is a number strictly greater than zero.
func (m Money) Positive() bool {
	return !m.Invalid && m.Cents > 0
}

// Add sums two amounts; an invalid operand makes the result invalid.
func (m Money) Add(o Money) Money {
	if m.Invalid || o.Invalid {
		return Money{Invalid: true}
	}
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Euros returns the euro value as a float64 for display purposes.
// Note: Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	if m.Invalid {
		return "NaN"
	}
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a plain JSON number (12.5), or null when invalid.
func (m Money) MarshalJSON() ([]byte, error) {
	if m.Invalid {
		return []byte("null"), nil
	}
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON never fails: anything that is not a number marks the amount invalid,
// so a single corrupted record cannot make the whole ledger unreadable.
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*m = Money{Invalid: true}
		return nil
	}
	d, ok := ParseAmount(raw)
	if !ok {
		*m = Money{Invalid: true}
		return nil
	}
	*m = MoneyFromDecimal(d)
	return nil
}
