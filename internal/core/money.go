// Package core provides money parsing and handling utilities.
//
// Amounts coming from the clinic backend are discounted euro values that may
// arrive as JSON numbers or as strings with either decimal separator.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative euro amount.
type Money struct {
	decimal.Decimal
}

var ErrInvalidAmount = errors.New("invalid amount")

// Zero is the zero amount.
var Zero = Money{Decimal: decimal.Zero}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromFloat converts a float amount, rounding to cents.
func MoneyFromFloat(f float64) Money {
	return Money{Decimal: decimal.NewFromFloat(f).Round(2)}
}

// ParseMoney converts a backend amount value into Money.
//
// It accepts numeric Go values and strings using a dot (12.34) or a comma
// (12,34) as decimal separator. With a comma decimal separator, dots are
// thousands separators, so amounts typed the way FormatEuros shows them
// parse back. Negative values are rejected.
//
// Examples:
//
//	ParseMoney("12.34")     -> 12.34, nil
//	ParseMoney("12,34")     -> 12.34, nil
//	ParseMoney("€1.234,50") -> 1234.50, nil
//	ParseMoney(float64(80)) -> 80, nil
//	ParseMoney("-1")        -> error
func ParseMoney(v any) (Money, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return Money{}, ErrInvalidAmount
	case decimal.Decimal:
		d = x
	case float64:
		d = decimal.NewFromFloat(x)
	case float32:
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int32:
		d = decimal.NewFromInt32(x)
	case int64:
		d = decimal.NewFromInt(x)
	case fmt.Stringer:
		return ParseMoney(x.String())
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(x), "€"))
		if s == "" {
			return Money{}, ErrInvalidAmount
		}
		if comma := strings.LastIndexByte(s, ','); comma >= 0 && comma > strings.LastIndexByte(s, '.') {
			s = strings.ReplaceAll(s[:comma], ".", "") + "." + s[comma+1:]
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, x)
		}
		d = parsed
	default:
		return Money{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Decimal: d}, nil
}

// FormatEuros renders an amount the way the dashboard shows it ("€1.234,50").
func FormatEuros(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "€" + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
