package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a number of shares. Fractional shares are allowed.
type Quantity struct {
	value decimal.Decimal
}

// Q builds a Quantity from an integer or float.
func Q[T int | int64 | float64](value T) Quantity {
	switch v := any(value).(type) {
	case int:
		return Quantity{value: decimal.NewFromInt(int64(v))}
	case int64:
		return Quantity{value: decimal.NewFromInt(v)}
	case float64:
		return Quantity{value: decimal.NewFromFloat(v)}
	default:
		panic("unsupported type")
	}
}

// ParseQuantity parses a decimal string such as "10" or "0.25".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Quantity{value: d}, nil
}

func (q Quantity) Equal(p Quantity) bool { return q.value.Equal(p.value) }
func (q Quantity) IsPositive() bool      { return q.value.IsPositive() }
func (q Quantity) IsNegative() bool      { return q.value.IsNegative() }
func (q Quantity) IsZero() bool          { return q.value.IsZero() }
func (q Quantity) String() string        { return q.value.String() }

// MarshalJSON writes the quantity as a bare JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.value.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	return q.value.UnmarshalJSON(b)
}
