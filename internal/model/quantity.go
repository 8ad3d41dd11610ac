package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity limits: decimal(10,2).
const (
	QuantityPlaces    = 2
	QuantityMaxDigits = 10

	// maxQuantityInput bounds the text handed to the decimal parser.
	maxQuantityInput = 32
)

// quantityLimit is the smallest value with too many integer digits.
var quantityLimit = decimal.New(1, QuantityMaxDigits-QuantityPlaces)

// Quantity is a non-negative decimal amount with at most two fractional digits.
// It always renders with exactly two fractional digits ("3.00").
type Quantity struct {
	d decimal.Decimal
}

// ZeroQuantity is the default quantity of a new item.
var ZeroQuantity = Quantity{d: decimal.Zero}

// ParseQuantity parses and validates a decimal string such as "12.50".
func ParseQuantity(s string) (Quantity, error) {
	if len(s) > maxQuantityInput {
		return Quantity{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidQuantity, maxQuantityInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidQuantity, s)
	}
	q := Quantity{d: d}
	if err := q.Validate(); err != nil {
		return Quantity{}, err
	}
	return q, nil
}

// Validate checks the sign, scale and precision of q.
func (q Quantity) Validate() error {
	if q.d.IsNegative() {
		return fmt.Errorf("%w: must not be negative", ErrInvalidQuantity)
	}
	if q.d.Exponent() < -QuantityPlaces {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidQuantity, QuantityPlaces)
	}
	// The exponent is checked before any arithmetic so that values like
	// 1e20000000 are never expanded.
	if q.d.Exponent() >= QuantityMaxDigits-QuantityPlaces || q.d.GreaterThanOrEqual(quantityLimit) {
		return fmt.Errorf("%w: at most %d digits before the decimal point", ErrInvalidQuantity, QuantityMaxDigits-QuantityPlaces)
	}
	return nil
}

// Decimal returns the underlying decimal value.
func (q Quantity) Decimal() decimal.Decimal {
	return q.d
}

// Equal reports whether q and other represent the same amount.
func (q Quantity) Equal(other Quantity) bool {
	return q.d.Equal(other.d)
}

func (q Quantity) String() string {
	return q.d.StringFixed(QuantityPlaces)
}

// MarshalJSON encodes the quantity as a fixed-point string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON accepts both "3.50" and 3.50.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*q = ZeroQuantity
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
		}
	}
	parsed, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// Value stores the quantity as its fixed-point text.
func (q Quantity) Value() (driver.Value, error) {
	return q.String(), nil
}

// Scan reads TEXT (SQLite) or NUMERIC (PostgreSQL) columns.
func (q *Quantity) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scanning quantity: %w", err)
	}
	q.d = d
	return nil
}
