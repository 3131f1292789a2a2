// Package money holds the fixed-point amount type used for prices and totals.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits stored for every amount.
const Scale = 2

var maxAmount = decimal.New(1, 8) // decimal(10,2)

// Amount is a non-negative decimal with two implied fraction digits. It
// serialises as a string such as "25.00".
type Amount struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{Decimal: decimal.Zero}

// Parse validates s as a money amount.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("amount %q is not a decimal number", s)
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDecimal validates range and scale of d.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("amount must not be negative")
	}
	if !d.Round(Scale).Equal(d) {
		return Amount{}, fmt.Errorf("amount must have at most %d fraction digits", Scale)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return Amount{}, fmt.Errorf("amount must be less than %s", maxAmount.String())
	}
	return Amount{Decimal: d}, nil
}

// Times returns a multiplied by n.
func (a Amount) Times(n int) Amount {
	return Amount{Decimal: a.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

// Plus returns a + b.
func (a Amount) Plus(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

func (a Amount) String() string {
	return a.Decimal.StringFixed(Scale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both "25.00" and 25.
func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return fmt.Errorf("amount is required")
	}
	raw = strings.Trim(raw, `"`)
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(value interface{}) error {
	return a.Decimal.Scan(value)
}
