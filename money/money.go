// Package money implements fixed-point monetary amounts with two fraction
// digits. Amounts travel as strings in JSON and SQL so totals never pass
// through binary floating point.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits kept for every amount.
const Places = 2

// maxInput bounds the length of a parsed amount; decimal(12,2) needs 13
// characters plus a sign.
const maxInput = 32

var (
	ErrInvalidAmount = errors.New("invalid monetary amount")
	ErrNegativeTotal = errors.New("total would be negative")
)

// Amount is a monetary value. The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

func Zero() Amount { return Amount{} }

// FromDecimal keeps d unrounded; rounding happens when a result is produced.
func FromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) Amount { return Amount{d: decimal.New(cents, -Places)} }

// Parse reads a decimal string such as "12.50". Surrounding spaces are ignored.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if len(s) > maxInput {
		return Amount{}, fmt.Errorf("%w: too long", ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE") {
		return Amount{}, fmt.Errorf("%w: exponent notation in %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{d: d}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func round(d decimal.Decimal) Amount { return Amount{d: d.Round(Places)} }

func (a Amount) Add(b Amount) Amount { return round(a.d.Add(b.d)) }

func (a Amount) Sub(b Amount) Amount { return round(a.d.Sub(b.d)) }

// Mul multiplies by an integer quantity.
func (a Amount) Mul(qty int) Amount { return round(a.d.Mul(decimal.NewFromInt(int64(qty)))) }

// Sum adds every amount exactly and rounds once.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return round(total)
}

// CeilDiv divides by n and rounds up to the next cent, so n shares never
// add up to less than a.
func (a Amount) CeilDiv(n int) Amount {
	if n <= 0 {
		panic("money: CeilDiv by non-positive count")
	}
	return Amount{d: a.d.Div(decimal.NewFromInt(int64(n))).RoundCeil(Places)}
}

// Total computes subtotal + serviceCharge - discount. A negative result is
// clamped to zero and reported through ErrNegativeTotal.
func Total(subtotal, serviceCharge, discount Amount) (Amount, error) {
	t := round(subtotal.d.Add(serviceCharge.d).Sub(discount.d))
	if t.IsNegative() {
		return Zero(), fmt.Errorf("%w: %s + %s - %s", ErrNegativeTotal, subtotal, serviceCharge, discount)
	}
	return t, nil
}

func (a Amount) Neg() Amount { return Amount{d: a.d.Neg()} }
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) IsZero() bool { return a.d.IsZero() }
func (a Amount) IsNegative() bool { return a.d.IsNegative() }
func (a Amount) IsPositive() bool { return a.d.IsPositive() }
func (a Amount) Decimal() decimal.Decimal { return a.d }
func (a Amount) Abs() Amount { return Amount{d: a.d.Abs()} }

// Max is the largest amount a decimal(12,2) column holds.
var Max = Amount{d: decimal.New(999999999999, -Places)}

// HasValidScale reports whether a carries at most two fraction digits.
func (a Amount) HasValidScale() bool { return a.d.Equal(a.d.Round(Places)) }

// Storable reports whether a fits a decimal(12,2) column: at most two
// fraction digits and no larger than Max in absolute value.
func (a Amount) Storable() bool {
	return a.d.Abs().Cmp(Max.d) <= 0 && a.HasValidScale()
}

// String always renders two fraction digits.
func (a Amount) String() string { return a.d.StringFixed(Places) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts "12.50" as well as a bare JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = Amount{}
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src interface{}) error {
	if src == nil {
		*a = Amount{}
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("money: scan %T: %w", src, err)
	}
	a.d = d
	return nil
}

func (Amount) GormDataType() string { return "decimal(12,2)" }
