package money

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount held at a fixed scale of two fractional
// digits. All arithmetic is base-10 exact; no binary floating point is ever
// involved in construction or calculation. The smallest representable
// increment is one minor unit (one cent).
type Money struct {
	value decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{value: decimal.Zero}
}

// New builds an amount from whole units and cents. Cents must be in [0, 100);
// the sign of the amount is the sign of units.
func New(units int64, cents int64) Money {
	minor := units*100 + cents
	if units < 0 {
		minor = units*100 - cents
	}
	return FromMinorUnits(minor)
}

// FromMinorUnits builds an amount from a signed count of cents.
func FromMinorUnits(cents int64) Money {
	return Money{value: decimal.New(cents, -2)}
}

// FromDecimal builds an amount from a decimal value. The value must not carry
// more than two fractional digits.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(2)) {
		return Money{}, fmt.Errorf("money: %s has sub-cent precision", d)
	}
	return Money{value: d}, nil
}

// Parse reads a decimal string such as "33.34" into an amount.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: %w", err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals in tests and seed data; it panics on bad
// input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money        { return Money{value: m.value.Neg()} }

// MulInt multiplies the amount by an integer factor. Exact at scale two.
func (m Money) MulInt(n int64) Money {
	return Money{value: m.value.Mul(decimal.NewFromInt(n))}
}

// DivTrunc divides the amount by a positive integer, truncating toward zero
// at the cent boundary, so that DivTrunc(n).MulInt(n) never exceeds the
// magnitude of the dividend. Callers needing the remainder compute it as
// m.Sub(m.DivTrunc(n).MulInt(n)). Panics if n is not positive.
func (m Money) DivTrunc(n int64) Money {
	if n <= 0 {
		panic("money: DivTrunc by non-positive integer")
	}
	// Go integer division truncates toward zero, which is exactly the
	// rounding rule required here.
	return FromMinorUnits(m.MinorUnits() / n)
}

func (m Money) Cmp(n Money) int       { return m.value.Cmp(n.value) }
func (m Money) Equal(n Money) bool    { return m.value.Equal(n.value) }
func (m Money) IsZero() bool          { return m.value.IsZero() }
func (m Money) IsNegative() bool      { return m.value.IsNegative() }
func (m Money) IsPositive() bool      { return m.value.IsPositive() }
func (m Money) LessThan(n Money) bool { return m.value.LessThan(n.value) }

// MinorUnits returns the amount as a signed count of cents. Exact, since the
// scale is fixed at two.
func (m Money) MinorUnits() int64 {
	return m.value.Shift(2).IntPart()
}

// Decimal exposes the underlying decimal value for storage drivers.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	return Money{value: m.value.Abs()}
}

// String renders the amount with exactly two fractional digits, e.g. "33.34".
func (m Money) String() string {
	return m.value.StringFixed(2)
}

// Format renders the amount for display in the given ISO currency, using the
// currency's own symbol and grouping rules.
func (m Money) Format(currency string) string {
	return gomoney.New(m.MinorUnits(), currency).Display()
}

// MarshalJSON encodes the amount as a fixed two-decimal string so that no
// consumer is tempted to read it as a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number
// token, rejecting sub-cent precision in both.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum folds a slice of amounts. Exact.
func Sum(amounts []Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
