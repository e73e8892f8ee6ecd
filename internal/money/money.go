// Package money implements fixed-point currency amounts.
//
// Amounts are held as integer minor units (cents). Parsing and percentage
// maths go through shopspring/decimal so that rounding is explicit: every
// conversion from a decimal rounds half away from zero to the cent, which for
// the non-negative amounts used by the ledger is round-half-up.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount in the currency's minor unit.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Parse converts a major-unit decimal string ("150.00", "12.5") into Cents.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// FromDecimal rounds a major-unit decimal to the nearest cent.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount with two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MinorUnits is the integer amount sent to a payment processor.
func (c Cents) MinorUnits() int64 {
	return int64(c)
}

// WithFee returns c marked up by ratePercent (3 means 3%), rounded to the cent.
func (c Cents) WithFee(ratePercent decimal.Decimal) Cents {
	factor := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	return FromDecimal(c.Decimal().Mul(factor))
}

// Sum adds up a list of amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}

// MarshalJSON encodes the amount as a decimal string, e.g. "51.50".
func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number in major units.
func (c *Cents) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid amount %s", data)
		}
		s = n.String()
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
