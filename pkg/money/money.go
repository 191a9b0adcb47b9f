// Package money holds the monetary arithmetic shared by invoices, the
// dashboard and reports.
//
// Values are kept at full precision through every intermediate step.
// Rounding to two decimal places (half-up) happens only when a value is
// presented, via Round.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places a presented amount carries.
const Scale int32 = 2

// InputScale is the most decimal places a stored quantity or unit price
// may carry.
const InputScale int32 = 6

var (
	ErrInvalidLineItem = errors.New("invalid_line_item")
	ErrInvalidTaxRate  = errors.New("invalid_tax_rate")
	ErrInvalidAmount   = errors.New("invalid_amount")
)

var (
	Zero = decimal.Zero
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// LineTotal returns quantity * unitPrice at full precision.
func LineTotal(quantity, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity.IsNegative() || unitPrice.IsNegative() {
		return Zero, ErrInvalidLineItem
	}
	return quantity.Mul(unitPrice), nil
}

// Tax returns subtotal * rate at full precision. The rate is a fraction in [0, 1].
func Tax(subtotal, rate decimal.Decimal) (decimal.Decimal, error) {
	if !ValidRate(rate) {
		return Zero, ErrInvalidTaxRate
	}
	return subtotal.Mul(rate), nil
}

// ValidRate reports whether rate lies in [0, 1].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(one)
}

// Sum adds values without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Round rounds half away from zero to two decimal places.
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(Scale)
}

// Format renders value with exactly two decimals.
func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// Parse reads a decimal amount, accepting either "." or "," as separator.
func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Zero, ErrInvalidAmount
	}
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return v, nil
}

// ParseRate reads a tax rate given as a fraction in [0, 1]. Values above 1
// are rejected, never reinterpreted; percentages go through ParsePercent.
func ParseRate(raw string) (decimal.Decimal, error) {
	v, err := Parse(raw)
	if err != nil || !ValidRate(v) {
		return Zero, ErrInvalidTaxRate
	}
	return v, nil
}

// ParsePercent reads a tax rate given as a percentage in [0, 100] and
// returns it as a fraction ("8" becomes 0.08).
func ParsePercent(raw string) (decimal.Decimal, error) {
	v, err := Parse(raw)
	if err != nil {
		return Zero, ErrInvalidTaxRate
	}
	v = v.Div(hundred)
	if !ValidRate(v) {
		return Zero, ErrInvalidTaxRate
	}
	return v, nil
}

// ExceedsScale reports whether value carries more than places decimal places.
func ExceedsScale(value decimal.Decimal, places int32) bool {
	return !value.Equal(value.Truncate(places))
}
