// Package calculator derives invoice totals from line items and a tax rate.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/money"
)

// DefaultTaxRate applies when an invoice carries no tax rate.
var DefaultTaxRate = decimal.Zero

type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Totals struct {
	// LineTotals are unrounded quantity * unit price, in input order.
	LineTotals  []decimal.Decimal
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// Calculate is pure. Line products are summed unrounded; the subtotal and
// the tax are each rounded once, and the total is their sum.
func Calculate(lines []Line, taxRate *decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, domain.ErrEmptyItemList
	}

	rate := DefaultTaxRate
	if taxRate != nil {
		rate = *taxRate
	}
	if !money.ValidRate(rate) || money.ExceedsScale(rate, money.InputScale) {
		return Totals{}, fmt.Errorf("%w: %s", domain.ErrInvalidTaxRate, rate.String())
	}

	raw := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if !line.Quantity.IsPositive() {
			return Totals{}, fmt.Errorf("%w: line %d quantity must be greater than zero", domain.ErrInvalidLineItem, i)
		}
		if money.ExceedsScale(line.Quantity, money.InputScale) || money.ExceedsScale(line.UnitPrice, money.InputScale) {
			return Totals{}, fmt.Errorf("%w: line %d allows at most %d decimal places", domain.ErrInvalidLineItem, i, money.InputScale)
		}
		total, err := money.LineTotal(line.Quantity, line.UnitPrice)
		if err != nil {
			return Totals{}, fmt.Errorf("%w: line %d unit price must not be negative", domain.ErrInvalidLineItem, i)
		}
		raw[i] = total
	}

	rawSubtotal := money.Sum(raw...)
	tax, err := money.Tax(rawSubtotal, rate)
	if err != nil {
		return Totals{}, err
	}

	subtotal := money.Round(rawSubtotal)
	taxAmount := money.Round(tax)
	return Totals{
		LineTotals:  raw,
		Subtotal:    subtotal,
		TaxRate:     rate,
		TaxAmount:   taxAmount,
		TotalAmount: subtotal.Add(taxAmount),
	}, nil
}
