package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

func TestCalculateWithTax(t *testing.T) {
	totals, err := Calculate([]Line{
		{Quantity: d("1"), UnitPrice: d("1200")},
		{Quantity: d("5"), UnitPrice: d("100")},
	}, ptr(d("0.08")))
	require.NoError(t, err)

	assert.Equal(t, "1700.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "136.00", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "1836.00", totals.TotalAmount.StringFixed(2))
	require.Len(t, totals.LineTotals, 2)
	assert.True(t, totals.LineTotals[0].Equal(d("1200")))
	assert.True(t, totals.LineTotals[1].Equal(d("500")))
}

func TestCalculateWithoutRateAppliesNoTax(t *testing.T) {
	totals, err := Calculate([]Line{{Quantity: d("2"), UnitPrice: d("19.99")}}, nil)
	require.NoError(t, err)

	assert.True(t, totals.TaxRate.IsZero())
	assert.True(t, totals.TaxAmount.IsZero())
	assert.Equal(t, "39.98", totals.TotalAmount.StringFixed(2))
}

func TestCalculateRoundsOnlyAtOutput(t *testing.T) {
	// Raw sum is 1.005; rounding each line first would give 1.00.
	lines := []Line{
		{Quantity: d("0.333"), UnitPrice: d("1")},
		{Quantity: d("0.333"), UnitPrice: d("1")},
		{Quantity: d("0.339"), UnitPrice: d("1")},
	}
	totals, err := Calculate(lines, ptr(d("0.1")))
	require.NoError(t, err)

	assert.Equal(t, "1.01", totals.Subtotal.StringFixed(2))
	// Tax on the unrounded 1.005 subtotal.
	assert.Equal(t, "0.10", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "1.11", totals.TotalAmount.StringFixed(2))
}

func TestCalculateKeepsLineTotalsUnrounded(t *testing.T) {
	lines := []Line{
		{Quantity: d("1"), UnitPrice: d("0.005")},
		{Quantity: d("1"), UnitPrice: d("0.005")},
		{Quantity: d("1"), UnitPrice: d("0.005")},
	}
	totals, err := Calculate(lines, nil)
	require.NoError(t, err)

	require.Len(t, totals.LineTotals, 3)
	sum := decimal.Zero
	for _, total := range totals.LineTotals {
		assert.True(t, total.Equal(d("0.005")))
		sum = sum.Add(total)
	}
	assert.Equal(t, "0.02", totals.Subtotal.StringFixed(2))
	assert.True(t, sum.Round(2).Equal(totals.Subtotal))
}

func TestCalculateRejectsExcessScale(t *testing.T) {
	_, err := Calculate([]Line{{Quantity: d("1.123456"), UnitPrice: d("0.000001")}}, nil)
	require.NoError(t, err)

	_, err = Calculate([]Line{{Quantity: d("0.0000001"), UnitPrice: d("10")}}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.Contains(t, err.Error(), "line 0")

	_, err = Calculate([]Line{
		{Quantity: d("1"), UnitPrice: d("10")},
		{Quantity: d("1"), UnitPrice: d("0.1234567")},
	}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.Contains(t, err.Error(), "line 1")
}

func TestCalculateErrors(t *testing.T) {
	_, err := Calculate(nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyItemList)

	_, err = Calculate([]Line{{Quantity: d("0"), UnitPrice: d("10")}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)

	_, err = Calculate([]Line{
		{Quantity: d("1"), UnitPrice: d("10")},
		{Quantity: d("1"), UnitPrice: d("-1")},
	}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.Contains(t, err.Error(), "line 1")

	_, err = Calculate([]Line{{Quantity: d("1"), UnitPrice: d("10")}}, ptr(d("1.5")))
	assert.ErrorIs(t, err, domain.ErrInvalidTaxRate)

	_, err = Calculate([]Line{{Quantity: d("1"), UnitPrice: d("10")}}, ptr(d("-0.1")))
	assert.ErrorIs(t, err, domain.ErrInvalidTaxRate)

	_, err = Calculate([]Line{{Quantity: d("1"), UnitPrice: d("10")}}, ptr(d("0.0712345")))
	assert.ErrorIs(t, err, domain.ErrInvalidTaxRate)
}

func TestCalculateInvariants(t *testing.T) {
	cases := [][]Line{
		{{Quantity: d("3"), UnitPrice: d("33.333")}},
		{{Quantity: d("1.5"), UnitPrice: d("0.07")}, {Quantity: d("7"), UnitPrice: d("0")}},
		{{Quantity: d("12"), UnitPrice: d("9.99")}, {Quantity: d("0.25"), UnitPrice: d("400")}},
	}
	rates := []*decimal.Decimal{nil, ptr(d("0")), ptr(d("0.2")), ptr(d("1"))}

	for _, lines := range cases {
		for _, rate := range rates {
			first, err := Calculate(lines, rate)
			require.NoError(t, err)

			assert.True(t, first.TotalAmount.Equal(first.Subtotal.Add(first.TaxAmount)))
			assert.False(t, first.TotalAmount.LessThan(first.Subtotal))
			if rate == nil || rate.IsZero() {
				assert.True(t, first.TaxAmount.IsZero())
			}

			second, err := Calculate(lines, rate)
			require.NoError(t, err)
			assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
			assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
		}
	}
}
