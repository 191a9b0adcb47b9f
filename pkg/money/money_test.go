package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineTotal(t *testing.T) {
	got, err := LineTotal(d("5"), d("100"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("500")))

	got, err = LineTotal(d("0.333"), d("3"))
	require.NoError(t, err)
	assert.Equal(t, "0.999", got.String())

	_, err = LineTotal(d("-1"), d("10"))
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = LineTotal(d("1"), d("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestTax(t *testing.T) {
	got, err := Tax(d("1700"), d("0.08"))
	require.NoError(t, err)
	assert.Equal(t, "136.00", Format(got))

	for _, rate := range []string{"-0.01", "1.0001", "8"} {
		_, err := Tax(d("100"), d(rate))
		assert.ErrorIs(t, err, ErrInvalidTaxRate, rate)
	}

	got, err = Tax(d("100"), d("1"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("100")))
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"1.004":   "1.00",
		"2.675":   "2.68",
		"0.125":   "0.13",
		"1836":    "1836.00",
		"99.9949": "99.99",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(Round(d(in))), in)
	}
}

func TestSumDoesNotRoundIntermediates(t *testing.T) {
	// Rounding each part first would give 0.03.
	parts := []decimal.Decimal{d("0.005"), d("0.005"), d("0.005")}
	assert.Equal(t, "0.02", Format(Round(Sum(parts...))))
	assert.True(t, Sum().Equal(Zero))
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("0.2")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.2")))

	rate, err = ParseRate("0,075")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.075")))

	rate, err = ParseRate("1")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1")))

	for _, raw := range []string{"1.5", "8", "150", "-0.1", "abc"} {
		_, err = ParseRate(raw)
		assert.ErrorIs(t, err, ErrInvalidTaxRate, raw)
	}
}

func TestParsePercent(t *testing.T) {
	rate, err := ParsePercent("8")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.08")))

	rate, err = ParsePercent("7,5")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.075")))

	rate, err = ParsePercent("0.5")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.005")))

	for _, raw := range []string{"150", "-1", "abc"} {
		_, err = ParsePercent(raw)
		assert.ErrorIs(t, err, ErrInvalidTaxRate, raw)
	}
}

func TestExceedsScale(t *testing.T) {
	assert.False(t, ExceedsScale(d("1.123456"), InputScale))
	assert.False(t, ExceedsScale(d("2.500000000"), InputScale))
	assert.True(t, ExceedsScale(d("1.1234567"), InputScale))
	assert.True(t, ExceedsScale(d("0.0000001"), InputScale))
}
