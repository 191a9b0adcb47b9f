package server

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/pkg/money"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// parseOptionalDate accepts YYYY-MM-DD only; invoice dates carry no time.
func parseOptionalDate(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateOnlyLayout, trimmed)
	if err != nil {
		return nil, errors.New("invalid_date")
	}
	return &parsed, nil
}

// parseOptionalRate reads a tax rate given as a fraction in [0, 1].
func parseOptionalRate(value string) (*decimal.Decimal, error) {
	return parseRateWith(value, money.ParseRate)
}

// parseOptionalPercent reads a tax rate given as a percentage in [0, 100].
func parseOptionalPercent(value string) (*decimal.Decimal, error) {
	return parseRateWith(value, money.ParsePercent)
}

func parseRateWith(value string, parse func(string) (decimal.Decimal, error)) (*decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	rate, err := parse(trimmed)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
