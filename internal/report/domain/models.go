package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
)

const (
	KindMonthlyRevenue  = "monthly_revenue"
	KindStatusBreakdown = "status_breakdown"
)

type MonthlyRevenue struct {
	Month        string          `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	InvoiceCount int             `json:"invoice_count"`
}

type StatusBreakdown struct {
	Status invoicedomain.InvoiceStatus `json:"status"`
	Count  int                         `json:"count"`
	Amount decimal.Decimal             `json:"amount"`
}

// Range bounds a report by issue date, inclusive. Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Service interface {
	MonthlyRevenue(ctx context.Context, r Range) ([]MonthlyRevenue, error)
	StatusBreakdown(ctx context.Context, r Range) ([]StatusBreakdown, error)
	Export(ctx context.Context, kind string, r Range) (Export, error)
}

var (
	ErrUnknownReport = errors.New("unknown_report")
	ErrInvalidRange  = errors.New("invalid_range")
)
