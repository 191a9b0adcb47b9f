package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvoices struct {
	invoicedomain.Service
	all     []invoicedomain.Invoice
	listErr error
	asOf    time.Time
}

func (s *stubInvoices) ListAll(context.Context) ([]invoicedomain.Invoice, error) {
	return s.all, s.listErr
}

func (s *stubInvoices) ListRecent(_ context.Context, limit int) ([]invoicedomain.Invoice, error) {
	if limit > len(s.all) {
		limit = len(s.all)
	}
	return s.all[:limit], nil
}

func (s *stubInvoices) ListPastDue(_ context.Context, asOf time.Time) ([]invoicedomain.Invoice, error) {
	s.asOf = asOf
	var out []invoicedomain.Invoice
	for _, inv := range s.all {
		if inv.IsPastDue(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

type stubClients struct {
	clientdomain.Service
	count int64
}

func (s stubClients) Count(context.Context) (int64, error) { return s.count, nil }

func inv(id int64, status invoicedomain.InvoiceStatus, total string, due time.Time) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		ID:          snowflake.ID(id),
		Status:      status,
		TotalAmount: decimal.RequireFromString(total),
		DueDate:     due,
	}
}

func TestSummary(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	invoices := &stubInvoices{all: []invoicedomain.Invoice{
		inv(1, invoicedomain.InvoiceStatusPaid, "1836", now),
		inv(2, invoicedomain.InvoiceStatusSent, "800", now.AddDate(0, 0, -3)),
		inv(3, invoicedomain.InvoiceStatusOverdue, "250", now.AddDate(0, 0, -30)),
		inv(4, invoicedomain.InvoiceStatusDraft, "50", now),
		inv(5, invoicedomain.InvoiceStatusSent, "10", now.AddDate(0, 0, 3)),
		inv(6, invoicedomain.InvoiceStatus("cancelled"), "70", now),
	}}

	svc := New(Params{
		Log:      zap.NewNop(),
		Invoices: invoices,
		Clients:  stubClients{count: 3},
		Clock:    clock.NewFakeClock(now),
	})

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1836.00", summary.TotalRevenue.StringFixed(2))
	assert.Equal(t, "1060.00", summary.PendingAmount.StringFixed(2))
	assert.Equal(t, 1, summary.OverdueCount)
	assert.Equal(t, 5, summary.InvoiceCount)
	assert.Equal(t, int64(3), summary.ClientCount)
	assert.Equal(t, 1, summary.PastDueCount)
	assert.Len(t, summary.RecentInvoices, 5)
	assert.Equal(t, []string{"6"}, summary.SkippedInvoiceIDs)
	assert.Equal(t, now, invoices.asOf)
}

func TestSummaryPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := New(Params{
		Log:      zap.NewNop(),
		Invoices: &stubInvoices{listErr: boom},
		Clients:  stubClients{},
	})

	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}
