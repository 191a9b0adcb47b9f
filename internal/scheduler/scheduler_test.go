package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/events"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvoices struct {
	invoicedomain.Service
	pastDue []invoicedomain.Invoice
	err     error
	asOf    time.Time
}

func (s *stubInvoices) ListPastDue(_ context.Context, asOf time.Time) ([]invoicedomain.Invoice, error) {
	s.asOf = asOf
	return s.pastDue, s.err
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker unavailable")
}

func newScheduler(t *testing.T, invoices invoicedomain.Service, pub events.Publisher, clk clock.Clock) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{Log: zap.NewNop(), InvoiceSvc: invoices, Events: pub, GenID: node, Clock: clk})
	require.NoError(t, err)
	return s
}

func pastDueInvoice(id int64, due time.Time) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		ID:            snowflake.ID(id),
		InvoiceNumber: "INV-20250102-0001",
		ClientID:      snowflake.ID(7),
		DueDate:       due,
		TotalAmount:   decimal.RequireFromString("1870"),
		Status:        invoicedomain.InvoiceStatusSent,
	}
}

func TestPastDueJobPublishesOncePerDay(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC))
	invoices := &stubInvoices{pastDue: []invoicedomain.Invoice{
		pastDueInvoice(1, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
	}}
	rec := &events.Recorder{}
	s := newScheduler(t, invoices, rec, clk)
	ctx := context.Background()

	n, err := s.PastDueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, clk.Now(), invoices.asOf)

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.EventInvoicePastDue, got[0].Type)
	assert.Equal(t, "1", got[0].Payload["invoice_id"])
	assert.Equal(t, "2025-01-10", got[0].Payload["due_date"])
	assert.Equal(t, 4, got[0].Payload["days_past_due"])

	clk.Advance(3 * time.Hour)
	n, err = s.PastDueJob(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(24 * time.Hour)
	n, err = s.PastDueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.Events(), 2)
}

func TestPastDueJobForgetsSettledInvoices(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC))
	inv := pastDueInvoice(1, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	invoices := &stubInvoices{pastDue: []invoicedomain.Invoice{inv}}
	rec := &events.Recorder{}
	s := newScheduler(t, invoices, rec, clk)
	ctx := context.Background()

	_, err := s.PastDueJob(ctx)
	require.NoError(t, err)

	invoices.pastDue = nil
	_, err = s.PastDueJob(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.notified)

	invoices.pastDue = []invoicedomain.Invoice{inv}
	n, err := s.PastDueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPastDueJobRetriesFailedPublishes(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC))
	invoices := &stubInvoices{pastDue: []invoicedomain.Invoice{
		pastDueInvoice(1, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
	}}
	s := newScheduler(t, invoices, failingPublisher{}, clk)

	n, err := s.PastDueJob(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.notified)

	assert.Error(t, s.RunOnce(context.Background()))
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	s := newScheduler(t, &stubInvoices{}, events.NewNoop(), clock.NewFakeClock(time.Time{}))

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.NoError(t, err)

	err = s.runJob(context.Background(), "error_job", time.Second, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.EqualError(t, err, "error_job: boom")
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())
}
