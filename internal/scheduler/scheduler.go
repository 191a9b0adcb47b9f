// Package scheduler runs periodic background jobs. Its one job watches for
// sent invoices that have passed their due date and announces each of them
// once per day. It never changes an invoice's status.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/events"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobPastDue = "past_due_watch"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
	Events     events.Publisher
	GenID      *snowflake.Node
	Clock      clock.Clock         `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
	Config     Config              `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	events     events.Publisher
	metrics    *obsmetrics.Metrics

	mu sync.Mutex
	// notified maps invoice IDs to the day they were last announced.
	notified map[snowflake.ID]time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.InvoiceSvc == nil || p.Events == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      clk,
		invoiceSvc: p.InvoiceSvc,
		events:     p.Events,
		metrics:    p.Metrics,
		notified:   make(map[snowflake.ID]time.Time),
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(
		zap.String("job", name),
		zap.String("run_id", s.genID.Generate().String()),
	)
	log.Debug("job started")

	processed, err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.RecordJob(parent, name, elapsed, err, isTimeout)

	if err == nil {
		log.Info("job finished",
			zap.Int("processed_count", processed),
			zap.Duration("duration", elapsed),
		)
		return nil
	}

	// A deadline is a soft timeout; the next run picks up the rest.
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Int("processed_count", processed),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobPastDue, s.cfg.JobTimeout, s.PastDueJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PastDueJob publishes invoice.past_due for every sent invoice whose due
// date has passed, at most once per invoice per day. It returns how many
// events were published.
func (s *Scheduler) PastDueJob(ctx context.Context) (int, error) {
	now := s.clock.Now()
	today := clock.Today(s.clock)

	invoices, err := s.invoiceSvc.ListPastDue(ctx, now)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	published := 0
	seen := make(map[snowflake.ID]struct{}, len(invoices))
	var errs error
	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		seen[inv.ID] = struct{}{}
		if last, ok := s.notified[inv.ID]; ok && !last.Before(today) {
			continue
		}

		payload := events.InvoicePayload{
			InvoiceID:     inv.ID.String(),
			InvoiceNumber: inv.InvoiceNumber,
			ClientID:      inv.ClientID.String(),
			Status:        string(inv.Status),
			TotalAmount:   money.Format(inv.TotalAmount),
		}.ToMap()
		payload["due_date"] = inv.DueDate.UTC().Format("2006-01-02")
		payload["days_past_due"] = int(today.Sub(inv.DueDate.UTC().Truncate(24*time.Hour)).Hours() / 24)

		if err := s.events.Publish(ctx, events.Event{
			Type:       events.EventInvoicePastDue,
			OccurredAt: now.UTC(),
			Payload:    payload,
		}); err != nil {
			s.log.Warn("publish past due event failed",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err),
			)
			errs = errors.Join(errs, err)
			continue
		}
		s.notified[inv.ID] = today
		published++
	}

	// Forget invoices that are no longer past due so a later relapse is
	// announced again.
	for id := range s.notified {
		if _, ok := seen[id]; !ok {
			delete(s.notified, id)
		}
	}

	return published, errs
}
