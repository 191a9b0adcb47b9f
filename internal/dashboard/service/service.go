package service

import (
	"context"

	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/smallbiznis/invoicer/internal/dashboard/rollup"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Invoices invoicedomain.Service
	Clients  clientdomain.Service
	Clock    clock.Clock      `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	invoices invoicedomain.Service
	clients  clientdomain.Service
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		log:      p.Log.Named("dashboard.service"),
		invoices: p.Invoices,
		clients:  p.Clients,
		clock:    clk,
		metrics:  p.Metrics,
	}
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	var (
		all         []invoicedomain.Invoice
		recent      []invoicedomain.Invoice
		pastDue     []invoicedomain.Invoice
		clientCount int64
	)
	now := s.clock.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		all, err = s.invoices.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.invoices.ListRecent(gctx, domain.RecentInvoiceLimit)
		return err
	})
	g.Go(func() (err error) {
		pastDue, err = s.invoices.ListPastDue(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		clientCount, err = s.clients.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Summary{}, err
	}

	figures, skipped := rollup.ReduceValid(all)
	summary := domain.Summary{
		Metrics:        figures,
		ClientCount:    clientCount,
		PastDueCount:   len(pastDue),
		RecentInvoices: recent,
		GeneratedAt:    now,
	}
	if len(skipped) > 0 {
		summary.SkippedInvoiceIDs = make([]string, len(skipped))
		for i, id := range skipped {
			summary.SkippedInvoiceIDs[i] = id.String()
		}
		s.metrics.RecordSkippedInvoices(ctx, len(skipped))
		s.log.Warn("invoices skipped in dashboard figures",
			zap.Strings("invoice_ids", summary.SkippedInvoiceIDs),
		)
	}
	return summary, nil
}
