package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/partition"
	"github.com/smallbiznis/invoicer/internal/report/domain"
	"github.com/smallbiznis/invoicer/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const monthLayout = "2006-01"

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Invoices invoicedomain.Service
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	company  string
	invoices invoicedomain.Service
	clock    clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		log:      p.Log.Named("report.service"),
		company:  p.Config.Profile.CompanyName,
		invoices: p.Invoices,
		clock:    clk,
	}
}

// MonthlyRevenue sums paid invoices by issue month. When both bounds are
// set, months without revenue are included with zero.
func (s *Service) MonthlyRevenue(ctx context.Context, r domain.Range) ([]domain.MonthlyRevenue, error) {
	invoices, err := s.load(ctx, r)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*domain.MonthlyRevenue)
	if !r.From.IsZero() && !r.To.IsZero() {
		for m := monthStart(r.From); !m.After(r.To); m = m.AddDate(0, 1, 0) {
			key := m.Format(monthLayout)
			byMonth[key] = &domain.MonthlyRevenue{Month: key, Revenue: decimal.Zero}
		}
	}
	for _, inv := range invoices {
		if inv.Status != invoicedomain.InvoiceStatusPaid {
			continue
		}
		key := inv.IssueDate.UTC().Format(monthLayout)
		row, ok := byMonth[key]
		if !ok {
			row = &domain.MonthlyRevenue{Month: key, Revenue: decimal.Zero}
			byMonth[key] = row
		}
		row.Revenue = row.Revenue.Add(inv.TotalAmount)
		row.InvoiceCount++
	}

	out := make([]domain.MonthlyRevenue, 0, len(byMonth))
	for _, row := range byMonth {
		row.Revenue = money.Round(row.Revenue)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// StatusBreakdown counts and sums invoices per status. Invoices with an
// unrecognized status are logged and left out.
func (s *Service) StatusBreakdown(ctx context.Context, r domain.Range) ([]domain.StatusBreakdown, error) {
	invoices, err := s.load(ctx, r)
	if err != nil {
		return nil, err
	}

	valid := make([]invoicedomain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if !inv.Status.Valid() {
			s.log.Warn("invoice with unknown status left out of report",
				zap.String("invoice_id", inv.ID.String()),
				zap.String("status", string(inv.Status)),
			)
			continue
		}
		valid = append(valid, inv)
	}
	buckets, err := partition.Partition(valid)
	if err != nil {
		return nil, err
	}

	out := make([]domain.StatusBreakdown, 0, len(invoicedomain.Statuses))
	for _, status := range invoicedomain.Statuses {
		items := buckets.Get(status)
		amount := decimal.Zero
		for _, inv := range items {
			amount = amount.Add(inv.TotalAmount)
		}
		out = append(out, domain.StatusBreakdown{
			Status: status,
			Count:  len(items),
			Amount: money.Round(amount),
		})
	}
	return out, nil
}

// Export renders a report as CSV.
func (s *Service) Export(ctx context.Context, kind string, r domain.Range) (domain.Export, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))

	var rows [][]string
	switch kind {
	case domain.KindMonthlyRevenue:
		report, err := s.MonthlyRevenue(ctx, r)
		if err != nil {
			return domain.Export{}, err
		}
		rows = append(rows, []string{"month", "revenue", "invoice_count"})
		for _, row := range report {
			rows = append(rows, []string{row.Month, money.Format(row.Revenue), strconv.Itoa(row.InvoiceCount)})
		}
	case domain.KindStatusBreakdown:
		report, err := s.StatusBreakdown(ctx, r)
		if err != nil {
			return domain.Export{}, err
		}
		rows = append(rows, []string{"status", "count", "amount"})
		for _, row := range report {
			rows = append(rows, []string{string(row.Status), strconv.Itoa(row.Count), money.Format(row.Amount)})
		}
	default:
		return domain.Export{}, fmt.Errorf("%w: %q", domain.ErrUnknownReport, kind)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return domain.Export{}, err
	}

	name := slug.Make(fmt.Sprintf("%s %s %s", s.company, strings.ReplaceAll(kind, "_", " "), s.clock.Now().Format("2006-01-02")))
	return domain.Export{
		Filename:    name + ".csv",
		ContentType: "text/csv",
		Body:        buf.Bytes(),
	}, nil
}

func (s *Service) load(ctx context.Context, r domain.Range) ([]invoicedomain.Invoice, error) {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, domain.ErrInvalidRange
	}
	invoices, err := s.invoices.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := invoices[:0:0]
	for _, inv := range invoices {
		if !r.From.IsZero() && inv.IssueDate.Before(dateOnly(r.From)) {
			continue
		}
		if !r.To.IsZero() && inv.IssueDate.After(dateOnly(r.To)) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
