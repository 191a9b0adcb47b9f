package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/events"
	"github.com/smallbiznis/invoicer/internal/invoice/calculator"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/format"
	"github.com/smallbiznis/invoicer/internal/invoice/partition"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"github.com/smallbiznis/invoicer/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// numberAttempts bounds retries when a generated number collides.
const numberAttempts = 3

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Config  config.Config
	Repo    domain.Repository
	Clients clientdomain.Service
	Events  events.Publisher
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clients clientdomain.Service
	events  events.Publisher
	clock   clock.Clock
	metrics *metrics.Metrics

	numberTemplate string
	dueDays        int
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	publisher := p.Events
	if publisher == nil {
		publisher = events.NewNoop()
	}
	template := strings.TrimSpace(p.Config.Invoice.NumberTemplate)
	if template == "" {
		template = format.DefaultNumberTemplate
	}
	dueDays := p.Config.Invoice.DefaultDueDays
	if dueDays <= 0 {
		dueDays = 30
	}

	return &Service{
		db:             p.DB,
		log:            p.Log.Named("invoice.service"),
		genID:          p.GenID,
		repo:           p.Repo,
		clients:        p.Clients,
		events:         publisher,
		clock:          clk,
		metrics:        p.Metrics,
		numberTemplate: template,
		dueDays:        dueDays,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, clientdomain.ErrNotFound) || errors.Is(err, clientdomain.ErrInvalidID) {
			return domain.Invoice{}, fmt.Errorf("%w: %s", domain.ErrInvalidClient, strings.TrimSpace(req.ClientID))
		}
		return domain.Invoice{}, err
	}

	issueDate := dateOnly(req.IssueDate)
	if req.IssueDate.IsZero() {
		issueDate = clock.Today(s.clock)
	}
	dueDate := issueDate.AddDate(0, 0, s.dueDays)
	if req.DueDate != nil {
		dueDate = dateOnly(*req.DueDate)
	}
	if dueDate.Before(issueDate) {
		return domain.Invoice{}, domain.ErrInvalidDates
	}

	status := domain.InvoiceStatusDraft
	if strings.TrimSpace(req.Status) != "" {
		if status, err = domain.ParseStatus(req.Status); err != nil {
			return domain.Invoice{}, err
		}
	}

	lines := make([]calculator.Line, len(req.Items))
	for i, item := range req.Items {
		if strings.TrimSpace(item.Description) == "" {
			return domain.Invoice{}, fmt.Errorf("%w: line %d", domain.ErrInvalidDescription, i)
		}
		lines[i] = calculator.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	totals, err := calculator.Calculate(lines, req.TaxRate)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	invoice := domain.Invoice{
		ID:       s.genID.Generate(),
		ClientID: client.ID,
		Client: datatypes.NewJSONType(domain.ClientSnapshot{
			ID:      client.ID.String(),
			Name:    client.Name,
			Email:   client.Email,
			Phone:   client.Phone,
			Address: client.Address,
		}),
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Subtotal:    totals.Subtotal,
		TaxRate:     req.TaxRate,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.TotalAmount,
		Status:      status,
		Notes:       optional(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	invoice.Items = make([]domain.InvoiceItem, len(req.Items))
	for i, item := range req.Items {
		invoice.Items[i] = domain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			Position:    i,
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       totals.LineTotals[i],
		}
	}

	if err := s.insert(ctx, &invoice, strings.TrimSpace(req.InvoiceNumber)); err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceCreated(ctx, string(invoice.Status))
	s.publish(ctx, events.EventInvoiceCreated, invoice, "")
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total_amount", money.Format(invoice.TotalAmount)),
	)
	return invoice, nil
}

// insert stores the invoice under the requested number, or under the next
// free number of its issue day when none was requested.
func (s *Service) insert(ctx context.Context, invoice *domain.Invoice, requested string) error {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number := requested
			if number == "" {
				count, err := s.repo.CountIssuedOn(ctx, tx, invoice.IssueDate)
				if err != nil {
					return err
				}
				number, err = format.InvoiceNumber(s.numberTemplate, invoice.IssueDate, count+int64(attempt)+1)
				if err != nil {
					return err
				}
			}
			invoice.InvoiceNumber = number
			return s.repo.Insert(ctx, tx, invoice)
		})
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		if requested != "" {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateInvoiceNumber, requested)
		}
		s.log.Warn("invoice number collision, retrying",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Int("attempt", attempt+1),
		)
	}
	return domain.ErrDuplicateInvoiceNumber
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	var filter domain.ListInvoiceFilter
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return domain.ListInvoiceResponse{}, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = clientID
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	items, info := pagination.Trim(items, page.Size(), func(inv *domain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: inv.ID.Int64(), CreatedAt: inv.CreatedAt}
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item != nil {
			invoices = append(invoices, *item)
		}
	}
	return domain.ListInvoiceResponse{PageInfo: info, Invoices: invoices}, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.ListAll(ctx, s.db)
}

// ListByStatus groups every invoice into one tab per status, in creation
// order within each tab. Rows with an unrecognized status are left out and
// reported, as the dashboard does.
func (s *Service) ListByStatus(ctx context.Context) ([]domain.StatusTab, error) {
	all, err := s.repo.ListAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, 0, len(all))
	var skipped []string
	for _, inv := range all {
		if !inv.Status.Valid() {
			skipped = append(skipped, inv.ID.String())
			continue
		}
		invoices = append(invoices, inv)
	}
	if len(skipped) > 0 {
		s.metrics.RecordSkippedInvoices(ctx, len(skipped))
		s.log.Warn("invoices with unknown status left out of tabs",
			zap.Strings("invoice_ids", skipped),
		)
	}

	buckets, err := partition.Partition(invoices)
	if err != nil {
		return nil, err
	}

	tabs := make([]domain.StatusTab, 0, len(domain.Statuses))
	for _, status := range domain.Statuses {
		items := buckets.Get(status)
		tabs = append(tabs, domain.StatusTab{Status: status, Count: len(items), Invoices: items})
	}
	return tabs, nil
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.repo.ListRecent(ctx, s.db, limit)
}

// ListPastDue returns sent invoices whose due date is before asOf. Their
// status is left as is; moving them to overdue is the caller's decision.
func (s *Service) ListPastDue(ctx context.Context, asOf time.Time) ([]domain.Invoice, error) {
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	items, err := s.repo.ListByStatusDueBefore(ctx, s.db, domain.InvoiceStatusSent, dateOnly(asOf))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item.IsPastDue(asOf) {
			out = append(out, item)
		}
	}
	return out, nil
}

// UpdateStatus moves an invoice to any known status. Void is terminal.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Invoice, error) {
	invoiceID, err := parseID(req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return domain.Invoice{}, err
	}

	var (
		invoice  domain.Invoice
		previous domain.InvoiceStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrInvoiceNotFound
		}
		invoice = *item
		previous = item.Status
		if previous == status {
			return nil
		}
		if previous == domain.InvoiceStatusVoid {
			return domain.ErrInvoiceVoid
		}

		now := s.clock.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, invoiceID, status, now); err != nil {
			return err
		}
		invoice.Status = status
		invoice.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	if previous == status {
		return invoice, nil
	}

	s.metrics.RecordStatusChange(ctx, string(previous), string(status))
	s.publish(ctx, events.EventInvoiceStatusChanged, invoice, previous)
	s.log.Info("invoice status changed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)
	return invoice, nil
}

// Delete removes a draft invoice and its items.
func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	var deleted domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrInvoiceNotFound
		}
		if item.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}
		deleted = *item
		return s.repo.Delete(ctx, tx, invoiceID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventInvoiceDeleted, deleted, "")
	return nil
}

// publish never fails the calling operation; the data change is already
// committed.
func (s *Service) publish(ctx context.Context, eventType string, invoice domain.Invoice, previous domain.InvoiceStatus) {
	payload := events.InvoicePayload{
		InvoiceID:      invoice.ID.String(),
		InvoiceNumber:  invoice.InvoiceNumber,
		ClientID:       invoice.ClientID.String(),
		Status:         string(invoice.Status),
		PreviousStatus: string(previous),
		TotalAmount:    money.Format(invoice.TotalAmount),
	}
	err := s.events.Publish(ctx, events.Event{
		Type:       eventType,
		OccurredAt: s.clock.Now().UTC(),
		Payload:    payload.ToMap(),
	})
	if err != nil {
		s.log.Warn("publish invoice event failed",
			zap.String("type", eventType),
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
