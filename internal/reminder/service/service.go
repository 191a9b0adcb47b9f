package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/flow"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const flowName = "invoiceReminderSuggestion"

const prompt = `You write personalized invoice reminder messages.

Using the client's payment history and the invoice below, write a friendly but firm reminder.

Client Name: {{.ClientName}}
Invoice Number: {{.InvoiceNumber}}
Invoice Due Date: {{.InvoiceDueDate}}
Invoice Amount: {{printf "%.2f" .InvoiceAmount}}
Payment History: {{if .PaymentHistory}}{{.PaymentHistory}}{{else}}No payment history available.{{end}}
`

type Params struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Generator flow.Generator
	Invoices  invoicedomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	flow     *flow.Flow[domain.Input, domain.Suggestion]
	invoices invoicedomain.Service
}

func New(p Params) (domain.Service, error) {
	log := p.Log.Named("reminder.service")

	f, err := flow.Define(p.Generator, flow.Definition[domain.Input, domain.Suggestion]{
		Name:    flowName,
		Prompt:  prompt,
		Timeout: p.Config.AI.Timeout,
		Check: func(out domain.Suggestion) error {
			if strings.TrimSpace(out.ReminderSuggestion) == "" {
				return errors.New("blank reminder suggestion")
			}
			return nil
		},
	}, flow.WithLogger(log), flow.WithMetrics(p.Metrics))
	if err != nil {
		return nil, err
	}

	return &Service{
		log:      log,
		flow:     f,
		invoices: p.Invoices,
	}, nil
}

func (s *Service) Suggest(ctx context.Context, in domain.Input) (domain.Suggestion, error) {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	in.InvoiceDueDate = strings.TrimSpace(in.InvoiceDueDate)
	in.PaymentHistory = strings.TrimSpace(in.PaymentHistory)

	return s.flow.Run(ctx, in)
}

// SuggestForInvoice fills the reminder input from a stored invoice. Only
// sent and overdue invoices are awaiting payment.
func (s *Service) SuggestForInvoice(ctx context.Context, invoiceID string, paymentHistory string) (domain.Suggestion, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return domain.Suggestion{}, err
	}
	switch invoice.Status {
	case invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusOverdue:
	default:
		return domain.Suggestion{}, fmt.Errorf("%w: invoice %s is %s", domain.ErrInvoiceNotRemindable, invoice.InvoiceNumber, invoice.Status)
	}

	return s.Suggest(ctx, domain.Input{
		ClientName:     invoice.Client.Data().Name,
		InvoiceNumber:  invoice.InvoiceNumber,
		InvoiceDueDate: invoice.DueDate.UTC().Format("2006-01-02"),
		InvoiceAmount:  invoice.TotalAmount.InexactFloat64(),
		PaymentHistory: paymentHistory,
	})
}
