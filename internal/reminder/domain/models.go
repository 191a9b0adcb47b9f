package domain

import (
	"context"
	"errors"
)

// Input is the data a reminder is written from.
type Input struct {
	ClientName     string  `json:"clientName" validate:"required" jsonschema:"the name of the client"`
	InvoiceNumber  string  `json:"invoiceNumber" validate:"required" jsonschema:"the invoice number"`
	InvoiceDueDate string  `json:"invoiceDueDate" validate:"required,datetime=2006-01-02" jsonschema:"the invoice due date (YYYY-MM-DD)"`
	InvoiceAmount  float64 `json:"invoiceAmount" validate:"gt=0" jsonschema:"the invoice amount"`
	PaymentHistory string  `json:"paymentHistory" jsonschema:"summary of the client's on-time payments, late payments and payment issues"`
}

type Suggestion struct {
	ReminderSuggestion string `json:"reminderSuggestion" jsonschema:"a personalized invoice reminder based on the client's payment behavior"`
}

type Service interface {
	Suggest(ctx context.Context, in Input) (Suggestion, error)
	SuggestForInvoice(ctx context.Context, invoiceID string, paymentHistory string) (Suggestion, error)
}

// ErrInvoiceNotRemindable is returned for drafts and void invoices.
var ErrInvoiceNotRemindable = errors.New("invoice_not_remindable")
