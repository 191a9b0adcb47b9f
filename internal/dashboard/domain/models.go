package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/invoicer/internal/dashboard/rollup"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
)

// RecentInvoiceLimit is how many invoices the dashboard lists.
const RecentInvoiceLimit = 5

type Summary struct {
	rollup.Metrics
	ClientCount    int64                   `json:"client_count"`
	PastDueCount   int                     `json:"past_due_count"`
	RecentInvoices []invoicedomain.Invoice `json:"recent_invoices"`
	// SkippedInvoiceIDs lists invoices left out of the figures because
	// their status is not recognized.
	SkippedInvoiceIDs []string  `json:"skipped_invoice_ids,omitempty"`
	GeneratedAt       time.Time `json:"generated_at"`
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}
