// Package partition splits invoices into per-status buckets for the tabbed
// invoice views.
package partition

import (
	"fmt"

	"github.com/smallbiznis/invoicer/internal/invoice/domain"
)

// Buckets holds one ordered slice per status. Input order is preserved
// within each bucket.
type Buckets struct {
	byStatus map[domain.InvoiceStatus][]domain.Invoice
}

// Partition places each invoice in the bucket named by its status field.
// An unrecognized status fails the whole call.
func Partition(invoices []domain.Invoice) (Buckets, error) {
	buckets := Buckets{byStatus: make(map[domain.InvoiceStatus][]domain.Invoice, len(domain.Statuses))}
	for _, status := range domain.Statuses {
		buckets.byStatus[status] = []domain.Invoice{}
	}

	for i, inv := range invoices {
		if !inv.Status.Valid() {
			return Buckets{}, fmt.Errorf("%w: %q at position %d", domain.ErrUnknownInvoiceStatus, string(inv.Status), i)
		}
		buckets.byStatus[inv.Status] = append(buckets.byStatus[inv.Status], inv)
	}
	return buckets, nil
}

// Get returns the bucket for status, empty for unknown statuses.
func (b Buckets) Get(status domain.InvoiceStatus) []domain.Invoice {
	if b.byStatus == nil {
		return []domain.Invoice{}
	}
	items, ok := b.byStatus[status]
	if !ok {
		return []domain.Invoice{}
	}
	return items
}

func (b Buckets) Counts() map[domain.InvoiceStatus]int {
	counts := make(map[domain.InvoiceStatus]int, len(domain.Statuses))
	for _, status := range domain.Statuses {
		counts[status] = len(b.Get(status))
	}
	return counts
}

// Len is the number of invoices across all buckets.
func (b Buckets) Len() int {
	total := 0
	for _, items := range b.byStatus {
		total += len(items)
	}
	return total
}
