// Package rollup reduces a collection of invoices to the dashboard figures.
package rollup

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
)

// Metrics are summed at full precision; round them only for display.
type Metrics struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	OverdueCount  int             `json:"overdue_count"`
	InvoiceCount  int             `json:"invoice_count"`
}

// Add combines the metrics of two disjoint collections.
func (m Metrics) Add(other Metrics) Metrics {
	return Metrics{
		TotalRevenue:  m.TotalRevenue.Add(other.TotalRevenue),
		PendingAmount: m.PendingAmount.Add(other.PendingAmount),
		OverdueCount:  m.OverdueCount + other.OverdueCount,
		InvoiceCount:  m.InvoiceCount + other.InvoiceCount,
	}
}

// Reduce computes every figure in one pass. Revenue counts paid invoices,
// pending counts sent and overdue ones. Invoices with other statuses only
// add to InvoiceCount.
func Reduce(invoices []invoicedomain.Invoice) Metrics {
	m := Metrics{TotalRevenue: decimal.Zero, PendingAmount: decimal.Zero}
	for _, inv := range invoices {
		m = m.Add(reduceOne(inv))
	}
	return m
}

// ReduceValid is Reduce over the invoices whose status is known. The ids of
// the others are returned so the caller can report them.
func ReduceValid(invoices []invoicedomain.Invoice) (Metrics, []snowflake.ID) {
	m := Metrics{TotalRevenue: decimal.Zero, PendingAmount: decimal.Zero}
	var skipped []snowflake.ID
	for _, inv := range invoices {
		if !inv.Status.Valid() {
			skipped = append(skipped, inv.ID)
			continue
		}
		m = m.Add(reduceOne(inv))
	}
	return m, skipped
}

func reduceOne(inv invoicedomain.Invoice) Metrics {
	m := Metrics{TotalRevenue: decimal.Zero, PendingAmount: decimal.Zero, InvoiceCount: 1}
	switch inv.Status {
	case invoicedomain.InvoiceStatusPaid:
		m.TotalRevenue = inv.TotalAmount
	case invoicedomain.InvoiceStatusSent:
		m.PendingAmount = inv.TotalAmount
	case invoicedomain.InvoiceStatusOverdue:
		m.PendingAmount = inv.TotalAmount
		m.OverdueCount = 1
	}
	return m
}
