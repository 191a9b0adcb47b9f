package partition

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inv(id int64, status domain.InvoiceStatus) domain.Invoice {
	return domain.Invoice{ID: snowflake.ID(id), Status: status}
}

func ids(items []domain.Invoice) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID.Int64())
	}
	return out
}

func TestPartitionPreservesOrderPerBucket(t *testing.T) {
	input := []domain.Invoice{
		inv(1, domain.InvoiceStatusSent),
		inv(2, domain.InvoiceStatusDraft),
		inv(3, domain.InvoiceStatusSent),
		inv(4, domain.InvoiceStatusPaid),
		inv(5, domain.InvoiceStatusVoid),
		inv(6, domain.InvoiceStatusSent),
	}

	buckets, err := Partition(input)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 6}, ids(buckets.Get(domain.InvoiceStatusSent)))
	assert.Equal(t, []int64{2}, ids(buckets.Get(domain.InvoiceStatusDraft)))
	assert.Equal(t, []int64{4}, ids(buckets.Get(domain.InvoiceStatusPaid)))
	assert.Equal(t, []int64{5}, ids(buckets.Get(domain.InvoiceStatusVoid)))
	assert.Empty(t, buckets.Get(domain.InvoiceStatusOverdue))
	assert.Equal(t, len(input), buckets.Len())
}

func TestPartitionIsASetPartition(t *testing.T) {
	input := make([]domain.Invoice, 0, 50)
	for i := 0; i < 50; i++ {
		input = append(input, inv(int64(i+1), domain.Statuses[(i*7)%len(domain.Statuses)]))
	}

	buckets, err := Partition(input)
	require.NoError(t, err)

	seen := make(map[int64]int)
	for _, status := range domain.Statuses {
		for _, item := range buckets.Get(status) {
			assert.Equal(t, status, item.Status)
			seen[item.ID.Int64()]++
		}
	}
	require.Len(t, seen, len(input))
	for id, n := range seen {
		assert.Equalf(t, 1, n, "invoice %d placed %d times", id, n)
	}

	total := 0
	for _, n := range buckets.Counts() {
		total += n
	}
	assert.Equal(t, len(input), total)
}

func TestPartitionDoesNotPromotePastDueInvoices(t *testing.T) {
	past := inv(1, domain.InvoiceStatusSent)
	past.DueDate = time.Now().AddDate(0, -2, 0)

	buckets, err := Partition([]domain.Invoice{past})
	require.NoError(t, err)
	assert.Len(t, buckets.Get(domain.InvoiceStatusSent), 1)
	assert.Empty(t, buckets.Get(domain.InvoiceStatusOverdue))
}

func TestPartitionUnknownStatus(t *testing.T) {
	_, err := Partition([]domain.Invoice{
		inv(1, domain.InvoiceStatusPaid),
		inv(2, domain.InvoiceStatus("cancelled")),
	})
	require.ErrorIs(t, err, domain.ErrUnknownInvoiceStatus)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestPartitionEmpty(t *testing.T) {
	buckets, err := Partition(nil)
	require.NoError(t, err)
	assert.Zero(t, buckets.Len())
	for _, status := range domain.Statuses {
		assert.NotNil(t, buckets.Get(status))
	}
}
