package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumber(t *testing.T) {
	issued := time.Date(2025, time.January, 14, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		template string
		seq      int64
		want     string
	}{
		{DefaultNumberTemplate, 3, "INV-20250114-0003"},
		{"INV-{YY}{MM}-{SEQ}", 42, "INV-2501-42"},
		{"{SEQ2}", 123, "123"},
		{"F-{YYYY}/{SEQ6}", 7, "F-2025/000007"},
	}
	for _, tc := range cases {
		got, err := InvoiceNumber(tc.template, issued, tc.seq)
		require.NoError(t, err, tc.template)
		assert.Equal(t, tc.want, got)
	}
}

func TestInvoiceNumberErrors(t *testing.T) {
	issued := time.Now()

	_, err := InvoiceNumber("  ", issued, 1)
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	_, err = InvoiceNumber(DefaultNumberTemplate, issued, 0)
	assert.ErrorIs(t, err, ErrInvalidSequence)

	_, err = InvoiceNumber("INV-{CLIENT}-{SEQ}", issued, 1)
	assert.ErrorIs(t, err, ErrUnresolvedToken)
}
