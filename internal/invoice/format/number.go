// Package format renders human-facing invoice numbers from a template.
package format

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultNumberTemplate yields numbers like INV-20250114-0003.
const DefaultNumberTemplate = "INV-{YYYY}{MM}{DD}-{SEQ4}"

var (
	ErrEmptyTemplate   = errors.New("empty_number_template")
	ErrInvalidSequence = errors.New("invalid_number_sequence")
	ErrUnresolvedToken = errors.New("unresolved_number_token")
)

var paddedSeq = regexp.MustCompile(`\{SEQ(\d+)\}`)

// InvoiceNumber replaces the date tokens {YYYY} {YY} {MM} {DD} with parts of
// issueDate and {SEQ} or {SEQn} with seq, zero padded to n digits.
func InvoiceNumber(template string, issueDate time.Time, seq int64) (string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", ErrEmptyTemplate
	}
	if seq <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSequence, seq)
	}

	out := strings.NewReplacer(
		"{YYYY}", issueDate.Format("2006"),
		"{YY}", issueDate.Format("06"),
		"{MM}", issueDate.Format("01"),
		"{DD}", issueDate.Format("02"),
		"{SEQ}", strconv.FormatInt(seq, 10),
	).Replace(template)

	out = paddedSeq.ReplaceAllStringFunc(out, func(token string) string {
		width, err := strconv.Atoi(paddedSeq.FindStringSubmatch(token)[1])
		if err != nil || width <= 0 || width > 12 {
			return token
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedToken, out)
	}
	return out, nil
}
