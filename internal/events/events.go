// Package events publishes invoice lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	EventInvoiceCreated       = "invoice.created"
	EventInvoiceStatusChanged = "invoice.status_changed"
	EventInvoiceDeleted       = "invoice.deleted"
	EventInvoicePastDue       = "invoice.past_due"
)

var ErrMissingEventType = errors.New("missing_event_type")

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// InvoicePayload is the body of every invoice event.
type InvoicePayload struct {
	InvoiceID      string `json:"invoice_id"`
	InvoiceNumber  string `json:"invoice_number"`
	ClientID       string `json:"client_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	TotalAmount    string `json:"total_amount"`
}

func (p InvoicePayload) ToMap() map[string]any {
	payload := map[string]any{
		"invoice_id":     p.InvoiceID,
		"invoice_number": p.InvoiceNumber,
		"client_id":      p.ClientID,
		"status":         p.Status,
		"total_amount":   p.TotalAmount,
	}
	if p.PreviousStatus != "" {
		payload["previous_status"] = p.PreviousStatus
	}
	return payload
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func encode(event Event) ([]byte, error) {
	event.Type = strings.TrimSpace(event.Type)
	if event.Type == "" {
		return nil, ErrMissingEventType
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	return json.Marshal(event)
}

type noopPublisher struct{}

// NewNoop returns a publisher that validates and drops events.
func NewNoop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(_ context.Context, event Event) error {
	_, err := encode(event)
	return err
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	if _, err := encode(event); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
