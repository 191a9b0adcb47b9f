// Package domain contains the invoice models and the contracts of the
// invoice service.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/pkg/money"
	"gorm.io/datatypes"
)

// InvoiceStatus is the lifecycle state of an invoice. Statuses are set
// explicitly; nothing in the system derives one from dates or amounts.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// Statuses lists every known status in display order.
var Statuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusVoid,
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	default:
		return false
	}
}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (InvoiceStatus, error) {
	status := InvoiceStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownInvoiceStatus, raw)
	}
	return status, nil
}

// ClientSnapshot is the client as it was when the invoice was issued.
type ClientSnapshot struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type Invoice struct {
	ID            snowflake.ID                       `gorm:"primaryKey" json:"id"`
	InvoiceNumber string                             `gorm:"type:varchar(64);not null;uniqueIndex" json:"invoice_number"`
	ClientID      snowflake.ID                       `gorm:"not null;index" json:"client_id"`
	Client        datatypes.JSONType[ClientSnapshot] `gorm:"column:client_snapshot" json:"client"`
	IssueDate     time.Time                          `gorm:"not null" json:"issue_date"`
	DueDate       time.Time                          `gorm:"not null;index" json:"due_date"`
	Items         []InvoiceItem                      `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal      decimal.Decimal                    `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxRate       *decimal.Decimal                   `gorm:"type:decimal(9,6)" json:"tax_rate,omitempty"`
	TaxAmount     decimal.Decimal                    `gorm:"type:decimal(18,2);not null" json:"tax_amount"`
	TotalAmount   decimal.Decimal                    `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Status        InvoiceStatus                      `gorm:"type:varchar(16);not null;index" json:"status"`
	Notes         *string                            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time                          `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                          `gorm:"not null" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one line of an invoice. Quantity and unit price carry at
// most six decimal places, so Total stores their product exactly. It is
// rounded to cents only when rendered.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"-"`
	Position    int             `gorm:"not null" json:"-"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(32,12);not null" json:"total"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (i InvoiceItem) MarshalJSON() ([]byte, error) {
	type item InvoiceItem
	out := item(i)
	out.Total = money.Round(i.Total)
	return json.Marshal(out)
}

// IsPastDue reports whether a sent invoice's due date is before asOf.
func (i Invoice) IsPastDue(asOf time.Time) bool {
	return i.Status == InvoiceStatusSent && dateOnly(i.DueDate).Before(dateOnly(asOf))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
