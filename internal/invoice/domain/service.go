package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"github.com/smallbiznis/invoicer/pkg/money"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

type CreateInvoiceRequest struct {
	ClientID      string
	InvoiceNumber string
	IssueDate     time.Time
	// DueDate defaults to IssueDate plus the configured number of days.
	DueDate *time.Time
	Items   []CreateItemRequest
	TaxRate *decimal.Decimal
	Status  string
	Notes   string
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int
	Status    string
	ClientID  string
}

type ListInvoiceFilter struct {
	Status   InvoiceStatus
	ClientID snowflake.ID
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// StatusTab is one tab of the invoice list view.
type StatusTab struct {
	Status   InvoiceStatus `json:"status"`
	Count    int           `json:"count"`
	Invoices []Invoice     `json:"invoices"`
}

type UpdateStatusRequest struct {
	ID     string
	Status string
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	ListAll(context.Context) ([]Invoice, error)
	ListByStatus(context.Context) ([]StatusTab, error)
	ListRecent(ctx context.Context, limit int) ([]Invoice, error)
	ListPastDue(ctx context.Context, asOf time.Time) ([]Invoice, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Invoice, error)
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]Invoice, error)
	ListByStatusDueBefore(ctx context.Context, db *gorm.DB, status InvoiceStatus, before time.Time) ([]Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InvoiceStatus, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountIssuedOn(ctx context.Context, db *gorm.DB, day time.Time) (int64, error)
}

var (
	ErrInvalidLineItem      = money.ErrInvalidLineItem
	ErrInvalidTaxRate       = money.ErrInvalidTaxRate
	ErrEmptyItemList        = errors.New("empty_item_list")
	ErrUnknownInvoiceStatus = errors.New("unknown_invoice_status")

	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidClient          = errors.New("invalid_client")
	ErrInvalidDates           = errors.New("invalid_dates")
	ErrInvalidDescription     = errors.New("invalid_description")
	ErrDuplicateInvoiceNumber = errors.New("duplicate_invoice_number")
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrInvoiceVoid            = errors.New("invoice_void")
	ErrInvoiceNotDraft        = errors.New("invoice_not_draft")
)
