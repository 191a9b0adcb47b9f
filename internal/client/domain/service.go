package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/invoicer/pkg/db/pagination"
)

type ListClientRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Email     string
}

type ListClientFilter struct {
	Name  string
	Email string
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type CreateClientRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateClientRequest changes only the fields that are non-nil.
type UpdateClientRequest struct {
	ID      string
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
	GetByID(ctx context.Context, id string) (Client, error)
	Update(context.Context, UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
	Count(context.Context) (int64, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("client_not_found")
	ErrClientHasInvoices = errors.New("client_has_invoices")
)
