package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	})
}

// Insert writes the invoice and its items in one statement batch. Callers
// run it inside a transaction.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoices []domain.Invoice
	err := withItems(db.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	stmt := withItems(db.WithContext(ctx).Model(&domain.Invoice{}))
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	stmt, err := page.Apply(stmt)
	if err != nil {
		return nil, err
	}

	var invoices []*domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := withItems(db.WithContext(ctx)).
		Order("created_at asc, id asc").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := withItems(db.WithContext(ctx)).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) ListByStatusDueBefore(ctx context.Context, db *gorm.DB, status domain.InvoiceStatus, before time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := withItems(db.WithContext(ctx)).
		Where("status = ? AND due_date < ?", status, before).
		Order("due_date asc, id asc").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.InvoiceStatus, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM invoice_items WHERE invoice_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM invoices WHERE id = ?`, id).Error
}

// CountIssuedOn counts invoices whose issue date falls on day (UTC).
func (r *repo) CountIssuedOn(ctx context.Context, db *gorm.DB, day time.Time) (int64, error) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("issue_date >= ? AND issue_date < ?", start, start.AddDate(0, 0, 1)).
		Count(&count).Error
	return count, err
}
