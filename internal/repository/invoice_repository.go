package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return common.GetByID[models.Invoice](ctx, r.db, "invoices", id, ErrInvoiceNotFound)
}

// ListByClient возвращает инвойсы клиента, свежие первыми.
func (r *InvoiceRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices
		WHERE client_id = $1 ORDER BY issued_at DESC LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	return invoices, err
}

// ListByContract возвращает инвойсы по контракту.
func (r *InvoiceRepository) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices
		WHERE contract_id = $1 ORDER BY issued_at DESC LIMIT $2 OFFSET $3
	`, contractID, limit, offset)
	return invoices, err
}
