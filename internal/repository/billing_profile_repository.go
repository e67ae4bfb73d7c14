package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-billing/internal/models"
)

var ErrBillingProfileNotFound = errors.New("billing profile not found")

type BillingProfileRepository struct {
	db *sqlx.DB
}

func NewBillingProfileRepository(db *sqlx.DB) *BillingProfileRepository {
	return &BillingProfileRepository{db: db}
}

// GetByUser возвращает платёжный профиль клиента.
func (r *BillingProfileRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.BillingProfile, error) {
	var profile models.BillingProfile
	err := r.db.GetContext(ctx, &profile, `SELECT * FROM billing_profiles WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBillingProfileNotFound
		}
		return nil, fmt.Errorf("billing profile repository: get %w", err)
	}
	return &profile, nil
}

// Upsert сохраняет реквизиты клиента у карточного шлюза.
func (r *BillingProfileRepository) Upsert(ctx context.Context, p *models.BillingProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO billing_profiles (user_id, gateway_customer_id, default_payment_method_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET gateway_customer_id = EXCLUDED.gateway_customer_id,
		    default_payment_method_id = EXCLUDED.default_payment_method_id,
		    updated_at = NOW()
	`, p.UserID, p.GatewayCustomerID, p.DefaultPaymentMethodID)
	if err != nil {
		return fmt.Errorf("billing profile repository: upsert %w", err)
	}
	return nil
}
