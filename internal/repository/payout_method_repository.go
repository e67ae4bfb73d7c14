package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var ErrPayoutMethodNotFound = errors.New("payout method not found")

type PayoutMethodRepository struct {
	db *sqlx.DB
}

func NewPayoutMethodRepository(db *sqlx.DB) *PayoutMethodRepository {
	return &PayoutMethodRepository{db: db}
}

// Create добавляет способ вывода. Если он помечен основным, прежний
// основной снимается в той же транзакции.
func (r *PayoutMethodRepository) Create(ctx context.Context, m *models.PayoutMethod) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if m.IsDefault {
			_, err := tx.ExecContext(ctx, `
				UPDATE payout_methods SET is_default = FALSE
				WHERE freelancer_id = $1 AND is_default = TRUE
			`, m.FreelancerID)
			if err != nil {
				return err
			}
		}
		return tx.QueryRowxContext(ctx, `
			INSERT INTO payout_methods (freelancer_id, method, stripe_account_id, paypal_email, is_default, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			RETURNING id, created_at
		`, m.FreelancerID, m.Method, m.StripeAccountID, m.PaypalEmail, m.IsDefault).
			Scan(&m.ID, &m.CreatedAt)
	})
}

// GetPreferred возвращает способ вывода фрилансера: основной, иначе
// последний добавленный активный.
func (r *PayoutMethodRepository) GetPreferred(ctx context.Context, freelancerID uuid.UUID) (*models.PayoutMethod, error) {
	var method models.PayoutMethod
	err := r.db.GetContext(ctx, &method, `
		SELECT * FROM payout_methods
		WHERE freelancer_id = $1 AND is_active = TRUE
		ORDER BY is_default DESC, created_at DESC
		LIMIT 1
	`, freelancerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutMethodNotFound
		}
		return nil, fmt.Errorf("payout method repository: get preferred %w", err)
	}
	return &method, nil
}

// Deactivate выключает способ вывода без удаления истории.
func (r *PayoutMethodRepository) Deactivate(ctx context.Context, id, freelancerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payout_methods SET is_active = FALSE, is_default = FALSE
		WHERE id = $1 AND freelancer_id = $2
	`, id, freelancerID)
	if err != nil {
		return fmt.Errorf("payout method repository: deactivate %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPayoutMethodNotFound
	}
	return nil
}

// ListByFreelancer возвращает активные способы вывода фрилансера.
func (r *PayoutMethodRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.PayoutMethod, error) {
	var methods []models.PayoutMethod
	err := r.db.SelectContext(ctx, &methods, `
		SELECT * FROM payout_methods
		WHERE freelancer_id = $1 AND is_active = TRUE
		ORDER BY is_default DESC, created_at DESC
	`, freelancerID)
	return methods, err
}
