package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var (
	ErrDisputeNotFound  = errors.New("dispute not found")
	ErrDisputeBadStatus = errors.New("dispute is not in the required status")
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (contract_id, milestone_id, initiator_id, reason, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING id, status, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, d.ContractID, d.MilestoneID, d.InitiatorID, d.Reason).
		Scan(&d.ID, &d.Status, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// TakeUnderReview переводит спор open → under_review.
func (r *DisputeRepository) TakeUnderReview(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = 'under_review'
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return fmt.Errorf("dispute repository: take under review %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrDisputeBadStatus
	}
	return nil
}

// Resolve фиксирует решение арбитра по спору.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, toStatus, resolution string, resolvedBy uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes
		SET status = $2, resolution = $3, resolved_by = $4, resolved_at = NOW()
		WHERE id = $1 AND status IN ('open', 'under_review')
	`, id, toStatus, resolution, resolvedBy)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrDisputeBadStatus
	}
	return nil
}

// Cancel — инициатор отзывает открытый спор.
func (r *DisputeRepository) Cancel(ctx context.Context, id, initiatorID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = 'cancelled', resolved_at = NOW()
		WHERE id = $1 AND initiator_id = $2 AND status = 'open'
	`, id, initiatorID)
	if err != nil {
		return fmt.Errorf("dispute repository: cancel %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrDisputeBadStatus
	}
	return nil
}

// HasOpenByContract проверяет наличие незакрытого спора по контракту.
func (r *DisputeRepository) HasOpenByContract(ctx context.Context, contractID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM disputes
			WHERE contract_id = $1 AND status IN ('open', 'under_review')
		)
	`, contractID)
	return exists, err
}

// ListByContract возвращает споры по контракту.
func (r *DisputeRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	return disputes, err
}
