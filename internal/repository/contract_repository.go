package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrJobNotFound      = errors.New("job not found")
)

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create создаёт контракт. Вызывается при принятии отклика.
func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (job_id, client_id, freelancer_id, contract_type, total_amount, hourly_rate, weekly_hour_limit, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		c.JobID, c.ClientID, c.FreelancerID, c.ContractType,
		c.TotalAmount, c.HourlyRate, c.WeeklyHourLimit, c.Currency, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("contract repository: create %w", err)
	}
	return nil
}

// GetByID возвращает контракт по идентификатору.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return common.GetByID[models.Contract](ctx, r.db, "contracts", id, ErrContractNotFound)
}

// UpdateStatus переводит контракт из одного из fromStatuses в toStatus.
// Возвращает ErrContractNotFound, если контракт не в допустимом исходном
// статусе: машина состояний проверяется здесь, а не ограничением базы.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatuses []string, toStatus string) error {
	query := `
		UPDATE contracts SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	res, err := r.db.ExecContext(ctx, query, id, toStatus, pq.Array(fromStatuses))
	if err != nil {
		return fmt.Errorf("contract repository: update status %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContractNotFound
	}
	return nil
}

// UpdateSettings обновляет настройки контракта (только клиентские поля).
func (r *ContractRepository) UpdateSettings(ctx context.Context, id uuid.UUID, weeklyHourLimit *int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET weekly_hour_limit = $2, updated_at = NOW()
		WHERE id = $1
	`, id, weeklyHourLimit)
	if err != nil {
		return fmt.Errorf("contract repository: update settings %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrContractNotFound
	}
	return nil
}

// ListByParty возвращает контракты, где пользователь — клиент или фрилансер.
func (r *ContractRepository) ListByParty(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.SelectContext(ctx, &contracts, `
		SELECT * FROM contracts
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return contracts, err
}

// SyncJobStatus синхронизирует статус заказа после завершения/отмены контракта.
func (r *ContractRepository) SyncJobStatus(ctx context.Context, jobID uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1`, jobID, status)
	if err != nil {
		return fmt.Errorf("contract repository: sync job status %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob возвращает проекцию заказа.
func (r *ContractRepository) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, `SELECT id, client_id, status, updated_at FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}
