package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var (
	ErrMilestoneNotFound   = errors.New("milestone not found")
	ErrMilestoneBadStatus  = errors.New("milestone is not in the required status")
	ErrMilestoneNotFunded  = errors.New("milestone has no completed fund entry")
)

type MilestoneRepository struct {
	db *sqlx.DB
}

func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// Create создаёт веху в статусе pending.
func (r *MilestoneRepository) Create(ctx context.Context, m *models.Milestone) error {
	query := `
		INSERT INTO milestones (contract_id, title, amount, currency, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, status, revision_count, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, m.ContractID, m.Title, m.Amount, m.Currency).
		Scan(&m.ID, &m.Status, &m.RevisionCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("milestone repository: create %w", err)
	}
	return nil
}

// GetByID возвращает веху по идентификатору.
func (r *MilestoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	return common.GetByID[models.Milestone](ctx, r.db, "milestones", id, ErrMilestoneNotFound)
}

// ListByContract возвращает вехи контракта.
func (r *MilestoneRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.SelectContext(ctx, &milestones, `
		SELECT * FROM milestones WHERE contract_id = $1 ORDER BY created_at
	`, contractID)
	return milestones, err
}

// Fund атомарно переводит веху pending → in_progress и вставляет pending-строки
// fund и client_fee, привязанные к одному платёжному интенту: сумма строк
// журнала по ссылке шлюза равна списанной с карты сумме до цента.
// Финализирует строки reconciliation.
func (r *MilestoneRepository) Fund(ctx context.Context, milestoneID uuid.UUID, clientFee decimal.Decimal, gatewayRef string) (*models.EscrowTransaction, error) {
	var entry models.EscrowTransaction

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		milestone, err := lockMilestone(ctx, tx, milestoneID)
		if err != nil {
			return err
		}
		if milestone.Status != models.MilestoneStatusPending {
			return ErrMilestoneBadStatus
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE milestones SET status = 'in_progress', funded_at = $2, updated_at = NOW()
			WHERE id = $1
		`, milestoneID, now)
		if err != nil {
			return err
		}

		if clientFee.IsPositive() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO escrow_transactions (contract_id, milestone_id, type, amount, currency, status, gateway_reference)
				VALUES ($1, $2, 'client_fee', $3, $4, 'pending', $5)
			`, milestone.ContractID, milestoneID, clientFee, milestone.Currency, gatewayRef)
			if err != nil {
				return err
			}
		}

		return tx.QueryRowxContext(ctx, `
			INSERT INTO escrow_transactions (contract_id, milestone_id, type, amount, currency, status, gateway_reference)
			VALUES ($1, $2, 'fund', $3, $4, 'pending', $5)
			RETURNING id, contract_id, milestone_id, timesheet_id, type, amount, currency, status, gateway_reference, created_at, completed_at
		`, milestone.ContractID, milestoneID, milestone.Amount, milestone.Currency, gatewayRef).StructScan(&entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Submit переводит веху in_progress|revision_requested → submitted.
func (r *MilestoneRepository) Submit(ctx context.Context, milestoneID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE milestones SET status = 'submitted', submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('in_progress', 'revision_requested')
	`, milestoneID)
	if err != nil {
		return fmt.Errorf("milestone repository: submit %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrMilestoneBadStatus
	}
	return nil
}

// RequestRevision переводит веху submitted → revision_requested и увеличивает счётчик доработок.
func (r *MilestoneRepository) RequestRevision(ctx context.Context, milestoneID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE milestones SET status = 'revision_requested', revision_count = revision_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
	`, milestoneID)
	if err != nil {
		return fmt.Errorf("milestone repository: request revision %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrMilestoneBadStatus
	}
	return nil
}

// Accept атомарно: проверяет, что по вехе есть completed-строка fund не меньше
// суммы вехи, переводит веху submitted → accepted и вставляет completed-строки
// release и platform_fee. Это единственный путь выплаты по fixed-price контракту.
func (r *MilestoneRepository) Accept(ctx context.Context, milestoneID uuid.UUID, platformFee decimal.Decimal) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		milestone, err := lockMilestone(ctx, tx, milestoneID)
		if err != nil {
			return err
		}
		if milestone.Status != models.MilestoneStatusSubmitted {
			return ErrMilestoneBadStatus
		}

		// release возможен только при наличии completed fund >= суммы вехи
		var funded decimal.Decimal
		err = tx.GetContext(ctx, &funded, `
			SELECT COALESCE(SUM(amount), 0) FROM escrow_transactions
			WHERE milestone_id = $1 AND type = 'fund' AND status = 'completed'
		`, milestoneID)
		if err != nil {
			return err
		}
		if funded.LessThan(milestone.Amount) {
			return ErrMilestoneNotFunded
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE milestones SET status = 'accepted', accepted_at = NOW(), updated_at = NOW()
			WHERE id = $1
		`, milestoneID)
		if err != nil {
			return err
		}

		// release и platform_fee — внутреннее движение денег, сразу completed
		_, err = tx.ExecContext(ctx, `
			INSERT INTO escrow_transactions (contract_id, milestone_id, type, amount, currency, status, completed_at)
			VALUES ($1, $2, 'release', $3, $4, 'completed', NOW())
		`, milestone.ContractID, milestoneID, milestone.Amount, milestone.Currency)
		if err != nil {
			return err
		}

		if platformFee.IsPositive() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO escrow_transactions (contract_id, milestone_id, type, amount, currency, status, completed_at)
				VALUES ($1, $2, 'platform_fee', $3, $4, 'completed', NOW())
			`, milestone.ContractID, milestoneID, platformFee, milestone.Currency)
		}
		return err
	})
}

// RevertFunding возвращает веху in_progress → pending после отказа шлюза
// в списании. Клиент сможет профинансировать веху повторно.
func (r *MilestoneRepository) RevertFunding(ctx context.Context, milestoneID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE milestones SET status = 'pending', funded_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`, milestoneID)
	if err != nil {
		return fmt.Errorf("milestone repository: revert funding %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrMilestoneBadStatus
	}
	return nil
}

// lockMilestone читает веху с блокировкой строки.
func lockMilestone(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Milestone, error) {
	var milestone models.Milestone
	err := tx.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	return &milestone, nil
}
