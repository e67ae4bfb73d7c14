package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-billing/internal/models"
)

var ErrLedgerEntryNotFound = errors.New("ledger entry not found")

// LedgerRepository работает с журналом escrow_transactions.
// Журнал append-only: строки никогда не удаляются и не переписываются,
// допустим только переход статуса pending → completed|failed.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// MarkCompletedByGatewayRef переводит pending-строки по ссылке шлюза в completed.
// Повторная доставка события — no-op благодаря условию status = 'pending'.
// Возвращает количество затронутых строк.
func (r *LedgerRepository) MarkCompletedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE escrow_transactions SET status = 'completed', completed_at = NOW()
		WHERE gateway_reference = $1 AND status = 'pending'
	`, gatewayRef)
	if err != nil {
		return 0, fmt.Errorf("ledger repository: mark completed %w", err)
	}
	return res.RowsAffected()
}

// MarkFailedByGatewayRef переводит pending-строки по ссылке шлюза в failed.
func (r *LedgerRepository) MarkFailedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE escrow_transactions SET status = 'failed'
		WHERE gateway_reference = $1 AND status = 'pending'
	`, gatewayRef)
	if err != nil {
		return 0, fmt.Errorf("ledger repository: mark failed %w", err)
	}
	return res.RowsAffected()
}

// InsertRefundForGatewayRef находит исходную fund-строку по ссылке шлюза и
// добавляет новую refund-строку на возвращённую сумму. История не мутируется,
// возвраты всегда аддитивны.
func (r *LedgerRepository) InsertRefundForGatewayRef(ctx context.Context, gatewayRef string, amount decimal.Decimal) (*models.EscrowTransaction, error) {
	var original models.EscrowTransaction
	err := r.db.GetContext(ctx, &original, `
		SELECT * FROM escrow_transactions
		WHERE gateway_reference = $1 AND type = 'fund'
		ORDER BY created_at LIMIT 1
	`, gatewayRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLedgerEntryNotFound
		}
		return nil, err
	}

	var refund models.EscrowTransaction
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO escrow_transactions (contract_id, milestone_id, timesheet_id, type, amount, currency, status, gateway_reference, completed_at)
		VALUES ($1, $2, $3, 'refund', $4, $5, 'completed', $6, NOW())
		RETURNING id, contract_id, milestone_id, timesheet_id, type, amount, currency, status, gateway_reference, created_at, completed_at
	`, original.ContractID, original.MilestoneID, original.TimesheetID, amount, original.Currency, gatewayRef).StructScan(&refund)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: insert refund %w", err)
	}
	return &refund, nil
}

// ListByGatewayRef возвращает строки журнала, привязанные к операции шлюза.
func (r *LedgerRepository) ListByGatewayRef(ctx context.Context, gatewayRef string) ([]models.EscrowTransaction, error) {
	var entries []models.EscrowTransaction
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM escrow_transactions WHERE gateway_reference = $1 ORDER BY created_at
	`, gatewayRef)
	return entries, err
}

// EscrowBalance возвращает эскроу-баланс контракта:
// Σfund(completed) − Σrelease(completed) − Σrefund(completed).
func (r *LedgerRepository) EscrowBalance(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(CASE type
			WHEN 'fund' THEN amount
			WHEN 'release' THEN -amount
			WHEN 'refund' THEN -amount
			ELSE 0 END), 0)
		FROM escrow_transactions
		WHERE contract_id = $1 AND status = 'completed'
	`, contractID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger repository: escrow balance %w", err)
	}
	return balance, nil
}

// FreelancerEarned возвращает заработок фрилансера:
// Σrelease(completed) − Σplatform_fee(completed) по его контрактам.
func (r *LedgerRepository) FreelancerEarned(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	var earned decimal.Decimal
	err := r.db.GetContext(ctx, &earned, `
		SELECT COALESCE(SUM(CASE t.type
			WHEN 'release' THEN t.amount
			WHEN 'platform_fee' THEN -t.amount
			ELSE 0 END), 0)
		FROM escrow_transactions t
		JOIN contracts c ON c.id = t.contract_id
		WHERE c.freelancer_id = $1 AND t.status = 'completed'
	`, freelancerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger repository: freelancer earned %w", err)
	}
	return earned, nil
}

// LifetimeReleased возвращает пожизненный объём completed-release фрилансера.
// Используется ступенчатой ставкой комиссии платформы.
func (r *LedgerRepository) LifetimeReleased(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM escrow_transactions t
		JOIN contracts c ON c.id = t.contract_id
		WHERE c.freelancer_id = $1 AND t.type = 'release' AND t.status = 'completed'
	`, freelancerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger repository: lifetime released %w", err)
	}
	return total, nil
}

// ListByContract возвращает журнал контракта.
func (r *LedgerRepository) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.EscrowTransaction, error) {
	var entries []models.EscrowTransaction
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM escrow_transactions
		WHERE contract_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, contractID, limit, offset)
	return entries, err
}

// HasCompletedFund проверяет наличие completed-строки fund по вехе
// на сумму не меньше required.
func (r *LedgerRepository) HasCompletedFund(ctx context.Context, milestoneID uuid.UUID, required decimal.Decimal) (bool, error) {
	var funded decimal.Decimal
	err := r.db.GetContext(ctx, &funded, `
		SELECT COALESCE(SUM(amount), 0) FROM escrow_transactions
		WHERE milestone_id = $1 AND type = 'fund' AND status = 'completed'
	`, milestoneID)
	if err != nil {
		return false, err
	}
	return funded.GreaterThanOrEqual(required), nil
}
