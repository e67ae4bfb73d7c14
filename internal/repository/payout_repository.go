package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var (
	ErrPayoutNotFound     = errors.New("payout not found")
	ErrInsufficientFunds  = errors.New("insufficient available balance")
	ErrPayoutBadStatus    = errors.New("payout is not in the required status")
)

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// GetByID возвращает выплату по идентификатору.
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return common.GetByID[models.Payout](ctx, r.db, "payouts", id, ErrPayoutNotFound)
}

// ListEligibleFreelancers возвращает фрилансеров с положительным заработком,
// для которых стоит пересчитать доступный баланс.
func (r *PayoutRepository) ListEligibleFreelancers(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT c.freelancer_id
		FROM escrow_transactions t
		JOIN contracts c ON c.id = t.contract_id
		WHERE t.type = 'release' AND t.status = 'completed'
		GROUP BY c.freelancer_id
		HAVING SUM(t.amount) > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("payout repository: list eligible freelancers %w", err)
	}
	return ids, nil
}

// SumOutstanding возвращает сумму выплат фрилансера в статусах
// pending|processing|completed. Failed-выплаты деньги не резервируют.
func (r *PayoutRepository) SumOutstanding(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM payouts
		WHERE freelancer_id = $1 AND status IN ('pending', 'processing', 'completed')
	`, freelancerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payout repository: sum outstanding %w", err)
	}
	return total, nil
}

// CreatePending создаёт pending-выплату, пересчитав доступный баланс внутри
// транзакции. Строки payouts фрилансера блокируются, чтобы параллельные вызовы
// не зарезервировали одни и те же деньги дважды.
func (r *PayoutRepository) CreatePending(ctx context.Context, p *models.Payout) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			SELECT id FROM payouts WHERE freelancer_id = $1 FOR UPDATE
		`, p.FreelancerID)
		if err != nil {
			return err
		}

		var earned decimal.Decimal
		err = tx.GetContext(ctx, &earned, `
			SELECT COALESCE(SUM(CASE t.type
				WHEN 'release' THEN t.amount
				WHEN 'platform_fee' THEN -t.amount
				ELSE 0 END), 0)
			FROM escrow_transactions t
			JOIN contracts c ON c.id = t.contract_id
			WHERE c.freelancer_id = $1 AND t.status = 'completed'
		`, p.FreelancerID)
		if err != nil {
			return err
		}

		var outstanding decimal.Decimal
		err = tx.GetContext(ctx, &outstanding, `
			SELECT COALESCE(SUM(amount), 0) FROM payouts
			WHERE freelancer_id = $1 AND status IN ('pending', 'processing', 'completed')
		`, p.FreelancerID)
		if err != nil {
			return err
		}

		if earned.Sub(outstanding).LessThan(p.Amount) {
			return ErrInsufficientFunds
		}

		return tx.QueryRowxContext(ctx, `
			INSERT INTO payouts (freelancer_id, method, amount, fee, net_amount, currency, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending')
			RETURNING id, created_at
		`, p.FreelancerID, p.Method, p.Amount, p.Fee, p.NetAmount, p.Currency).
			Scan(&p.ID, &p.CreatedAt)
	})
}

// SetProcessing привязывает ссылку шлюза и переводит выплату pending → processing.
func (r *PayoutRepository) SetProcessing(ctx context.Context, id uuid.UUID, gatewayRef string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET status = 'processing', gateway_reference = $2
		WHERE id = $1 AND status = 'pending'
	`, id, gatewayRef)
	if err != nil {
		return fmt.Errorf("payout repository: set processing %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPayoutBadStatus
	}
	return nil
}

// MarkCompletedByGatewayRef финализирует выплату по ссылке шлюза.
// PayPal возвращает ссылку батча, а элемент внутри батча имеет вид
// "<batch>:<payout_id>", поэтому сопоставляем точно или по префиксу.
func (r *PayoutRepository) MarkCompletedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET status = 'completed', processed_at = NOW()
		WHERE (gateway_reference = $1 OR gateway_reference LIKE $1 || ':%')
		  AND status IN ('pending', 'processing')
	`, gatewayRef)
	if err != nil {
		return 0, fmt.Errorf("payout repository: mark completed %w", err)
	}
	return res.RowsAffected()
}

// MarkFailedByGatewayRef переводит выплату в failed с причиной.
// Зарезервированная сумма при этом освобождается: failed не входит
// в SumOutstanding.
func (r *PayoutRepository) MarkFailedByGatewayRef(ctx context.Context, gatewayRef, reason string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET status = 'failed', failure_reason = $2, processed_at = NOW()
		WHERE (gateway_reference = $1 OR gateway_reference LIKE $1 || ':%')
		  AND status IN ('pending', 'processing')
	`, gatewayRef, reason)
	if err != nil {
		return 0, fmt.Errorf("payout repository: mark failed %w", err)
	}
	return res.RowsAffected()
}

// ForceFailByGatewayRef переводит выплату в failed независимо от текущего
// статуса: возврат средств шлюзом отменяет и уже зачисленную выплату,
// а failed освобождает сумму для следующего запуска. Условие на статус
// оставляет повторную доставку события no-op.
func (r *PayoutRepository) ForceFailByGatewayRef(ctx context.Context, gatewayRef, reason string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET status = 'failed', failure_reason = $2, processed_at = NOW()
		WHERE (gateway_reference = $1 OR gateway_reference LIKE $1 || ':%')
		  AND status <> 'failed'
	`, gatewayRef, reason)
	if err != nil {
		return 0, fmt.Errorf("payout repository: force fail %w", err)
	}
	return res.RowsAffected()
}

// MarkFailed переводит конкретную выплату в failed по идентификатору.
// Используется при синхронном отказе шлюза, когда ссылки ещё нет.
func (r *PayoutRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET status = 'failed', failure_reason = $2, processed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, id, reason)
	if err != nil {
		return fmt.Errorf("payout repository: mark failed %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPayoutBadStatus
	}
	return nil
}

// FreelancerByGatewayRef возвращает фрилансера выплаты по ссылке шлюза.
// Нужен reconciliation для уведомлений о судьбе выплаты.
func (r *PayoutRepository) FreelancerByGatewayRef(ctx context.Context, gatewayRef string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `
		SELECT freelancer_id FROM payouts
		WHERE gateway_reference = $1 OR gateway_reference LIKE $1 || ':%'
		LIMIT 1
	`, gatewayRef)
	if err != nil {
		return uuid.Nil, ErrPayoutNotFound
	}
	return id, nil
}

// ListByFreelancer возвращает историю выплат фрилансера.
func (r *PayoutRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.SelectContext(ctx, &payouts, `
		SELECT * FROM payouts
		WHERE freelancer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, freelancerID, limit, offset)
	return payouts, err
}
