package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// FeeOverrideRepository хранит персональные ставки комиссии и вместе с
// журналом реализует источник ставок для калькулятора комиссий.
type FeeOverrideRepository struct {
	db     *sqlx.DB
	ledger *LedgerRepository
}

func NewFeeOverrideRepository(db *sqlx.DB, ledger *LedgerRepository) *FeeOverrideRepository {
	return &FeeOverrideRepository{db: db, ledger: ledger}
}

// PlatformFeeOverride возвращает персональную ставку пары клиент-фрилансер
// или nil, если её нет.
func (r *FeeOverrideRepository) PlatformFeeOverride(ctx context.Context, clientID, freelancerID uuid.UUID) (*decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.db.GetContext(ctx, &rate, `
		SELECT platform_fee_rate FROM fee_overrides
		WHERE client_id = $1 AND freelancer_id = $2
	`, clientID, freelancerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fee override repository: get %w", err)
	}
	return &rate, nil
}

// LifetimeReleased делегирует журналу подсчёт пожизненного объёма release.
func (r *FeeOverrideRepository) LifetimeReleased(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	return r.ledger.LifetimeReleased(ctx, freelancerID)
}

// Set сохраняет персональную ставку для пары клиент-фрилансер.
func (r *FeeOverrideRepository) Set(ctx context.Context, clientID, freelancerID uuid.UUID, rate decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fee_overrides (client_id, freelancer_id, platform_fee_rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id, freelancer_id) DO UPDATE SET platform_fee_rate = EXCLUDED.platform_fee_rate
	`, clientID, freelancerID, rate)
	if err != nil {
		return fmt.Errorf("fee override repository: set %w", err)
	}
	return nil
}
