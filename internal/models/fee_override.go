package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeOverride — персональная ставка комиссии платформы для пары
// клиент-фрилансер, имеет приоритет над ступенчатой ставкой по объёму.
type FeeOverride struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ClientID        uuid.UUID       `db:"client_id" json:"client_id"`
	FreelancerID    uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	PlatformFeeRate decimal.Decimal `db:"platform_fee_rate" json:"platform_fee_rate"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
