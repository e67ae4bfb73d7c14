package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы выплат
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// Способы выплат
const (
	PayoutMethodStripe = "stripe_account"
	PayoutMethodPaypal = "paypal"
)

// Payout — одна попытка перевода доступного баланса фрилансера.
// Инвариант: сумма completed+pending+processing выплат фрилансера на момент
// создания не превышает Σrelease(completed) − Σplatform_fee(completed).
type Payout struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	FreelancerID     uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	Method           string          `db:"method" json:"method"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Fee              decimal.Decimal `db:"fee" json:"fee"`
	NetAmount        decimal.Decimal `db:"net_amount" json:"net_amount"`
	Currency         string          `db:"currency" json:"currency"`
	Status           string          `db:"status" json:"status"`
	GatewayReference *string         `db:"gateway_reference" json:"gateway_reference,omitempty"`
	FailureReason    *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt      *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// PayoutMethod — настроенный фрилансером способ вывода средств.
type PayoutMethod struct {
	ID              uuid.UUID `db:"id" json:"id"`
	FreelancerID    uuid.UUID `db:"freelancer_id" json:"freelancer_id"`
	Method          string    `db:"method" json:"method"`
	StripeAccountID *string   `db:"stripe_account_id" json:"stripe_account_id,omitempty"`
	PaypalEmail     *string   `db:"paypal_email" json:"paypal_email,omitempty"`
	IsDefault       bool      `db:"is_default" json:"is_default"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
