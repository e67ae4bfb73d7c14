package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice — платёжный документ, автоматически создаваемый вместе с парой
// fund+client_fee при недельном списании. Проекция для отображения, не
// источник истины по движению денег.
type Invoice struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ContractID  uuid.UUID       `db:"contract_id" json:"contract_id"`
	TimesheetID uuid.UUID       `db:"timesheet_id" json:"timesheet_id"`
	ClientID    uuid.UUID       `db:"client_id" json:"client_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	ClientFee   decimal.Decimal `db:"client_fee" json:"client_fee"`
	Total       decimal.Decimal `db:"total" json:"total"`
	Currency    string          `db:"currency" json:"currency"`
	PeriodStart time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time       `db:"period_end" json:"period_end"`
	IssuedAt    time.Time       `db:"issued_at" json:"issued_at"`
}
