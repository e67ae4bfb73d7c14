package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы контрактов
const (
	ContractTypeFixed  = "fixed"
	ContractTypeHourly = "hourly"
)

// Статусы контрактов
const (
	ContractStatusActive    = "active"
	ContractStatusPaused    = "paused"
	ContractStatusCompleted = "completed"
	ContractStatusCancelled = "cancelled"
)

// ValidContractTypes список валидных типов контрактов
var ValidContractTypes = map[string]struct{}{
	ContractTypeFixed:  {},
	ContractTypeHourly: {},
}

// Contract описывает соглашение между клиентом и фрилансером по заказу.
// Контракт никогда не удаляется, жизненный цикл управляется через статус.
type Contract struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	JobID           uuid.UUID        `db:"job_id" json:"job_id"`
	ClientID        uuid.UUID        `db:"client_id" json:"client_id"`
	FreelancerID    uuid.UUID        `db:"freelancer_id" json:"freelancer_id"`
	ContractType    string           `db:"contract_type" json:"contract_type"`
	TotalAmount     *decimal.Decimal `db:"total_amount" json:"total_amount,omitempty"`
	HourlyRate      *decimal.Decimal `db:"hourly_rate" json:"hourly_rate,omitempty"`
	WeeklyHourLimit *int             `db:"weekly_hour_limit" json:"weekly_hour_limit,omitempty"`
	Currency        string           `db:"currency" json:"currency"`
	Status          string           `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// IsParty проверяет, является ли пользователь стороной контракта.
func (c *Contract) IsParty(userID uuid.UUID) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}
