package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы ledger-записей
const (
	LedgerTypeFund        = "fund"
	LedgerTypeRelease     = "release"
	LedgerTypeRefund      = "refund"
	LedgerTypePlatformFee = "platform_fee"
	LedgerTypeClientFee   = "client_fee"
)

// Статусы ledger-записей
const (
	LedgerStatusPending   = "pending"
	LedgerStatusCompleted = "completed"
	LedgerStatusFailed    = "failed"
)

// EscrowTransaction — неизменяемая строка финансового журнала.
// Единственная допустимая мутация — переход статуса pending → completed|failed,
// который выполняет reconciliation по ссылке на шлюз. Строки никогда не удаляются.
type EscrowTransaction struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	ContractID       uuid.UUID       `db:"contract_id" json:"contract_id"`
	MilestoneID      *uuid.UUID      `db:"milestone_id" json:"milestone_id,omitempty"`
	TimesheetID      *uuid.UUID      `db:"timesheet_id" json:"timesheet_id,omitempty"`
	Type             string          `db:"type" json:"type"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Currency         string          `db:"currency" json:"currency"`
	Status           string          `db:"status" json:"status"`
	GatewayReference *string         `db:"gateway_reference" json:"gateway_reference,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// ContractBalance — проекция эскроу-баланса одного контракта.
// escrow = Σfund(completed) − Σrelease(completed) − Σrefund(completed).
type ContractBalance struct {
	ContractID uuid.UUID       `db:"contract_id" json:"contract_id"`
	Escrow     decimal.Decimal `db:"escrow" json:"escrow"`
	Currency   string          `db:"currency" json:"currency"`
}

// FreelancerBalance — проекция заработка фрилансера.
// earned = Σrelease(completed) − Σplatform_fee(completed);
// available = earned − Σpayout(completed|pending|processing).
type FreelancerBalance struct {
	FreelancerID uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	Earned       decimal.Decimal `db:"earned" json:"earned"`
	Available    decimal.Decimal `db:"available" json:"available"`
	Currency     string          `db:"currency" json:"currency"`
}
