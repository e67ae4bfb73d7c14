package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы вех
const (
	MilestoneStatusPending           = "pending"
	MilestoneStatusInProgress        = "in_progress"
	MilestoneStatusSubmitted         = "submitted"
	MilestoneStatusRevisionRequested = "revision_requested"
	MilestoneStatusAccepted          = "accepted"
)

// Milestone представляет оплачиваемый этап fixed-price контракта.
// Инвариант: ledger-строка release по вехе может существовать только если
// по ней уже есть completed-строка fund на ту же или большую сумму и веха
// находится в статусе accepted.
type Milestone struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	ContractID    uuid.UUID       `db:"contract_id" json:"contract_id"`
	Title         string          `db:"title" json:"title"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	Status        string          `db:"status" json:"status"`
	RevisionCount int             `db:"revision_count" json:"revision_count"`
	FundedAt      *time.Time      `db:"funded_at" json:"funded_at,omitempty"`
	SubmittedAt   *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	AcceptedAt    *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
