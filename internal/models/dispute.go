package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen               = "open"
	DisputeStatusUnderReview        = "under_review"
	DisputeStatusResolvedClient     = "resolved_client"
	DisputeStatusResolvedFreelancer = "resolved_freelancer"
	DisputeStatusCancelled          = "cancelled"
)

// Dispute — спор по контракту. Резолюция только фиксирует решение арбитра,
// движение денег выполняется через обычные пути вех и табелей.
type Dispute struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ContractID  uuid.UUID  `db:"contract_id" json:"contract_id"`
	MilestoneID *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`
	InitiatorID uuid.UUID  `db:"initiator_id" json:"initiator_id"`
	Reason      string     `db:"reason" json:"reason"`
	Status      string     `db:"status" json:"status"`
	Resolution  *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy  *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
