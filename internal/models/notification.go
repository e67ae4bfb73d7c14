package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений движка
const (
	NotificationPayoutFailed    = "payout_failed"
	NotificationPayoutUnclaimed = "payout_unclaimed"
	NotificationPayoutCompleted = "payout_completed"
	NotificationMilestoneFunded = "milestone_funded"
	NotificationWeeklyInvoice   = "weekly_invoice"
)

// Приоритеты уведомлений
const (
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

// Notification — пользовательское уведомление.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Body      string          `db:"body" json:"body"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	Priority  string          `db:"priority" json:"priority"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
