package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заказов (таблица принадлежит CRUD-сервису, движок только
// синхронизирует статус при завершении/отмене контракта)
const (
	JobStatusOpen       = "open"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
)

// Job — минимальная проекция заказа, достаточная для синхронизации статуса.
type Job struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ClientID  uuid.UUID `db:"client_id" json:"client_id"`
	Status    string    `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
