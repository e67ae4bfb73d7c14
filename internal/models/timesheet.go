package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы недельных табелей
const (
	TimesheetStatusPending   = "pending"
	TimesheetStatusSubmitted = "submitted"
	TimesheetStatusApproved  = "approved"
	TimesheetStatusDisputed  = "disputed"
)

// WeeklyTimesheet агрегирует подтверждённые записи времени по одному контракту
// за одну ISO-неделю. Флаг billed — защита от повторного списания недельным
// кроном: переход только false → true, табель списывается не более одного раза.
type WeeklyTimesheet struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ContractID   uuid.UUID       `db:"contract_id" json:"contract_id"`
	WeekStart    time.Time       `db:"week_start" json:"week_start"`
	WeekEnd      time.Time       `db:"week_end" json:"week_end"`
	TotalMinutes int             `db:"total_minutes" json:"total_minutes"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency     string          `db:"currency" json:"currency"`
	Status       string          `db:"status" json:"status"`
	Billed       bool            `db:"billed" json:"billed"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// TimeEntry — одна запись отработанного времени внутри недели.
type TimeEntry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TimesheetID uuid.UUID `db:"timesheet_id" json:"timesheet_id"`
	ContractID  uuid.UUID `db:"contract_id" json:"contract_id"`
	WorkDate    time.Time `db:"work_date" json:"work_date"`
	Minutes     int       `db:"minutes" json:"minutes"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
