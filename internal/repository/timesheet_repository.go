package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository/common"
)

var (
	ErrTimesheetNotFound  = errors.New("timesheet not found")
	ErrTimesheetBadStatus = errors.New("timesheet is not in the required status")
	ErrTimesheetBilled    = errors.New("timesheet already billed")
)

type TimesheetRepository struct {
	db *sqlx.DB
}

func NewTimesheetRepository(db *sqlx.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// GetByID возвращает табель по идентификатору.
func (r *TimesheetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WeeklyTimesheet, error) {
	return common.GetByID[models.WeeklyTimesheet](ctx, r.db, "weekly_timesheets", id, ErrTimesheetNotFound)
}

// GetOrCreateWeek возвращает табель контракта за неделю, создавая pending-табель
// при первом обращении.
func (r *TimesheetRepository) GetOrCreateWeek(ctx context.Context, contractID uuid.UUID, weekStart, weekEnd time.Time, currency string) (*models.WeeklyTimesheet, error) {
	var ts models.WeeklyTimesheet
	err := r.db.GetContext(ctx, &ts, `
		INSERT INTO weekly_timesheets (contract_id, week_start, week_end, currency, status)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (contract_id, week_start) DO UPDATE SET updated_at = NOW()
		RETURNING *
	`, contractID, weekStart, weekEnd, currency)
	if err != nil {
		return nil, fmt.Errorf("timesheet repository: get or create week %w", err)
	}
	return &ts, nil
}

// AddTimeEntry добавляет запись времени к pending-табелю.
func (r *TimesheetRepository) AddTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	query := `
		INSERT INTO time_entries (timesheet_id, contract_id, work_date, minutes, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		entry.TimesheetID, entry.ContractID, entry.WorkDate, entry.Minutes, entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("timesheet repository: add time entry %w", err)
	}
	return nil
}

// SumMinutes возвращает суммарные минуты по табелю.
func (r *TimesheetRepository) SumMinutes(ctx context.Context, timesheetID uuid.UUID) (int, error) {
	var minutes int
	err := r.db.GetContext(ctx, &minutes, `
		SELECT COALESCE(SUM(minutes), 0) FROM time_entries WHERE timesheet_id = $1
	`, timesheetID)
	return minutes, err
}

// Submit переводит табель pending → submitted с зафиксированными итогами.
func (r *TimesheetRepository) Submit(ctx context.Context, timesheetID uuid.UUID, totalMinutes int, totalAmount decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE weekly_timesheets
		SET status = 'submitted', total_minutes = $2, total_amount = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, timesheetID, totalMinutes, totalAmount)
	if err != nil {
		return fmt.Errorf("timesheet repository: submit %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrTimesheetBadStatus
	}
	return nil
}

// UpdateStatus переводит табель submitted → approved|disputed.
func (r *TimesheetRepository) UpdateStatus(ctx context.Context, timesheetID uuid.UUID, toStatus string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE weekly_timesheets SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
	`, timesheetID, toStatus)
	if err != nil {
		return fmt.Errorf("timesheet repository: update status %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrTimesheetBadStatus
	}
	return nil
}

// ListBillable возвращает подтверждённые несписанные табели, старые недели первыми.
func (r *TimesheetRepository) ListBillable(ctx context.Context) ([]models.WeeklyTimesheet, error) {
	var sheets []models.WeeklyTimesheet
	err := r.db.SelectContext(ctx, &sheets, `
		SELECT * FROM weekly_timesheets
		WHERE status = 'approved' AND billed = FALSE
		ORDER BY week_start
	`)
	return sheets, err
}

// ListByContract возвращает табели контракта.
func (r *TimesheetRepository) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.WeeklyTimesheet, error) {
	var sheets []models.WeeklyTimesheet
	err := r.db.SelectContext(ctx, &sheets, `
		SELECT * FROM weekly_timesheets
		WHERE contract_id = $1 ORDER BY week_start DESC LIMIT $2 OFFSET $3
	`, contractID, limit, offset)
	return sheets, err
}

// Bill атомарно фиксирует результат успешного недельного списания: вставляет
// pending-строки fund и client_fee, привязанные к платёжному интенту, создаёт
// инвойс и последним действием поднимает флаг billed. Условие billed = FALSE
// делает всю последовательность безопасной к повтору: если флаг уже поднят,
// транзакция откатывается с ErrTimesheetBilled и повторного списания не будет.
func (r *TimesheetRepository) Bill(ctx context.Context, ts *models.WeeklyTimesheet, clientID uuid.UUID, clientFee decimal.Decimal, gatewayRef string) (*models.Invoice, error) {
	var invoice models.Invoice

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO escrow_transactions (contract_id, timesheet_id, type, amount, currency, status, gateway_reference)
			VALUES ($1, $2, 'fund', $3, $4, 'pending', $5)
		`, ts.ContractID, ts.ID, ts.TotalAmount, ts.Currency, gatewayRef)
		if err != nil {
			return err
		}

		// комиссия совсем маленького табеля округляется до нуля,
		// нулевую строку журнал не принимает
		if clientFee.IsPositive() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO escrow_transactions (contract_id, timesheet_id, type, amount, currency, status, gateway_reference)
				VALUES ($1, $2, 'client_fee', $3, $4, 'pending', $5)
			`, ts.ContractID, ts.ID, clientFee, ts.Currency, gatewayRef)
			if err != nil {
				return err
			}
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO invoices (contract_id, timesheet_id, client_id, amount, client_fee, total, currency, period_start, period_end)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, contract_id, timesheet_id, client_id, amount, client_fee, total, currency, period_start, period_end, issued_at
		`, ts.ContractID, ts.ID, clientID, ts.TotalAmount, clientFee,
			ts.TotalAmount.Add(clientFee), ts.Currency, ts.WeekStart, ts.WeekEnd).StructScan(&invoice)
		if err != nil {
			return err
		}

		// billed поднимается последним: переход только false → true
		res, err := tx.ExecContext(ctx, `
			UPDATE weekly_timesheets SET billed = TRUE, updated_at = NOW()
			WHERE id = $1 AND billed = FALSE
		`, ts.ID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrTimesheetBilled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// IsBilled перечитывает флаг billed непосредственно перед списанием.
func (r *TimesheetRepository) IsBilled(ctx context.Context, timesheetID uuid.UUID) (bool, error) {
	var billed bool
	err := r.db.GetContext(ctx, &billed, `SELECT billed FROM weekly_timesheets WHERE id = $1`, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrTimesheetNotFound
		}
		return false, err
	}
	return billed, nil
}
