package models

import "time"

// Имена batch-задач
const (
	CronJobWeeklyBilling = "weekly_billing"
	CronJobWeeklyPayout  = "weekly_payout"
)

// CronLease — персистентная аренда batch-задачи. Следующий запуск не
// начинается, пока предыдущий держит неистёкшую аренду.
type CronLease struct {
	JobName    string    `db:"job_name"`
	Owner      string    `db:"owner"`
	AcquiredAt time.Time `db:"acquired_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}
