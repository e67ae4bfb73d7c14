package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// CronLeaseRepository реализует персистентную аренду batch-задач.
// Захват — условный upsert: строка переписывается, только если прежняя
// аренда истекла. Это исключает пересечение запусков между экземплярами.
type CronLeaseRepository struct {
	db *sqlx.DB
}

func NewCronLeaseRepository(db *sqlx.DB) *CronLeaseRepository {
	return &CronLeaseRepository{db: db}
}

// Acquire пытается захватить аренду задачи на ttl.
// Возвращает false, если задачу держит другой владелец.
func (r *CronLeaseRepository) Acquire(ctx context.Context, jobName, owner string, ttl time.Duration) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cron_leases (job_name, owner, acquired_at, expires_at)
		VALUES ($1, $2, NOW(), NOW() + $3::interval)
		ON CONFLICT (job_name) DO UPDATE
		SET owner = EXCLUDED.owner, acquired_at = NOW(), expires_at = NOW() + $3::interval
		WHERE cron_leases.expires_at < NOW()
	`, jobName, owner, ttl.String())
	if err != nil {
		return false, fmt.Errorf("cron lease repository: acquire %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Release отпускает аренду, если её держит owner.
func (r *CronLeaseRepository) Release(ctx context.Context, jobName, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cron_leases SET expires_at = NOW()
		WHERE job_name = $1 AND owner = $2
	`, jobName, owner)
	if err != nil {
		return fmt.Errorf("cron lease repository: release %w", err)
	}
	return nil
}
