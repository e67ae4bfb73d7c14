package cron

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

type LeaseRepository interface {
	Acquire(ctx context.Context, jobName, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, jobName, owner string) error
}

// Scheduler запускает недельные batch-задачи по расписанию. Перед каждым
// запуском захватывается персистентная аренда: пока её держит другой
// экземпляр или незавершённый прошлый запуск, задача пропускается.
type Scheduler struct {
	cron     *cron.Cron
	leases   LeaseRepository
	billing  *service.BillingService
	payouts  *service.PayoutService
	owner    string
	leaseTTL time.Duration
	log      *logrus.Entry
}

func NewScheduler(
	leases LeaseRepository,
	billing *service.BillingService,
	payouts *service.PayoutService,
	leaseTTL time.Duration,
	log *logrus.Entry,
) *Scheduler {
	hostname, _ := os.Hostname()
	return &Scheduler{
		cron:     cron.New(),
		leases:   leases,
		billing:  billing,
		payouts:  payouts,
		owner:    fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
		leaseTTL: leaseTTL,
		log:      log,
	}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(billingSpec, payoutSpec string) error {
	err := s.cron.AddFunc(billingSpec, func() {
		s.runLeased(models.CronJobWeeklyBilling, func(ctx context.Context) error {
			_, err := s.billing.RunWeeklyBilling(ctx)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("cron: billing spec %q: %w", billingSpec, err)
	}

	err = s.cron.AddFunc(payoutSpec, func() {
		s.runLeased(models.CronJobWeeklyPayout, func(ctx context.Context) error {
			_, err := s.payouts.RunWeeklyPayouts(ctx)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("cron: payout spec %q: %w", payoutSpec, err)
	}

	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"billing_spec": billingSpec,
		"payout_spec":  payoutSpec,
		"owner":        s.owner,
	}).Info("планировщик batch-задач запущен")
	return nil
}

// Stop останавливает планировщик. Уже идущие запуски не прерываются.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runLeased(jobName string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.leaseTTL)
	defer cancel()

	acquired, err := s.leases.Acquire(ctx, jobName, s.owner, s.leaseTTL)
	if err != nil {
		s.log.WithError(err).WithField("job", jobName).Error("не удалось захватить аренду")
		return
	}
	if !acquired {
		s.log.WithField("job", jobName).Warn("аренда занята, запуск пропущен")
		return
	}
	defer func() {
		if err := s.leases.Release(context.Background(), jobName, s.owner); err != nil {
			s.log.WithError(err).WithField("job", jobName).Warn("не удалось отпустить аренду")
		}
	}()

	s.log.WithField("job", jobName).Info("batch-задача стартовала")
	if err := run(ctx); err != nil {
		s.log.WithError(err).WithField("job", jobName).Error("batch-задача завершилась с ошибкой")
		return
	}
	s.log.WithField("job", jobName).Info("batch-задача завершена")
}
