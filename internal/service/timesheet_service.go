package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type TimesheetRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.WeeklyTimesheet, error)
	GetOrCreateWeek(ctx context.Context, contractID uuid.UUID, weekStart, weekEnd time.Time, currency string) (*models.WeeklyTimesheet, error)
	AddTimeEntry(ctx context.Context, entry *models.TimeEntry) error
	SumMinutes(ctx context.Context, timesheetID uuid.UUID) (int, error)
	Submit(ctx context.Context, timesheetID uuid.UUID, totalMinutes int, totalAmount decimal.Decimal) error
	UpdateStatus(ctx context.Context, timesheetID uuid.UUID, toStatus string) error
	ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.WeeklyTimesheet, error)
}

type TimesheetService struct {
	repo      TimesheetRepository
	contracts ContractRepository
	log       *logrus.Entry
}

func NewTimesheetService(repo TimesheetRepository, contracts ContractRepository, log *logrus.Entry) *TimesheetService {
	return &TimesheetService{repo: repo, contracts: contracts, log: log}
}

// weekBounds возвращает границы ISO-недели даты: понедельник 00:00 UTC
// включительно, следующий понедельник исключительно.
func weekBounds(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 7)
}

// AddTimeEntry записывает отработанное время. Только фрилансер активного
// hourly-контракта, только текущая или прошедшие недели.
func (s *TimesheetService) AddTimeEntry(ctx context.Context, contractID, userID uuid.UUID, workDate time.Time, minutes int, description *string) (*models.TimeEntry, error) {
	contract, err := s.activeHourlyContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.FreelancerID != userID {
		return nil, apperror.ErrForbidden
	}
	if minutes <= 0 || minutes > 24*60 {
		return nil, apperror.New(apperror.ErrCodeValidation, "минуты должны быть в диапазоне 1..1440")
	}
	if workDate.After(time.Now().UTC()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя записывать время в будущее")
	}

	weekStart, weekEnd := weekBounds(workDate)
	ts, err := s.repo.GetOrCreateWeek(ctx, contractID, weekStart, weekEnd, contract.Currency)
	if err != nil {
		return nil, err
	}
	if ts.Status != models.TimesheetStatusPending {
		return nil, apperror.New(apperror.ErrCodeState, "табель за эту неделю уже сдан")
	}

	entry := &models.TimeEntry{
		TimesheetID: ts.ID,
		ContractID:  contractID,
		WorkDate:    workDate.UTC().Truncate(24 * time.Hour),
		Minutes:     minutes,
		Description: description,
	}
	if err := s.repo.AddTimeEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Submit — фрилансер сдаёт недельный табель. Минуты сверх недельного лимита
// часов контракта не оплачиваются, сумма считается по ставке и округляется
// до цента half-up.
func (s *TimesheetService) Submit(ctx context.Context, timesheetID, userID uuid.UUID) (*models.WeeklyTimesheet, error) {
	ts, err := s.getTimesheet(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, ts.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.FreelancerID != userID {
		return nil, apperror.ErrForbidden
	}
	if contract.HourlyRate == nil {
		return nil, apperror.New(apperror.ErrCodeState, "контракт не почасовой")
	}

	totalMinutes, err := s.repo.SumMinutes(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if totalMinutes == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "в табеле нет записей времени")
	}

	billableMinutes := totalMinutes
	if contract.WeeklyHourLimit != nil {
		if limit := *contract.WeeklyHourLimit * 60; billableMinutes > limit {
			billableMinutes = limit
		}
	}

	amount := contract.HourlyRate.
		Mul(decimal.New(int64(billableMinutes), 0)).
		Div(decimal.New(60, 0)).
		Round(2)

	if err := s.repo.Submit(ctx, timesheetID, totalMinutes, amount); err != nil {
		if errors.Is(err, repository.ErrTimesheetBadStatus) {
			return nil, apperror.New(apperror.ErrCodeState, "табель уже сдан")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"timesheet_id": timesheetID,
		"minutes":      totalMinutes,
		"amount":       amount,
	}).Info("недельный табель сдан")
	return s.repo.GetByID(ctx, timesheetID)
}

// Approve — клиент подтверждает сданный табель, после чего тот попадает
// в очередь недельного списания.
func (s *TimesheetService) Approve(ctx context.Context, timesheetID, userID uuid.UUID) error {
	return s.review(ctx, timesheetID, userID, models.TimesheetStatusApproved)
}

// Dispute — клиент оспаривает сданный табель, списания по нему не будет
// до разрешения спора.
func (s *TimesheetService) Dispute(ctx context.Context, timesheetID, userID uuid.UUID) error {
	return s.review(ctx, timesheetID, userID, models.TimesheetStatusDisputed)
}

// List возвращает табели контракта стороне сделки.
func (s *TimesheetService) List(ctx context.Context, contractID, userID uuid.UUID, limit, offset int) ([]models.WeeklyTimesheet, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(userID) {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByContract(ctx, contractID, limit, offset)
}

func (s *TimesheetService) review(ctx context.Context, timesheetID, userID uuid.UUID, toStatus string) error {
	ts, err := s.getTimesheet(ctx, timesheetID)
	if err != nil {
		return err
	}
	contract, err := s.contracts.GetByID(ctx, ts.ContractID)
	if err != nil {
		return err
	}
	if contract.ClientID != userID {
		return apperror.ErrForbidden
	}

	if err := s.repo.UpdateStatus(ctx, timesheetID, toStatus); err != nil {
		if errors.Is(err, repository.ErrTimesheetBadStatus) {
			return apperror.New(apperror.ErrCodeState, "табель не сдан")
		}
		return err
	}
	return nil
}

func (s *TimesheetService) getTimesheet(ctx context.Context, id uuid.UUID) (*models.WeeklyTimesheet, error) {
	ts, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTimesheetNotFound) {
			return nil, apperror.ErrTimesheetNotFound
		}
		return nil, err
	}
	return ts, nil
}

func (s *TimesheetService) activeHourlyContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.ContractType != models.ContractTypeHourly {
		return nil, apperror.New(apperror.ErrCodeState, "запись времени доступна только hourly-контрактам")
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeState, "контракт не активен")
	}
	return contract, nil
}
