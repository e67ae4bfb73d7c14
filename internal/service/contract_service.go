package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type ContractRepository interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, fromStatuses []string, toStatus string) error
	UpdateSettings(ctx context.Context, id uuid.UUID, weeklyHourLimit *int) error
	ListByParty(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error)
	SyncJobStatus(ctx context.Context, jobID uuid.UUID, status string) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
}

type ContractDisputeRepository interface {
	HasOpenByContract(ctx context.Context, contractID uuid.UUID) (bool, error)
}

type ContractService struct {
	repo     ContractRepository
	disputes ContractDisputeRepository
	log      *logrus.Entry
}

func NewContractService(repo ContractRepository, disputes ContractDisputeRepository, log *logrus.Entry) *ContractService {
	return &ContractService{repo: repo, disputes: disputes, log: log}
}

type CreateContractInput struct {
	JobID           uuid.UUID
	ClientID        uuid.UUID
	FreelancerID    uuid.UUID
	ContractType    string
	TotalAmount     *string
	HourlyRate      *string
	WeeklyHourLimit *int
	Currency        string
}

// Create создаёт контракт при принятии отклика. Fixed-контракту обязательна
// общая сумма, hourly-контракту — часовая ставка.
func (s *ContractService) Create(ctx context.Context, in CreateContractInput) (*models.Contract, error) {
	if _, ok := models.ValidContractTypes[in.ContractType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип контракта")
	}
	if in.ClientID == in.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "клиент и фрилансер должны быть разными пользователями")
	}

	contract := &models.Contract{
		JobID:           in.JobID,
		ClientID:        in.ClientID,
		FreelancerID:    in.FreelancerID,
		ContractType:    in.ContractType,
		WeeklyHourLimit: in.WeeklyHourLimit,
		Currency:        in.Currency,
		Status:          models.ContractStatusActive,
	}
	if contract.Currency == "" {
		contract.Currency = "USD"
	}

	switch in.ContractType {
	case models.ContractTypeFixed:
		amount, err := parsePositiveAmount(in.TotalAmount)
		if err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "fixed-контракту нужна положительная общая сумма")
		}
		contract.TotalAmount = amount
	case models.ContractTypeHourly:
		rate, err := parsePositiveAmount(in.HourlyRate)
		if err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "hourly-контракту нужна положительная часовая ставка")
		}
		contract.HourlyRate = rate
	}

	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"type":        contract.ContractType,
	}).Info("контракт создан")
	return contract, nil
}

// Get возвращает контракт стороне сделки.
func (s *ContractService) Get(ctx context.Context, contractID, userID uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(userID) {
		return nil, apperror.ErrForbidden
	}
	return contract, nil
}

// List возвращает контракты пользователя.
func (s *ContractService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByParty(ctx, userID, limit, offset)
}

// Pause приостанавливает контракт. Доступно любой стороне; приостановка
// замораживает новые списания, но не движение уже удержанных денег.
func (s *ContractService) Pause(ctx context.Context, contractID, userID uuid.UUID) error {
	if _, err := s.Get(ctx, contractID, userID); err != nil {
		return err
	}
	return s.transition(ctx, contractID,
		[]string{models.ContractStatusActive}, models.ContractStatusPaused)
}

// Resume возобновляет приостановленный контракт.
func (s *ContractService) Resume(ctx context.Context, contractID, userID uuid.UUID) error {
	if _, err := s.Get(ctx, contractID, userID); err != nil {
		return err
	}
	return s.transition(ctx, contractID,
		[]string{models.ContractStatusPaused}, models.ContractStatusActive)
}

// Complete завершает контракт и помечает заказ выполненным. Завершение
// доступно только клиенту, только из active и блокируется открытым спором;
// приостановленный контракт сначала возобновляют.
func (s *ContractService) Complete(ctx context.Context, contractID, userID uuid.UUID) error {
	contract, err := s.Get(ctx, contractID, userID)
	if err != nil {
		return err
	}
	if contract.ClientID != userID {
		return apperror.ErrForbidden
	}

	open, err := s.disputes.HasOpenByContract(ctx, contractID)
	if err != nil {
		return err
	}
	if open {
		return apperror.New(apperror.ErrCodeState, "по контракту открыт спор")
	}

	err = s.transition(ctx, contractID,
		[]string{models.ContractStatusActive},
		models.ContractStatusCompleted)
	if err != nil {
		return err
	}

	if err := s.repo.SyncJobStatus(ctx, contract.JobID, models.JobStatusCompleted); err != nil {
		s.log.WithError(err).WithField("job_id", contract.JobID).
			Warn("не удалось синхронизировать статус заказа")
	}
	return nil
}

// Cancel отменяет контракт и возвращает заказ в открытые.
func (s *ContractService) Cancel(ctx context.Context, contractID, userID uuid.UUID) error {
	contract, err := s.Get(ctx, contractID, userID)
	if err != nil {
		return err
	}
	if contract.ClientID != userID {
		return apperror.ErrForbidden
	}

	err = s.transition(ctx, contractID,
		[]string{models.ContractStatusActive, models.ContractStatusPaused},
		models.ContractStatusCancelled)
	if err != nil {
		return err
	}

	if err := s.repo.SyncJobStatus(ctx, contract.JobID, models.JobStatusOpen); err != nil {
		s.log.WithError(err).WithField("job_id", contract.JobID).
			Warn("не удалось синхронизировать статус заказа")
	}
	return nil
}

// UpdateSettings меняет недельный лимит часов. Доступно только клиенту
// активного контракта; новый лимит действует со следующей недели.
func (s *ContractService) UpdateSettings(ctx context.Context, contractID, userID uuid.UUID, weeklyHourLimit *int) error {
	contract, err := s.Get(ctx, contractID, userID)
	if err != nil {
		return err
	}
	if contract.ClientID != userID {
		return apperror.ErrForbidden
	}
	if contract.Status != models.ContractStatusActive {
		return apperror.New(apperror.ErrCodeState, "контракт не активен")
	}
	if weeklyHourLimit != nil && *weeklyHourLimit <= 0 {
		return apperror.New(apperror.ErrCodeValidation, "лимит часов должен быть положительным")
	}
	return s.repo.UpdateSettings(ctx, contractID, weeklyHourLimit)
}

func (s *ContractService) transition(ctx context.Context, contractID uuid.UUID, from []string, to string) error {
	err := s.repo.UpdateStatus(ctx, contractID, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return apperror.New(apperror.ErrCodeState, "недопустимый переход статуса контракта")
		}
		return err
	}
	s.log.WithFields(logrus.Fields{"contract_id": contractID, "status": to}).Info("статус контракта изменён")
	return nil
}
