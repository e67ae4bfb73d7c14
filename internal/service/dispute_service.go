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

type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	TakeUnderReview(ctx context.Context, id uuid.UUID) error
	Resolve(ctx context.Context, id uuid.UUID, toStatus, resolution string, resolvedBy uuid.UUID) error
	Cancel(ctx context.Context, id, initiatorID uuid.UUID) error
	HasOpenByContract(ctx context.Context, contractID uuid.UUID) (bool, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error)
}

// DisputeService управляет спорами по контрактам. Резолюция спора только
// фиксирует решение арбитра: движение денег остаётся за обычными путями
// вех и табелей.
type DisputeService struct {
	repo      DisputeRepository
	contracts ContractRepository
	log       *logrus.Entry
}

func NewDisputeService(repo DisputeRepository, contracts ContractRepository, log *logrus.Entry) *DisputeService {
	return &DisputeService{repo: repo, contracts: contracts, log: log}
}

// Open открывает спор по контракту. Может любая сторона, второй открытый
// спор по тому же контракту не допускается.
func (s *DisputeService) Open(ctx context.Context, contractID, userID uuid.UUID, milestoneID *uuid.UUID, reason string) (*models.Dispute, error) {
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
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора обязательна")
	}

	open, err := s.repo.HasOpenByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже открыт спор")
	}

	dispute := &models.Dispute{
		ContractID:  contractID,
		MilestoneID: milestoneID,
		InitiatorID: userID,
		Reason:      reason,
	}
	if err := s.repo.Create(ctx, dispute); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"dispute_id": dispute.ID, "contract_id": contractID}).
		Info("открыт спор")
	return dispute, nil
}

// TakeUnderReview — арбитр берёт спор в работу.
func (s *DisputeService) TakeUnderReview(ctx context.Context, disputeID uuid.UUID, role string) error {
	if role != models.RoleAdmin {
		return apperror.ErrForbidden
	}
	if err := s.repo.TakeUnderReview(ctx, disputeID); err != nil {
		if errors.Is(err, repository.ErrDisputeBadStatus) {
			return apperror.New(apperror.ErrCodeState, "спор не открыт")
		}
		return err
	}
	return nil
}

// Resolve — арбитр решает спор в пользу одной из сторон.
func (s *DisputeService) Resolve(ctx context.Context, disputeID, arbiterID uuid.UUID, role string, inFavorOfClient bool, resolution string) error {
	if role != models.RoleAdmin {
		return apperror.ErrForbidden
	}
	toStatus := models.DisputeStatusResolvedFreelancer
	if inFavorOfClient {
		toStatus = models.DisputeStatusResolvedClient
	}
	if err := s.repo.Resolve(ctx, disputeID, toStatus, resolution, arbiterID); err != nil {
		if errors.Is(err, repository.ErrDisputeBadStatus) {
			return apperror.New(apperror.ErrCodeState, "спор уже закрыт")
		}
		return err
	}
	s.log.WithFields(logrus.Fields{"dispute_id": disputeID, "status": toStatus}).Info("спор решён")
	return nil
}

// Cancel — инициатор отзывает свой открытый спор.
func (s *DisputeService) Cancel(ctx context.Context, disputeID, userID uuid.UUID) error {
	if err := s.repo.Cancel(ctx, disputeID, userID); err != nil {
		if errors.Is(err, repository.ErrDisputeBadStatus) {
			return apperror.New(apperror.ErrCodeState, "спор нельзя отозвать")
		}
		return err
	}
	return nil
}

// List возвращает споры по контракту стороне сделки.
func (s *DisputeService) List(ctx context.Context, contractID, userID uuid.UUID) ([]models.Dispute, error) {
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
	return s.repo.ListByContract(ctx, contractID)
}
