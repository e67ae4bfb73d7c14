package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-billing/internal/pkg/feecalc"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type MilestoneRepository interface {
	Create(ctx context.Context, m *models.Milestone) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error)
	Fund(ctx context.Context, milestoneID uuid.UUID, clientFee decimal.Decimal, gatewayRef string) (*models.EscrowTransaction, error)
	Submit(ctx context.Context, milestoneID uuid.UUID) error
	RequestRevision(ctx context.Context, milestoneID uuid.UUID) error
	Accept(ctx context.Context, milestoneID uuid.UUID, platformFee decimal.Decimal) error
}

type BillingProfileRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.BillingProfile, error)
}

type MilestoneService struct {
	repo          MilestoneRepository
	contracts     ContractRepository
	profiles      BillingProfileRepository
	card          gateway.CardGateway
	fees          *feecalc.Calculator
	revisionLimit int
	log           *logrus.Entry
}

func NewMilestoneService(
	repo MilestoneRepository,
	contracts ContractRepository,
	profiles BillingProfileRepository,
	card gateway.CardGateway,
	fees *feecalc.Calculator,
	revisionLimit int,
	log *logrus.Entry,
) *MilestoneService {
	return &MilestoneService{
		repo:          repo,
		contracts:     contracts,
		profiles:      profiles,
		card:          card,
		fees:          fees,
		revisionLimit: revisionLimit,
		log:           log,
	}
}

// Create добавляет веху к fixed-контракту. Только клиент, только активный контракт.
func (s *MilestoneService) Create(ctx context.Context, contractID, userID uuid.UUID, title string, amountStr string) (*models.Milestone, error) {
	contract, err := s.activeFixedContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != userID {
		return nil, apperror.ErrForbidden
	}
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название вехи обязательно")
	}
	amount, err := parsePositiveAmount(&amountStr)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма вехи должна быть положительной")
	}

	milestone := &models.Milestone{
		ContractID: contractID,
		Title:      title,
		Amount:     *amount,
		Currency:   contract.Currency,
	}
	if err := s.repo.Create(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// List возвращает вехи контракта стороне сделки.
func (s *MilestoneService) List(ctx context.Context, contractID, userID uuid.UUID) ([]models.Milestone, error) {
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

// Fund удерживает сумму вехи в эскроу: списывает полную стоимость с карты
// клиента (сумма вехи + 5% комиссии клиента) и записывает pending-строки
// fund и client_fee под одной ссылкой шлюза. Строки станут completed
// только после вебхука об успешном списании.
func (s *MilestoneService) Fund(ctx context.Context, milestoneID, userID uuid.UUID) (*models.EscrowTransaction, error) {
	milestone, err := s.getMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	contract, err := s.activeFixedContract(ctx, milestone.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != userID {
		return nil, apperror.ErrForbidden
	}
	if milestone.Status != models.MilestoneStatusPending {
		return nil, apperror.New(apperror.ErrCodeState, "веха уже профинансирована")
	}

	profile, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBillingProfileNotFound) {
			return nil, apperror.New(apperror.ErrCodeState, "у клиента не настроен платёжный профиль")
		}
		return nil, err
	}
	if profile.GatewayCustomerID == nil || profile.DefaultPaymentMethodID == nil {
		return nil, apperror.New(apperror.ErrCodeState, "у клиента не настроен платёжный метод")
	}

	clientFee := feecalc.ClientFee(milestone.Amount)
	total := milestone.Amount.Add(clientFee)
	intent, err := s.card.CreatePaymentIntent(ctx, gateway.ChargeRequest{
		AmountCents:     feecalc.ToCents(total),
		Currency:        milestone.Currency,
		CustomerID:      *profile.GatewayCustomerID,
		PaymentMethodID: *profile.DefaultPaymentMethodID,
		IdempotencyKey:  fmt.Sprintf("milestone-fund-%s", milestoneID),
		Description:     fmt.Sprintf("Escrow for milestone %s", milestone.Title),
	})
	if err != nil {
		if errors.Is(err, gateway.ErrGatewayDeclined) {
			return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "карточный шлюз отклонил списание")
		}
		return nil, err
	}

	entry, err := s.repo.Fund(ctx, milestoneID, clientFee, intent.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMilestoneBadStatus) {
			return nil, apperror.New(apperror.ErrCodeState, "веха уже профинансирована")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"milestone_id": milestoneID,
		"intent_id":    intent.ID,
		"amount":       milestone.Amount,
	}).Info("веха профинансирована, ожидаем подтверждение шлюза")
	return entry, nil
}

// Submit — фрилансер сдаёт работу по вехе.
func (s *MilestoneService) Submit(ctx context.Context, milestoneID, userID uuid.UUID) error {
	milestone, err := s.getMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err != nil {
		return err
	}
	if contract.FreelancerID != userID {
		return apperror.ErrForbidden
	}

	if err := s.repo.Submit(ctx, milestoneID); err != nil {
		if errors.Is(err, repository.ErrMilestoneBadStatus) {
			return apperror.New(apperror.ErrCodeState, "веха не готова к сдаче")
		}
		return err
	}
	return nil
}

// RequestRevision — клиент возвращает сданную работу на доработку.
// Лимит доработок настраивается, ноль означает без ограничения.
func (s *MilestoneService) RequestRevision(ctx context.Context, milestoneID, userID uuid.UUID) error {
	milestone, err := s.getMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err != nil {
		return err
	}
	if contract.ClientID != userID {
		return apperror.ErrForbidden
	}
	if s.revisionLimit > 0 && milestone.RevisionCount >= s.revisionLimit {
		return apperror.New(apperror.ErrCodeState, "исчерпан лимит доработок по вехе")
	}

	if err := s.repo.RequestRevision(ctx, milestoneID); err != nil {
		if errors.Is(err, repository.ErrMilestoneBadStatus) {
			return apperror.New(apperror.ErrCodeState, "веха не сдана")
		}
		return err
	}
	return nil
}

// Accept — клиент принимает работу: веха закрывается, деньги эскроу
// освобождаются фрилансеру за вычетом комиссии платформы. Переход атомарный,
// release без подтверждённого fund невозможен.
func (s *MilestoneService) Accept(ctx context.Context, milestoneID, userID uuid.UUID) error {
	milestone, err := s.getMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err != nil {
		return err
	}
	if contract.ClientID != userID {
		return apperror.ErrForbidden
	}

	rate, err := s.fees.EffectiveRate(ctx, contract.ClientID, contract.FreelancerID)
	if err != nil {
		return err
	}
	platformFee := feecalc.PlatformFee(milestone.Amount, rate)

	if err := s.repo.Accept(ctx, milestoneID, platformFee); err != nil {
		switch {
		case errors.Is(err, repository.ErrMilestoneBadStatus):
			return apperror.New(apperror.ErrCodeState, "веха не сдана")
		case errors.Is(err, repository.ErrMilestoneNotFunded):
			return apperror.New(apperror.ErrCodeState, "списание по вехе ещё не подтверждено шлюзом")
		}
		return err
	}

	s.log.WithFields(logrus.Fields{
		"milestone_id": milestoneID,
		"amount":       milestone.Amount,
		"platform_fee": platformFee,
	}).Info("веха принята, средства освобождены")
	return nil
}

func (s *MilestoneService) getMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	milestone, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMilestoneNotFound) {
			return nil, apperror.ErrMilestoneNotFound
		}
		return nil, err
	}
	return milestone, nil
}

func (s *MilestoneService) activeFixedContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if contract.ContractType != models.ContractTypeFixed {
		return nil, apperror.New(apperror.ErrCodeState, "вехи доступны только fixed-контрактам")
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeState, "контракт не активен")
	}
	return contract, nil
}
