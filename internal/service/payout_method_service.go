package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type PayoutMethodStore interface {
	Create(ctx context.Context, m *models.PayoutMethod) error
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.PayoutMethod, error)
	Deactivate(ctx context.Context, id, freelancerID uuid.UUID) error
}

// PayoutMethodService управляет способами вывода средств фрилансера.
type PayoutMethodService struct {
	repo PayoutMethodStore
}

func NewPayoutMethodService(repo PayoutMethodStore) *PayoutMethodService {
	return &PayoutMethodService{repo: repo}
}

type AddPayoutMethodInput struct {
	Method          string
	StripeAccountID *string
	PaypalEmail     *string
	IsDefault       bool
}

// Add добавляет способ вывода. Stripe-способу обязателен подключённый
// аккаунт, PayPal-способу — адрес кошелька.
func (s *PayoutMethodService) Add(ctx context.Context, freelancerID uuid.UUID, in AddPayoutMethodInput) (*models.PayoutMethod, error) {
	method := &models.PayoutMethod{
		FreelancerID: freelancerID,
		Method:       in.Method,
		IsDefault:    in.IsDefault,
	}

	switch in.Method {
	case models.PayoutMethodStripe:
		if in.StripeAccountID == nil || *in.StripeAccountID == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "не указан подключённый аккаунт")
		}
		method.StripeAccountID = in.StripeAccountID
	case models.PayoutMethodPaypal:
		if in.PaypalEmail == nil || !strings.Contains(*in.PaypalEmail, "@") {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректный адрес кошелька")
		}
		method.PaypalEmail = in.PaypalEmail
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный способ вывода")
	}

	if err := s.repo.Create(ctx, method); err != nil {
		return nil, err
	}
	return method, nil
}

// List возвращает активные способы вывода фрилансера.
func (s *PayoutMethodService) List(ctx context.Context, freelancerID uuid.UUID) ([]models.PayoutMethod, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// Deactivate выключает способ вывода.
func (s *PayoutMethodService) Deactivate(ctx context.Context, id, freelancerID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id, freelancerID); err != nil {
		if errors.Is(err, repository.ErrPayoutMethodNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "способ вывода не найден")
		}
		return err
	}
	return nil
}
