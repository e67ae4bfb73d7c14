package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-billing/internal/pkg/feecalc"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type PayoutRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListEligibleFreelancers(ctx context.Context) ([]uuid.UUID, error)
	SumOutstanding(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error)
	CreatePending(ctx context.Context, p *models.Payout) error
	SetProcessing(ctx context.Context, id uuid.UUID, gatewayRef string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Payout, error)
}

type PayoutMethodRepository interface {
	GetPreferred(ctx context.Context, freelancerID uuid.UUID) (*models.PayoutMethod, error)
}

type EarningsRepository interface {
	FreelancerEarned(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error)
}

// PayoutItemResult — итог обработки одного фрилансера недельной выплатой.
type PayoutItemResult struct {
	FreelancerID uuid.UUID  `json:"freelancer_id"`
	PayoutID     *uuid.UUID `json:"payout_id,omitempty"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
}

// PayoutRunResult — сводка запуска недельных выплат.
type PayoutRunResult struct {
	Processed int                `json:"processed"`
	Sent      int                `json:"sent"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Items     []PayoutItemResult `json:"items"`
}

// PayoutService выплачивает доступные балансы фрилансеров.
type PayoutService struct {
	payouts   PayoutRepository
	methods   PayoutMethodRepository
	earnings  EarningsRepository
	card      gateway.CardGateway
	peer      gateway.PeerPayoutGateway
	minAmount decimal.Decimal
	peerFee   decimal.Decimal
	workers   int
	log       *logrus.Entry
}

func NewPayoutService(
	payouts PayoutRepository,
	methods PayoutMethodRepository,
	earnings EarningsRepository,
	card gateway.CardGateway,
	peer gateway.PeerPayoutGateway,
	minAmount, peerFee decimal.Decimal,
	workers int,
	log *logrus.Entry,
) *PayoutService {
	if workers <= 0 {
		workers = 4
	}
	return &PayoutService{
		payouts:   payouts,
		methods:   methods,
		earnings:  earnings,
		card:      card,
		peer:      peer,
		minAmount: minAmount,
		peerFee:   peerFee,
		workers:   workers,
		log:       log,
	}
}

// Balance возвращает заработанный и доступный к выводу баланс фрилансера.
func (s *PayoutService) Balance(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error) {
	earned, err := s.earnings.FreelancerEarned(ctx, freelancerID)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.payouts.SumOutstanding(ctx, freelancerID)
	if err != nil {
		return nil, err
	}
	return &models.FreelancerBalance{
		FreelancerID: freelancerID,
		Earned:       earned,
		Available:    earned.Sub(outstanding),
		Currency:     "USD",
	}, nil
}

// History возвращает историю выплат фрилансера.
func (s *PayoutService) History(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.payouts.ListByFreelancer(ctx, freelancerID, limit, offset)
}

// RunWeeklyPayouts выплачивает доступный баланс каждому фрилансеру с суммой
// не меньше минимального порога. Один фрилансер — одна задача пула, поэтому
// параллельные выплаты одному человеку невозможны.
func (s *PayoutService) RunWeeklyPayouts(ctx context.Context) (*PayoutRunResult, error) {
	freelancers, err := s.payouts.ListEligibleFreelancers(ctx)
	if err != nil {
		return nil, fmt.Errorf("payouts: list eligible: %w", err)
	}

	result := &PayoutRunResult{}
	pool := workerpool.New(s.workers)
	var mu sync.Mutex

	for _, freelancerID := range freelancers {
		freelancerID := freelancerID
		pool.Submit(func() {
			item := s.payOne(ctx, freelancerID)
			mu.Lock()
			result.Items = append(result.Items, item)
			switch item.Status {
			case "sent":
				result.Sent++
			case "skipped":
				result.Skipped++
			default:
				result.Failed++
			}
			mu.Unlock()
		})
	}
	pool.StopWait()

	result.Processed = len(result.Items)
	s.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"sent":      result.Sent,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("недельные выплаты завершены")
	return result, nil
}

func (s *PayoutService) payOne(ctx context.Context, freelancerID uuid.UUID) PayoutItemResult {
	item := PayoutItemResult{FreelancerID: freelancerID}

	balance, err := s.Balance(ctx, freelancerID)
	if err != nil {
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}
	if balance.Available.LessThan(s.minAmount) {
		item.Status = "skipped"
		return item
	}

	method, err := s.methods.GetPreferred(ctx, freelancerID)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutMethodNotFound) {
			item.Status = "skipped"
			return item
		}
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	payout := &models.Payout{
		FreelancerID: freelancerID,
		Method:       method.Method,
		Amount:       balance.Available,
		Fee:          decimal.Zero,
		Currency:     balance.Currency,
	}
	// маршрут через P2P-шлюз платный для получателя
	if method.Method == models.PayoutMethodPaypal {
		payout.Fee = balance.Available.Mul(s.peerFee).Round(2)
	}
	payout.NetAmount = payout.Amount.Sub(payout.Fee)

	// доступность пересчитывается ещё раз внутри транзакции CreatePending
	if err := s.payouts.CreatePending(ctx, payout); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			item.Status = "skipped"
			return item
		}
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}
	item.PayoutID = &payout.ID

	gatewayRef, err := s.send(ctx, payout, method)
	if err != nil {
		// синхронный отказ шлюза финализирует выплату сразу, без вебхука
		if markErr := s.payouts.MarkFailed(ctx, payout.ID, err.Error()); markErr != nil {
			s.log.WithError(markErr).WithField("payout_id", payout.ID).
				Error("не удалось пометить выплату failed")
		}
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	if err := s.payouts.SetProcessing(ctx, payout.ID, gatewayRef); err != nil {
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	s.log.WithFields(logrus.Fields{
		"payout_id":   payout.ID,
		"method":      payout.Method,
		"net_amount":  payout.NetAmount,
		"gateway_ref": gatewayRef,
	}).Info("выплата отправлена")
	item.Status = "sent"
	return item
}

// send выполняет перевод через шлюз, соответствующий способу вывода.
// Идемпотентный ключ — идентификатор выплаты: повтор после сетевого сбоя
// не создаёт второй перевод.
func (s *PayoutService) send(ctx context.Context, payout *models.Payout, method *models.PayoutMethod) (string, error) {
	switch method.Method {
	case models.PayoutMethodStripe:
		if method.StripeAccountID == nil {
			return "", apperror.New(apperror.ErrCodeState, "у способа вывода нет подключённого аккаунта")
		}
		enabled, err := s.card.AccountPayoutsEnabled(ctx, *method.StripeAccountID)
		if err != nil {
			return "", err
		}
		if !enabled {
			return "", apperror.New(apperror.ErrCodeState, "подключённый аккаунт не готов к выплатам")
		}
		return s.card.CreateTransfer(ctx, gateway.TransferRequest{
			AmountCents:    feecalc.ToCents(payout.NetAmount),
			Currency:       payout.Currency,
			AccountID:      *method.StripeAccountID,
			IdempotencyKey: payout.ID.String(),
		})
	case models.PayoutMethodPaypal:
		if method.PaypalEmail == nil {
			return "", apperror.New(apperror.ErrCodeState, "у способа вывода нет адреса кошелька")
		}
		return s.peer.CreatePayout(ctx, gateway.PeerPayoutRequest{
			ReceiverEmail:  *method.PaypalEmail,
			Amount:         payout.NetAmount,
			Currency:       payout.Currency,
			IdempotencyKey: payout.ID.String(),
			Note:           "Weekly payout",
		})
	}
	return "", apperror.New(apperror.ErrCodeState, "неизвестный способ вывода")
}
