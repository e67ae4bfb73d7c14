package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

func newPayoutService(payouts *mockPayoutRepo, methods *mockPayoutMethodRepo, earnings *mockEarningsRepo, card *mockCardGateway, peer *mockPeerGateway) *PayoutService {
	return NewPayoutService(payouts, methods, earnings, card, peer,
		decimal.RequireFromString("1.00"), decimal.RequireFromString("0.01"), 2, testLogger())
}

func stripeMethod(freelancerID uuid.UUID) *models.PayoutMethod {
	accountID := "acct_123"
	return &models.PayoutMethod{
		ID:              uuid.New(),
		FreelancerID:    freelancerID,
		Method:          models.PayoutMethodStripe,
		StripeAccountID: &accountID,
		IsDefault:       true,
		IsActive:        true,
	}
}

func paypalMethod(freelancerID uuid.UUID) *models.PayoutMethod {
	email := "dev@example.com"
	return &models.PayoutMethod{
		ID:           uuid.New(),
		FreelancerID: freelancerID,
		Method:       models.PayoutMethodPaypal,
		PaypalEmail:  &email,
		IsDefault:    true,
		IsActive:     true,
	}
}

func TestPayoutService_Balance(t *testing.T) {
	payouts := new(mockPayoutRepo)
	earnings := new(mockEarningsRepo)
	svc := newPayoutService(payouts, new(mockPayoutMethodRepo), earnings, new(mockCardGateway), new(mockPeerGateway))
	ctx := context.Background()
	freelancerID := uuid.New()

	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("500.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.RequireFromString("120.00"), nil)

	balance, err := svc.Balance(ctx, freelancerID)
	assert.NoError(t, err)
	assert.Equal(t, "500.00", balance.Earned.StringFixed(2))
	assert.Equal(t, "380.00", balance.Available.StringFixed(2))
}

func TestPayoutService_RunWeeklyPayouts_StripeTransfer(t *testing.T) {
	payouts := new(mockPayoutRepo)
	methods := new(mockPayoutMethodRepo)
	earnings := new(mockEarningsRepo)
	card := new(mockCardGateway)
	svc := newPayoutService(payouts, methods, earnings, card, new(mockPeerGateway))
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("250.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)
	methods.On("GetPreferred", ctx, freelancerID).Return(stripeMethod(freelancerID), nil)
	payouts.On("CreatePending", ctx, mock.MatchedBy(func(p *models.Payout) bool {
		// перевод на подключённый аккаунт без комиссии за вывод
		return p.Amount.StringFixed(2) == "250.00" &&
			p.Fee.IsZero() &&
			p.NetAmount.StringFixed(2) == "250.00"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Payout).ID = uuid.New()
	}).Return(nil)
	card.On("AccountPayoutsEnabled", ctx, "acct_123").Return(true, nil)
	card.On("CreateTransfer", ctx, mock.MatchedBy(func(req gateway.TransferRequest) bool {
		return req.AmountCents == 25000 && req.AccountID == "acct_123"
	})).Return("tr_1", nil)
	payouts.On("SetProcessing", ctx, mock.AnythingOfType("uuid.UUID"), "tr_1").Return(nil)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	payouts.AssertExpectations(t)
	card.AssertExpectations(t)
}

func TestPayoutService_RunWeeklyPayouts_PaypalRouteFee(t *testing.T) {
	payouts := new(mockPayoutRepo)
	methods := new(mockPayoutMethodRepo)
	earnings := new(mockEarningsRepo)
	peer := new(mockPeerGateway)
	svc := newPayoutService(payouts, methods, earnings, new(mockCardGateway), peer)
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("100.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)
	methods.On("GetPreferred", ctx, freelancerID).Return(paypalMethod(freelancerID), nil)
	// 1% комиссии маршрута: 100.00 − 1.00 = 99.00 к получению
	payouts.On("CreatePending", ctx, mock.MatchedBy(func(p *models.Payout) bool {
		return p.Fee.StringFixed(2) == "1.00" && p.NetAmount.StringFixed(2) == "99.00"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Payout).ID = uuid.New()
	}).Return(nil)
	peer.On("CreatePayout", ctx, mock.MatchedBy(func(req gateway.PeerPayoutRequest) bool {
		return req.ReceiverEmail == "dev@example.com" && req.Amount.StringFixed(2) == "99.00"
	})).Return("batch_7", nil)
	payouts.On("SetProcessing", ctx, mock.AnythingOfType("uuid.UUID"), "batch_7").Return(nil)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	peer.AssertExpectations(t)
}

func TestPayoutService_RunWeeklyPayouts_BelowMinimumSkipped(t *testing.T) {
	payouts := new(mockPayoutRepo)
	earnings := new(mockEarningsRepo)
	svc := newPayoutService(payouts, new(mockPayoutMethodRepo), earnings, new(mockCardGateway), new(mockPeerGateway))
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("0.80"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	payouts.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestPayoutService_RunWeeklyPayouts_NoMethodSkipped(t *testing.T) {
	payouts := new(mockPayoutRepo)
	methods := new(mockPayoutMethodRepo)
	earnings := new(mockEarningsRepo)
	svc := newPayoutService(payouts, methods, earnings, new(mockCardGateway), new(mockPeerGateway))
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("50.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)
	methods.On("GetPreferred", ctx, freelancerID).Return(nil, repository.ErrPayoutMethodNotFound)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
}

func TestPayoutService_RunWeeklyPayouts_SyncGatewayFailureMarksFailed(t *testing.T) {
	payouts := new(mockPayoutRepo)
	methods := new(mockPayoutMethodRepo)
	earnings := new(mockEarningsRepo)
	peer := new(mockPeerGateway)
	svc := newPayoutService(payouts, methods, earnings, new(mockCardGateway), peer)
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("100.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)
	methods.On("GetPreferred", ctx, freelancerID).Return(paypalMethod(freelancerID), nil)
	payouts.On("CreatePending", ctx, mock.AnythingOfType("*models.Payout")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Payout).ID = uuid.New()
	}).Return(nil)
	peer.On("CreatePayout", ctx, mock.Anything).Return("", errors.New("gateway unavailable"))
	// синхронный отказ шлюза финализируется сразу и освобождает резерв
	payouts.On("MarkFailed", ctx, mock.AnythingOfType("uuid.UUID"), "gateway unavailable").Return(nil)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	payouts.AssertExpectations(t)
}

func TestPayoutService_RunWeeklyPayouts_ReservationRaceSkipped(t *testing.T) {
	payouts := new(mockPayoutRepo)
	methods := new(mockPayoutMethodRepo)
	earnings := new(mockEarningsRepo)
	peer := new(mockPeerGateway)
	svc := newPayoutService(payouts, methods, earnings, new(mockCardGateway), peer)
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("100.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)
	methods.On("GetPreferred", ctx, freelancerID).Return(paypalMethod(freelancerID), nil)
	payouts.On("CreatePending", ctx, mock.AnythingOfType("*models.Payout")).Return(repository.ErrInsufficientFunds)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	peer.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
}

func TestPayoutService_Send_StripeAccountNotReady(t *testing.T) {
	payouts := new(mockPayoutRepo)
	methods := new(mockPayoutMethodRepo)
	earnings := new(mockEarningsRepo)
	card := new(mockCardGateway)
	svc := newPayoutService(payouts, methods, earnings, card, new(mockPeerGateway))
	ctx := context.Background()
	freelancerID := uuid.New()

	payouts.On("ListEligibleFreelancers", ctx).Return([]uuid.UUID{freelancerID}, nil)
	earnings.On("FreelancerEarned", ctx, freelancerID).Return(decimal.RequireFromString("100.00"), nil)
	payouts.On("SumOutstanding", ctx, freelancerID).Return(decimal.Zero, nil)
	methods.On("GetPreferred", ctx, freelancerID).Return(stripeMethod(freelancerID), nil)
	payouts.On("CreatePending", ctx, mock.AnythingOfType("*models.Payout")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Payout).ID = uuid.New()
	}).Return(nil)
	card.On("AccountPayoutsEnabled", ctx, "acct_123").Return(false, nil)
	payouts.On("MarkFailed", ctx, mock.AnythingOfType("uuid.UUID"), mock.Anything).Return(nil)

	result, err := svc.RunWeeklyPayouts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	card.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything)
}
