package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
)

func newReconciliation(ledger *mockReconLedger, payouts *mockReconPayouts, milestones *mockReconMilestones, notifier *mockNotifier) *ReconciliationService {
	return NewReconciliationService(ledger, payouts, milestones, notifier, testLogger())
}

func TestReconciliation_ChargeSucceeded(t *testing.T) {
	ledger := new(mockReconLedger)
	svc := newReconciliation(ledger, new(mockReconPayouts), new(mockReconMilestones), new(mockNotifier))
	ctx := context.Background()

	ledger.On("MarkCompletedByGatewayRef", ctx, "pi_1").Return(int64(2), nil)

	err := svc.HandleCardEvent(ctx, &gateway.Event{Kind: gateway.EventChargeSucceeded, GatewayReference: "pi_1"})
	assert.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestReconciliation_ChargeSucceeded_RedeliveryIsNoop(t *testing.T) {
	ledger := new(mockReconLedger)
	svc := newReconciliation(ledger, new(mockReconPayouts), new(mockReconMilestones), new(mockNotifier))
	ctx := context.Background()

	// строки уже completed: условный UPDATE не затронул ни одной
	ledger.On("MarkCompletedByGatewayRef", ctx, "pi_1").Return(int64(0), nil)

	err := svc.HandleCardEvent(ctx, &gateway.Event{Kind: gateway.EventChargeSucceeded, GatewayReference: "pi_1"})
	assert.NoError(t, err)
}

func TestReconciliation_ChargeFailed_RevertsMilestoneFunding(t *testing.T) {
	ledger := new(mockReconLedger)
	milestones := new(mockReconMilestones)
	svc := newReconciliation(ledger, new(mockReconPayouts), milestones, new(mockNotifier))
	ctx := context.Background()

	milestoneID := uuid.New()
	ledger.On("MarkFailedByGatewayRef", ctx, "pi_bad").Return(int64(2), nil)
	ledger.On("ListByGatewayRef", ctx, "pi_bad").Return([]models.EscrowTransaction{
		{ID: uuid.New(), Type: models.LedgerTypeFund, MilestoneID: &milestoneID, Status: models.LedgerStatusFailed},
		{ID: uuid.New(), Type: models.LedgerTypeClientFee, Status: models.LedgerStatusFailed},
	}, nil)
	// веха возвращается в pending, клиент может повторить финансирование
	milestones.On("RevertFunding", ctx, milestoneID).Return(nil)

	err := svc.HandleCardEvent(ctx, &gateway.Event{
		Kind:             gateway.EventChargeFailed,
		GatewayReference: "pi_bad",
		Reason:           "insufficient_funds",
	})
	assert.NoError(t, err)
	milestones.AssertExpectations(t)
}

func TestReconciliation_ChargeFailed_RedeliveryDoesNotRevertTwice(t *testing.T) {
	ledger := new(mockReconLedger)
	milestones := new(mockReconMilestones)
	svc := newReconciliation(ledger, new(mockReconPayouts), milestones, new(mockNotifier))
	ctx := context.Background()

	ledger.On("MarkFailedByGatewayRef", ctx, "pi_bad").Return(int64(0), nil)

	err := svc.HandleCardEvent(ctx, &gateway.Event{Kind: gateway.EventChargeFailed, GatewayReference: "pi_bad"})
	assert.NoError(t, err)
	milestones.AssertNotCalled(t, "RevertFunding", mock.Anything, mock.Anything)
}

func TestReconciliation_ChargeRefunded(t *testing.T) {
	ledger := new(mockReconLedger)
	svc := newReconciliation(ledger, new(mockReconPayouts), new(mockReconMilestones), new(mockNotifier))
	ctx := context.Background()

	amount := decimal.RequireFromString("42.50")
	refund := &models.EscrowTransaction{ID: uuid.New(), Type: models.LedgerTypeRefund, Amount: amount}
	ledger.On("InsertRefundForGatewayRef", ctx, "pi_1", amount).Return(refund, nil)

	err := svc.HandleCardEvent(ctx, &gateway.Event{
		Kind:             gateway.EventChargeRefunded,
		GatewayReference: "pi_1",
		Amount:           amount,
	})
	assert.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestReconciliation_ChargeRefunded_NonPositiveAmount(t *testing.T) {
	ledger := new(mockReconLedger)
	svc := newReconciliation(ledger, new(mockReconPayouts), new(mockReconMilestones), new(mockNotifier))
	ctx := context.Background()

	err := svc.HandleCardEvent(ctx, &gateway.Event{
		Kind:             gateway.EventChargeRefunded,
		GatewayReference: "pi_1",
		Amount:           decimal.Zero,
	})
	assert.Error(t, err)
	ledger.AssertNotCalled(t, "InsertRefundForGatewayRef", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciliation_PayoutSucceeded_Notifies(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	payouts.On("MarkCompletedByGatewayRef", ctx, "batch_1").Return(int64(1), nil)
	payouts.On("FreelancerByGatewayRef", ctx, "batch_1").Return(freelancerID, nil)
	notifier.On("Notify", ctx, freelancerID, models.NotificationPayoutCompleted,
		mock.Anything, mock.Anything, models.NotificationPriorityNormal, mock.Anything).Return()

	err := svc.HandlePeerEvent(ctx, &gateway.Event{Kind: gateway.EventPayoutSucceeded, GatewayReference: "batch_1"})
	assert.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestReconciliation_PayoutFailed_ReleasesReservation(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	payouts.On("MarkFailedByGatewayRef", ctx, "batch_2", "RECEIVER_UNREGISTERED").Return(int64(1), nil)
	payouts.On("FreelancerByGatewayRef", ctx, "batch_2").Return(freelancerID, nil)
	notifier.On("Notify", ctx, freelancerID, models.NotificationPayoutFailed,
		mock.Anything, mock.Anything, models.NotificationPriorityHigh, mock.Anything).Return()

	err := svc.HandlePeerEvent(ctx, &gateway.Event{
		Kind:             gateway.EventPayoutFailed,
		GatewayReference: "batch_2",
		Reason:           "RECEIVER_UNREGISTERED",
	})
	assert.NoError(t, err)
	payouts.AssertExpectations(t)
}

func TestReconciliation_PayoutFailed_RedeliveryIsNoop(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	payouts.On("MarkFailedByGatewayRef", ctx, "batch_2", "").Return(int64(0), nil)

	err := svc.HandlePeerEvent(ctx, &gateway.Event{Kind: gateway.EventPayoutFailed, GatewayReference: "batch_2"})
	assert.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciliation_CardTransferCompletesStripePayout(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	payouts.On("MarkCompletedByGatewayRef", ctx, "tr_1").Return(int64(1), nil)
	payouts.On("FreelancerByGatewayRef", ctx, "tr_1").Return(freelancerID, nil)
	notifier.On("Notify", ctx, freelancerID, models.NotificationPayoutCompleted,
		mock.Anything, mock.Anything, models.NotificationPriorityNormal, mock.Anything).Return()

	// переводы stripe-маршрута приходят на карточный вебхук
	err := svc.HandleCardEvent(ctx, &gateway.Event{Kind: gateway.EventPayoutSucceeded, GatewayReference: "tr_1"})
	assert.NoError(t, err)
	payouts.AssertExpectations(t)
}

func TestReconciliation_CardTransferReversedFailsStripePayout(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	payouts.On("ForceFailByGatewayRef", ctx, "tr_123", "transfer reversed").Return(int64(1), nil)
	payouts.On("FreelancerByGatewayRef", ctx, "tr_123").Return(freelancerID, nil)
	notifier.On("Notify", ctx, freelancerID, models.NotificationPayoutFailed,
		mock.Anything, mock.Anything, models.NotificationPriorityHigh, mock.Anything).Return()

	// отменённый перевод не должен навсегда резервировать сумму
	err := svc.HandleCardEvent(ctx, &gateway.Event{
		Kind:             gateway.EventPayoutRefunded,
		GatewayReference: "tr_123",
		Reason:           "transfer reversed",
	})
	assert.NoError(t, err)
	payouts.AssertExpectations(t)
}

func TestReconciliation_PayoutRefunded_ForcesFailureAfterCompletion(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	// возврат приходит уже после payout.succeeded: guard по
	// pending|processing здесь не действует, переход принудительный
	payouts.On("ForceFailByGatewayRef", ctx, "batch_9", "payout refunded").Return(int64(1), nil)
	payouts.On("FreelancerByGatewayRef", ctx, "batch_9").Return(freelancerID, nil)
	notifier.On("Notify", ctx, freelancerID, models.NotificationPayoutFailed,
		mock.Anything, mock.Anything, models.NotificationPriorityHigh, mock.Anything).Return()

	err := svc.HandlePeerEvent(ctx, &gateway.Event{
		Kind:             gateway.EventPayoutRefunded,
		GatewayReference: "batch_9",
		Reason:           "payout refunded",
	})
	assert.NoError(t, err)
	payouts.AssertNotCalled(t, "MarkFailedByGatewayRef", mock.Anything, mock.Anything, mock.Anything)
	payouts.AssertExpectations(t)
}

func TestReconciliation_PayoutRefunded_RedeliveryIsNoop(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	payouts.On("ForceFailByGatewayRef", ctx, "batch_9", "payout refunded").Return(int64(0), nil)

	err := svc.HandlePeerEvent(ctx, &gateway.Event{
		Kind:             gateway.EventPayoutRefunded,
		GatewayReference: "batch_9",
		Reason:           "payout refunded",
	})
	assert.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciliation_PayoutUnclaimed_NotifiesWithoutFinalizing(t *testing.T) {
	payouts := new(mockReconPayouts)
	notifier := new(mockNotifier)
	svc := newReconciliation(new(mockReconLedger), payouts, new(mockReconMilestones), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	payouts.On("FreelancerByGatewayRef", ctx, "batch_3").Return(freelancerID, nil)
	notifier.On("Notify", ctx, freelancerID, models.NotificationPayoutUnclaimed,
		mock.Anything, mock.Anything, models.NotificationPriorityHigh, mock.Anything).Return()

	err := svc.HandlePeerEvent(ctx, &gateway.Event{Kind: gateway.EventPayoutUnclaimed, GatewayReference: "batch_3"})
	assert.NoError(t, err)
	// получатель ещё может забрать деньги: статус выплаты не трогаем
	payouts.AssertNotCalled(t, "MarkFailedByGatewayRef", mock.Anything, mock.Anything, mock.Anything)
	payouts.AssertNotCalled(t, "MarkCompletedByGatewayRef", mock.Anything, mock.Anything)
}

func TestReconciliation_UnknownEventIgnored(t *testing.T) {
	ledger := new(mockReconLedger)
	svc := newReconciliation(ledger, new(mockReconPayouts), new(mockReconMilestones), new(mockNotifier))

	err := svc.HandleCardEvent(context.Background(), &gateway.Event{Kind: "charge.updated"})
	assert.NoError(t, err)
	err = svc.HandleCardEvent(context.Background(), nil)
	assert.NoError(t, err)
}
