package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
)

type ReconciliationLedger interface {
	MarkCompletedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error)
	MarkFailedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error)
	InsertRefundForGatewayRef(ctx context.Context, gatewayRef string, amount decimal.Decimal) (*models.EscrowTransaction, error)
	ListByGatewayRef(ctx context.Context, gatewayRef string) ([]models.EscrowTransaction, error)
}

type ReconciliationPayouts interface {
	MarkCompletedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error)
	MarkFailedByGatewayRef(ctx context.Context, gatewayRef, reason string) (int64, error)
	ForceFailByGatewayRef(ctx context.Context, gatewayRef, reason string) (int64, error)
	FreelancerByGatewayRef(ctx context.Context, gatewayRef string) (uuid.UUID, error)
}

type ReconciliationMilestones interface {
	RevertFunding(ctx context.Context, milestoneID uuid.UUID) error
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, body, priority string, data any)
}

// ReconciliationService финализирует pending-строки журнала и выплаты
// по событиям шлюзов. Все обработчики идемпотентны: повторная доставка
// события не меняет состояние второй раз.
type ReconciliationService struct {
	ledger     ReconciliationLedger
	payouts    ReconciliationPayouts
	milestones ReconciliationMilestones
	notifier   Notifier
	log        *logrus.Entry
}

func NewReconciliationService(
	ledger ReconciliationLedger,
	payouts ReconciliationPayouts,
	milestones ReconciliationMilestones,
	notifier Notifier,
	log *logrus.Entry,
) *ReconciliationService {
	return &ReconciliationService{
		ledger:     ledger,
		payouts:    payouts,
		milestones: milestones,
		notifier:   notifier,
		log:        log,
	}
}

// HandleCardEvent обрабатывает событие карточного шлюза.
func (s *ReconciliationService) HandleCardEvent(ctx context.Context, event *gateway.Event) error {
	if event == nil {
		return nil
	}
	entry := s.log.WithFields(logrus.Fields{"kind": event.Kind, "ref": event.GatewayReference})

	switch event.Kind {
	case gateway.EventChargeSucceeded:
		affected, err := s.ledger.MarkCompletedByGatewayRef(ctx, event.GatewayReference)
		if err != nil {
			return err
		}
		if affected == 0 {
			entry.Debug("повторное событие, журнал уже финализирован")
			return nil
		}
		entry.WithField("rows", affected).Info("списание подтверждено, строки журнала completed")
		return nil

	case gateway.EventChargeFailed:
		affected, err := s.ledger.MarkFailedByGatewayRef(ctx, event.GatewayReference)
		if err != nil {
			return err
		}
		if affected == 0 {
			entry.Debug("повторное событие, журнал уже финализирован")
			return nil
		}
		entry.WithField("reason", event.Reason).Warn("списание отклонено, строки журнала failed")
		return s.revertFundedMilestones(ctx, event.GatewayReference)

	case gateway.EventChargeRefunded:
		if !event.Amount.IsPositive() {
			return fmt.Errorf("reconciliation: refund with non-positive amount")
		}
		refund, err := s.ledger.InsertRefundForGatewayRef(ctx, event.GatewayReference, event.Amount)
		if err != nil {
			return err
		}
		entry.WithField("refund_id", refund.ID).Info("возврат записан в журнал")
		return nil

	case gateway.EventPayoutSucceeded, gateway.EventPayoutFailed,
		gateway.EventPayoutReturned, gateway.EventPayoutUnclaimed,
		gateway.EventPayoutRefunded:
		// выплаты stripe-маршрута приходят событиями transfer.*
		// на карточный вебхук, финализируются общим путём
		return s.handlePayoutEvent(ctx, event, entry)
	}

	entry.Debug("событие карточного шлюза пропущено")
	return nil
}

// HandlePeerEvent обрабатывает событие P2P-шлюза выплат.
func (s *ReconciliationService) HandlePeerEvent(ctx context.Context, event *gateway.Event) error {
	if event == nil {
		return nil
	}
	entry := s.log.WithFields(logrus.Fields{"kind": event.Kind, "ref": event.GatewayReference})
	return s.handlePayoutEvent(ctx, event, entry)
}

// handlePayoutEvent финализирует выплату по событию любого из шлюзов.
func (s *ReconciliationService) handlePayoutEvent(ctx context.Context, event *gateway.Event, entry *logrus.Entry) error {
	switch event.Kind {
	case gateway.EventPayoutSucceeded:
		affected, err := s.payouts.MarkCompletedByGatewayRef(ctx, event.GatewayReference)
		if err != nil {
			return err
		}
		if affected == 0 {
			entry.Debug("повторное событие, выплата уже финализирована")
			return nil
		}
		s.notifyPayout(ctx, event, models.NotificationPayoutCompleted,
			"Выплата зачислена", "Ваша выплата успешно зачислена.", models.NotificationPriorityNormal)
		entry.Info("выплата завершена")
		return nil

	case gateway.EventPayoutFailed, gateway.EventPayoutReturned:
		affected, err := s.payouts.MarkFailedByGatewayRef(ctx, event.GatewayReference, event.Reason)
		if err != nil {
			return err
		}
		if affected == 0 {
			entry.Debug("повторное событие, выплата уже финализирована")
			return nil
		}
		// failed освобождает зарезервированную сумму, деньги вернутся
		// в доступный баланс к следующему запуску выплат
		s.notifyPayout(ctx, event, models.NotificationPayoutFailed,
			"Выплата не прошла", "Выплата не прошла, средства возвращены на баланс. Проверьте способ вывода.",
			models.NotificationPriorityHigh)
		entry.WithField("reason", event.Reason).Warn("выплата не прошла")
		return nil

	case gateway.EventPayoutRefunded:
		// возврат отменяет выплату даже после completed, поэтому
		// переход принудительный, без guard по pending|processing
		affected, err := s.payouts.ForceFailByGatewayRef(ctx, event.GatewayReference, event.Reason)
		if err != nil {
			return err
		}
		if affected == 0 {
			entry.Debug("повторное событие, выплата уже failed")
			return nil
		}
		s.notifyPayout(ctx, event, models.NotificationPayoutFailed,
			"Выплата возвращена", "Шлюз вернул выплату, средства снова на балансе. Проверьте способ вывода.",
			models.NotificationPriorityHigh)
		entry.WithField("reason", event.Reason).Warn("выплата возвращена шлюзом")
		return nil

	case gateway.EventPayoutUnclaimed:
		// получатель ещё может забрать деньги, выплату не финализируем
		s.notifyPayout(ctx, event, models.NotificationPayoutUnclaimed,
			"Выплата ожидает получения", "Выплата отправлена, но не получена. Проверьте кошелёк способа вывода.",
			models.NotificationPriorityHigh)
		entry.Warn("выплата не востребована получателем")
		return nil
	}

	entry.Debug("событие выплат пропущено")
	return nil
}

// revertFundedMilestones возвращает вехи несостоявшегося списания в pending.
func (s *ReconciliationService) revertFundedMilestones(ctx context.Context, gatewayRef string) error {
	entries, err := s.ledger.ListByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Type != models.LedgerTypeFund || e.MilestoneID == nil {
			continue
		}
		if err := s.milestones.RevertFunding(ctx, *e.MilestoneID); err != nil {
			s.log.WithError(err).WithField("milestone_id", *e.MilestoneID).
				Warn("не удалось вернуть веху в pending")
		}
	}
	return nil
}

func (s *ReconciliationService) notifyPayout(ctx context.Context, event *gateway.Event, notifType, title, body, priority string) {
	freelancerID, err := s.payouts.FreelancerByGatewayRef(ctx, event.GatewayReference)
	if err != nil {
		s.log.WithError(err).WithField("ref", event.GatewayReference).
			Warn("выплата по ссылке шлюза не найдена, уведомление пропущено")
		return
	}
	data, _ := json.Marshal(map[string]string{"gateway_reference": event.GatewayReference, "reason": event.Reason})
	s.notifier.Notify(ctx, freelancerID, notifType, title, body, priority, json.RawMessage(data))
}
