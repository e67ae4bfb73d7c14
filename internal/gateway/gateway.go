package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrBadSignature    = errors.New("webhook signature verification failed")
	ErrGatewayDeclined = errors.New("gateway declined the operation")
)

// Виды нормализованных событий шлюзов.
const (
	EventChargeSucceeded = "charge.succeeded"
	EventChargeFailed    = "charge.failed"
	EventChargeRefunded  = "charge.refunded"

	EventPayoutSucceeded = "payout.succeeded"
	EventPayoutFailed    = "payout.failed"
	EventPayoutReturned  = "payout.returned"
	EventPayoutUnclaimed = "payout.unclaimed"
	// возврат уже отправленной выплаты: финализируется принудительно,
	// даже если выплата успела стать completed
	EventPayoutRefunded = "payout.refunded"
)

// Event — событие шлюза, приведённое к внутреннему виду. Reconciliation
// работает только с ним и не знает о форматах конкретных провайдеров.
type Event struct {
	Kind             string
	GatewayReference string
	Amount           decimal.Decimal
	Reason           string
}

// PaymentIntent — результат запроса на списание с карты клиента.
type PaymentIntent struct {
	ID     string
	Status string
}

// ChargeRequest — списание с карты клиента в минимальных единицах валюты.
type ChargeRequest struct {
	AmountCents     int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	IdempotencyKey  string
	Description     string
}

// TransferRequest — перевод на подключённый аккаунт фрилансера.
type TransferRequest struct {
	AmountCents    int64
	Currency       string
	AccountID      string
	IdempotencyKey string
}

// CardGateway — карточный шлюз: списания с клиентов и переводы на
// подключённые аккаунты. Вебхуки проверяются и парсятся здесь же.
type CardGateway interface {
	CreatePaymentIntent(ctx context.Context, req ChargeRequest) (*PaymentIntent, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (string, error)
	AccountPayoutsEnabled(ctx context.Context, accountID string) (bool, error)
	VerifyWebhook(payload []byte, signatureHeader string) error
	ParseWebhook(payload []byte) (*Event, error)
}

// PeerPayoutRequest — выплата на внешний кошелёк получателя.
type PeerPayoutRequest struct {
	ReceiverEmail  string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Note           string
}

// PeerPayoutGateway — P2P-шлюз выплат на внешние кошельки.
type PeerPayoutGateway interface {
	CreatePayout(ctx context.Context, req PeerPayoutRequest) (string, error)
	VerifyWebhook(ctx context.Context, headers map[string]string, payload []byte) error
	ParseWebhook(payload []byte) (*Event, error)
}
