package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// допуск на расхождение часов при проверке подписи вебхука
const stripeSignatureTolerance = 5 * time.Minute

// StripeGateway — клиент карточного шлюза поверх form-encoded REST API Stripe.
type StripeGateway struct {
	client        *resty.Client
	webhookSecret string
	log           *logrus.Entry
}

func NewStripeGateway(baseURL, secretKey, webhookSecret string, timeout, connectTimeout time.Duration, log *logrus.Entry) *StripeGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		}).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &StripeGateway{client: client, webhookSecret: webhookSecret, log: log}
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type stripePaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreatePaymentIntent создаёт и сразу подтверждает платёж off-session
// по сохранённому платёжному методу клиента.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req ChargeRequest) (*PaymentIntent, error) {
	var intent stripePaymentIntent
	var apiErr stripeError

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetFormData(map[string]string{
			"amount":         strconv.FormatInt(req.AmountCents, 10),
			"currency":       strings.ToLower(req.Currency),
			"customer":       req.CustomerID,
			"payment_method": req.PaymentMethodID,
			"off_session":    "true",
			"confirm":        "true",
			"description":    req.Description,
		}).
		SetResult(&intent).
		SetError(&apiErr).
		Post("/v1/payment_intents")
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	if resp.IsError() {
		g.log.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
			"code":   apiErr.Error.Code,
		}).Warn("stripe отклонил создание платежа")
		return nil, fmt.Errorf("stripe: %s: %w", apiErr.Error.Message, ErrGatewayDeclined)
	}
	return &PaymentIntent{ID: intent.ID, Status: intent.Status}, nil
}

type stripeTransfer struct {
	ID string `json:"id"`
}

// CreateTransfer переводит средства на подключённый аккаунт фрилансера.
func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	var transfer stripeTransfer
	var apiErr stripeError

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetFormData(map[string]string{
			"amount":      strconv.FormatInt(req.AmountCents, 10),
			"currency":    strings.ToLower(req.Currency),
			"destination": req.AccountID,
		}).
		SetResult(&transfer).
		SetError(&apiErr).
		Post("/v1/transfers")
	if err != nil {
		return "", fmt.Errorf("stripe: create transfer: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("stripe: %s: %w", apiErr.Error.Message, ErrGatewayDeclined)
	}
	return transfer.ID, nil
}

type stripeAccount struct {
	ID             string `json:"id"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// AccountPayoutsEnabled проверяет готовность подключённого аккаунта к выплатам.
// Чтение безопасно повторять, поэтому переживает короткие сетевые сбои через backoff.
func (g *StripeGateway) AccountPayoutsEnabled(ctx context.Context, accountID string) (bool, error) {
	var account stripeAccount

	operation := func() error {
		resp, err := g.client.R().
			SetContext(ctx).
			SetResult(&account).
			Get("/v1/accounts/" + accountID)
		if err != nil {
			return err
		}
		if resp.IsError() {
			if resp.StatusCode() >= 500 {
				return fmt.Errorf("stripe: account status %d", resp.StatusCode())
			}
			return backoff.Permanent(fmt.Errorf("stripe: account status %d", resp.StatusCode()))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return false, err
	}
	return account.PayoutsEnabled, nil
}

// VerifyWebhook проверяет подпись Stripe-Signature: HMAC-SHA256 от "t.payload"
// c защитой от replay по таймстемпу.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) error {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if d := time.Since(time.Unix(ts, 0)); d > stripeSignatureTolerance || d < -stripeSignatureTolerance {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrBadSignature
}

type stripeWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID             string `json:"id"`
			PaymentIntent  string `json:"payment_intent"`
			AmountRefunded int64  `json:"amount_refunded"`
			LastError     *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// ParseWebhook приводит событие Stripe к внутреннему виду.
// Неизвестные типы событий возвращаются как nil без ошибки.
func (g *StripeGateway) ParseWebhook(payload []byte) (*Event, error) {
	var raw stripeWebhookEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("stripe: parse webhook: %w", err)
	}

	obj := raw.Data.Object
	switch raw.Type {
	case "payment_intent.succeeded":
		return &Event{Kind: EventChargeSucceeded, GatewayReference: obj.ID}, nil
	case "payment_intent.payment_failed":
		reason := "payment failed"
		if obj.LastError != nil {
			reason = obj.LastError.Message
		}
		return &Event{Kind: EventChargeFailed, GatewayReference: obj.ID, Reason: reason}, nil
	case "charge.refunded":
		// ссылкой журнала служит платёжный интент, не чардж
		return &Event{
			Kind:             EventChargeRefunded,
			GatewayReference: obj.PaymentIntent,
			Amount:           decimal.New(obj.AmountRefunded, -2),
		}, nil
	case "transfer.created":
		// перевод на подключённый аккаунт выполняется синхронно,
		// transfer.created и есть подтверждение выплаты
		return &Event{Kind: EventPayoutSucceeded, GatewayReference: obj.ID}, nil
	case "transfer.reversed":
		return &Event{Kind: EventPayoutRefunded, GatewayReference: obj.ID, Reason: "transfer reversed"}, nil
	}
	return nil, nil
}
