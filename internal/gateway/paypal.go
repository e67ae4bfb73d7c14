package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// PaypalGateway — клиент P2P-выплат поверх PayPal Payouts API.
// OAuth-токен кэшируется до истечения срока действия.
type PaypalGateway struct {
	client    *resty.Client
	clientID  string
	secret    string
	webhookID string
	log       *logrus.Entry

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPaypalGateway(baseURL, clientID, secret, webhookID string, timeout, connectTimeout time.Duration, log *logrus.Entry) *PaypalGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		})

	return &PaypalGateway{
		client:    client,
		clientID:  clientID,
		secret:    secret,
		webhookID: webhookID,
		log:       log,
	}
}

type paypalToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token возвращает действующий OAuth-токен, обновляя его при необходимости.
func (g *PaypalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	var tok paypalToken
	resp, err := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.clientID, g.secret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post("/v1/oauth2/token")
	if err != nil {
		return "", fmt.Errorf("paypal: oauth token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("paypal: oauth token status %d", resp.StatusCode())
	}

	g.accessToken = tok.AccessToken
	// обновляем за минуту до фактического истечения
	g.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return g.accessToken, nil
}

type paypalPayoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
	} `json:"batch_header"`
}

// CreatePayout отправляет выплату одним батчем из одного элемента.
// PayPal-Request-Id делает повтор запроса безопасным.
func (g *PaypalGateway) CreatePayout(ctx context.Context, req PeerPayoutRequest) (string, error) {
	accessToken, err := g.token(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"sender_batch_header": map[string]any{
			"sender_batch_id": req.IdempotencyKey,
			"email_subject":   "You have a payout",
		},
		"items": []map[string]any{{
			"recipient_type": "EMAIL",
			"receiver":       req.ReceiverEmail,
			"amount": map[string]string{
				"value":    req.Amount.StringFixed(2),
				"currency": req.Currency,
			},
			"sender_item_id": req.IdempotencyKey,
			"note":           req.Note,
		}},
	}

	var result paypalPayoutResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("PayPal-Request-Id", req.IdempotencyKey).
		SetBody(body).
		SetResult(&result).
		Post("/v1/payments/payouts")
	if err != nil {
		return "", fmt.Errorf("paypal: create payout: %w", err)
	}
	if resp.IsError() {
		g.log.WithField("status", resp.StatusCode()).Warn("paypal отклонил выплату")
		return "", fmt.Errorf("paypal: payout status %d: %w", resp.StatusCode(), ErrGatewayDeclined)
	}
	return result.BatchHeader.PayoutBatchID, nil
}

type paypalVerifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhook проверяет подпись события через verify-webhook-signature.
// PayPal проверяет подписи на своей стороне, локальной криптографии нет.
func (g *PaypalGateway) VerifyWebhook(ctx context.Context, headers map[string]string, payload []byte) error {
	accessToken, err := g.token(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"auth_algo":         headers["Paypal-Auth-Algo"],
		"cert_url":          headers["Paypal-Cert-Url"],
		"transmission_id":   headers["Paypal-Transmission-Id"],
		"transmission_sig":  headers["Paypal-Transmission-Sig"],
		"transmission_time": headers["Paypal-Transmission-Time"],
		"webhook_id":        g.webhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	var result paypalVerifyResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(body).
		SetResult(&result).
		Post("/v1/notifications/verify-webhook-signature")
	if err != nil {
		return fmt.Errorf("paypal: verify webhook: %w", err)
	}
	if resp.IsError() || result.VerificationStatus != "SUCCESS" {
		return ErrBadSignature
	}
	return nil
}

type paypalWebhookEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		PayoutItemID  string `json:"payout_item_id"`
		PayoutBatchID string `json:"payout_batch_id"`
		SenderItemID  string `json:"sender_item_id,omitempty"`
		BatchHeader   *struct {
			PayoutBatchID string `json:"payout_batch_id"`
		} `json:"batch_header"`
		Errors *struct {
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"resource"`
}

// ParseWebhook приводит событие PayPal к внутреннему виду. Терминальные
// неуспехи (BLOCKED, DENIED, RETURNED, FAILED) сводятся к
// payout.failed|returned; REFUNDED — отдельный вид с принудительной
// финализацией, UNCLAIMED остаётся отдельным видом: деньги ещё
// могут быть забраны получателем.
func (g *PaypalGateway) ParseWebhook(payload []byte) (*Event, error) {
	var raw paypalWebhookEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("paypal: parse webhook: %w", err)
	}

	ref := raw.Resource.PayoutBatchID
	if ref == "" && raw.Resource.BatchHeader != nil {
		ref = raw.Resource.BatchHeader.PayoutBatchID
	}
	reason := raw.EventType
	if raw.Resource.Errors != nil && raw.Resource.Errors.Message != "" {
		reason = raw.Resource.Errors.Message
	}

	switch raw.EventType {
	case "PAYMENT.PAYOUTS-ITEM.SUCCEEDED":
		return &Event{Kind: EventPayoutSucceeded, GatewayReference: ref}, nil
	case "PAYMENT.PAYOUTS-ITEM.FAILED",
		"PAYMENT.PAYOUTS-ITEM.BLOCKED",
		"PAYMENT.PAYOUTS-ITEM.DENIED":
		return &Event{Kind: EventPayoutFailed, GatewayReference: ref, Reason: reason}, nil
	case "PAYMENT.PAYOUTS-ITEM.RETURNED":
		return &Event{Kind: EventPayoutReturned, GatewayReference: ref, Reason: reason}, nil
	case "PAYMENT.PAYOUTS-ITEM.REFUNDED":
		// возврат может прийти уже после payout.succeeded
		return &Event{Kind: EventPayoutRefunded, GatewayReference: ref, Reason: "payout refunded"}, nil
	case "PAYMENT.PAYOUTS-ITEM.UNCLAIMED":
		return &Event{Kind: EventPayoutUnclaimed, GatewayReference: ref, Reason: reason}, nil
	}
	return nil, nil
}
