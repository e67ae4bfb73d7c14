package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

// WebhookHandler принимает события шлюзов. Подпись проверяется до разбора
// тела; событие с невалидной подписью отбрасывается с 4xx. Успешно
// обработанные и повторные события отвечают 200, чтобы шлюз не ретраил.
type WebhookHandler struct {
	card           gateway.CardGateway
	peer           gateway.PeerPayoutGateway
	reconciliation *service.ReconciliationService
	log            *logrus.Entry
}

func NewWebhookHandler(
	card gateway.CardGateway,
	peer gateway.PeerPayoutGateway,
	reconciliation *service.ReconciliationService,
	log *logrus.Entry,
) *WebhookHandler {
	return &WebhookHandler{card: card, peer: peer, reconciliation: reconciliation, log: log}
}

// Stripe POST /webhooks/stripe
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать тело запроса"})
		return
	}

	if err := h.card.VerifyWebhook(payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.log.WithError(err).Warn("stripe webhook с невалидной подписью")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидная подпись"})
		return
	}

	event, err := h.card.ParseWebhook(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "невалидное тело события"})
		return
	}

	if err := h.reconciliation.HandleCardEvent(c.Request.Context(), event); err != nil {
		// 5xx заставит шлюз доставить событие повторно
		h.log.WithError(err).Error("ошибка обработки события карточного шлюза")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка обработки события"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Paypal POST /webhooks/paypal
func (h *WebhookHandler) Paypal(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать тело запроса"})
		return
	}

	headers := map[string]string{
		"Paypal-Auth-Algo":         c.GetHeader("Paypal-Auth-Algo"),
		"Paypal-Cert-Url":          c.GetHeader("Paypal-Cert-Url"),
		"Paypal-Transmission-Id":   c.GetHeader("Paypal-Transmission-Id"),
		"Paypal-Transmission-Sig":  c.GetHeader("Paypal-Transmission-Sig"),
		"Paypal-Transmission-Time": c.GetHeader("Paypal-Transmission-Time"),
	}
	if err := h.peer.VerifyWebhook(c.Request.Context(), headers, payload); err != nil {
		h.log.WithError(err).Warn("paypal webhook с невалидной подписью")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидная подпись"})
		return
	}

	event, err := h.peer.ParseWebhook(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "невалидное тело события"})
		return
	}

	if err := h.reconciliation.HandlePeerEvent(c.Request.Context(), event); err != nil {
		h.log.WithError(err).Error("ошибка обработки события P2P-шлюза")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка обработки события"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
