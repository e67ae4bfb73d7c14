package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-billing/internal/service"
)

// CronHandler — ручной запуск batch-задач служебным токеном.
// Используется оркестратором и для догоняющих запусков после простоя.
type CronHandler struct {
	billing *service.BillingService
	payouts *service.PayoutService
}

func NewCronHandler(billing *service.BillingService, payouts *service.PayoutService) *CronHandler {
	return &CronHandler{billing: billing, payouts: payouts}
}

// ChargeWeekly POST /cron/charge-weekly
func (h *CronHandler) ChargeWeekly(c *gin.Context) {
	result, err := h.billing.RunWeeklyBilling(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PayoutWeekly POST /cron/payout-weekly
func (h *CronHandler) PayoutWeekly(c *gin.Context) {
	result, err := h.payouts.RunWeeklyPayouts(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
