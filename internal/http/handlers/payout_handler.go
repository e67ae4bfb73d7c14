package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-billing/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

type PayoutHandler struct {
	payouts *service.PayoutService
	methods *service.PayoutMethodService
}

func NewPayoutHandler(payouts *service.PayoutService, methods *service.PayoutMethodService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, methods: methods}
}

// Balance GET /payouts/balance
func (h *PayoutHandler) Balance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.payouts.Balance(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// History GET /payouts
func (h *PayoutHandler) History(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, offset := common.GetPagination(c)

	payouts, err := h.payouts.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

// AddMethod POST /payouts/methods
func (h *PayoutHandler) AddMethod(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Method          string  `json:"method" binding:"required"`
		StripeAccountID *string `json:"stripe_account_id"`
		PaypalEmail     *string `json:"paypal_email"`
		IsDefault       bool    `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	method, err := h.methods.Add(c.Request.Context(), userID, service.AddPayoutMethodInput{
		Method:          req.Method,
		StripeAccountID: req.StripeAccountID,
		PaypalEmail:     req.PaypalEmail,
		IsDefault:       req.IsDefault,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, method)
}

// ListMethods GET /payouts/methods
func (h *PayoutHandler) ListMethods(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	methods, err := h.methods.List(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// DeactivateMethod DELETE /payouts/methods/:id
func (h *PayoutHandler) DeactivateMethod(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	methodID, _ := common.ParseUUIDParam(c, "id")

	if err := h.methods.Deactivate(c.Request.Context(), methodID, userID); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "способ вывода отключён", nil)
}
