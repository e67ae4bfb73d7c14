package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-billing/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

// BillingHandler — read-only доступ к журналу, балансам и инвойсам.
type BillingHandler struct {
	ledger *service.LedgerService
}

func NewBillingHandler(ledger *service.LedgerService) *BillingHandler {
	return &BillingHandler{ledger: ledger}
}

// EscrowBalance GET /contracts/:id/balance
func (h *BillingHandler) EscrowBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	balance, err := h.ledger.EscrowBalance(c.Request.Context(), contractID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// History GET /contracts/:id/ledger
func (h *BillingHandler) History(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")
	limit, offset := common.GetPagination(c)

	entries, err := h.ledger.History(c.Request.Context(), contractID, userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

// Invoices GET /invoices
func (h *BillingHandler) Invoices(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, offset := common.GetPagination(c)

	invoices, err := h.ledger.Invoices(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// Invoice GET /invoices/:id
func (h *BillingHandler) Invoice(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	invoiceID, _ := common.ParseUUIDParam(c, "id")

	invoice, err := h.ledger.Invoice(c.Request.Context(), invoiceID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
