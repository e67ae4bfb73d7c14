package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-billing/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

type ContractHandler struct {
	contracts *service.ContractService
}

func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Create POST /contracts
func (h *ContractHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		JobID           string  `json:"job_id" binding:"required"`
		FreelancerID    string  `json:"freelancer_id" binding:"required"`
		ContractType    string  `json:"contract_type" binding:"required"`
		TotalAmount     *string `json:"total_amount"`
		HourlyRate      *string `json:"hourly_rate"`
		WeeklyHourLimit *int    `json:"weekly_hour_limit"`
		Currency        string  `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		common.RespondBadRequest(c, "неверный job_id")
		return
	}
	freelancerID, err := uuid.Parse(req.FreelancerID)
	if err != nil {
		common.RespondBadRequest(c, "неверный freelancer_id")
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), service.CreateContractInput{
		JobID:           jobID,
		ClientID:        userID,
		FreelancerID:    freelancerID,
		ContractType:    req.ContractType,
		TotalAmount:     req.TotalAmount,
		HourlyRate:      req.HourlyRate,
		WeeklyHourLimit: req.WeeklyHourLimit,
		Currency:        req.Currency,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// Get GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	contract, err := h.contracts.Get(c.Request.Context(), contractID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// List GET /contracts
func (h *ContractHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, offset := common.GetPagination(c)

	contracts, err := h.contracts.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

// Pause POST /contracts/:id/pause
func (h *ContractHandler) Pause(c *gin.Context) {
	h.lifecycle(c, h.contracts.Pause)
}

// Resume POST /contracts/:id/resume
func (h *ContractHandler) Resume(c *gin.Context) {
	h.lifecycle(c, h.contracts.Resume)
}

// Complete POST /contracts/:id/complete
func (h *ContractHandler) Complete(c *gin.Context) {
	h.lifecycle(c, h.contracts.Complete)
}

// Cancel POST /contracts/:id/cancel
func (h *ContractHandler) Cancel(c *gin.Context) {
	h.lifecycle(c, h.contracts.Cancel)
}

// UpdateSettings PATCH /contracts/:id/settings
func (h *ContractHandler) UpdateSettings(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	var req struct {
		WeeklyHourLimit *int `json:"weekly_hour_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.contracts.UpdateSettings(c.Request.Context(), contractID, userID, req.WeeklyHourLimit); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "настройки контракта обновлены", nil)
}

func (h *ContractHandler) lifecycle(c *gin.Context, op func(ctx context.Context, contractID, userID uuid.UUID) error) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	if err := op(c.Request.Context(), contractID, userID); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "статус контракта изменён", nil)
}
