package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-billing/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

type DisputeHandler struct {
	disputes *service.DisputeService
}

func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Open POST /contracts/:id/disputes
func (h *DisputeHandler) Open(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	var req struct {
		MilestoneID *string `json:"milestone_id"`
		Reason      string  `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var milestoneID *uuid.UUID
	if req.MilestoneID != nil {
		parsed, err := uuid.Parse(*req.MilestoneID)
		if err != nil {
			common.RespondBadRequest(c, "неверный milestone_id")
			return
		}
		milestoneID = &parsed
	}

	dispute, err := h.disputes.Open(c.Request.Context(), contractID, userID, milestoneID, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// List GET /contracts/:id/disputes
func (h *DisputeHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	disputes, err := h.disputes.List(c.Request.Context(), contractID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// TakeUnderReview POST /disputes/:id/review
func (h *DisputeHandler) TakeUnderReview(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	disputeID, _ := common.ParseUUIDParam(c, "id")

	if err := h.disputes.TakeUnderReview(c.Request.Context(), disputeID, role); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "спор взят в работу", nil)
}

// Resolve POST /disputes/:id/resolve
func (h *DisputeHandler) Resolve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)
	disputeID, _ := common.ParseUUIDParam(c, "id")

	var req struct {
		InFavorOfClient bool   `json:"in_favor_of_client"`
		Resolution      string `json:"resolution" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.Resolve(c.Request.Context(), disputeID, userID, role, req.InFavorOfClient, req.Resolution); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "спор решён", nil)
}

// Cancel POST /disputes/:id/cancel
func (h *DisputeHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	disputeID, _ := common.ParseUUIDParam(c, "id")

	if err := h.disputes.Cancel(c.Request.Context(), disputeID, userID); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "спор отозван", nil)
}
