package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-billing/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
}

func NewMilestoneHandler(milestones *service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones}
}

// Create POST /contracts/:id/milestones
func (h *MilestoneHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	var req struct {
		Title  string `json:"title" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestone, err := h.milestones.Create(c.Request.Context(), contractID, userID, req.Title, req.Amount)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

// List GET /contracts/:id/milestones
func (h *MilestoneHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	milestones, err := h.milestones.List(c.Request.Context(), contractID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

// Fund POST /milestones/:id/fund
func (h *MilestoneHandler) Fund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	milestoneID, _ := common.ParseUUIDParam(c, "id")

	entry, err := h.milestones.Fund(c.Request.Context(), milestoneID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, entry)
}

// Submit POST /milestones/:id/submit
func (h *MilestoneHandler) Submit(c *gin.Context) {
	h.transition(c, h.milestones.Submit, "работа сдана")
}

// RequestRevision POST /milestones/:id/request-revision
func (h *MilestoneHandler) RequestRevision(c *gin.Context) {
	h.transition(c, h.milestones.RequestRevision, "работа возвращена на доработку")
}

// Accept POST /milestones/:id/accept
func (h *MilestoneHandler) Accept(c *gin.Context) {
	h.transition(c, h.milestones.Accept, "работа принята, средства освобождены")
}

func (h *MilestoneHandler) transition(c *gin.Context, op func(ctx context.Context, milestoneID, userID uuid.UUID) error, message string) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	milestoneID, _ := common.ParseUUIDParam(c, "id")

	if err := op(c.Request.Context(), milestoneID, userID); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, message, nil)
}
