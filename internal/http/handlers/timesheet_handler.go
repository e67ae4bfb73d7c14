package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-billing/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

type TimesheetHandler struct {
	timesheets *service.TimesheetService
}

func NewTimesheetHandler(timesheets *service.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{timesheets: timesheets}
}

// AddTimeEntry POST /contracts/:id/time-entries
func (h *TimesheetHandler) AddTimeEntry(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")

	var req struct {
		WorkDate    string  `json:"work_date" binding:"required"`
		Minutes     int     `json:"minutes" binding:"required"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		common.RespondBadRequest(c, "work_date должен быть в формате YYYY-MM-DD")
		return
	}

	entry, err := h.timesheets.AddTimeEntry(c.Request.Context(), contractID, userID, workDate, req.Minutes, req.Description)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// List GET /contracts/:id/timesheets
func (h *TimesheetHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, _ := common.ParseUUIDParam(c, "id")
	limit, offset := common.GetPagination(c)

	sheets, err := h.timesheets.List(c.Request.Context(), contractID, userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheets": sheets})
}

// Submit POST /timesheets/:id/submit
func (h *TimesheetHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	timesheetID, _ := common.ParseUUIDParam(c, "id")

	ts, err := h.timesheets.Submit(c.Request.Context(), timesheetID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

// Approve POST /timesheets/:id/approve
func (h *TimesheetHandler) Approve(c *gin.Context) {
	h.review(c, h.timesheets.Approve, "табель подтверждён")
}

// Dispute POST /timesheets/:id/dispute
func (h *TimesheetHandler) Dispute(c *gin.Context) {
	h.review(c, h.timesheets.Dispute, "табель оспорен")
}

func (h *TimesheetHandler) review(c *gin.Context, op func(ctx context.Context, timesheetID, userID uuid.UUID) error, message string) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	timesheetID, _ := common.ParseUUIDParam(c, "id")

	if err := op(c.Request.Context(), timesheetID, userID); err != nil {
		_ = c.Error(err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, message, nil)
}
