package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-billing/internal/models"
)

func hourlyContract(clientID, freelancerID uuid.UUID, rate string, weeklyHourLimit *int) *models.Contract {
	r := decimal.RequireFromString(rate)
	return &models.Contract{
		ID:              uuid.New(),
		JobID:           uuid.New(),
		ClientID:        clientID,
		FreelancerID:    freelancerID,
		ContractType:    models.ContractTypeHourly,
		HourlyRate:      &r,
		WeeklyHourLimit: weeklyHourLimit,
		Currency:        "USD",
		Status:          models.ContractStatusActive,
	}
}

func TestWeekBounds(t *testing.T) {
	// среда → понедельник той же недели
	start, end := weekBounds(time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), end)

	// воскресенье относится к уходящей неделе, не к следующей
	start, end = weekBounds(time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), end)

	// понедельник открывает новую неделю
	start, _ = weekBounds(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), start)
}

func TestTimesheetService_AddTimeEntry(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := hourlyContract(uuid.New(), freelancerID, "60.00", nil)
	workDate := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	weekStart, weekEnd := weekBounds(workDate)
	ts := &models.WeeklyTimesheet{
		ID:         uuid.New(),
		ContractID: contract.ID,
		WeekStart:  weekStart,
		WeekEnd:    weekEnd,
		Status:     models.TimesheetStatusPending,
	}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	repo.On("GetOrCreateWeek", ctx, contract.ID, weekStart, weekEnd, "USD").Return(ts, nil)
	repo.On("AddTimeEntry", ctx, mock.AnythingOfType("*models.TimeEntry")).Return(nil)

	entry, err := svc.AddTimeEntry(ctx, contract.ID, freelancerID, workDate, 120, nil)
	assert.NoError(t, err)
	assert.Equal(t, ts.ID, entry.TimesheetID)
	assert.Equal(t, 120, entry.Minutes)
	repo.AssertExpectations(t)
}

func TestTimesheetService_AddTimeEntry_FutureDateRejected(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := hourlyContract(uuid.New(), freelancerID, "60.00", nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.AddTimeEntry(ctx, contract.ID, freelancerID, time.Now().UTC().Add(48*time.Hour), 60, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "будущее")
}

func TestTimesheetService_AddTimeEntry_SubmittedWeekLocked(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := hourlyContract(uuid.New(), freelancerID, "60.00", nil)
	workDate := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	weekStart, weekEnd := weekBounds(workDate)
	ts := &models.WeeklyTimesheet{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Status:     models.TimesheetStatusSubmitted,
	}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	repo.On("GetOrCreateWeek", ctx, contract.ID, weekStart, weekEnd, "USD").Return(ts, nil)

	_, err := svc.AddTimeEntry(ctx, contract.ID, freelancerID, workDate, 60, nil)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "AddTimeEntry", mock.Anything, mock.Anything)
}

func TestTimesheetService_Submit_CapsAtWeeklyHourLimit(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	freelancerID := uuid.New()
	limit := 10
	contract := hourlyContract(uuid.New(), freelancerID, "50.00", &limit)
	ts := &models.WeeklyTimesheet{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Status:     models.TimesheetStatusPending,
	}

	repo.On("GetByID", ctx, ts.ID).Return(ts, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	// отработано 12 часов при лимите 10: оплачиваются 600 минут → 500.00
	repo.On("SumMinutes", ctx, ts.ID).Return(720, nil)
	repo.On("Submit", ctx, ts.ID, 720, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.StringFixed(2) == "500.00"
	})).Return(nil)

	_, err := svc.Submit(ctx, ts.ID, freelancerID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestTimesheetService_Submit_RoundsToCent(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := hourlyContract(uuid.New(), freelancerID, "33.33", nil)
	ts := &models.WeeklyTimesheet{ID: uuid.New(), ContractID: contract.ID, Status: models.TimesheetStatusPending}

	repo.On("GetByID", ctx, ts.ID).Return(ts, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	// 95 минут по 33.33/час = 52.7725 → 52.77
	repo.On("SumMinutes", ctx, ts.ID).Return(95, nil)
	repo.On("Submit", ctx, ts.ID, 95, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.StringFixed(2) == "52.77"
	})).Return(nil)

	_, err := svc.Submit(ctx, ts.ID, freelancerID)
	assert.NoError(t, err)
}

func TestTimesheetService_Submit_EmptyTimesheet(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := hourlyContract(uuid.New(), freelancerID, "50.00", nil)
	ts := &models.WeeklyTimesheet{ID: uuid.New(), ContractID: contract.ID, Status: models.TimesheetStatusPending}

	repo.On("GetByID", ctx, ts.ID).Return(ts, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	repo.On("SumMinutes", ctx, ts.ID).Return(0, nil)

	_, err := svc.Submit(ctx, ts.ID, freelancerID)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTimesheetService_Approve_OnlyClient(t *testing.T) {
	repo := new(mockTimesheetRepo)
	contracts := new(mockContractRepo)
	svc := NewTimesheetService(repo, contracts, testLogger())
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	contract := hourlyContract(clientID, freelancerID, "50.00", nil)
	ts := &models.WeeklyTimesheet{ID: uuid.New(), ContractID: contract.ID, Status: models.TimesheetStatusSubmitted}

	repo.On("GetByID", ctx, ts.ID).Return(ts, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	err := svc.Approve(ctx, ts.ID, freelancerID)
	assert.Error(t, err)

	repo.On("UpdateStatus", ctx, ts.ID, models.TimesheetStatusApproved).Return(nil)
	err = svc.Approve(ctx, ts.ID, clientID)
	assert.NoError(t, err)
}
