package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type mockContractRepo struct {
	mock.Mock
}

func (m *mockContractRepo) Create(ctx context.Context, c *models.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractRepo) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatuses []string, toStatus string) error {
	args := m.Called(ctx, id, fromStatuses, toStatus)
	return args.Error(0)
}

func (m *mockContractRepo) UpdateSettings(ctx context.Context, id uuid.UUID, weeklyHourLimit *int) error {
	args := m.Called(ctx, id, weeklyHourLimit)
	return args.Error(0)
}

func (m *mockContractRepo) ListByParty(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *mockContractRepo) SyncJobStatus(ctx context.Context, jobID uuid.UUID, status string) error {
	args := m.Called(ctx, jobID, status)
	return args.Error(0)
}

func (m *mockContractRepo) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

type mockDisputeChecker struct {
	mock.Mock
}

func (m *mockDisputeChecker) HasOpenByContract(ctx context.Context, contractID uuid.UUID) (bool, error) {
	args := m.Called(ctx, contractID)
	return args.Bool(0), args.Error(1)
}

type mockMilestoneRepo struct {
	mock.Mock
}

func (m *mockMilestoneRepo) Create(ctx context.Context, ms *models.Milestone) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}

func (m *mockMilestoneRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) Fund(ctx context.Context, milestoneID uuid.UUID, clientFee decimal.Decimal, gatewayRef string) (*models.EscrowTransaction, error) {
	args := m.Called(ctx, milestoneID, clientFee, gatewayRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowTransaction), args.Error(1)
}

func (m *mockMilestoneRepo) Submit(ctx context.Context, milestoneID uuid.UUID) error {
	args := m.Called(ctx, milestoneID)
	return args.Error(0)
}

func (m *mockMilestoneRepo) RequestRevision(ctx context.Context, milestoneID uuid.UUID) error {
	args := m.Called(ctx, milestoneID)
	return args.Error(0)
}

func (m *mockMilestoneRepo) Accept(ctx context.Context, milestoneID uuid.UUID, platformFee decimal.Decimal) error {
	args := m.Called(ctx, milestoneID, platformFee)
	return args.Error(0)
}

type mockBillingProfileRepo struct {
	mock.Mock
}

func (m *mockBillingProfileRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.BillingProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BillingProfile), args.Error(1)
}

type mockCardGateway struct {
	mock.Mock
}

func (m *mockCardGateway) CreatePaymentIntent(ctx context.Context, req gateway.ChargeRequest) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *mockCardGateway) CreateTransfer(ctx context.Context, req gateway.TransferRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockCardGateway) AccountPayoutsEnabled(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCardGateway) VerifyWebhook(payload []byte, signatureHeader string) error {
	args := m.Called(payload, signatureHeader)
	return args.Error(0)
}

func (m *mockCardGateway) ParseWebhook(payload []byte) (*gateway.Event, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

type mockPeerGateway struct {
	mock.Mock
}

func (m *mockPeerGateway) CreatePayout(ctx context.Context, req gateway.PeerPayoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockPeerGateway) VerifyWebhook(ctx context.Context, headers map[string]string, payload []byte) error {
	args := m.Called(ctx, headers, payload)
	return args.Error(0)
}

func (m *mockPeerGateway) ParseWebhook(payload []byte) (*gateway.Event, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

type mockTimesheetRepo struct {
	mock.Mock
}

func (m *mockTimesheetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WeeklyTimesheet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyTimesheet), args.Error(1)
}

func (m *mockTimesheetRepo) GetOrCreateWeek(ctx context.Context, contractID uuid.UUID, weekStart, weekEnd time.Time, currency string) (*models.WeeklyTimesheet, error) {
	args := m.Called(ctx, contractID, weekStart, weekEnd, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyTimesheet), args.Error(1)
}

func (m *mockTimesheetRepo) AddTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockTimesheetRepo) SumMinutes(ctx context.Context, timesheetID uuid.UUID) (int, error) {
	args := m.Called(ctx, timesheetID)
	return args.Int(0), args.Error(1)
}

func (m *mockTimesheetRepo) Submit(ctx context.Context, timesheetID uuid.UUID, totalMinutes int, totalAmount decimal.Decimal) error {
	args := m.Called(ctx, timesheetID, totalMinutes, totalAmount)
	return args.Error(0)
}

func (m *mockTimesheetRepo) UpdateStatus(ctx context.Context, timesheetID uuid.UUID, toStatus string) error {
	args := m.Called(ctx, timesheetID, toStatus)
	return args.Error(0)
}

func (m *mockTimesheetRepo) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.WeeklyTimesheet, error) {
	args := m.Called(ctx, contractID, limit, offset)
	return args.Get(0).([]models.WeeklyTimesheet), args.Error(1)
}

type mockBillableTimesheetRepo struct {
	mock.Mock
}

func (m *mockBillableTimesheetRepo) ListBillable(ctx context.Context) ([]models.WeeklyTimesheet, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.WeeklyTimesheet), args.Error(1)
}

func (m *mockBillableTimesheetRepo) IsBilled(ctx context.Context, timesheetID uuid.UUID) (bool, error) {
	args := m.Called(ctx, timesheetID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBillableTimesheetRepo) Bill(ctx context.Context, ts *models.WeeklyTimesheet, clientID uuid.UUID, clientFee decimal.Decimal, gatewayRef string) (*models.Invoice, error) {
	args := m.Called(ctx, ts, clientID, clientFee, gatewayRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

type mockPayoutRepo struct {
	mock.Mock
}

func (m *mockPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payout), args.Error(1)
}

func (m *mockPayoutRepo) ListEligibleFreelancers(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockPayoutRepo) SumOutstanding(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockPayoutRepo) CreatePending(ctx context.Context, p *models.Payout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPayoutRepo) SetProcessing(ctx context.Context, id uuid.UUID, gatewayRef string) error {
	args := m.Called(ctx, id, gatewayRef)
	return args.Error(0)
}

func (m *mockPayoutRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockPayoutRepo) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	args := m.Called(ctx, freelancerID, limit, offset)
	return args.Get(0).([]models.Payout), args.Error(1)
}

type mockPayoutMethodRepo struct {
	mock.Mock
}

func (m *mockPayoutMethodRepo) GetPreferred(ctx context.Context, freelancerID uuid.UUID) (*models.PayoutMethod, error) {
	args := m.Called(ctx, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PayoutMethod), args.Error(1)
}

type mockEarningsRepo struct {
	mock.Mock
}

func (m *mockEarningsRepo) FreelancerEarned(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockReconLedger struct {
	mock.Mock
}

func (m *mockReconLedger) MarkCompletedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error) {
	args := m.Called(ctx, gatewayRef)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReconLedger) MarkFailedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error) {
	args := m.Called(ctx, gatewayRef)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReconLedger) InsertRefundForGatewayRef(ctx context.Context, gatewayRef string, amount decimal.Decimal) (*models.EscrowTransaction, error) {
	args := m.Called(ctx, gatewayRef, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowTransaction), args.Error(1)
}

func (m *mockReconLedger) ListByGatewayRef(ctx context.Context, gatewayRef string) ([]models.EscrowTransaction, error) {
	args := m.Called(ctx, gatewayRef)
	return args.Get(0).([]models.EscrowTransaction), args.Error(1)
}

type mockReconPayouts struct {
	mock.Mock
}

func (m *mockReconPayouts) MarkCompletedByGatewayRef(ctx context.Context, gatewayRef string) (int64, error) {
	args := m.Called(ctx, gatewayRef)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReconPayouts) MarkFailedByGatewayRef(ctx context.Context, gatewayRef, reason string) (int64, error) {
	args := m.Called(ctx, gatewayRef, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReconPayouts) ForceFailByGatewayRef(ctx context.Context, gatewayRef, reason string) (int64, error) {
	args := m.Called(ctx, gatewayRef, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReconPayouts) FreelancerByGatewayRef(ctx context.Context, gatewayRef string) (uuid.UUID, error) {
	args := m.Called(ctx, gatewayRef)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type mockReconMilestones struct {
	mock.Mock
}

func (m *mockReconMilestones) RevertFunding(ctx context.Context, milestoneID uuid.UUID) error {
	args := m.Called(ctx, milestoneID)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType, title, body, priority string, data any) {
	m.Called(ctx, userID, notifType, title, body, priority, data)
}

type mockRateSource struct {
	mock.Mock
}

func (m *mockRateSource) PlatformFeeOverride(ctx context.Context, clientID, freelancerID uuid.UUID) (*decimal.Decimal, error) {
	args := m.Called(ctx, clientID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*decimal.Decimal), args.Error(1)
}

func (m *mockRateSource) LifetimeReleased(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
