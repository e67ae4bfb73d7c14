package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/feecalc"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type BillableTimesheetRepository interface {
	ListBillable(ctx context.Context) ([]models.WeeklyTimesheet, error)
	IsBilled(ctx context.Context, timesheetID uuid.UUID) (bool, error)
	Bill(ctx context.Context, ts *models.WeeklyTimesheet, clientID uuid.UUID, clientFee decimal.Decimal, gatewayRef string) (*models.Invoice, error)
}

// BillingItemResult — итог обработки одного табеля недельным списанием.
type BillingItemResult struct {
	TimesheetID uuid.UUID  `json:"timesheet_id"`
	ContractID  uuid.UUID  `json:"contract_id"`
	InvoiceID   *uuid.UUID `json:"invoice_id,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// BillingRunResult — сводка запуска недельного списания.
type BillingRunResult struct {
	Processed int                 `json:"processed"`
	Charged   int                 `json:"charged"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	Items     []BillingItemResult `json:"items"`
}

// BillingService выполняет недельное списание по подтверждённым табелям.
type BillingService struct {
	timesheets BillableTimesheetRepository
	contracts  ContractRepository
	profiles   BillingProfileRepository
	card       gateway.CardGateway
	workers    int
	log        *logrus.Entry
}

func NewBillingService(
	timesheets BillableTimesheetRepository,
	contracts ContractRepository,
	profiles BillingProfileRepository,
	card gateway.CardGateway,
	workers int,
	log *logrus.Entry,
) *BillingService {
	if workers <= 0 {
		workers = 4
	}
	return &BillingService{
		timesheets: timesheets,
		contracts:  contracts,
		profiles:   profiles,
		card:       card,
		workers:    workers,
		log:        log,
	}
}

// RunWeeklyBilling списывает все подтверждённые несписанные табели.
// Табели группируются по клиенту: внутри клиента списания идут строго
// последовательно от старых недель к новым, разные клиенты — параллельно.
// Ошибка одного табеля не останавливает остальных.
func (s *BillingService) RunWeeklyBilling(ctx context.Context) (*BillingRunResult, error) {
	sheets, err := s.timesheets.ListBillable(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing: list billable: %w", err)
	}

	// порядок ListBillable (старые недели первыми) сохраняется внутри группы
	groups := make(map[uuid.UUID][]models.WeeklyTimesheet)
	clientByContract := make(map[uuid.UUID]uuid.UUID)
	result := &BillingRunResult{}

	for _, ts := range sheets {
		clientID, ok := clientByContract[ts.ContractID]
		if !ok {
			contract, err := s.contracts.GetByID(ctx, ts.ContractID)
			if err != nil {
				result.Items = append(result.Items, BillingItemResult{
					TimesheetID: ts.ID, ContractID: ts.ContractID,
					Status: "failed", Error: err.Error(),
				})
				result.Failed++
				continue
			}
			if contract.Status != models.ContractStatusActive {
				// приостановленные и закрытые контракты не списываем
				result.Items = append(result.Items, BillingItemResult{
					TimesheetID: ts.ID, ContractID: ts.ContractID, Status: "skipped",
				})
				result.Skipped++
				continue
			}
			clientID = contract.ClientID
			clientByContract[ts.ContractID] = clientID
		}
		groups[clientID] = append(groups[clientID], ts)
	}

	pool := workerpool.New(s.workers)
	var mu sync.Mutex

	for clientID, clientSheets := range groups {
		clientID, clientSheets := clientID, clientSheets
		pool.Submit(func() {
			for _, ts := range clientSheets {
				item := s.billOne(ctx, clientID, ts)
				mu.Lock()
				result.Items = append(result.Items, item)
				switch item.Status {
				case "charged":
					result.Charged++
				case "skipped":
					result.Skipped++
				default:
					result.Failed++
				}
				mu.Unlock()
			}
		})
	}
	pool.StopWait()

	result.Processed = len(result.Items)
	s.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"charged":   result.Charged,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("недельное списание завершено")
	return result, nil
}

// billOne списывает один табель. Флаг billed перечитывается непосредственно
// перед обращением к шлюзу, а сам переход false → true выполняется
// последним шагом транзакции Bill.
func (s *BillingService) billOne(ctx context.Context, clientID uuid.UUID, ts models.WeeklyTimesheet) BillingItemResult {
	item := BillingItemResult{TimesheetID: ts.ID, ContractID: ts.ContractID}

	if !ts.TotalAmount.IsPositive() {
		item.Status = "skipped"
		return item
	}

	billed, err := s.timesheets.IsBilled(ctx, ts.ID)
	if err != nil {
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}
	if billed {
		item.Status = "skipped"
		return item
	}

	profile, err := s.profiles.GetByUser(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrBillingProfileNotFound) {
			item.Status = "failed"
			item.Error = "billing profile is not configured"
			return item
		}
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}
	if profile.GatewayCustomerID == nil || profile.DefaultPaymentMethodID == nil {
		item.Status = "failed"
		item.Error = "payment method is not configured"
		return item
	}

	clientFee := feecalc.ClientFee(ts.TotalAmount)
	total := ts.TotalAmount.Add(clientFee)

	intent, err := s.card.CreatePaymentIntent(ctx, gateway.ChargeRequest{
		AmountCents:     feecalc.ToCents(total),
		Currency:        ts.Currency,
		CustomerID:      *profile.GatewayCustomerID,
		PaymentMethodID: *profile.DefaultPaymentMethodID,
		IdempotencyKey:  fmt.Sprintf("timesheet-bill-%s", ts.ID),
		Description:     fmt.Sprintf("Weekly invoice %s", ts.WeekStart.Format("2006-01-02")),
	})
	if err != nil {
		s.log.WithError(err).WithField("timesheet_id", ts.ID).Warn("списание по табелю отклонено")
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	invoice, err := s.timesheets.Bill(ctx, &ts, clientID, clientFee, intent.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTimesheetBilled) {
			item.Status = "skipped"
			return item
		}
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	item.Status = "charged"
	item.InvoiceID = &invoice.ID
	return item
}
