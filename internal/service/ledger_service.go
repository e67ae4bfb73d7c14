package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-billing/internal/models"
	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-billing/internal/repository"
)

type LedgerRepository interface {
	EscrowBalance(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error)
	ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.EscrowTransaction, error)
}

type InvoiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Invoice, error)
	ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.Invoice, error)
}

// LedgerService — read-only доступ сторон сделки к журналу и балансам.
type LedgerService struct {
	ledger    LedgerRepository
	invoices  InvoiceRepository
	contracts ContractRepository
}

func NewLedgerService(ledger LedgerRepository, invoices InvoiceRepository, contracts ContractRepository) *LedgerService {
	return &LedgerService{ledger: ledger, invoices: invoices, contracts: contracts}
}

// EscrowBalance возвращает эскроу-баланс контракта стороне сделки.
func (s *LedgerService) EscrowBalance(ctx context.Context, contractID, userID uuid.UUID) (*models.ContractBalance, error) {
	contract, err := s.party(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}
	escrow, err := s.ledger.EscrowBalance(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &models.ContractBalance{
		ContractID: contractID,
		Escrow:     escrow,
		Currency:   contract.Currency,
	}, nil
}

// History возвращает журнал контракта стороне сделки.
func (s *LedgerService) History(ctx context.Context, contractID, userID uuid.UUID, limit, offset int) ([]models.EscrowTransaction, error) {
	if _, err := s.party(ctx, contractID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.ledger.ListByContract(ctx, contractID, limit, offset)
}

// Invoices возвращает инвойсы клиента.
func (s *LedgerService) Invoices(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.invoices.ListByClient(ctx, clientID, limit, offset)
}

// Invoice возвращает инвойс его клиенту.
func (s *LedgerService) Invoice(ctx context.Context, invoiceID, userID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "инвойс не найден")
		}
		return nil, err
	}
	if invoice.ClientID != userID {
		return nil, apperror.ErrForbidden
	}
	return invoice, nil
}

func (s *LedgerService) party(ctx context.Context, contractID, userID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(userID) {
		return nil, apperror.ErrForbidden
	}
	return contract, nil
}
