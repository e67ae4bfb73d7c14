package service

import (
	"errors"

	"github.com/shopspring/decimal"
)

var errBadAmount = errors.New("amount must be a positive decimal")

// parsePositiveAmount парсит денежную сумму из строки запроса.
func parsePositiveAmount(v *string) (*decimal.Decimal, error) {
	if v == nil || *v == "" {
		return nil, errBadAmount
	}
	amount, err := decimal.NewFromString(*v)
	if err != nil || !amount.IsPositive() {
		return nil, errBadAmount
	}
	return &amount, nil
}
