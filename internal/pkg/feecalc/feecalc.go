// Package feecalc содержит чистую арифметику комиссий движка.
// Все суммы считаются в decimal с округлением round-half-up до центов,
// float запрещён: сверка с суммами шлюза должна сходиться цент-в-цент.
package feecalc

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-billing/internal/pkg/apperror"
)

// Базовая клиентская комиссия — плоские 5% от суммы.
var clientFeeRate = decimal.RequireFromString("0.05")

// Ступени дефолтной комиссии платформы по пожизненному объёму выплат фрилансеру.
var (
	tierHighVolume = decimal.NewFromInt(10000)
	tierMidVolume  = decimal.NewFromInt(500)

	rateHighVolume = decimal.RequireFromString("0.05")
	rateMidVolume  = decimal.RequireFromString("0.10")
	rateDefault    = decimal.RequireFromString("0.20")
)

// ClientFee возвращает клиентскую комиссию: 5% от суммы, два знака, round-half-up.
func ClientFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(clientFeeRate).Round(2)
}

// TotalClientCharge возвращает полную сумму списания с клиента.
func TotalClientCharge(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(ClientFee(amount))
}

// PlatformFee считает комиссию платформы по заданной ставке.
func PlatformFee(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(2)
}

// ToCents переводит сумму в целые центы без плавающей точки.
// Половина цента округляется вверх: 12.345 → 1235.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents переводит целые центы обратно в сумму.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// RateSource отдаёт данные для вычисления действующей ставки платформы.
type RateSource interface {
	// PlatformFeeOverride возвращает персональную ставку пары клиент-фрилансер
	// или nil, если переопределения нет.
	PlatformFeeOverride(ctx context.Context, clientID, freelancerID uuid.UUID) (*decimal.Decimal, error)
	// LifetimeReleased возвращает суммарный completed-release фрилансера.
	LifetimeReleased(ctx context.Context, freelancerID uuid.UUID) (decimal.Decimal, error)
}

// Calculator вычисляет действующую ставку комиссии платформы.
type Calculator struct {
	rates RateSource
}

func NewCalculator(rates RateSource) *Calculator {
	return &Calculator{rates: rates}
}

// EffectiveRate возвращает ставку платформы для пары клиент-фрилансер:
// сначала персональное переопределение, иначе ступень по объёму.
func (c *Calculator) EffectiveRate(ctx context.Context, clientID, freelancerID uuid.UUID) (decimal.Decimal, error) {
	override, err := c.rates.PlatformFeeOverride(ctx, clientID, freelancerID)
	if err != nil {
		return decimal.Zero, err
	}
	if override != nil {
		if override.IsNegative() || override.GreaterThan(decimal.NewFromInt(1)) {
			return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "ставка комиссии вне диапазона [0, 1]")
		}
		return *override, nil
	}

	volume, err := c.rates.LifetimeReleased(ctx, freelancerID)
	if err != nil {
		return decimal.Zero, err
	}

	switch {
	case volume.GreaterThanOrEqual(tierHighVolume):
		return rateHighVolume, nil
	case volume.GreaterThanOrEqual(tierMidVolume):
		return rateMidVolume, nil
	default:
		return rateDefault, nil
	}
}
