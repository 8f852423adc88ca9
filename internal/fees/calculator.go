package fees

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Типы операций с разными тарифами.
const (
	TypeEscrow    = "escrow"
	TypeMilestone = "milestone"
	TypeHourly    = "hourly"
)

// BulkDiscountPercent задаёт скидку на платформенную комиссию при объёмных сделках.
const BulkDiscountPercent = 20

// Schedule описывает тариф: процент платформы с границами и процент процессинга
// с фиксированной частью.
type Schedule struct {
	PlatformPercent   decimal.Decimal
	PlatformMin       decimal.Decimal
	PlatformMax       decimal.Decimal
	ProcessingPercent decimal.Decimal
	ProcessingFixed   decimal.Decimal
}

// Тарифная сетка. Значения нормативны: их менять нельзя без миграции
// исторических расчётов.
var schedules = map[string]Schedule{
	TypeEscrow: {
		PlatformPercent:   decimal.NewFromFloat(5),
		PlatformMin:       decimal.NewFromFloat(1),
		PlatformMax:       decimal.NewFromFloat(1000),
		ProcessingPercent: decimal.NewFromFloat(2.9),
		ProcessingFixed:   decimal.NewFromFloat(0.30),
	},
	TypeMilestone: {
		PlatformPercent:   decimal.NewFromFloat(4.5),
		PlatformMin:       decimal.NewFromFloat(1),
		PlatformMax:       decimal.NewFromFloat(900),
		ProcessingPercent: decimal.NewFromFloat(2.9),
		ProcessingFixed:   decimal.NewFromFloat(0.30),
	},
	TypeHourly: {
		PlatformPercent:   decimal.NewFromFloat(4),
		PlatformMin:       decimal.NewFromFloat(1),
		PlatformMax:       decimal.NewFromFloat(800),
		ProcessingPercent: decimal.NewFromFloat(2.9),
		ProcessingFixed:   decimal.NewFromFloat(0.30),
	},
}

// Breakdown содержит результат расчёта комиссий, суммы округлены до центов.
type Breakdown struct {
	Platform   float64       `json:"platform"`
	Processing float64       `json:"processing"`
	Total      float64       `json:"total"`
	Detail     RateBreakdown `json:"breakdown"`
}

// RateBreakdown показывает применённые ставки для прозрачности расчёта.
type RateBreakdown struct {
	Type              string  `json:"type"`
	PlatformPercent   float64 `json:"platform_percent"`
	PlatformMin       float64 `json:"platform_min"`
	PlatformMax       float64 `json:"platform_max"`
	ProcessingPercent float64 `json:"processing_percent"`
	ProcessingFixed   float64 `json:"processing_fixed"`
}

// Estimate содержит оценку для одной суммы: комиссии плюс итог к оплате.
type Estimate struct {
	Amount float64   `json:"amount"`
	Fees   Breakdown `json:"fees"`
	Total  float64   `json:"total"`
}

// Savings сравнивает стандартный тариф с тарифом объёмной скидки.
type Savings struct {
	Standard   Breakdown `json:"standard"`
	Discounted Breakdown `json:"discounted"`
	Savings    float64   `json:"savings"`
}

// Calculate считает комиссии по тарифной сетке. Платформенная комиссия
// ограничивается min/max до округления; округление банковское "от половины
// вверх" до 2 знаков.
func Calculate(amount float64, feeType string) (*Breakdown, error) {
	if amount <= 0 {
		return nil, apperror.Validation("сумма для расчёта комиссии должна быть положительной")
	}
	sched, ok := schedules[feeType]
	if !ok {
		return nil, apperror.Validation("неизвестный тип комиссии: " + feeType)
	}
	return calculate(decimal.NewFromFloat(amount), sched, feeType, decimal.NewFromInt(0)), nil
}

// Estimates считает комиссии для списка сумм одного типа.
func Estimates(amounts []float64, feeType string) ([]Estimate, error) {
	result := make([]Estimate, 0, len(amounts))
	for _, amount := range amounts {
		fees, err := Calculate(amount, feeType)
		if err != nil {
			return nil, err
		}
		amt := decimal.NewFromFloat(amount)
		total, _ := amt.Add(decimal.NewFromFloat(fees.Total)).Round(2).Float64()
		result = append(result, Estimate{
			Amount: amount,
			Fees:   *fees,
			Total:  total,
		})
	}
	return result, nil
}

// CalculateSavings сравнивает стандартный расчёт со скидочным
// (минус BulkDiscountPercent от платформенной комиссии).
func CalculateSavings(amount float64, feeType string) (*Savings, error) {
	if amount <= 0 {
		return nil, apperror.Validation("сумма для расчёта комиссии должна быть положительной")
	}
	sched, ok := schedules[feeType]
	if !ok {
		return nil, apperror.Validation("неизвестный тип комиссии: " + feeType)
	}
	amt := decimal.NewFromFloat(amount)
	standard := calculate(amt, sched, feeType, decimal.NewFromInt(0))
	discounted := calculate(amt, sched, feeType, decimal.NewFromInt(BulkDiscountPercent))
	saved, _ := decimal.NewFromFloat(standard.Total).
		Sub(decimal.NewFromFloat(discounted.Total)).Round(2).Float64()
	return &Savings{
		Standard:   *standard,
		Discounted: *discounted,
		Savings:    saved,
	}, nil
}

func calculate(amount decimal.Decimal, sched Schedule, feeType string, discountPercent decimal.Decimal) *Breakdown {
	hundred := decimal.NewFromInt(100)

	platform := amount.Mul(sched.PlatformPercent).Div(hundred)
	if platform.LessThan(sched.PlatformMin) {
		platform = sched.PlatformMin
	}
	if platform.GreaterThan(sched.PlatformMax) {
		platform = sched.PlatformMax
	}
	if discountPercent.IsPositive() {
		platform = platform.Mul(hundred.Sub(discountPercent)).Div(hundred)
	}
	platform = platform.Round(2)

	processing := amount.Mul(sched.ProcessingPercent).Div(hundred).
		Add(sched.ProcessingFixed).Round(2)

	total := platform.Add(processing).Round(2)

	platformF, _ := platform.Float64()
	processingF, _ := processing.Float64()
	totalF, _ := total.Float64()
	platformPct, _ := sched.PlatformPercent.Float64()
	platformMin, _ := sched.PlatformMin.Float64()
	platformMax, _ := sched.PlatformMax.Float64()
	processingPct, _ := sched.ProcessingPercent.Float64()
	processingFixed, _ := sched.ProcessingFixed.Float64()

	return &Breakdown{
		Platform:   platformF,
		Processing: processingF,
		Total:      totalF,
		Detail: RateBreakdown{
			Type:              feeType,
			PlatformPercent:   platformPct,
			PlatformMin:       platformMin,
			PlatformMax:       platformMax,
			ProcessingPercent: processingPct,
			ProcessingFixed:   processingFixed,
		},
	}
}
