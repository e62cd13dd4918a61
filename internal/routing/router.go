package routing

/*
Файл router.go — маршрутизация котировки к носителю. Для каждого кандидата:
аппетит -> консультативная емкость -> прайсинг по его кривой -> ожидаемая
маржа. Выжившие ранжируются по марже (убыв.), тай-брейк — меньшая премия.
Отказ одного носителя (нет кривой, ошибка прайсинга) глотается: носитель
исключается, оценка остальных продолжается.

Двухфазный паттерн сохраняется намеренно: здесь только консультативный
фильтр по емкости, авторитетный атомарный резерв происходит на bind.
*/

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
	"github.com/xela07ax/embedins-infra-prototype/internal/pricing"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
)

// Предполагаемая доля убыточности для оценки маржи. Фиксирована для всех
// носителей и продуктов; должна ли быть carrier-specific — открытый вопрос.
const assumedLossRatio = 0.60

// CapacityReader — консультативное чтение остатка емкости (может быть
// устаревшим; ничего не резервирует)
type CapacityReader interface {
	Remaining(ctx context.Context, carrierID, month string, monthlyLimit int) (int, error)
}

// PauseChecker сообщает, выведен ли носитель из ротации оператором
type PauseChecker interface {
	IsPaused(carrierID string) bool
}

// Selection — выбранный носитель со всем, что нужно для снимка котировки
type Selection struct {
	CarrierID    string
	CarrierName  string
	PremiumCents int64
	Breakdown    domain.PriceBreakdown
	MarginCents  float64
	Remaining    int
	Rationale    string
}

type Router struct {
	ref      *refdata.Store
	capacity CapacityReader
	pauses   PauseChecker
	logger   *zap.Logger
}

func NewRouter(ref *refdata.Store, capacity CapacityReader, pauses PauseChecker, logger *zap.Logger) *Router {
	return &Router{
		ref:      ref,
		capacity: capacity,
		pauses:   pauses,
		logger:   logger.Named("router"),
	}
}

// candidate — внутренняя оценка одного носителя
type candidate struct {
	carrier   *domain.Carrier
	premium   int64
	breakdown domain.PriceBreakdown
	margin    float64
	remaining int
}

// Route выбирает носителя с максимальной ожидаемой маржой.
// domain.ErrNoEligibleCarrier — все отброшены аппетитом/емкостью.
func (r *Router) Route(
	ctx context.Context,
	product domain.ProductCode,
	fields domain.QuoteFields,
	assessment domain.RiskAssessment,
	partner *domain.Partner,
	month string,
) (*Selection, *domain.RoutingSummary, error) {
	summary := &domain.RoutingSummary{}
	var eligible []candidate

	carriers := r.ref.Carriers()
	for i := range carriers {
		carrier := &carriers[i]
		eval := domain.CarrierEvaluation{
			CarrierID:   carrier.ID,
			CarrierName: carrier.Name,
		}

		if r.pauses != nil && r.pauses.IsPaused(carrier.ID) {
			eval.RejectionReason = "carrier paused by operator"
			summary.Evaluations = append(summary.Evaluations, eval)
			continue
		}

		// 1. Аппетит
		if reason, ok := checkAppetite(carrier, product, fields, assessment.Band); !ok {
			eval.RejectionReason = reason
			summary.Evaluations = append(summary.Evaluations, eval)
			continue
		}

		// 2. Консультативная емкость (не резервирует)
		remaining, err := r.capacity.Remaining(ctx, carrier.ID, month, carrier.CapacityMonthlyLimit)
		if err != nil {
			r.logger.Warn("capacity read failed, skipping carrier",
				zap.String("carrier_id", carrier.ID), zap.Error(err))
			eval.RejectionReason = "capacity unavailable"
			summary.Evaluations = append(summary.Evaluations, eval)
			continue
		}
		eval.Remaining = remaining
		if remaining <= 0 {
			eval.RejectionReason = "no capacity available"
			summary.Evaluations = append(summary.Evaluations, eval)
			continue
		}

		// 3. Прайсинг по кривой носителя. Отказ тут исключает только
		// этого носителя, а не всю котировку.
		curve, err := r.ref.PricingCurve(carrier.ID, product)
		if err != nil {
			r.logger.Warn("skipping carrier: pricing curve unavailable",
				zap.String("carrier_id", carrier.ID), zap.Error(err))
			eval.RejectionReason = "pricing curve unavailable"
			summary.Evaluations = append(summary.Evaluations, eval)
			continue
		}
		premium, breakdown, err := pricing.Premium(product, fields, assessment.Multiplier, partner.MarkupPct, curve, assessment.Band)
		if err != nil {
			r.logger.Warn("skipping carrier: pricing failed",
				zap.String("carrier_id", carrier.ID), zap.Error(err))
			eval.RejectionReason = "pricing failed"
			summary.Evaluations = append(summary.Evaluations, eval)
			continue
		}

		// 4. Ожидаемая маржа = premium - premium * lossRatio * riskMult
		margin := float64(premium) - float64(premium)*assumedLossRatio*assessment.Multiplier

		eval.Eligible = true
		eval.PremiumCents = premium
		eval.MarginCents = margin
		summary.Evaluations = append(summary.Evaluations, eval)

		eligible = append(eligible, candidate{
			carrier:   carrier,
			premium:   premium,
			breakdown: breakdown,
			margin:    margin,
			remaining: remaining,
		})
		summary.TotalEligible++
	}

	if len(eligible) == 0 {
		return nil, summary, fmt.Errorf("routing: %w", domain.ErrNoEligibleCarrier)
	}

	// Маржа по убыванию, при равенстве — меньшая премия
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].margin != eligible[j].margin {
			return eligible[i].margin > eligible[j].margin
		}
		return eligible[i].premium < eligible[j].premium
	})

	best := eligible[0]
	summary.SelectedCarrier = best.carrier.ID

	sel := &Selection{
		CarrierID:    best.carrier.ID,
		CarrierName:  best.carrier.Name,
		PremiumCents: best.premium,
		Breakdown:    best.breakdown,
		MarginCents:  best.margin,
		Remaining:    best.remaining,
		Rationale: fmt.Sprintf("Selected %s with margin $%.2f (premium: $%.2f, capacity: %d)",
			best.carrier.ID, best.margin/100, float64(best.premium)/100, best.remaining),
	}

	if len(eligible) > 1 {
		r.logger.Debug("other eligible carriers",
			zap.Int("count", len(eligible)-1),
			zap.String("runner_up", eligible[1].carrier.ID))
	}
	return sel, summary, nil
}

// checkAppetite проверяет все ограничения аппетита носителя для продукта.
// Отсутствие конфигурации аппетита по продукту — отказ (Default Deny).
func checkAppetite(c *domain.Carrier, product domain.ProductCode, f domain.QuoteFields, band domain.RiskBand) (string, bool) {
	appetite, ok := c.Appetite[product]
	if !ok {
		return fmt.Sprintf("product %s not in appetite", product), false
	}

	state := f.State
	if state == "" {
		state = f.DestinationState
	}
	for _, excluded := range appetite.ExcludedStates {
		if state == excluded {
			return fmt.Sprintf("state %s excluded", state), false
		}
	}

	if appetite.MaxRiskBand != "" && band.Worse(appetite.MaxRiskBand) {
		return fmt.Sprintf("risk band %s exceeds max %s", band, appetite.MaxRiskBand), false
	}

	switch product {
	case domain.ProductShipping:
		for _, excluded := range appetite.ExcludedCategories {
			if f.ItemCategory == excluded {
				return fmt.Sprintf("category %s excluded", f.ItemCategory), false
			}
		}
		if appetite.MaxDeclaredValue > 0 && f.DeclaredValue > appetite.MaxDeclaredValue {
			return fmt.Sprintf("declared value $%.0f exceeds max $%.0f", f.DeclaredValue, appetite.MaxDeclaredValue), false
		}
	case domain.ProductPPI:
		if appetite.MaxTermMonths > 0 && f.TermMonths > appetite.MaxTermMonths {
			return fmt.Sprintf("term %d months exceeds max %d", f.TermMonths, appetite.MaxTermMonths), false
		}
		for _, excluded := range appetite.ExcludedJobCategories {
			if f.JobCategory == excluded {
				return fmt.Sprintf("job category %s excluded", f.JobCategory), false
			}
		}
	}
	return "", true
}
