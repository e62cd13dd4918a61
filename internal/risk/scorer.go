package risk

/*
Файл scorer.go — детерминированный скоринг риска. Чистые функции без
состояния и побочных эффектов: одинаковый вход всегда дает одинаковый
score, band и множитель. Маппинг score -> band общий для обоих продуктов
и намеренно не настраивается per-product.
*/

import (
	"fmt"
	"math"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// Слагаемые shipping-формулы: риск направления и уровень сервиса
var destinationRiskTerm = map[string]float64{
	"low":    0.0,
	"medium": 0.5,
	"high":   1.0,
}

var serviceLevelTerm = map[string]float64{
	"ground":    0.2,
	"expedited": 0.1,
	"overnight": 0.0,
}

// Категории с надбавкой за высокую стоимость
var highValueCategories = map[string]bool{
	"electronics_high_value": true,
	"jewelry_high_value":     true,
}

// Score вычисляет оценку риска для продукта.
// shipping: 0.02*(declared_value/1000) + destTerm + svcTerm + hiValueTerm
// ppi:      0.02*(order_value/100) + 0.1*(term/6) + (age<25 ? 0.3) + (tenure<6 ? 0.3)
// Результат округляется до 4 знаков до бандинга (важно только на границах).
func Score(product domain.ProductCode, fields domain.QuoteFields, ph *domain.Policyholder) (domain.RiskAssessment, error) {
	var score float64
	switch product {
	case domain.ProductShipping:
		score = shippingScore(fields)
	case domain.ProductPPI:
		if ph == nil {
			return domain.RiskAssessment{}, fmt.Errorf("risk: %w: policyholder required for ppi", domain.ErrValidation)
		}
		score = ppiScore(fields, ph)
	default:
		return domain.RiskAssessment{}, fmt.Errorf("risk: %w: unknown product %q", domain.ErrValidation, product)
	}

	score = round4(score)
	band, mult := BandFor(score)
	return domain.RiskAssessment{
		Score:      score,
		Band:       band,
		Multiplier: mult,
		Product:    product,
	}, nil
}

func shippingScore(f domain.QuoteFields) float64 {
	score := 0.02 * (f.DeclaredValue / 1000)
	score += destinationRiskTerm[f.DestinationRisk]
	if term, ok := serviceLevelTerm[f.ServiceLevel]; ok {
		score += term
	} else {
		score += serviceLevelTerm["ground"]
	}
	if highValueCategories[f.ItemCategory] {
		score += 0.3
	}
	return score
}

func ppiScore(f domain.QuoteFields, ph *domain.Policyholder) float64 {
	// Возраст и стаж на котировке необязательны: ноль = не передано
	age := ph.Age
	if age == 0 {
		age = domain.DefaultPolicyholderAge
	}
	tenure := ph.TenureMonths
	if tenure == 0 {
		tenure = domain.DefaultTenureMonths
	}

	score := 0.02 * (f.OrderValue / 100)
	score += 0.1 * (float64(f.TermMonths) / 6)
	if age < 25 {
		score += 0.3
	}
	if tenure < 6 {
		score += 0.3
	}
	return score
}

// BandFor — фиксированная ступенчатая функция band/multiplier.
// Границы полуоткрыты снизу: score 0.4 — это уже B, не A.
func BandFor(score float64) (domain.RiskBand, float64) {
	switch {
	case score < 0.4:
		return domain.BandA, 0.90
	case score < 0.8:
		return domain.BandB, 1.00
	case score < 1.2:
		return domain.BandC, 1.10
	case score < 1.6:
		return domain.BandD, 1.25
	default:
		return domain.BandE, 1.40
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
