package pricing

/*
Файл calculator.go — расчет премии. Чистая функция: тарифная кривая,
множитель риска и наценка партнера на входе, премия в центах и
разложение для аудита на выходе. Все деньги наружу — целые центы;
округление — math.Round на долларовой сумме * 100 (half away from zero),
конвенция зафиксирована тестами.
*/

import (
	"fmt"
	"math"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// Premium считает итоговую премию для продукта по кривой носителя.
// Единственный отказ — неизвестный код продукта.
func Premium(
	product domain.ProductCode,
	fields domain.QuoteFields,
	riskMult float64,
	partnerMarkupPct float64,
	curve *domain.PricingCurve,
	band domain.RiskBand,
) (int64, domain.PriceBreakdown, error) {
	switch product {
	case domain.ProductShipping:
		cents, bd := shippingPremium(fields, riskMult, partnerMarkupPct, curve)
		return cents, bd, nil
	case domain.ProductPPI:
		cents, bd := ppiPremium(fields, riskMult, partnerMarkupPct, curve, band)
		return cents, bd, nil
	default:
		return 0, domain.PriceBreakdown{}, fmt.Errorf("pricing: %w: unknown product %q", domain.ErrValidation, product)
	}
}

// shippingPremium: base = (declared/100) * base_rate * catMult * destMult * svcMult;
// total = base * riskMult * (1 + markup)
func shippingPremium(f domain.QuoteFields, riskMult, markup float64, curve *domain.PricingCurve) (int64, domain.PriceBreakdown) {
	catMult := lookup(curve.CategoryMultiplier, f.ItemCategory)
	destMult := lookup(curve.DestinationMultiplier, f.DestinationRisk)
	svcMult := lookup(curve.ServiceLevelMultiplier, f.ServiceLevel)

	baseDollars := (f.DeclaredValue / 100) * curve.BaseRate * catMult * destMult * svcMult
	totalDollars := baseDollars * riskMult * (1 + markup)

	return toCents(totalDollars), domain.PriceBreakdown{
		BaseCents:        toCents(baseDollars),
		CategoryMult:     catMult,
		DestMult:         destMult,
		ServiceMult:      svcMult,
		RiskMult:         riskMult,
		PartnerMarkupPct: markup,
	}
}

// ppiPremium: base = (order/100) * base_rate * termMult * bandMult * ageMult * tenureMult * jobMult.
// bandMult берется из кривой по только что вычисленному band — так разные
// носители тарифицируют один и тот же риск по-разному.
func ppiPremium(f domain.QuoteFields, riskMult, markup float64, curve *domain.PricingCurve, band domain.RiskBand) (int64, domain.PriceBreakdown) {
	termMult := termMultiplier(curve, f.TermMonths)

	bandMult := 1.0
	if band != "" {
		if m, ok := curve.BandMultiplier[band]; ok {
			bandMult = m
		}
	}

	// Ноль в необязательных полях — не передано, подставляем дефолты
	age := f.Age
	if age == 0 {
		age = domain.DefaultPolicyholderAge
	}
	tenure := f.TenureMonths
	if tenure == 0 {
		tenure = domain.DefaultTenureMonths
	}

	ageMult := ageMultiplier(age)
	tenureMult := tenureMultiplier(tenure)
	jobMult := lookup(curve.JobCategoryMultiplier, f.JobCategory)

	baseDollars := (f.OrderValue / 100) * curve.BaseRate * termMult * bandMult * ageMult * tenureMult * jobMult
	totalDollars := baseDollars * riskMult * (1 + markup)

	return toCents(totalDollars), domain.PriceBreakdown{
		BaseCents:        toCents(baseDollars),
		TermMult:         termMult,
		BandMult:         bandMult,
		AgeMult:          ageMult,
		TenureMult:       tenureMult,
		JobMult:          jobMult,
		RiskMult:         riskMult,
		PartnerMarkupPct: markup,
		RiskBand:         band,
	}
}

// termMultiplier выбирает бакет по длине срока: <=6, 7-12, 13-18, 19-24
func termMultiplier(curve *domain.PricingCurve, termMonths int) float64 {
	var key string
	switch {
	case termMonths <= 6:
		key = "<=6"
	case termMonths <= 12:
		key = "7-12"
	case termMonths <= 18:
		key = "13-18"
	default:
		key = "19-24"
	}
	return lookup(curve.TermMultiplier, key)
}

// ageMultiplier — фиксированная шкала, не настраивается кривой
func ageMultiplier(age int) float64 {
	switch {
	case age < 25:
		return 1.2
	case age < 35:
		return 1.0
	case age < 50:
		return 0.95
	default:
		return 1.1
	}
}

// tenureMultiplier — фиксированная шкала по стажу занятости
func tenureMultiplier(tenureMonths int) float64 {
	switch {
	case tenureMonths < 6:
		return 1.3
	case tenureMonths < 12:
		return 1.1
	default:
		return 1.0
	}
}

// lookup — множитель из таблицы кривой, 1.0 если ключа нет
func lookup(table map[string]float64, key string) float64 {
	if m, ok := table[key]; ok {
		return m
	}
	return 1.0
}

// toCents переводит доллары в центы с округлением half away from zero
func toCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}
