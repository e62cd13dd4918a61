package domain

import "time"

// Carrier — страховая компания-носитель риска. Справочные данные: читаются
// один раз при старте, квотирование их не мутирует. Единственное изменяемое
// состояние носителя — месячный счетчик емкости (CapacityCounter).
type Carrier struct {
	ID                   string                          `json:"id" yaml:"id"`
	Name                 string                          `json:"name" yaml:"name"`
	CapacityMonthlyLimit int                             `json:"capacity_monthly_limit" yaml:"capacity_monthly_limit"`
	PricingCurveRef      string                          `json:"pricing_curve_ref" yaml:"pricing_curve_ref"`
	Appetite             map[ProductCode]ProductAppetite `json:"appetite" yaml:"appetite"`
}

// ProductAppetite — готовность носителя принимать риск по одному продукту.
// Нулевые значения лимитов означают "без ограничения".
type ProductAppetite struct {
	ExcludedStates        []string `json:"excluded_states" yaml:"excluded_states"`
	ExcludedCategories    []string `json:"excluded_categories" yaml:"excluded_categories"`         // shipping: категории товаров
	ExcludedJobCategories []string `json:"excluded_job_categories" yaml:"excluded_job_categories"` // ppi: категории занятости
	MaxDeclaredValue      float64  `json:"max_declared_value" yaml:"max_declared_value"`           // shipping, в долларах
	MaxTermMonths         int      `json:"max_term_months" yaml:"max_term_months"`                 // ppi
	MaxRiskBand           RiskBand `json:"max_risk_band" yaml:"max_risk_band"`                     // худший приемлемый band
}

// PricingCurve — тарифная кривая носителя для одного продукта.
// Отсутствующий ключ в любой таблице трактуется как множитель 1.0.
type PricingCurve struct {
	BaseRate float64 `json:"base_rate" yaml:"base_rate"` // ставка на каждые $100 стоимости

	// shipping
	CategoryMultiplier     map[string]float64 `json:"category_multiplier,omitempty" yaml:"category_multiplier"`
	DestinationMultiplier  map[string]float64 `json:"destination_multiplier,omitempty" yaml:"destination_multiplier"`
	ServiceLevelMultiplier map[string]float64 `json:"service_level_multiplier,omitempty" yaml:"service_level_multiplier"`

	// ppi
	TermMultiplier        map[string]float64   `json:"term_multiplier,omitempty" yaml:"term_multiplier"` // бакеты "<=6", "7-12", "13-18", "19-24"
	BandMultiplier        map[RiskBand]float64 `json:"band_multiplier,omitempty" yaml:"band_multiplier"` // ценовая дискриминация по риску
	JobCategoryMultiplier map[string]float64   `json:"job_category_multiplier,omitempty" yaml:"job_category_multiplier"`
}

// CapacityCounter — остаток выдач носителя в календарном месяце.
// Инвариант: Remaining всегда в [0, monthly_limit]. Мутируется только
// атомарным декрементом аллокатора на этапе bind.
type CapacityCounter struct {
	CarrierID string    `json:"carrier_id"`
	AsOfMonth string    `json:"as_of_month"` // формат YYYY-MM
	Remaining int       `json:"remaining"`
	CreatedAt time.Time `json:"created_at"`
}
