package domain

import "time"

// QuoteFields — нормализованные поля запроса котировки. Структура плоская и
// покрывает оба продукта: транспорт заполняет только релевантные поля,
// скоринг и прайсинг читают их напрямую без map[string]interface{}.
type QuoteFields struct {
	// shipping
	DeclaredValue    float64 `json:"declared_value,omitempty"`    // в долларах
	ItemCategory     string  `json:"item_category,omitempty"`     // standard, electronics_high_value, jewelry_high_value...
	DestinationState string  `json:"destination_state,omitempty"` // код штата
	DestinationRisk  string  `json:"destination_risk,omitempty"`  // low | medium | high
	ServiceLevel     string  `json:"service_level,omitempty"`     // ground | expedited | overnight

	// ppi
	OrderValue   float64 `json:"order_value,omitempty"` // в долларах
	TermMonths   int     `json:"term_months,omitempty"`
	Age          int     `json:"age,omitempty"`
	TenureMonths int     `json:"tenure_months,omitempty"` // стаж занятости
	JobCategory  string  `json:"job_category,omitempty"`
	State        string  `json:"state,omitempty"`
}

// Дефолты необязательных полей ppi. Нулевое значение означает
// "не передано": скоринг, прайсинг и комплаенс подставляют эти значения,
// а не штрафуют как возраст 0 / стаж 0.
const (
	DefaultPolicyholderAge = 30
	DefaultTenureMonths    = 12
)

// Policyholder — финальные данные страхователя, приходят на этапе bind
type Policyholder struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	State        string `json:"state"`
	Age          int    `json:"age"`
	TenureMonths int    `json:"tenure_months"`
}

// PriceBreakdown — разложение премии для аудита и витрины.
// Все денежные величины в центах, множители — как применены.
type PriceBreakdown struct {
	BaseCents        int64    `json:"base"` // базовая премия до риска и наценки
	CategoryMult     float64  `json:"category_mult,omitempty"`
	DestMult         float64  `json:"dest_mult,omitempty"`
	ServiceMult      float64  `json:"service_mult,omitempty"`
	TermMult         float64  `json:"term_mult,omitempty"`
	BandMult         float64  `json:"band_mult,omitempty"`
	AgeMult          float64  `json:"age_mult,omitempty"`
	TenureMult       float64  `json:"tenure_mult,omitempty"`
	JobMult          float64  `json:"job_mult,omitempty"`
	RiskMult         float64  `json:"risk_mult"`
	PartnerMarkupPct float64  `json:"partner_markup_pct"`
	RiskBand         RiskBand `json:"risk_band,omitempty"`
}

// ComplianceDecision — вердикт комплаенс-движка
type ComplianceDecision string

const (
	DecisionAllow ComplianceDecision = "allow"
	DecisionBlock ComplianceDecision = "block"
)

// ComplianceResult — результат прогона правил. Чистая функция от набора
// правил и контекста; ReportID — свежий аудит-тег на каждый прогон.
type ComplianceResult struct {
	Decision     ComplianceDecision `json:"decision"`
	Disclosures  []string           `json:"disclosures"`
	AppliedRules []string           `json:"rules_applied"`
	ReportID     string             `json:"report_id"`
}

// Blocked сообщает, заблокирована ли транзакция
func (c *ComplianceResult) Blocked() bool {
	return c.Decision == DecisionBlock
}

// Quote — неизменяемый снимок котировки. Создается один раз, никогда не
// мутируется; на нее ссылается максимум один Policy.
type Quote struct {
	ID               string           `json:"quote_id"`
	PartnerID        string           `json:"partner_id"`
	Product          ProductCode      `json:"product_code"`
	Fields           QuoteFields      `json:"request"`
	RiskBand         RiskBand         `json:"risk_band"`
	RiskMultiplier   float64          `json:"risk_multiplier"`
	Breakdown        PriceBreakdown   `json:"price_breakdown"`
	CarrierSuggested string           `json:"carrier_suggestion"`
	RouterRationale  string           `json:"router_rationale"`
	Compliance       ComplianceResult `json:"compliance"`
	PremiumCents     int64            `json:"premium_cents"`
	CreatedAt        time.Time        `json:"created_at"`
}

// CarrierEvaluation — оценка одного кандидата в роутере, попадает в
// routing summary для разбора "почему выбрали/отбросили".
type CarrierEvaluation struct {
	CarrierID       string  `json:"carrier_id"`
	CarrierName     string  `json:"carrier_name"`
	Eligible        bool    `json:"eligible"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	PremiumCents    int64   `json:"premium_cents,omitempty"`
	MarginCents     float64 `json:"expected_margin_cents,omitempty"`
	Remaining       int     `json:"remaining_capacity"`
}

// RoutingSummary — полная картина маршрутизации по всем носителям
type RoutingSummary struct {
	Evaluations     []CarrierEvaluation `json:"carrier_evaluations"`
	SelectedCarrier string              `json:"selected_carrier,omitempty"`
	TotalEligible   int                 `json:"total_eligible"`
}
