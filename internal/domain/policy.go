package domain

import "time"

// PolicyStatus — жизненный цикл полиса. Пока только active; cancelled
// зарезервирован до решения вопроса о возврате емкости носителю.
type PolicyStatus string

const (
	PolicyActive PolicyStatus = "active"
)

// Policy создается ровно из одной котировки на этапе bind.
// Инвариант: CarrierID и PremiumCents копируются из Quote дословно
// и никогда не пересчитываются.
type Policy struct {
	ID            string       `json:"policy_id"`
	QuoteID       string       `json:"quote_id"`
	Product       ProductCode  `json:"product_code"`
	CarrierID     string       `json:"carrier_id"`
	PremiumCents  int64        `json:"premium_total_cents"`
	Status        PolicyStatus `json:"status"`
	EffectiveDate string       `json:"effective_date"` // YYYY-MM-DD
	Policyholder  Policyholder `json:"policyholder"`
	CreatedAt     time.Time    `json:"created_at"`
}

// LedgerEntry — append-only запись подписанной премии, привязана к одному
// полису. Сумма записей по полису обязана равняться его премии
// (в текущем дизайне — не более одной записи на bind).
type LedgerEntry struct {
	ID                  string    `json:"id"`
	PolicyID            string    `json:"policy_id"`
	WrittenPremiumCents int64     `json:"written_premium_cents"`
	WrittenAt           time.Time `json:"written_at"`
}

// LedgerTotals — агрегаты журнала для консоли
type LedgerTotals struct {
	TotalWrittenPremiumCents int64  `json:"total_written_premium_cents"`
	TotalPolicies            int64  `json:"total_policies"`
	TotalEntries             int64  `json:"total_entries"`
	AsOfMonth                string `json:"as_of_month,omitempty"`
}
