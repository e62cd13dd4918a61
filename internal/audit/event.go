package audit

import "time"

// Action — тип бизнес-события в аудит-трейле
type Action string

const (
	ActionQuoteCreated      Action = "quote.created"
	ActionQuoteBlocked      Action = "quote.blocked"
	ActionQuoteRejected     Action = "quote.no_carrier"
	ActionPolicyBound       Action = "policy.bound"
	ActionCapacityExhausted Action = "bind.capacity_exhausted"
)

type Event struct {
	ID        string `json:"id"`       // UUID события
	TraceID   string `json:"trace_id"` // Сквозной ID запроса
	PartnerID string `json:"partner_id"`
	Action    Action `json:"action"`
	Product   string `json:"product_code"`

	// Ссылки на сущности (заполняются по мере наличия)
	QuoteID   string `json:"quote_id,omitempty"`
	PolicyID  string `json:"policy_id,omitempty"`
	CarrierID string `json:"carrier_id,omitempty"`

	PremiumCents int64  `json:"premium_cents,omitempty"`
	ReportID     string `json:"report_id,omitempty"` // аудит-тег комплаенса
	Detail       string `json:"detail,omitempty"`    // rationale, причина отказа

	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}
