package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла выдача котировки / привязка
	RequestDuration *prometheus.HistogramVec

	// Traffic: запросы по партнерам и продуктам
	QuotesTotal *prometheus.CounterVec
	BindsTotal  *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Saturation: отказы по емкости на bind
	CapacityExhausted *prometheus.CounterVec

	// Состояние Circuit Breaker советующего чтения емкости,
	// обновляется хуком OnStateChange при сборке в main
	CircuitBreakerState *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Histogram of quote and bind latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "product", "status"}),

		QuotesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_quotes_total",
			Help: "Total number of quote requests by outcome.",
		}, []string{"partner_id", "product", "outcome"}), // outcome: priced, blocked, no_carrier, invalid

		BindsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_binds_total",
			Help: "Total number of bind attempts by outcome.",
		}, []string{"partner_id", "product", "outcome"}), // outcome: bound, capacity_exhausted, blocked, invalid

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: validation, compliance_block, no_carrier, capacity, internal

		CapacityExhausted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_capacity_exhausted_total",
			Help: "Bind rejections due to exhausted monthly carrier capacity.",
		}, []string{"carrier_id"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_capacity_breaker_state",
			Help: "State of the advisory capacity circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}
}
