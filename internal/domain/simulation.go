package domain

// ReinsuranceParams — единственная модель стоимости перестрахования в
// системе: retention/quota-share для планирования, не договорная юридика.
type ReinsuranceParams struct {
	RateOnLine float64 `json:"rate_on_line"` // (0, 1]
	Load       float64 `json:"load"`         // [0, 1]
}

// SimulationInput — параметры прогона Monte Carlo
type SimulationInput struct {
	AsOfMonth     string            `json:"as_of_month"` // YYYY-MM
	ScenarioCount int               `json:"scenario_count"`
	RetentionGrid []float64         `json:"retention_grid"`
	Reinsurance   ReinsuranceParams `json:"reinsurance_params"`
}

// RetentionRow — одна строка таблицы удержаний
type RetentionRow struct {
	Retention          float64 `json:"retention"`
	ExpectedLoss       float64 `json:"expected_loss"`  // удержанный убыток
	ExpectedCeded      float64 `json:"expected_ceded"` // переданный убыток
	ReinsurancePremium float64 `json:"reinsurance_premium"`
	ExpectedNet        float64 `json:"expected_net"`
	CostEfficiency     float64 `json:"cost_efficiency"`
}

// RecommendedRetention — строка с минимальной ожидаемой чистой стоимостью
type RecommendedRetention struct {
	Retention          float64 `json:"retention"`
	ExpectedNet        float64 `json:"expected_net"`
	ExpectedLoss       float64 `json:"expected_loss"`
	ReinsurancePremium float64 `json:"reinsurance_premium"`
	CostEfficiency     float64 `json:"cost_efficiency"`
	Rationale          string  `json:"rationale"`
}

// ScenarioStats — описательная статистика сгенерированных сценариев
type ScenarioStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SimulationResult — итог прогона. Детерминизм обязателен: два прогона с
// идентичными входами дают побитово совпадающие метрики и таблицу.
type SimulationResult struct {
	AsOfMonth      string               `json:"as_of_month"`
	ScenarioCount  int                  `json:"scenario_count"`
	VaR95          float64              `json:"var95"`
	VaR99          float64              `json:"var99"`
	TailVaR99      float64              `json:"tailvar99"`
	RetentionTable []RetentionRow       `json:"retention_table"`
	Recommended    RecommendedRetention `json:"recommended"`
	Stats          ScenarioStats        `json:"scenario_statistics"`
}

// SensitivityPoint — результат при одном значении варьируемого параметра
type SensitivityPoint struct {
	RateOnLine           float64 `json:"rate_on_line,omitempty"`
	Load                 float64 `json:"load,omitempty"`
	RecommendedRetention float64 `json:"recommended_retention"`
	ExpectedNet          float64 `json:"expected_net"`
}

// SensitivityResult — чувствительность рекомендации к rate-on-line и load
type SensitivityResult struct {
	RateOnLine []SensitivityPoint `json:"rate_on_line_sensitivity"`
	Load       []SensitivityPoint `json:"load_sensitivity"`
}
