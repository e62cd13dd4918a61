package portfolio

/*
Файл simulator.go — Monte Carlo симуляция хвостового риска портфеля для
планирования удержания при перестраховании. Детерминизм — жесткое
требование: генератор сидируется константой, поэтому два прогона с
идентичными входами (включая исторические данные) дают побитово
совпадающие VaR-метрики и таблицу удержаний.

Симулятор не трогает разделяемого состояния: каждый вызов независим и
может выполняться на своем воркере без координации.
*/

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

const (
	// MaxScenarioCount — верхняя граница размера симуляции
	MaxScenarioCount = 10000

	// Фиксированный сид — основа воспроизводимости
	simulationSeed = 42

	// Хвостовые события: калиброванный путь (по истории) и синтетика
	historicalTailProb = 0.05
	historicalTailMult = 3.0
	syntheticTailProb  = 0.02
	syntheticTailMult  = 10.0
	syntheticMeanLoss  = 1000.0
)

type Simulator struct {
	logger *zap.Logger
}

func NewSimulator(logger *zap.Logger) *Simulator {
	return &Simulator{logger: logger.Named("simulator")}
}

// Validate проверяет параметры до любых вычислений
func Validate(in domain.SimulationInput) error {
	if in.ScenarioCount <= 0 || in.ScenarioCount > MaxScenarioCount {
		return fmt.Errorf("portfolio: %w: scenario_count must be in (0, %d]", domain.ErrSimulationParam, MaxScenarioCount)
	}
	if len(in.RetentionGrid) == 0 {
		return fmt.Errorf("portfolio: %w: retention_grid cannot be empty", domain.ErrSimulationParam)
	}
	for _, r := range in.RetentionGrid {
		if r <= 0 {
			return fmt.Errorf("portfolio: %w: retention values must be positive", domain.ErrSimulationParam)
		}
	}
	if in.Reinsurance.RateOnLine <= 0 || in.Reinsurance.RateOnLine > 1 {
		return fmt.Errorf("portfolio: %w: rate_on_line must be in (0, 1]", domain.ErrSimulationParam)
	}
	if in.Reinsurance.Load < 0 || in.Reinsurance.Load > 1 {
		return fmt.Errorf("portfolio: %w: load must be in [0, 1]", domain.ErrSimulationParam)
	}
	return nil
}

// Simulate запускает прогон. historicalPremiums — подписанные премии в
// центах как прокси исторических убытков; пустой срез переключает на
// синтетическую генерацию.
func (s *Simulator) Simulate(in domain.SimulationInput, historicalPremiums []float64) (*domain.SimulationResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	scenarios := generateScenarios(in.ScenarioCount, historicalPremiums)

	table := retentionTable(scenarios, in.RetentionGrid, in.Reinsurance)
	result := &domain.SimulationResult{
		AsOfMonth:      in.AsOfMonth,
		ScenarioCount:  in.ScenarioCount,
		VaR95:          valueAtRisk(scenarios, 0.95),
		VaR99:          valueAtRisk(scenarios, 0.99),
		TailVaR99:      tailValueAtRisk(scenarios, 0.99),
		RetentionTable: table,
		Recommended:    recommend(table),
		Stats:          describe(scenarios),
	}

	s.logger.Info("simulation complete",
		zap.String("as_of_month", in.AsOfMonth),
		zap.Int("scenarios", in.ScenarioCount),
		zap.Bool("calibrated", len(historicalPremiums) > 0),
		zap.Float64("var99", result.VaR99))
	return result, nil
}

// Sensitivity варьирует rate-on-line и load по фиксированным сеткам и
// смотрит, как плывет рекомендованное удержание
func (s *Simulator) Sensitivity(in domain.SimulationInput, historicalPremiums []float64) (*domain.SensitivityResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	scenarios := generateScenarios(in.ScenarioCount, historicalPremiums)

	out := &domain.SensitivityResult{}
	for _, rol := range []float64{0.05, 0.10, 0.15, 0.20} {
		params := in.Reinsurance
		params.RateOnLine = rol
		rec := recommend(retentionTable(scenarios, in.RetentionGrid, params))
		out.RateOnLine = append(out.RateOnLine, domain.SensitivityPoint{
			RateOnLine:           rol,
			RecommendedRetention: rec.Retention,
			ExpectedNet:          rec.ExpectedNet,
		})
	}
	for _, load := range []float64{0.1, 0.2, 0.3, 0.4} {
		params := in.Reinsurance
		params.Load = load
		rec := recommend(retentionTable(scenarios, in.RetentionGrid, params))
		out.Load = append(out.Load, domain.SensitivityPoint{
			Load:                 load,
			RecommendedRetention: rec.Retention,
			ExpectedNet:          rec.ExpectedNet,
		})
	}
	return out, nil
}

// generateScenarios — сценарии убытков. С историей: нормальное распределение
// по mean/std премий, 5% шанс хвостового события x3. Без истории:
// экспоненциальное со средним 1000, 2% шанс x10. Отрицательные значения
// зануляются.
func generateScenarios(count int, historicalPremiums []float64) []float64 {
	rng := rand.New(rand.NewSource(simulationSeed))
	scenarios := make([]float64, 0, count)

	if len(historicalPremiums) > 0 {
		mean := meanOf(historicalPremiums)
		std := stddevOf(historicalPremiums, mean)
		if std == 0 {
			std = mean * 0.3
		}
		for i := 0; i < count; i++ {
			draw := rng.NormFloat64()*std + mean
			if rng.Float64() < historicalTailProb {
				draw *= historicalTailMult
			}
			if draw < 0 {
				draw = 0
			}
			scenarios = append(scenarios, draw)
		}
		return scenarios
	}

	for i := 0; i < count; i++ {
		draw := rng.ExpFloat64() * syntheticMeanLoss
		if rng.Float64() < syntheticTailProb {
			draw *= syntheticTailMult
		}
		scenarios = append(scenarios, draw)
	}
	return scenarios
}

// valueAtRisk: сортировка по возрастанию, индекс floor(c*n) с клампом в
// [0, n-1] — уровень убытка, превышаемый примерно с вероятностью (1-c)
func valueAtRisk(scenarios []float64, confidence float64) float64 {
	if len(scenarios) == 0 {
		return 0
	}
	sorted := append([]float64(nil), scenarios...)
	sort.Float64s(sorted)

	idx := int(confidence * float64(len(sorted)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// tailValueAtRisk (Expected Shortfall) — среднее сценариев >= VaR(c).
// Вырожденный случай (никто не дотянул) — сам VaR.
func tailValueAtRisk(scenarios []float64, confidence float64) float64 {
	if len(scenarios) == 0 {
		return 0
	}
	v := valueAtRisk(scenarios, confidence)
	var sum float64
	var n int
	for _, s := range scenarios {
		if s >= v {
			sum += s
			n++
		}
	}
	if n == 0 {
		return v
	}
	return sum / float64(n)
}

func retentionTable(scenarios []float64, grid []float64, params domain.ReinsuranceParams) []domain.RetentionRow {
	table := make([]domain.RetentionRow, 0, len(grid))
	n := float64(len(scenarios))

	for _, retention := range grid {
		var retained, ceded float64
		for _, s := range scenarios {
			retained += math.Min(s, retention)
			ceded += math.Max(0, s-retention)
		}
		expectedLoss := retained / n
		expectedCeded := ceded / n
		reinsPremium := expectedCeded * params.RateOnLine * (1 + params.Load)
		expectedNet := expectedLoss + reinsPremium

		table = append(table, domain.RetentionRow{
			Retention:          retention,
			ExpectedLoss:       round2(expectedLoss),
			ExpectedCeded:      round2(expectedCeded),
			ReinsurancePremium: round2(reinsPremium),
			ExpectedNet:        round2(expectedNet),
			CostEfficiency:     round3(expectedNet / math.Max(expectedLoss, 0.01)),
		})
	}
	return table
}

// recommend — строка сетки с минимальной ожидаемой чистой стоимостью
func recommend(table []domain.RetentionRow) domain.RecommendedRetention {
	if len(table) == 0 {
		return domain.RecommendedRetention{}
	}
	best := table[0]
	for _, row := range table[1:] {
		if row.ExpectedNet < best.ExpectedNet {
			best = row
		}
	}
	return domain.RecommendedRetention{
		Retention:          best.Retention,
		ExpectedNet:        best.ExpectedNet,
		ExpectedLoss:       best.ExpectedLoss,
		ReinsurancePremium: best.ReinsurancePremium,
		CostEfficiency:     best.CostEfficiency,
		Rationale:          fmt.Sprintf("Minimum expected net cost of $%.2f", best.ExpectedNet),
	}
}

func describe(scenarios []float64) domain.ScenarioStats {
	if len(scenarios) == 0 {
		return domain.ScenarioStats{}
	}
	mean := meanOf(scenarios)
	sorted := append([]float64(nil), scenarios...)
	sort.Float64s(sorted)

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return domain.ScenarioStats{
		Mean:   mean,
		Median: median,
		StdDev: stddevOf(scenarios, mean),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevOf — выборочное стандартное отклонение (n-1)
func stddevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
