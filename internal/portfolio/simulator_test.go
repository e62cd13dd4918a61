package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

func validInput() domain.SimulationInput {
	return domain.SimulationInput{
		AsOfMonth:     "2026-08",
		ScenarioCount: 2000,
		RetentionGrid: []float64{500, 1000, 2000, 5000},
		Reinsurance:   domain.ReinsuranceParams{RateOnLine: 0.10, Load: 0.2},
	}
}

func newTestSimulator() *Simulator {
	return NewSimulator(zap.NewNop())
}

func TestValidateRejectsBadParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.SimulationInput)
	}{
		{"zero scenarios", func(in *domain.SimulationInput) { in.ScenarioCount = 0 }},
		{"too many scenarios", func(in *domain.SimulationInput) { in.ScenarioCount = MaxScenarioCount + 1 }},
		{"empty grid", func(in *domain.SimulationInput) { in.RetentionGrid = nil }},
		{"negative retention", func(in *domain.SimulationInput) { in.RetentionGrid = []float64{-100} }},
		{"zero rate on line", func(in *domain.SimulationInput) { in.Reinsurance.RateOnLine = 0 }},
		{"rate on line above one", func(in *domain.SimulationInput) { in.Reinsurance.RateOnLine = 1.5 }},
		{"negative load", func(in *domain.SimulationInput) { in.Reinsurance.Load = -0.1 }},
		{"load above one", func(in *domain.SimulationInput) { in.Reinsurance.Load = 1.1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := Validate(in)
			require.ErrorIs(t, err, domain.ErrSimulationParam)

			_, simErr := newTestSimulator().Simulate(in, nil)
			require.ErrorIs(t, simErr, domain.ErrSimulationParam)
		})
	}
}

func TestSimulateDeterministic(t *testing.T) {
	// Фиксированный сид: два прогона с одинаковыми входами побитово совпадают
	s := newTestSimulator()
	history := []float64{120000, 95000, 87000, 140000, 110000}

	first, err := s.Simulate(validInput(), history)
	require.NoError(t, err)
	second, err := s.Simulate(validInput(), history)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulateRiskMetricOrdering(t *testing.T) {
	s := newTestSimulator()

	for _, history := range [][]float64{nil, {50000, 60000, 70000, 55000}} {
		res, err := s.Simulate(validInput(), history)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.VaR99, res.VaR95)
		assert.GreaterOrEqual(t, res.VaR95, res.Stats.Median)
		assert.GreaterOrEqual(t, res.TailVaR99, res.VaR99)
		assert.GreaterOrEqual(t, res.Stats.Min, 0.0, "отрицательные сценарии зануляются")
	}
}

func TestSimulateSingleHistoricalSample(t *testing.T) {
	// Один образец: std=0 заменяется на mean*0.3, прогон не вырождается
	s := newTestSimulator()

	res, err := s.Simulate(validInput(), []float64{100000})
	require.NoError(t, err)
	assert.Greater(t, res.Stats.StdDev, 0.0)
}

func TestRetentionTableAndRecommendation(t *testing.T) {
	s := newTestSimulator()
	in := validInput()

	res, err := s.Simulate(in, nil)
	require.NoError(t, err)

	require.Len(t, res.RetentionTable, len(in.RetentionGrid))

	minNet := res.RetentionTable[0].ExpectedNet
	for _, row := range res.RetentionTable {
		// Удержанный + переданный = полный ожидаемый убыток (с точностью округления)
		assert.InDelta(t, res.Stats.Mean, row.ExpectedLoss+row.ExpectedCeded, 0.02)
		if row.ExpectedNet < minNet {
			minNet = row.ExpectedNet
		}
	}

	assert.Equal(t, minNet, res.Recommended.ExpectedNet)
	assert.Contains(t, res.Recommended.Rationale, "Minimum expected net cost of $")
}

func TestHigherLoadNeverLowersNetCost(t *testing.T) {
	s := newTestSimulator()
	in := validInput()

	cheap, err := s.Simulate(in, nil)
	require.NoError(t, err)

	in.Reinsurance.Load = 0.9
	expensive, err := s.Simulate(in, nil)
	require.NoError(t, err)

	for i := range cheap.RetentionTable {
		assert.GreaterOrEqual(t,
			expensive.RetentionTable[i].ExpectedNet,
			cheap.RetentionTable[i].ExpectedNet)
	}
}

func TestSensitivityGrids(t *testing.T) {
	s := newTestSimulator()

	res, err := s.Sensitivity(validInput(), nil)
	require.NoError(t, err)

	require.Len(t, res.RateOnLine, 4)
	require.Len(t, res.Load, 4)

	assert.Equal(t, 0.05, res.RateOnLine[0].RateOnLine)
	assert.Equal(t, 0.20, res.RateOnLine[3].RateOnLine)
	assert.Equal(t, 0.1, res.Load[0].Load)
	assert.Equal(t, 0.4, res.Load[3].Load)

	for _, p := range res.RateOnLine {
		assert.Contains(t, validInput().RetentionGrid, p.RecommendedRetention)
	}
}

func TestValueAtRiskIndexClamp(t *testing.T) {
	scenarios := []float64{10, 20, 30, 40}

	// idx = floor(0.99*4) = 3 -> максимум
	assert.Equal(t, 40.0, valueAtRisk(scenarios, 0.99))
	// idx = floor(0.5*4) = 2
	assert.Equal(t, 30.0, valueAtRisk(scenarios, 0.5))
	assert.Equal(t, 0.0, valueAtRisk(nil, 0.95))
}

func TestTailValueAtRiskIsMeanAboveVaR(t *testing.T) {
	scenarios := []float64{10, 20, 30, 100}
	v := valueAtRisk(scenarios, 0.75) // 100
	assert.Equal(t, 100.0, v)
	assert.Equal(t, 100.0, tailValueAtRisk(scenarios, 0.75))
}
