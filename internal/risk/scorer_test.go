package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

func TestScoreShippingExact(t *testing.T) {
	// Ночная доставка дешевого стандартного груза в спокойный регион:
	// 0.02*(500/1000) + 0 + 0 = 0.01
	fields := domain.QuoteFields{
		DeclaredValue:   500,
		ItemCategory:    "standard",
		DestinationRisk: "low",
		ServiceLevel:    "overnight",
	}

	got, err := Score(domain.ProductShipping, fields, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.01, got.Score)
	assert.Equal(t, domain.BandA, got.Band)
	assert.Equal(t, 0.90, got.Multiplier)
}

func TestScoreShippingHighValueSurcharge(t *testing.T) {
	base := domain.QuoteFields{
		DeclaredValue:   1000,
		ItemCategory:    "standard",
		DestinationRisk: "low",
		ServiceLevel:    "overnight",
	}
	jewelry := base
	jewelry.ItemCategory = "jewelry_high_value"

	plain, err := Score(domain.ProductShipping, base, nil)
	require.NoError(t, err)
	pricy, err := Score(domain.ProductShipping, jewelry, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.3, pricy.Score-plain.Score, 1e-9)
}

func TestScoreShippingUnknownServiceLevelDefaultsToGround(t *testing.T) {
	known := domain.QuoteFields{DeclaredValue: 100, DestinationRisk: "low", ServiceLevel: "ground"}
	unknown := domain.QuoteFields{DeclaredValue: 100, DestinationRisk: "low", ServiceLevel: "pigeon"}

	a, err := Score(domain.ProductShipping, known, nil)
	require.NoError(t, err)
	b, err := Score(domain.ProductShipping, unknown, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Score, b.Score)
}

func TestScoreBandBoundaryIsHalfOpen(t *testing.T) {
	// 0.02*(10000/1000) + 0 + 0.2 = 0.4 — ровно граница: это уже B
	fields := domain.QuoteFields{
		DeclaredValue:   10000,
		ItemCategory:    "standard",
		DestinationRisk: "low",
		ServiceLevel:    "ground",
	}

	got, err := Score(domain.ProductShipping, fields, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.4, got.Score)
	assert.Equal(t, domain.BandB, got.Band)
	assert.Equal(t, 1.00, got.Multiplier)
}

func TestScorePPI(t *testing.T) {
	// 0.02*(1000/100) + 0.1*(12/6) + 0.3 (age<25) + 0.3 (tenure<6) = 1.0 -> C
	fields := domain.QuoteFields{OrderValue: 1000, TermMonths: 12}
	ph := &domain.Policyholder{Age: 23, TenureMonths: 3}

	got, err := Score(domain.ProductPPI, fields, ph)
	require.NoError(t, err)

	assert.Equal(t, 1.0, got.Score)
	assert.Equal(t, domain.BandC, got.Band)
	assert.Equal(t, 1.10, got.Multiplier)
}

func TestScorePPIMissingAgeAndTenureUseDefaults(t *testing.T) {
	// Возраст и стаж на котировке необязательны: нулевые значения не должны
	// собирать оба штрафа как "age 0 / стаж 0"
	fields := domain.QuoteFields{OrderValue: 1000, TermMonths: 6}

	got, err := Score(domain.ProductPPI, fields, &domain.Policyholder{})
	require.NoError(t, err)

	// 0.02*(1000/100) + 0.1*(6/6) = 0.3, без штрафов (дефолты 30/12)
	assert.Equal(t, 0.3, got.Score)
	assert.Equal(t, domain.BandA, got.Band)

	// Явно переданные значения дефолты не трогают
	young, err := Score(domain.ProductPPI, fields, &domain.Policyholder{Age: 23, TenureMonths: 3})
	require.NoError(t, err)
	assert.Equal(t, 0.9, young.Score)
}

func TestScorePPIRequiresPolicyholder(t *testing.T) {
	_, err := Score(domain.ProductPPI, domain.QuoteFields{OrderValue: 100, TermMonths: 6}, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestScoreUnknownProduct(t *testing.T) {
	_, err := Score("travel", domain.QuoteFields{}, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestScoreDeterministic(t *testing.T) {
	fields := domain.QuoteFields{
		DeclaredValue:   7321.55,
		ItemCategory:    "electronics_high_value",
		DestinationRisk: "high",
		ServiceLevel:    "expedited",
	}

	first, err := Score(domain.ProductShipping, fields, nil)
	require.NoError(t, err)
	second, err := Score(domain.ProductShipping, fields, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBandForFullScale(t *testing.T) {
	cases := []struct {
		score float64
		band  domain.RiskBand
		mult  float64
	}{
		{0.0, domain.BandA, 0.90},
		{0.39, domain.BandA, 0.90},
		{0.4, domain.BandB, 1.00},
		{0.79, domain.BandB, 1.00},
		{0.8, domain.BandC, 1.10},
		{1.2, domain.BandD, 1.25},
		{1.6, domain.BandE, 1.40},
		{5.0, domain.BandE, 1.40},
	}
	for _, tc := range cases {
		band, mult := BandFor(tc.score)
		assert.Equalf(t, tc.band, band, "score %v", tc.score)
		assert.Equalf(t, tc.mult, mult, "score %v", tc.score)
	}
}
