package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

func shippingCurve() *domain.PricingCurve {
	return &domain.PricingCurve{
		BaseRate:               0.8,
		CategoryMultiplier:     map[string]float64{"standard": 1.0, "fragile": 1.3},
		DestinationMultiplier:  map[string]float64{"low": 1.0, "medium": 1.2, "high": 1.5},
		ServiceLevelMultiplier: map[string]float64{"ground": 1.0, "expedited": 1.1, "overnight": 1.25},
	}
}

func ppiCurve() *domain.PricingCurve {
	return &domain.PricingCurve{
		BaseRate:              1.2,
		TermMultiplier:        map[string]float64{"<=6": 0.9, "7-12": 1.0, "13-18": 1.15, "19-24": 1.3},
		BandMultiplier:        map[domain.RiskBand]float64{domain.BandA: 0.9, domain.BandB: 1.0, domain.BandC: 1.1},
		JobCategoryMultiplier: map[string]float64{"salaried": 1.0, "gig": 1.4},
	}
}

func TestShippingPremiumExact(t *testing.T) {
	// base = (5000/100)*0.8*1.0*1.2*1.1 = 52.80 -> 5280 центов
	// total = 52.80*0.9*1.15 = 54.648 -> 5465 центов (round half away from zero)
	fields := domain.QuoteFields{
		DeclaredValue:   5000,
		ItemCategory:    "standard",
		DestinationRisk: "medium",
		ServiceLevel:    "expedited",
	}

	cents, bd, err := Premium(domain.ProductShipping, fields, 0.9, 0.15, shippingCurve(), domain.BandA)
	require.NoError(t, err)

	assert.Equal(t, int64(5465), cents)
	assert.Equal(t, int64(5280), bd.BaseCents)
	assert.Equal(t, 1.0, bd.CategoryMult)
	assert.Equal(t, 1.2, bd.DestMult)
	assert.Equal(t, 1.1, bd.ServiceMult)
	assert.Equal(t, 0.9, bd.RiskMult)
	assert.Equal(t, 0.15, bd.PartnerMarkupPct)
}

func TestShippingPremiumUnknownKeysDefaultToOne(t *testing.T) {
	fields := domain.QuoteFields{
		DeclaredValue:   1000,
		ItemCategory:    "weird_category",
		DestinationRisk: "unknown",
		ServiceLevel:    "hovercraft",
	}

	// base = 10*0.8 = 8.00, total = 8.00*1.0*1.0 = 8.00
	cents, bd, err := Premium(domain.ProductShipping, fields, 1.0, 0, shippingCurve(), domain.BandB)
	require.NoError(t, err)

	assert.Equal(t, int64(800), cents)
	assert.Equal(t, 1.0, bd.CategoryMult)
	assert.Equal(t, 1.0, bd.DestMult)
	assert.Equal(t, 1.0, bd.ServiceMult)
}

func TestPPIPremiumExact(t *testing.T) {
	// base = (2000/100)*1.2*1.0(7-12)*1.0(B)*1.0(30 лет)*1.0(24 мес)*1.0 = 24.00
	// total = 24.00*1.0*1.12 = 26.88 -> 2688
	fields := domain.QuoteFields{
		OrderValue:   2000,
		TermMonths:   12,
		Age:          30,
		TenureMonths: 24,
		JobCategory:  "salaried",
	}

	cents, bd, err := Premium(domain.ProductPPI, fields, 1.0, 0.12, ppiCurve(), domain.BandB)
	require.NoError(t, err)

	assert.Equal(t, int64(2688), cents)
	assert.Equal(t, int64(2400), bd.BaseCents)
	assert.Equal(t, 1.0, bd.TermMult)
	assert.Equal(t, 1.0, bd.BandMult)
	assert.Equal(t, domain.BandB, bd.RiskBand)
}

func TestPPIFixedSchedules(t *testing.T) {
	// Возраст и стаж — фиксированные шкалы, кривая на них не влияет
	young := domain.QuoteFields{OrderValue: 1000, TermMonths: 6, Age: 22, TenureMonths: 3}
	_, bd, err := Premium(domain.ProductPPI, young, 1.0, 0, ppiCurve(), domain.BandA)
	require.NoError(t, err)
	assert.Equal(t, 1.2, bd.AgeMult)
	assert.Equal(t, 1.3, bd.TenureMult)

	senior := domain.QuoteFields{OrderValue: 1000, TermMonths: 6, Age: 55, TenureMonths: 60}
	_, bd, err = Premium(domain.ProductPPI, senior, 1.0, 0, ppiCurve(), domain.BandA)
	require.NoError(t, err)
	assert.Equal(t, 1.1, bd.AgeMult)
	assert.Equal(t, 1.0, bd.TenureMult)
}

func TestPPIMissingAgeAndTenureUseDefaults(t *testing.T) {
	// Непереданные возраст/стаж тарифицируются по дефолтам 30/12,
	// а не по шкале "моложе 25 / стаж меньше 6"
	fields := domain.QuoteFields{OrderValue: 1000, TermMonths: 6}

	_, bd, err := Premium(domain.ProductPPI, fields, 1.0, 0, ppiCurve(), domain.BandA)
	require.NoError(t, err)

	assert.Equal(t, 1.0, bd.AgeMult)
	assert.Equal(t, 1.0, bd.TenureMult)
}

func TestTermBuckets(t *testing.T) {
	curve := ppiCurve()
	cases := []struct {
		months int
		mult   float64
	}{
		{3, 0.9}, {6, 0.9}, {7, 1.0}, {12, 1.0}, {13, 1.15}, {18, 1.15}, {19, 1.3}, {24, 1.3},
	}
	for _, tc := range cases {
		fields := domain.QuoteFields{OrderValue: 1000, TermMonths: tc.months, Age: 30, TenureMonths: 24}
		_, bd, err := Premium(domain.ProductPPI, fields, 1.0, 0, curve, domain.BandB)
		require.NoError(t, err)
		assert.Equalf(t, tc.mult, bd.TermMult, "term %d months", tc.months)
	}
}

func TestPremiumUnknownProduct(t *testing.T) {
	_, _, err := Premium("travel", domain.QuoteFields{}, 1.0, 0, shippingCurve(), domain.BandA)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestBandMultiplierComesFromCurve(t *testing.T) {
	fields := domain.QuoteFields{OrderValue: 1000, TermMonths: 12, Age: 30, TenureMonths: 24}

	_, bdA, err := Premium(domain.ProductPPI, fields, 1.0, 0, ppiCurve(), domain.BandA)
	require.NoError(t, err)
	_, bdC, err := Premium(domain.ProductPPI, fields, 1.0, 0, ppiCurve(), domain.BandC)
	require.NoError(t, err)

	assert.Equal(t, 0.9, bdA.BandMult)
	assert.Equal(t, 1.1, bdC.BandMult)

	// Band вне кривой — множитель 1.0, а не отказ
	_, bdE, err := Premium(domain.ProductPPI, fields, 1.0, 0, ppiCurve(), domain.BandE)
	require.NoError(t, err)
	assert.Equal(t, 1.0, bdE.BandMult)
}
