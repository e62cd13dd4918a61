package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

const seedYAML = `
carriers:
  - id: car_atlas
    name: Atlas Mutual
    capacity_monthly_limit: 100
    pricing_curve_ref: atlas_standard
    appetite:
      shipping:
        excluded_states: [AK, HI]
        max_declared_value: 25000
        max_risk_band: D
partners:
  - id: pt_shopfast
    api_key: sk_test_key
    name: ShopFast
    markup_pct: 0.15
    products: [shipping]
pricing_curves:
  atlas_standard:
    shipping:
      base_rate: 0.8
      destination_multiplier:
        low: 1.0
        high: 1.5
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	s, err := Load(writeSeed(t, seedYAML))
	require.NoError(t, err)

	require.Len(t, s.Carriers(), 1)

	carrier, err := s.Carrier("car_atlas")
	require.NoError(t, err)
	assert.Equal(t, "Atlas Mutual", carrier.Name)
	assert.Equal(t, 100, carrier.CapacityMonthlyLimit)

	appetite, ok := carrier.Appetite[domain.ProductShipping]
	require.True(t, ok)
	assert.Equal(t, []string{"AK", "HI"}, appetite.ExcludedStates)
	assert.Equal(t, domain.BandD, appetite.MaxRiskBand)

	partner, ok := s.PartnerByAPIKey("sk_test_key")
	require.True(t, ok)
	assert.Equal(t, "pt_shopfast", partner.ID)
	assert.Equal(t, 0.15, partner.MarkupPct)

	byID, ok := s.Partner("pt_shopfast")
	require.True(t, ok)
	assert.Equal(t, partner, byID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeSeed(t, "carriers: [")) // битый yaml
	assert.Error(t, err)

	// Пустой справочник носителей фатален: котировать нечего
	_, err = Load(writeSeed(t, "partners: []"))
	assert.Error(t, err)
}

func TestPricingCurveLookup(t *testing.T) {
	s, err := Load(writeSeed(t, seedYAML))
	require.NoError(t, err)

	curve, err := s.PricingCurve("car_atlas", domain.ProductShipping)
	require.NoError(t, err)
	assert.Equal(t, 0.8, curve.BaseRate)
	assert.Equal(t, 1.5, curve.DestinationMultiplier["high"])

	// У кривой нет ppi — рассинхрон, но типизированная ошибка
	_, err = s.PricingCurve("car_atlas", domain.ProductPPI)
	require.ErrorIs(t, err, domain.ErrPricingCurveMissing)

	_, err = s.PricingCurve("car_ghost", domain.ProductShipping)
	require.ErrorIs(t, err, domain.ErrCarrierNotFound)
}

func TestUnknownLookups(t *testing.T) {
	s := NewStore([]domain.Carrier{{ID: "car_x"}}, nil, nil)

	_, err := s.Carrier("car_y")
	require.ErrorIs(t, err, domain.ErrCarrierNotFound)

	_, ok := s.Partner("pt_none")
	assert.False(t, ok)
	_, ok = s.PartnerByAPIKey("sk_none")
	assert.False(t, ok)
}
