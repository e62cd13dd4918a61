package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/audit"
	"github.com/xela07ax/embedins-infra-prototype/internal/capacity"
	"github.com/xela07ax/embedins-infra-prototype/internal/compliance"
	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
	"github.com/xela07ax/embedins-infra-prototype/internal/routing"
)

// memStore — персистентность в памяти для прогона полного пути без Postgres
type memStore struct {
	mu       sync.Mutex
	quotes   map[string]*domain.Quote
	policies map[string]*domain.Policy
	ledger   []*domain.LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{
		quotes:   make(map[string]*domain.Quote),
		policies: make(map[string]*domain.Policy),
	}
}

func (m *memStore) SaveQuote(_ context.Context, q *domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.ID] = q
	return nil
}

func (m *memStore) QuoteByID(_ context.Context, id string) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, fmt.Errorf("store: quote %s: %w", id, domain.ErrQuoteNotFound)
	}
	return q, nil
}

func (m *memStore) SavePolicy(_ context.Context, p *domain.Policy, entry *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = p
	m.ledger = append(m.ledger, entry)
	return nil
}

func (m *memStore) PolicyByID(_ context.Context, id string) (*domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, fmt.Errorf("store: policy %s: %w", id, domain.ErrPolicyNotFound)
	}
	return p, nil
}

// recordingAudit копит события в памяти вместо асинхронного трейла
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAudit) lastAction() audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1].Action
}

type noopPauses struct{}

func (noopPauses) IsPaused(string) bool { return false }

type fixture struct {
	core    *Core
	store   *memStore
	trail   *recordingAudit
	alloc   *capacity.MemoryAllocator
	partner *domain.Partner
}

func newFixture(t *testing.T, carrierLimit int) *fixture {
	t.Helper()

	curves := map[string]map[domain.ProductCode]domain.PricingCurve{
		"test_curve": {
			domain.ProductShipping: {
				BaseRate:               0.8,
				CategoryMultiplier:     map[string]float64{"standard": 1.0},
				DestinationMultiplier:  map[string]float64{"low": 1.0, "medium": 1.2},
				ServiceLevelMultiplier: map[string]float64{"ground": 1.0, "expedited": 1.1},
			},
			domain.ProductPPI: {
				BaseRate:       1.2,
				TermMultiplier: map[string]float64{"<=6": 0.9, "7-12": 1.0},
				BandMultiplier: map[domain.RiskBand]float64{domain.BandA: 0.9, domain.BandB: 1.0, domain.BandC: 1.1},
			},
		},
	}
	carriers := []domain.Carrier{{
		ID: "car_test", Name: "Test Mutual", CapacityMonthlyLimit: carrierLimit, PricingCurveRef: "test_curve",
		Appetite: map[domain.ProductCode]domain.ProductAppetite{
			domain.ProductShipping: {MaxDeclaredValue: 25000, MaxRiskBand: domain.BandD},
			domain.ProductPPI:      {MaxTermMonths: 24, MaxRiskBand: domain.BandD},
		},
	}}
	partner := domain.Partner{
		ID: "pt_test", APIKey: "sk_test", MarkupPct: 0.10,
		Products: []domain.ProductCode{domain.ProductShipping, domain.ProductPPI},
	}

	ref := refdata.NewStore(carriers, []domain.Partner{partner}, curves)
	rules := compliance.NewEvaluator([]compliance.Rule{
		{
			ID: "shipping_disclosure", AppliesTo: domain.ProductShipping,
			Kind: compliance.KindDisclosure, Message: "Coverage subject to carrier terms.",
		},
		{
			ID: "ban_ppi_states", AppliesTo: domain.ProductPPI,
			Kind: compliance.KindBlock, Message: "PPI is not available in your state.",
			Criteria: []compliance.Predicate{{Field: "state", Op: compliance.OpIn, Values: []string{"GA"}}},
		},
	}, zap.NewNop())

	alloc := capacity.NewMemoryAllocator()
	store := newMemStore()
	trail := &recordingAudit{}
	router := routing.NewRouter(ref, alloc, noopPauses{}, zap.NewNop())
	core := NewCore(ref, rules, router, alloc, store, trail, NewMetrics(nil), zap.NewNop())

	return &fixture{core: core, store: store, trail: trail, alloc: alloc, partner: &partner}
}

func shippingRequest() QuoteRequest {
	return QuoteRequest{
		Product: domain.ProductShipping,
		Fields: domain.QuoteFields{
			DeclaredValue:    5000,
			ItemCategory:     "standard",
			DestinationState: "CA",
			DestinationRisk:  "medium",
			ServiceLevel:     "expedited",
		},
	}
}

func ppiRequest(state string) QuoteRequest {
	return QuoteRequest{
		Product: domain.ProductPPI,
		Fields: domain.QuoteFields{
			OrderValue: 2000, TermMonths: 12, State: state, Age: 30, TenureMonths: 24,
		},
	}
}

func TestCreateQuoteShipping(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	quote, err := f.core.CreateQuote(ctx, f.partner, shippingRequest())
	require.NoError(t, err)

	assert.Equal(t, "q_", quote.ID[:2])
	assert.Equal(t, "car_test", quote.CarrierSuggested)
	assert.Greater(t, quote.PremiumCents, int64(0))
	assert.False(t, quote.Compliance.Blocked())
	assert.Contains(t, quote.Compliance.Disclosures, "Coverage subject to carrier terms.")
	assert.NotEmpty(t, quote.RouterRationale)

	// Снимок действительно персистится
	stored, err := f.store.QuoteByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.PremiumCents, stored.PremiumCents)

	assert.Equal(t, audit.ActionQuoteCreated, f.trail.lastAction())
}

func TestCreateQuoteValidation(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	cases := []struct {
		name string
		req  QuoteRequest
	}{
		{"unknown product", QuoteRequest{Product: "travel"}},
		{"zero declared value", QuoteRequest{Product: domain.ProductShipping, Fields: domain.QuoteFields{DestinationState: "CA"}}},
		{"missing destination state", QuoteRequest{Product: domain.ProductShipping, Fields: domain.QuoteFields{DeclaredValue: 100}}},
		{"zero order value", QuoteRequest{Product: domain.ProductPPI, Fields: domain.QuoteFields{TermMonths: 12, State: "CA"}}},
		{"zero term", QuoteRequest{Product: domain.ProductPPI, Fields: domain.QuoteFields{OrderValue: 100, State: "CA"}}},
		{"missing state", QuoteRequest{Product: domain.ProductPPI, Fields: domain.QuoteFields{OrderValue: 100, TermMonths: 12}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.core.CreateQuote(ctx, f.partner, tc.req)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreateQuotePPIWithoutAgeOrTenure(t *testing.T) {
	// age/tenure_months необязательны: котировка проходит по дефолтам 30/12,
	// без двойного штрафа скоринга за "нулевые" значения
	f := newFixture(t, 10)
	req := QuoteRequest{
		Product: domain.ProductPPI,
		Fields:  domain.QuoteFields{OrderValue: 2000, TermMonths: 12, State: "CA"},
	}

	quote, err := f.core.CreateQuote(context.Background(), f.partner, req)
	require.NoError(t, err)

	// 0.02*20 + 0.1*2 = 0.6 -> B; нулевые возраст/стаж дали бы D
	assert.Equal(t, domain.BandB, quote.RiskBand)
	assert.Equal(t, "car_test", quote.CarrierSuggested)
	assert.Greater(t, quote.PremiumCents, int64(0))
}

func TestCreateQuotePartnerNotOffering(t *testing.T) {
	f := newFixture(t, 10)
	shippingOnly := &domain.Partner{ID: "pt_narrow", Products: []domain.ProductCode{domain.ProductShipping}}

	_, err := f.core.CreateQuote(context.Background(), shippingOnly, ppiRequest("CA"))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateQuoteBlockedByCompliance(t *testing.T) {
	// Блок — не ошибка: партнер получает снимок с decision и disclosures
	f := newFixture(t, 10)
	ctx := context.Background()

	quote, err := f.core.CreateQuote(ctx, f.partner, ppiRequest("GA"))
	require.NoError(t, err)

	assert.True(t, quote.Compliance.Blocked())
	assert.Empty(t, quote.CarrierSuggested)
	assert.Zero(t, quote.PremiumCents)

	// Заблокированная котировка тоже в хранилище
	_, err = f.store.QuoteByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionQuoteBlocked, f.trail.lastAction())
}

func TestCreateQuoteNoEligibleCarrier(t *testing.T) {
	f := newFixture(t, 10)
	req := shippingRequest()
	req.Fields.DeclaredValue = 30000 // выше max_declared_value единственного носителя

	_, err := f.core.CreateQuote(context.Background(), f.partner, req)
	require.ErrorIs(t, err, domain.ErrNoEligibleCarrier)
	assert.Equal(t, audit.ActionQuoteRejected, f.trail.lastAction())
}

func TestGetQuoteHidesForeignQuotes(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	quote, err := f.core.CreateQuote(ctx, f.partner, shippingRequest())
	require.NoError(t, err)

	stranger := &domain.Partner{ID: "pt_other", Products: []domain.ProductCode{domain.ProductShipping}}
	_, err = f.core.GetQuote(ctx, stranger, quote.ID)
	require.ErrorIs(t, err, domain.ErrQuoteNotFound)

	mine, err := f.core.GetQuote(ctx, f.partner, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.ID, mine.ID)
}

func TestBindIssuesPolicyAndWritesLedger(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	month := time.Now().UTC().Format("2006-01")

	quote, err := f.core.CreateQuote(ctx, f.partner, shippingRequest())
	require.NoError(t, err)

	before, err := f.alloc.Remaining(ctx, "car_test", month, 10)
	require.NoError(t, err)

	policy, err := f.core.Bind(ctx, f.partner, BindRequest{
		QuoteID:      quote.ID,
		Policyholder: domain.Policyholder{Name: "Jo Doe", State: "CA", Age: 30, TenureMonths: 24},
	})
	require.NoError(t, err)

	// Premium и carrier копируются из котировки дословно
	assert.Equal(t, "pol_", policy.ID[:4])
	assert.Equal(t, quote.ID, policy.QuoteID)
	assert.Equal(t, quote.CarrierSuggested, policy.CarrierID)
	assert.Equal(t, quote.PremiumCents, policy.PremiumCents)
	assert.Equal(t, domain.PolicyActive, policy.Status)

	after, err := f.alloc.Remaining(ctx, "car_test", month, 10)
	require.NoError(t, err)
	assert.Equal(t, before-1, after, "bind занимает ровно один слот емкости")

	require.Len(t, f.store.ledger, 1)
	assert.Equal(t, policy.ID, f.store.ledger[0].PolicyID)
	assert.Equal(t, policy.PremiumCents, f.store.ledger[0].WrittenPremiumCents)

	assert.Equal(t, audit.ActionPolicyBound, f.trail.lastAction())

	got, err := f.core.GetPolicy(ctx, f.partner, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.ID, got.ID)
}

func TestBindUnknownQuote(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.core.Bind(context.Background(), f.partner, BindRequest{QuoteID: "q_missing"})
	require.ErrorIs(t, err, domain.ErrQuoteNotFound)
}

func TestBindBlockedQuoteIsNotBindable(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	quote, err := f.core.CreateQuote(ctx, f.partner, ppiRequest("GA"))
	require.NoError(t, err)
	require.True(t, quote.Compliance.Blocked())

	_, err = f.core.Bind(ctx, f.partner, BindRequest{QuoteID: quote.ID})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestBindRerunsComplianceWithPolicyholder(t *testing.T) {
	// Котировка чистая (CA), но страхователь оказывается из запрещенного штата
	f := newFixture(t, 10)
	ctx := context.Background()

	quote, err := f.core.CreateQuote(ctx, f.partner, ppiRequest("CA"))
	require.NoError(t, err)
	require.False(t, quote.Compliance.Blocked())

	_, err = f.core.Bind(ctx, f.partner, BindRequest{
		QuoteID:      quote.ID,
		Policyholder: domain.Policyholder{State: "GA", Age: 30, TenureMonths: 24},
	})
	require.ErrorIs(t, err, domain.ErrComplianceBlocked)

	// Слот емкости не тронут: блок происходит до резерва
	month := time.Now().UTC().Format("2006-01")
	remaining, err := f.alloc.Remaining(ctx, "car_test", month, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestBindCapacityExhausted(t *testing.T) {
	// Лимит 1: первый bind забирает слот, второй получает отказ
	f := newFixture(t, 1)
	ctx := context.Background()
	ph := domain.Policyholder{State: "CA", Age: 30, TenureMonths: 24}

	first, err := f.core.CreateQuote(ctx, f.partner, shippingRequest())
	require.NoError(t, err)
	second, err := f.core.CreateQuote(ctx, f.partner, shippingRequest())
	require.NoError(t, err)

	_, err = f.core.Bind(ctx, f.partner, BindRequest{QuoteID: first.ID, Policyholder: ph})
	require.NoError(t, err)

	_, err = f.core.Bind(ctx, f.partner, BindRequest{QuoteID: second.ID, Policyholder: ph})
	require.ErrorIs(t, err, domain.ErrCapacityExhausted)
	assert.Equal(t, audit.ActionCapacityExhausted, f.trail.lastAction())
}

func TestGetPolicyHidesForeignPolicies(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	quote, err := f.core.CreateQuote(ctx, f.partner, shippingRequest())
	require.NoError(t, err)
	policy, err := f.core.Bind(ctx, f.partner, BindRequest{
		QuoteID:      quote.ID,
		Policyholder: domain.Policyholder{State: "CA", Age: 30, TenureMonths: 24},
	})
	require.NoError(t, err)

	stranger := &domain.Partner{ID: "pt_other", Products: []domain.ProductCode{domain.ProductShipping}}
	_, err = f.core.GetPolicy(ctx, stranger, policy.ID)
	require.ErrorIs(t, err, domain.ErrPolicyNotFound)
}
