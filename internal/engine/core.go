package engine

/*
Файл core.go — ядро котировочного шлюза. Оркестрирует полный путь запроса:
комплаенс -> скоринг риска -> маршрутизация к носителю -> снимок котировки,
и bind: повторный комплаенс с данными страхователя -> атомарный резерв
емкости -> выпуск полиса с записью в журнал премий.

Инварианты пути:
  - котировка неизменяема: premium и carrier копируются в полис дословно;
  - блокировка комплаенса на любом этапе останавливает транзакцию;
  - емкость авторитетно резервируется только на bind, одним атомарным шагом.
*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/audit"
	"github.com/xela07ax/embedins-infra-prototype/internal/capacity"
	"github.com/xela07ax/embedins-infra-prototype/internal/compliance"
	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
	"github.com/xela07ax/embedins-infra-prototype/internal/risk"
	"github.com/xela07ax/embedins-infra-prototype/internal/routing"
)

// Store — персистентность котировок и полисов
type Store interface {
	SaveQuote(ctx context.Context, q *domain.Quote) error
	QuoteByID(ctx context.Context, id string) (*domain.Quote, error)
	SavePolicy(ctx context.Context, p *domain.Policy, entry *domain.LedgerEntry) error
	PolicyByID(ctx context.Context, id string) (*domain.Policy, error)
}

// QuoteRequest — входной запрос партнера на котировку
type QuoteRequest struct {
	Product domain.ProductCode `json:"product_code"`
	Fields  domain.QuoteFields `json:"request"`
}

// BindRequest — запрос на выпуск полиса из котировки
type BindRequest struct {
	QuoteID       string              `json:"quote_id"`
	Policyholder  domain.Policyholder `json:"policyholder"`
	EffectiveDate string              `json:"effective_date,omitempty"` // YYYY-MM-DD, по умолчанию сегодня
}

type Core struct {
	ref       *refdata.Store
	rules     *compliance.Evaluator
	router    *routing.Router
	allocator capacity.Allocator
	store     Store
	auditor   audit.Recorder
	metrics   *Metrics
	logger    *zap.Logger
}

func NewCore(
	ref *refdata.Store,
	rules *compliance.Evaluator,
	router *routing.Router,
	allocator capacity.Allocator,
	store Store,
	auditor audit.Recorder,
	metrics *Metrics,
	logger *zap.Logger,
) *Core {
	return &Core{
		ref:       ref,
		rules:     rules,
		router:    router,
		allocator: allocator,
		store:     store,
		auditor:   auditor,
		metrics:   metrics,
		logger:    logger.Named("core"),
	}
}

// currentMonth — ключ месячного окна емкости
func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// CreateQuote проводит запрос через весь котировочный путь. Заблокированная
// комплаенсом котировка тоже персистится — партнер получает decision и
// disclosures, аудит получает report_id.
func (c *Core) CreateQuote(ctx context.Context, partner *domain.Partner, req QuoteRequest) (*domain.Quote, error) {
	start := time.Now()
	traceID := extractTraceID(ctx)

	status := "priced"
	defer func() {
		c.metrics.RequestDuration.WithLabelValues("quote", string(req.Product), status).Observe(time.Since(start).Seconds())
	}()

	if err := c.validateQuoteRequest(partner, req); err != nil {
		status = "invalid"
		c.metrics.QuotesTotal.WithLabelValues(partner.ID, string(req.Product), "invalid").Inc()
		c.metrics.ErrorTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	// 1. Комплаенс до любых расчетов. На котировке данных страхователя
	// еще нет — для ppi контекст собирается из полей запроса.
	compResult := c.rules.Evaluate(req.Product, req.Fields, nil)

	quote := &domain.Quote{
		ID:         "q_" + uuid.New().String(),
		PartnerID:  partner.ID,
		Product:    req.Product,
		Fields:     req.Fields,
		Compliance: compResult,
		CreatedAt:  start.UTC(),
	}

	if compResult.Blocked() {
		status = "blocked"
		if err := c.store.SaveQuote(ctx, quote); err != nil {
			return nil, fmt.Errorf("engine: failed to persist blocked quote: %w", err)
		}
		c.metrics.QuotesTotal.WithLabelValues(partner.ID, string(req.Product), "blocked").Inc()
		c.metrics.ErrorTotal.WithLabelValues("compliance_block").Inc()
		c.auditor.Record(audit.Event{
			ID:         uuid.New().String(),
			TraceID:    traceID,
			PartnerID:  partner.ID,
			Action:     audit.ActionQuoteBlocked,
			Product:    string(req.Product),
			QuoteID:    quote.ID,
			ReportID:   compResult.ReportID,
			Detail:     fmt.Sprintf("blocked by rules %v", compResult.AppliedRules),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return quote, nil
	}

	// 2. Детерминированный скоринг
	assessment, err := risk.Score(req.Product, req.Fields, policyholderFromFields(req.Product, req.Fields))
	if err != nil {
		status = "invalid"
		c.metrics.ErrorTotal.WithLabelValues("validation").Inc()
		return nil, err
	}
	quote.RiskBand = assessment.Band
	quote.RiskMultiplier = assessment.Multiplier

	// 3. Маршрутизация: аппетит, консультативная емкость, прайсинг, маржа
	selection, summary, err := c.router.Route(ctx, req.Product, req.Fields, assessment, partner, currentMonth())
	if err != nil {
		if errors.Is(err, domain.ErrNoEligibleCarrier) {
			status = "no_carrier"
			// Снимок без носителя тоже сохраняем: отказ — это ответ
			if saveErr := c.store.SaveQuote(ctx, quote); saveErr != nil {
				return nil, fmt.Errorf("engine: failed to persist rejected quote: %w", saveErr)
			}
			c.metrics.QuotesTotal.WithLabelValues(partner.ID, string(req.Product), "no_carrier").Inc()
			c.metrics.ErrorTotal.WithLabelValues("no_carrier").Inc()
			c.auditor.Record(audit.Event{
				ID:         uuid.New().String(),
				TraceID:    traceID,
				PartnerID:  partner.ID,
				Action:     audit.ActionQuoteRejected,
				Product:    string(req.Product),
				QuoteID:    quote.ID,
				ReportID:   compResult.ReportID,
				Detail:     fmt.Sprintf("%d carriers evaluated, none eligible", len(summary.Evaluations)),
				DurationMs: time.Since(start).Milliseconds(),
			})
			return nil, err
		}
		c.metrics.ErrorTotal.WithLabelValues("internal").Inc()
		return nil, err
	}

	quote.CarrierSuggested = selection.CarrierID
	quote.RouterRationale = selection.Rationale
	quote.Breakdown = selection.Breakdown
	quote.PremiumCents = selection.PremiumCents

	if err := c.store.SaveQuote(ctx, quote); err != nil {
		c.metrics.ErrorTotal.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("engine: failed to persist quote: %w", err)
	}

	c.metrics.QuotesTotal.WithLabelValues(partner.ID, string(req.Product), "priced").Inc()
	c.auditor.Record(audit.Event{
		ID:           uuid.New().String(),
		TraceID:      traceID,
		PartnerID:    partner.ID,
		Action:       audit.ActionQuoteCreated,
		Product:      string(req.Product),
		QuoteID:      quote.ID,
		CarrierID:    selection.CarrierID,
		PremiumCents: selection.PremiumCents,
		ReportID:     compResult.ReportID,
		Detail:       selection.Rationale,
		DurationMs:   time.Since(start).Milliseconds(),
	})
	return quote, nil
}

// GetQuote возвращает снимок котировки; чужие котировки партнеру не видны
func (c *Core) GetQuote(ctx context.Context, partner *domain.Partner, quoteID string) (*domain.Quote, error) {
	quote, err := c.store.QuoteByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.PartnerID != partner.ID {
		// Не раскрываем существование чужого объекта
		return nil, fmt.Errorf("engine: quote %s: %w", quoteID, domain.ErrQuoteNotFound)
	}
	return quote, nil
}

// Bind выпускает полис из котировки. Повторный комплаенс здесь обязателен:
// данные страхователя (возраст, штат, стаж) появляются только сейчас и
// могут перевести allow в block.
func (c *Core) Bind(ctx context.Context, partner *domain.Partner, req BindRequest) (*domain.Policy, error) {
	start := time.Now()
	traceID := extractTraceID(ctx)

	status := "bound"
	defer func() {
		c.metrics.RequestDuration.WithLabelValues("bind", "", status).Observe(time.Since(start).Seconds())
	}()

	quote, err := c.GetQuote(ctx, partner, req.QuoteID)
	if err != nil {
		status = "invalid"
		return nil, err
	}
	if quote.Compliance.Blocked() || quote.CarrierSuggested == "" {
		status = "invalid"
		c.metrics.BindsTotal.WithLabelValues(partner.ID, string(quote.Product), "invalid").Inc()
		return nil, fmt.Errorf("engine: quote %s is not bindable: %w", quote.ID, domain.ErrValidation)
	}

	// Повторный прогон правил с финальными данными страхователя
	compResult := c.rules.Evaluate(quote.Product, quote.Fields, &req.Policyholder)
	if compResult.Blocked() {
		status = "blocked"
		c.metrics.BindsTotal.WithLabelValues(partner.ID, string(quote.Product), "blocked").Inc()
		c.metrics.ErrorTotal.WithLabelValues("compliance_block").Inc()
		c.auditor.Record(audit.Event{
			ID:         uuid.New().String(),
			TraceID:    traceID,
			PartnerID:  partner.ID,
			Action:     audit.ActionQuoteBlocked,
			Product:    string(quote.Product),
			QuoteID:    quote.ID,
			ReportID:   compResult.ReportID,
			Detail:     fmt.Sprintf("bind blocked by rules %v", compResult.AppliedRules),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("engine: bind of quote %s: %w", quote.ID, domain.ErrComplianceBlocked)
	}

	carrier, err := c.ref.Carrier(quote.CarrierSuggested)
	if err != nil {
		status = "invalid"
		return nil, err
	}

	// Авторитетный атомарный резерв. Единственное место, где емкость
	// реально уменьшается.
	month := currentMonth()
	reserved, err := c.allocator.Reserve(ctx, carrier.ID, month, carrier.CapacityMonthlyLimit)
	if err != nil {
		status = "error"
		c.metrics.ErrorTotal.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("engine: capacity reserve: %w", err)
	}
	if !reserved {
		status = "capacity_exhausted"
		c.metrics.BindsTotal.WithLabelValues(partner.ID, string(quote.Product), "capacity_exhausted").Inc()
		c.metrics.CapacityExhausted.WithLabelValues(carrier.ID).Inc()
		c.auditor.Record(audit.Event{
			ID:         uuid.New().String(),
			TraceID:    traceID,
			PartnerID:  partner.ID,
			Action:     audit.ActionCapacityExhausted,
			Product:    string(quote.Product),
			QuoteID:    quote.ID,
			CarrierID:  carrier.ID,
			Detail:     fmt.Sprintf("monthly capacity of %s exhausted for %s", carrier.ID, month),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("engine: carrier %s, month %s: %w", carrier.ID, month, domain.ErrCapacityExhausted)
	}

	effectiveDate := req.EffectiveDate
	if effectiveDate == "" {
		effectiveDate = time.Now().UTC().Format("2006-01-02")
	}

	// Premium и carrier копируются из котировки дословно
	policy := &domain.Policy{
		ID:            "pol_" + uuid.New().String(),
		QuoteID:       quote.ID,
		Product:       quote.Product,
		CarrierID:     quote.CarrierSuggested,
		PremiumCents:  quote.PremiumCents,
		Status:        domain.PolicyActive,
		EffectiveDate: effectiveDate,
		Policyholder:  req.Policyholder,
		CreatedAt:     time.Now().UTC(),
	}
	entry := &domain.LedgerEntry{
		ID:                  "led_" + uuid.New().String(),
		PolicyID:            policy.ID,
		WrittenPremiumCents: quote.PremiumCents,
		WrittenAt:           policy.CreatedAt,
	}

	if err := c.store.SavePolicy(ctx, policy, entry); err != nil {
		// Слот емкости уже занят; возврата нет — несимметрия зафиксирована
		// как осознанная: ручной разбор дешевле двойной выдачи.
		status = "error"
		c.metrics.ErrorTotal.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("engine: failed to persist policy: %w", err)
	}

	c.metrics.BindsTotal.WithLabelValues(partner.ID, string(quote.Product), "bound").Inc()
	c.auditor.Record(audit.Event{
		ID:           uuid.New().String(),
		TraceID:      traceID,
		PartnerID:    partner.ID,
		Action:       audit.ActionPolicyBound,
		Product:      string(quote.Product),
		QuoteID:      quote.ID,
		PolicyID:     policy.ID,
		CarrierID:    policy.CarrierID,
		PremiumCents: policy.PremiumCents,
		ReportID:     compResult.ReportID,
		DurationMs:   time.Since(start).Milliseconds(),
	})

	c.logger.Info("policy bound",
		zap.String("policy_id", policy.ID),
		zap.String("quote_id", quote.ID),
		zap.String("carrier_id", policy.CarrierID),
		zap.Int64("premium_cents", policy.PremiumCents))
	return policy, nil
}

// GetPolicy — полис партнера по ID
func (c *Core) GetPolicy(ctx context.Context, partner *domain.Partner, policyID string) (*domain.Policy, error) {
	policy, err := c.store.PolicyByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	quote, err := c.store.QuoteByID(ctx, policy.QuoteID)
	if err != nil || quote.PartnerID != partner.ID {
		return nil, fmt.Errorf("engine: policy %s: %w", policyID, domain.ErrPolicyNotFound)
	}
	return policy, nil
}

func (c *Core) validateQuoteRequest(partner *domain.Partner, req QuoteRequest) error {
	if !req.Product.IsValid() {
		return fmt.Errorf("engine: %w: unknown product %q", domain.ErrValidation, req.Product)
	}
	if !partner.Offers(req.Product) {
		return fmt.Errorf("engine: %w: partner %s does not offer %s", domain.ErrValidation, partner.ID, req.Product)
	}

	switch req.Product {
	case domain.ProductShipping:
		if req.Fields.DeclaredValue <= 0 {
			return fmt.Errorf("engine: %w: declared_value must be positive", domain.ErrValidation)
		}
		if req.Fields.DestinationState == "" {
			return fmt.Errorf("engine: %w: destination_state is required", domain.ErrValidation)
		}
	case domain.ProductPPI:
		if req.Fields.OrderValue <= 0 {
			return fmt.Errorf("engine: %w: order_value must be positive", domain.ErrValidation)
		}
		if req.Fields.TermMonths <= 0 {
			return fmt.Errorf("engine: %w: term_months must be positive", domain.ErrValidation)
		}
		if req.Fields.State == "" {
			return fmt.Errorf("engine: %w: state is required", domain.ErrValidation)
		}
	}
	return nil
}

// policyholderFromFields собирает суррогат страхователя из полей запроса:
// для ppi скоринг на этапе котировки работает по заявленным age/tenure.
func policyholderFromFields(product domain.ProductCode, f domain.QuoteFields) *domain.Policyholder {
	if product != domain.ProductPPI {
		return nil
	}
	return &domain.Policyholder{
		State:        f.State,
		Age:          f.Age,
		TenureMonths: f.TenureMonths,
	}
}
