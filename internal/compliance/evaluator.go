package compliance

/*
Файл evaluator.go — движок правил комплаенса. Конструируется один раз на
процесс и передается по ссылке всем, кому нужен (никаких синглтонов):
после загрузки правил Evaluate — чистая функция от набора правил и
контекста, поэтому безопасно зовется из параллельных запросов.
*/

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

type Evaluator struct {
	rules  []Rule
	logger *zap.Logger
}

func NewEvaluator(rules []Rule, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		rules:  rules,
		logger: logger.Named("compliance"),
	}
}

// evalContext — плоский типизированный контекст: код продукта + поля запроса
// + поля страхователя, слитые в одно пространство имен.
type evalContext struct {
	strings map[string]string
	numbers map[string]float64
}

func buildContext(product domain.ProductCode, fields domain.QuoteFields, ph *domain.Policyholder) evalContext {
	ctx := evalContext{
		strings: map[string]string{
			"product_code":      string(product),
			"item_category":     fields.ItemCategory,
			"destination_state": fields.DestinationState,
			"destination_risk":  fields.DestinationRisk,
			"service_level":     fields.ServiceLevel,
			"job_category":      fields.JobCategory,
			"state":             fields.State,
		},
		numbers: map[string]float64{
			"declared_value": fields.DeclaredValue,
			"order_value":    fields.OrderValue,
			"term_months":    float64(fields.TermMonths),
			"age":            float64(fields.Age),
			"tenure_months":  float64(fields.TenureMonths),
		},
	}
	// Для shipping штат страхователя берем из адреса доставки
	if ctx.strings["state"] == "" {
		ctx.strings["state"] = fields.DestinationState
	}
	// Необязательные поля ppi: ноль = не передано, правила вроде "age < 25"
	// не должны срабатывать на отсутствующих данных
	if ctx.numbers["age"] == 0 {
		ctx.numbers["age"] = domain.DefaultPolicyholderAge
	}
	if ctx.numbers["tenure_months"] == 0 {
		ctx.numbers["tenure_months"] = domain.DefaultTenureMonths
	}
	// Данные страхователя (bind) перекрывают поля запроса
	if ph != nil {
		if ph.State != "" {
			ctx.strings["state"] = ph.State
		}
		if ph.Age != 0 {
			ctx.numbers["age"] = float64(ph.Age)
		}
		if ph.TenureMonths != 0 {
			ctx.numbers["tenure_months"] = float64(ph.TenureMonths)
		}
	}
	return ctx
}

// Evaluate прогоняет все правила продукта по контексту. Побочных эффектов
// нет; ReportID — свежий аудит-тег на каждый вызов, не персистентная
// идентичность. Block монотонен: однажды заблокированное решение
// последующие правила не разблокируют.
func (e *Evaluator) Evaluate(product domain.ProductCode, fields domain.QuoteFields, ph *domain.Policyholder) domain.ComplianceResult {
	ctx := buildContext(product, fields, ph)

	result := domain.ComplianceResult{
		Decision:    domain.DecisionAllow,
		Disclosures: []string{},
		ReportID:    newReportID(),
	}

	for _, rule := range e.rules {
		if rule.AppliesTo != product {
			continue
		}
		// Пустой критерий — правило применяется всегда
		if len(rule.Criteria) > 0 && !ctx.matchAll(rule.Criteria) {
			continue
		}

		result.AppliedRules = append(result.AppliedRules, rule.ID)
		// Сообщение любого сработавшего правила видно как дисклоз
		result.Disclosures = append(result.Disclosures, rule.Message)
		if rule.Kind == KindBlock {
			result.Decision = domain.DecisionBlock
		}
	}

	if result.Blocked() {
		e.logger.Warn("transaction blocked",
			zap.String("product", string(product)),
			zap.String("report_id", result.ReportID),
			zap.Strings("rules", result.AppliedRules))
	}
	return result
}

// matchAll — логическое AND по всем предикатам критерия
func (c evalContext) matchAll(preds []Predicate) bool {
	for _, p := range preds {
		if !c.match(p) {
			return false
		}
	}
	return true
}

func (c evalContext) match(p Predicate) bool {
	switch p.Op {
	case OpIn:
		v, ok := c.strings[p.Field]
		if !ok || v == "" {
			return false
		}
		for _, candidate := range p.Values {
			if strings.EqualFold(v, candidate) {
				return true
			}
		}
		return false
	case OpLT:
		v, ok := c.numbers[p.Field]
		return ok && v < p.Value
	case OpGT:
		v, ok := c.numbers[p.Field]
		return ok && v > p.Value
	}
	return false
}

// newReportID генерирует аудит-тег формата cr_xxxxxxxx
func newReportID() string {
	return "cr_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
