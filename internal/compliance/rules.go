package compliance

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// RuleKind — что делает сработавшее правило
type RuleKind string

const (
	KindDisclosure RuleKind = "disclosure" // добавить сообщение в дисклозы
	KindBlock      RuleKind = "block"      // заблокировать транзакцию (монотонно)
)

// PredicateOp — тип предиката. Никакого парсинга строк-выражений:
// предикаты представлены тегированными вариантами и вычисляются напрямую
// по типизированному контексту.
type PredicateOp string

const (
	OpIn PredicateOp = "in" // членство во множестве
	OpLT PredicateOp = "lt" // численно меньше порога
	OpGT PredicateOp = "gt" // численно больше порога
)

// Predicate — один именованный предикат критерия
type Predicate struct {
	Field  string      `yaml:"field"`
	Op     PredicateOp `yaml:"op"`
	Values []string    `yaml:"values,omitempty"` // для in
	Value  float64     `yaml:"value,omitempty"`  // для lt/gt
}

// Rule — правило комплаенса. Критерии соединены логическим AND;
// пустой список критериев означает "применяется всегда"
// (используется для постоянных дисклозов).
type Rule struct {
	ID        string             `yaml:"id"`
	AppliesTo domain.ProductCode `yaml:"applies_to"`
	Kind      RuleKind           `yaml:"type"`
	Message   string             `yaml:"message"`
	Criteria  []Predicate        `yaml:"criteria"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules читает правила из YAML. Невалидная конфигурация не роняет
// процесс: пишем warning и деградируем до пустого набора правил.
func LoadRules(path string, logger *zap.Logger) []Rule {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("compliance config not found, running with empty rule set",
			zap.String("path", path), zap.Error(err))
		return nil
	}

	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		logger.Warn("compliance config unparseable, running with empty rule set",
			zap.String("path", path), zap.Error(err))
		return nil
	}

	for _, r := range f.Rules {
		if err := validateRule(r); err != nil {
			logger.Warn("compliance config invalid, running with empty rule set",
				zap.String("rule_id", r.ID), zap.Error(err))
			return nil
		}
	}
	return f.Rules
}

func validateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("rule without id")
	}
	if !r.AppliesTo.IsValid() {
		return fmt.Errorf("rule %s: unknown product %q", r.ID, r.AppliesTo)
	}
	if r.Kind != KindDisclosure && r.Kind != KindBlock {
		return fmt.Errorf("rule %s: unknown kind %q", r.ID, r.Kind)
	}
	for _, p := range r.Criteria {
		if p.Field == "" {
			return fmt.Errorf("rule %s: predicate without field", r.ID)
		}
		switch p.Op {
		case OpIn:
			if len(p.Values) == 0 {
				return fmt.Errorf("rule %s: 'in' predicate on %s without values", r.ID, p.Field)
			}
		case OpLT, OpGT:
			// порог может быть любым числом, включая ноль
		default:
			return fmt.Errorf("rule %s: unknown predicate op %q", r.ID, p.Op)
		}
	}
	return nil
}
