package refdata

/*
Файл store.go реализует справочное хранилище (Reference Data Store):
носители, партнеры и тарифные кривые загружаются из seed-файла один раз
при старте и дальше живут как read-only объект, который явно передается
в компоненты. Никакого глобального мутабельного кэша — котировочный
путь не трогает эти данные, поэтому синхронизация не нужна.
*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// seedFile — формат configs/seed.yaml
type seedFile struct {
	Carriers []domain.Carrier `yaml:"carriers"`
	Partners []domain.Partner `yaml:"partners"`
	// pricing_curves: curve_ref -> product -> кривая
	PricingCurves map[string]map[domain.ProductCode]domain.PricingCurve `yaml:"pricing_curves"`
}

// Store — неизменяемый снимок справочных данных на время жизни процесса
type Store struct {
	carriers     []domain.Carrier
	carrierByID  map[string]*domain.Carrier
	partnerByID  map[string]*domain.Partner
	partnerByKey map[string]*domain.Partner
	curves       map[string]map[domain.ProductCode]domain.PricingCurve
}

// Load читает seed-файл и строит индексы. Ошибка здесь фатальна для старта:
// без носителей и тарифов котировать нечего.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("refdata: failed to parse seed file: %w", err)
	}
	if len(seed.Carriers) == 0 {
		return nil, fmt.Errorf("refdata: seed file contains no carriers")
	}

	s := &Store{
		carriers:     seed.Carriers,
		carrierByID:  make(map[string]*domain.Carrier, len(seed.Carriers)),
		partnerByID:  make(map[string]*domain.Partner, len(seed.Partners)),
		partnerByKey: make(map[string]*domain.Partner, len(seed.Partners)),
		curves:       seed.PricingCurves,
	}
	for i := range s.carriers {
		s.carrierByID[s.carriers[i].ID] = &s.carriers[i]
	}
	for i := range seed.Partners {
		p := &seed.Partners[i]
		s.partnerByID[p.ID] = p
		s.partnerByKey[p.APIKey] = p
	}
	return s, nil
}

// NewStore собирает хранилище из готовых объектов — для тестов и фикстур
func NewStore(carriers []domain.Carrier, partners []domain.Partner, curves map[string]map[domain.ProductCode]domain.PricingCurve) *Store {
	s := &Store{
		carriers:     carriers,
		carrierByID:  make(map[string]*domain.Carrier, len(carriers)),
		partnerByID:  make(map[string]*domain.Partner, len(partners)),
		partnerByKey: make(map[string]*domain.Partner, len(partners)),
		curves:       curves,
	}
	for i := range s.carriers {
		s.carrierByID[s.carriers[i].ID] = &s.carriers[i]
	}
	for i := range partners {
		s.partnerByID[partners[i].ID] = &partners[i]
		s.partnerByKey[partners[i].APIKey] = &partners[i]
	}
	return s
}

// Carriers возвращает всех носителей
func (s *Store) Carriers() []domain.Carrier {
	return s.carriers
}

// Carrier ищет носителя по ID
func (s *Store) Carrier(id string) (*domain.Carrier, error) {
	c, ok := s.carrierByID[id]
	if !ok {
		return nil, fmt.Errorf("refdata: carrier %s: %w", id, domain.ErrCarrierNotFound)
	}
	return c, nil
}

// Partner ищет партнера по ID
func (s *Store) Partner(id string) (*domain.Partner, bool) {
	p, ok := s.partnerByID[id]
	return p, ok
}

// PartnerByAPIKey разрешает партнера по ключу из заголовка запроса
func (s *Store) PartnerByAPIKey(key string) (*domain.Partner, bool) {
	p, ok := s.partnerByKey[key]
	return p, ok
}

// PricingCurve возвращает тарифную кривую носителя для продукта.
// Отсутствие кривой — рассинхрон справочника: носитель будет пропущен
// роутером, а не завалит всю котировку.
func (s *Store) PricingCurve(carrierID string, product domain.ProductCode) (*domain.PricingCurve, error) {
	c, err := s.Carrier(carrierID)
	if err != nil {
		return nil, err
	}
	byProduct, ok := s.curves[c.PricingCurveRef]
	if !ok {
		return nil, fmt.Errorf("refdata: curve ref %s for carrier %s: %w", c.PricingCurveRef, carrierID, domain.ErrPricingCurveMissing)
	}
	curve, ok := byProduct[product]
	if !ok {
		return nil, fmt.Errorf("refdata: curve ref %s has no product %s: %w", c.PricingCurveRef, product, domain.ErrPricingCurveMissing)
	}
	return &curve, nil
}
