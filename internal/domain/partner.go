package domain

// Partner — дистрибьютор (маркетплейс, кредитор), продающий полисы под своим
// брендом. Разрешается до обработки запроса по API-ключу; ядро получает уже
// готовую запись и не занимается аутентификацией.
type Partner struct {
	ID        string        `json:"id" yaml:"id"`
	APIKey    string        `json:"-" yaml:"api_key"` // никогда не отдаем наружу
	Name      string        `json:"name" yaml:"name"`
	MarkupPct float64       `json:"markup_pct" yaml:"markup_pct"` // доля наценки, напр. 0.15
	Products  []ProductCode `json:"products" yaml:"products"`
	Regions   []string      `json:"regions" yaml:"regions"`
}

// Offers проверяет, что продукт доступен данному партнеру
func (p *Partner) Offers(code ProductCode) bool {
	for _, pc := range p.Products {
		if pc == code {
			return true
		}
	}
	return false
}
