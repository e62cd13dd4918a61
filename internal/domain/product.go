package domain

// ProductCode определяет вид встроенного страхового продукта
type ProductCode string

const (
	ProductShipping ProductCode = "shipping" // Страхование доставки
	ProductPPI      ProductCode = "ppi"      // Защита платежей (Payment Protection)
)

// IsValid проверяет, что код продукта известен системе
func (p ProductCode) IsValid() bool {
	return p == ProductShipping || p == ProductPPI
}

// RiskBand — дискретный уровень риска: A (лучший) ... E (худший).
// Маппинг score -> band единый для обоих продуктов и не настраивается per-product.
type RiskBand string

const (
	BandA RiskBand = "A"
	BandB RiskBand = "B"
	BandC RiskBand = "C"
	BandD RiskBand = "D"
	BandE RiskBand = "E"
)

// bandOrder задает порядок для сравнения "хуже/лучше" (A=1 ... E=5)
var bandOrder = map[RiskBand]int{
	BandA: 1, BandB: 2, BandC: 3, BandD: 4, BandE: 5,
}

// Worse возвращает true, если band хуже (рискованнее) чем other.
// Неизвестный band трактуем как худший — Default Deny для аппетита.
func (b RiskBand) Worse(other RiskBand) bool {
	bo, ok := bandOrder[b]
	if !ok {
		bo = 5
	}
	oo, ok := bandOrder[other]
	if !ok {
		oo = 5
	}
	return bo > oo
}

// RiskAssessment — результат детерминированного скоринга
type RiskAssessment struct {
	Score      float64     `json:"risk_score"`      // Округлен до 4 знаков
	Band       RiskBand    `json:"risk_band"`       // A..E
	Multiplier float64     `json:"risk_multiplier"` // 0.90 .. 1.40
	Product    ProductCode `json:"product_code"`
}
