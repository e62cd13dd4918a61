package domain

import "errors"

// Таксономия ошибок ядра. Ничто из этого не фатально для процесса —
// каждая ошибка привязана к одному запросу. Хендлеры различают их
// через errors.Is и маппят в HTTP-статусы.
var (
	// ErrValidation — отсутствует или некорректно обязательное поле.
	// Отдается вызывающему, ретраи бессмысленны.
	ErrValidation = errors.New("validation failed")

	// ErrComplianceBlocked — решение движка правил. Отдается вместе с
	// дисклозами, ретраи бессмысленны.
	ErrComplianceBlocked = errors.New("blocked by compliance")

	// ErrCarrierNotFound — рассинхрон справочных данных. Логируется,
	// носитель пропускается, котировка продолжается.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrPricingCurveMissing — у носителя нет тарифной кривой для продукта.
	// Как и ErrCarrierNotFound — носитель пропускается, не вся котировка.
	ErrPricingCurveMissing = errors.New("pricing curve missing")

	// ErrNoEligibleCarrier — все носители отброшены аппетитом или емкостью.
	// Терминальный отказ для данной котировки.
	ErrNoEligibleCarrier = errors.New("no eligible carrier")

	// ErrCapacityExhausted — атомарный резерв на bind не удался. Вызывающий
	// может перекотировать; ядро не переназначает носителя автоматически.
	ErrCapacityExhausted = errors.New("carrier capacity exhausted")

	// ErrSimulationParam — параметры симуляции вне допустимого диапазона.
	// Проверяется до любых вычислений.
	ErrSimulationParam = errors.New("invalid simulation parameter")

	ErrQuoteNotFound  = errors.New("quote not found")
	ErrPolicyNotFound = errors.New("policy not found")
)
