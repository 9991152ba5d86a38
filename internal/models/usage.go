package models

import "time"

// FeatureKind определяет тарифицируемую функцию сервиса.
type FeatureKind string

// Виды функций, расход которых учитывается счётчиками.
const (
	FeatureIndividualRecipe FeatureKind = "individual_recipe"
	FeatureWeeklyPlan       FeatureKind = "weekly_plan"
	FeatureSpecialtyDrink   FeatureKind = "specialty_drink"
)

// Valid сообщает, известен ли вид функции.
func (f FeatureKind) Valid() bool {
	switch f {
	case FeatureIndividualRecipe, FeatureWeeklyPlan, FeatureSpecialtyDrink:
		return true
	}
	return false
}

// Tier определяет действующий уровень тарифа пользователя.
type Tier string

// Уровни тарифа: пробный, оплаченный и отсутствие доступа.
const (
	TierTrial   Tier = "trial"
	TierPremium Tier = "premium"
	TierNone    Tier = "none"
)

// PlanDescriptor описывает действующий тариф пользователя
// и лимиты по каждой функции за расчётный период.
type PlanDescriptor struct {
	Tier   Tier                `json:"tier"`
	Limits map[FeatureKind]int `json:"limits"`
}

// TierLimits сопоставляет уровни тарифа с лимитами за период.
// Для TierNone лимиты нулевые: ни одна функция недоступна.
var TierLimits = map[Tier]map[FeatureKind]int{
	TierTrial: {
		FeatureIndividualRecipe: 10,
		FeatureWeeklyPlan:       2,
		FeatureSpecialtyDrink:   5,
	},
	TierPremium: {
		FeatureIndividualRecipe: 200,
		FeatureWeeklyPlan:       52,
		FeatureSpecialtyDrink:   100,
	},
	TierNone: {
		FeatureIndividualRecipe: 0,
		FeatureWeeklyPlan:       0,
		FeatureSpecialtyDrink:   0,
	},
}

// LimitsFor возвращает лимиты для уровня тарифа,
// для неизвестного уровня — нулевые лимиты TierNone.
func LimitsFor(tier Tier) map[FeatureKind]int {
	if limits, ok := TierLimits[tier]; ok {
		return limits
	}
	return TierLimits[TierNone]
}

// UsageCounter представляет счётчик расхода одной функции
// одним пользователем в текущем расчётном периоде.
type UsageCounter struct {
	UserUID     string      // Владелец счётчика
	FeatureKind FeatureKind // Вид функции
	Used        int         // Израсходовано за период, неотрицательное
	Limit       int         // Лимит за период, положительное
	PeriodStart time.Time   // Начало текущего периода
}

// ConsumeOutcome — типизированный результат попытки списания единицы квоты.
type ConsumeOutcome string

// Возможные исходы TryConsume. PeriodRolled означает, что списание прошло,
// но перед ним счётчик был сброшен на границе нового периода.
const (
	OutcomeConsumed      ConsumeOutcome = "consumed"
	OutcomePeriodRolled  ConsumeOutcome = "period_rolled"
	OutcomeLimitExceeded ConsumeOutcome = "limit_exceeded"
)

// FeatureUsage — срез расхода одной функции для отображения в интерфейсе.
type FeatureUsage struct {
	Feature FeatureKind `json:"feature"`
	Used    int         `json:"used"`
	Limit   int         `json:"limit"`
}
