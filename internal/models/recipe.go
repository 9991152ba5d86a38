package models

import "time"

// Источники рецепта: одиночная генерация, недельный план, фирменный напиток.
const (
	SourceIndividual = "individual"
	SourceWeeklyPlan = "weekly_plan"
	SourceDrink      = "drink"
)

// Recipe представляет сгенерированный рецепт, принадлежащий пользователю.
// IngredientsClean хранит канонические поисковые фразы и может быть пустым
// у старых записей — тогда он выводится заново перед сборкой корзины.
type Recipe struct {
	ID               int        // Идентификатор записи
	UserUID          string     // Владелец рецепта
	Title            string     // Название
	Source           string     // individual | weekly_plan | drink
	Ingredients      []string   // Сырые строки ингредиентов из генерации
	IngredientsClean []string   // Канонические поисковые фразы
	Instructions     []string   // Шаги приготовления
	Nutrition        Nutrition  // Пищевая ценность на порцию
	EstimatedCost    float64    // Оценка стоимости, USD
	Fallback         bool       // Рецепт собран шаблоном без LLM
	CreatedAt        time.Time  // Время создания
	PlanDate         *time.Time // Дата в недельном плане, если Source == weekly_plan
}

// Nutrition описывает пищевую ценность рецепта на порцию.
type Nutrition struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// DummyGenerate используется для приёма данных из JSON-запроса генерации рецепта.
type DummyGenerate struct {
	Cuisine     string   `json:"cuisine" validate:"required"`
	Difficulty  string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Servings    int      `json:"servings" validate:"required,gt=0"`
	Dietary     []string `json:"dietary"`
	OnHand      []string `json:"on_hand"`
	Description string   `json:"description"`
}
