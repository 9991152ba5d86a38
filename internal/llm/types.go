package llm

// GenerationRequest описывает параметры генерации рецепта.
type GenerationRequest struct {
	Kind        string   // individual_recipe | weekly_plan | specialty_drink
	Cuisine     string
	Difficulty  string
	Servings    int
	Dietary     []string
	OnHand      []string
	Description string
}

// GeneratedRecipe — строгий JSON-контракт ответа модели.
type GeneratedRecipe struct {
	Title         string             `json:"title"`
	Ingredients   []string           `json:"ingredients"`
	Instructions  []string           `json:"instructions"`
	Nutrition     GeneratedNutrition `json:"nutrition"`
	EstimatedCost float64            `json:"estimated_cost"`
}

// GeneratedNutrition — пищевая ценность на порцию в ответе модели.
type GeneratedNutrition struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Запрос к chat completions API
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Ответ chat completions API
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
