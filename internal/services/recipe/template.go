package recipe

import (
	"fmt"
	"strings"

	"github.com/buildyoursmartcart/smartcart/internal/llm"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// templateRecipe собирает детерминированный рецепт без обращения к модели.
// Используется при недоступности генерации, чтобы пользователь получил
// работающий результат вместо ошибки.
func templateRecipe(feature models.FeatureKind, req models.DummyGenerate) *llm.GeneratedRecipe {
	servings := req.Servings
	if servings <= 0 {
		servings = 2
	}
	cuisine := strings.TrimSpace(req.Cuisine)
	if cuisine == "" {
		cuisine = "classic"
	}

	if feature == models.FeatureSpecialtyDrink {
		return &llm.GeneratedRecipe{
			Title: fmt.Sprintf("House %s Iced Latte", capitalize(cuisine)),
			Ingredients: []string{
				fmt.Sprintf("%d shots espresso", servings),
				fmt.Sprintf("%d cups whole milk", servings),
				"2 tbsp vanilla syrup",
				"1 cup ice cubes",
			},
			Instructions: []string{
				"Brew the espresso and let it cool slightly.",
				"Fill glasses with ice and pour in the milk.",
				"Add the espresso and vanilla syrup, stir and serve.",
			},
			Nutrition:     llm.GeneratedNutrition{Calories: 180, Protein: 8, Carbs: 22, Fat: 7},
			EstimatedCost: 6.50,
		}
	}

	return &llm.GeneratedRecipe{
		Title: fmt.Sprintf("Simple %s Chicken and Rice", capitalize(cuisine)),
		Ingredients: []string{
			fmt.Sprintf("%d lbs chicken breast, diced", (servings+1)/2),
			fmt.Sprintf("%d cups long grain rice", (servings+1)/2),
			"2 tbsp olive oil",
			"1 yellow onion, chopped",
			"2 cloves garlic, minced",
			"1 tsp salt",
		},
		Instructions: []string{
			"Cook the rice according to package directions.",
			"Heat the oil and saute the onion and garlic until soft.",
			"Add the chicken and cook through, about 8 minutes.",
			"Season with salt and serve over the rice.",
		},
		Nutrition:     llm.GeneratedNutrition{Calories: 520, Protein: 42, Carbs: 48, Fat: 16},
		EstimatedCost: 14.00,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
