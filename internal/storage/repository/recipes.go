package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// CreateRecipe вставляет новый рецепт и возвращает его ID.
// Списки ингредиентов и шагов сериализуются в JSONB.
func (s *Storage) CreateRecipe(ctx context.Context, recipe models.Recipe) (int, error) {
	const op = "storage.CreateRecipe"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var ingredientsClean []byte
	if recipe.IngredientsClean != nil {
		ingredientsClean, err = json.Marshal(recipe.IngredientsClean)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}
	instructions, err := json.Marshal(recipe.Instructions)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO recipes (user_uid, title, source, ingredients, ingredients_clean,
			      instructions, calories, protein, carbs, fat, estimated_cost, is_fallback, plan_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  RETURNING id`
	var newID int
	err = s.DB.QueryRowContext(ctx, query,
		recipe.UserUID, recipe.Title, recipe.Source, ingredients, ingredientsClean,
		instructions, recipe.Nutrition.Calories, recipe.Nutrition.Protein,
		recipe.Nutrition.Carbs, recipe.Nutrition.Fat, recipe.EstimatedCost,
		recipe.Fallback, recipe.PlanDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadRecipe возвращает рецепт по его ID.
func (s *Storage) ReadRecipe(ctx context.Context, id int) (*models.Recipe, error) {
	const op = "storage.ReadRecipe"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, title, source, ingredients, ingredients_clean,
			      instructions, calories, protein, carbs, fat, estimated_cost, is_fallback,
			      plan_date, created_at
			  FROM recipes WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Recipe
	var ingredients, instructions []byte
	var ingredientsClean []byte
	var planDate sql.NullTime
	if err := row.Scan(&result.ID, &result.UserUID, &result.Title, &result.Source,
		&ingredients, &ingredientsClean, &instructions,
		&result.Nutrition.Calories, &result.Nutrition.Protein, &result.Nutrition.Carbs,
		&result.Nutrition.Fat, &result.EstimatedCost, &result.Fallback,
		&planDate, &result.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(ingredients, &result.Ingredients); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ingredientsClean) > 0 {
		if err := json.Unmarshal(ingredientsClean, &result.IngredientsClean); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := json.Unmarshal(instructions, &result.Instructions); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if planDate.Valid {
		result.PlanDate = &planDate.Time
	}
	return &result, nil
}

// UpdateCleanIngredients сохраняет заново выведенный канонический список
// ингредиентов рецепта.
func (s *Storage) UpdateCleanIngredients(ctx context.Context, id int, clean []string) error {
	const op = "storage.UpdateCleanIngredients"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE recipes
			  SET ingredients_clean = $1
			  WHERE id = $2`
	_, err = s.DB.ExecContext(ctx, query, data, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListRecipes возвращает список рецептов пользователя с пагинацией.
func (s *Storage) ListRecipes(ctx context.Context, userUID string, limit, offset int) ([]*models.Recipe, error) {
	const op = "storage.ListRecipes"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, title, source, ingredients, ingredients_clean,
			      instructions, calories, protein, carbs, fat, estimated_cost, is_fallback,
			      plan_date, created_at
			  FROM recipes
			  WHERE user_uid = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Recipe
	for rows.Next() {
		var item models.Recipe
		var ingredients, instructions []byte
		var ingredientsClean []byte
		var planDate sql.NullTime
		if err := rows.Scan(&item.ID, &item.UserUID, &item.Title, &item.Source,
			&ingredients, &ingredientsClean, &instructions,
			&item.Nutrition.Calories, &item.Nutrition.Protein, &item.Nutrition.Carbs,
			&item.Nutrition.Fat, &item.EstimatedCost, &item.Fallback,
			&planDate, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(ingredients, &item.Ingredients); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(ingredientsClean) > 0 {
			if err := json.Unmarshal(ingredientsClean, &item.IngredientsClean); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		if err := json.Unmarshal(instructions, &item.Instructions); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if planDate.Valid {
			item.PlanDate = &planDate.Time
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
