// Package recipe реализует генерацию и чтение рецептов. Каждая генерация
// проходит через квоту; недоступность модели деградирует в детерминированный
// шаблонный рецепт, а искажённый ответ модели — в отказ без сохранения.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/lib/ingredient"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/llm"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// Ошибки уровня сервиса, различаемые HTTP-слоем.
var (
	// ErrGenerationFailed — модель дважды вернула некорректный ответ,
	// квота при этом уже списана, рецепт не сохранён.
	ErrGenerationFailed = errors.New("recipe generation failed")
	// ErrNotFound — рецепт не существует.
	ErrNotFound = errors.New("recipe not found")
	// ErrForbidden — рецепт принадлежит другому пользователю.
	ErrForbidden = errors.New("recipe belongs to another user")
)

// weeklyPlanDays — число рецептов в недельном плане, по одному на день.
const weeklyPlanDays = 7

// RecipeRepository описывает операции хранилища над рецептами.
type RecipeRepository interface {
	// CreateRecipe вставляет рецепт и возвращает его ID.
	CreateRecipe(ctx context.Context, recipe models.Recipe) (int, error)
	// ReadRecipe возвращает рецепт по ID.
	ReadRecipe(ctx context.Context, id int) (*models.Recipe, error)
	// ListRecipes возвращает рецепты пользователя с пагинацией.
	ListRecipes(ctx context.Context, userUID string, limit, offset int) ([]*models.Recipe, error)
}

// QuotaLedger списывает единицы квоты по функциям.
type QuotaLedger interface {
	TryConsume(ctx context.Context, userUID string, feature models.FeatureKind) (models.ConsumeOutcome, error)
}

// Generator запрашивает рецепт у языковой модели.
type Generator interface {
	GenerateRecipe(ctx context.Context, req llm.GenerationRequest) (*llm.GeneratedRecipe, error)
}

// Service реализует генерацию и чтение рецептов.
type Service struct {
	repo      RecipeRepository
	quota     QuotaLedger
	generator Generator
	log       *slog.Logger
	now       func() time.Time
}

// New создает новый экземпляр Service.
func New(repo RecipeRepository, quota QuotaLedger, generator Generator, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		quota:     quota,
		generator: generator,
		log:       log,
		now:       time.Now,
	}
}

// Generate списывает единицу квоты и создаёт один рецепт: обычный для
// FeatureIndividualRecipe или напиток для FeatureSpecialtyDrink.
// При исходе LimitExceeded возвращается (outcome, nil, nil) — это штатный
// отказ, а не ошибка.
func (s *Service) Generate(ctx context.Context, userUID string, feature models.FeatureKind, req models.DummyGenerate) (models.ConsumeOutcome, *models.Recipe, error) {
	const op = "recipe.Generate"

	outcome, err := s.quota.TryConsume(ctx, userUID, feature)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if outcome == models.OutcomeLimitExceeded {
		return outcome, nil, nil
	}

	generated, fallback, err := s.generateOne(ctx, feature, req)
	if err != nil {
		return outcome, nil, fmt.Errorf("%s: %w", op, err)
	}

	recipe := s.toRecipe(userUID, feature, generated, fallback, nil)
	id, err := s.repo.CreateRecipe(ctx, *recipe)
	if err != nil {
		return outcome, nil, fmt.Errorf("%s: %w", op, err)
	}
	recipe.ID = id

	s.log.Info("recipe generated",
		slog.Int("id", id),
		slog.String("user_uid", userUID),
		slog.String("feature", string(feature)),
		slog.Bool("fallback", fallback))
	return outcome, recipe, nil
}

// GenerateWeeklyPlan списывает одну единицу квоты недельного плана и
// создаёт семь рецептов, по одному на каждый из следующих семи дней.
// Все семь генерируются до первого сохранения: искажённый ответ модели
// на любом дне отменяет план целиком.
func (s *Service) GenerateWeeklyPlan(ctx context.Context, userUID string, req models.DummyGenerate) (models.ConsumeOutcome, []*models.Recipe, error) {
	const op = "recipe.GenerateWeeklyPlan"

	outcome, err := s.quota.TryConsume(ctx, userUID, models.FeatureWeeklyPlan)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if outcome == models.OutcomeLimitExceeded {
		return outcome, nil, nil
	}

	firstDay := s.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	recipes := make([]*models.Recipe, 0, weeklyPlanDays)
	for day := range weeklyPlanDays {
		generated, fallback, err := s.generateOne(ctx, models.FeatureWeeklyPlan, req)
		if err != nil {
			return outcome, nil, fmt.Errorf("%s: day %d: %w", op, day+1, err)
		}
		planDate := firstDay.AddDate(0, 0, day)
		recipes = append(recipes, s.toRecipe(userUID, models.FeatureWeeklyPlan, generated, fallback, &planDate))
	}

	for _, recipe := range recipes {
		id, err := s.repo.CreateRecipe(ctx, *recipe)
		if err != nil {
			return outcome, nil, fmt.Errorf("%s: %w", op, err)
		}
		recipe.ID = id
	}

	s.log.Info("weekly plan generated",
		slog.String("user_uid", userUID),
		slog.Int("recipes", len(recipes)))
	return outcome, recipes, nil
}

// Read возвращает рецепт после проверки владения.
func (s *Service) Read(ctx context.Context, userUID string, id int) (*models.Recipe, error) {
	const op = "recipe.Read"

	recipe, err := s.repo.ReadRecipe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	if recipe.UserUID != userUID {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	return recipe, nil
}

// List возвращает рецепты пользователя с пагинацией.
func (s *Service) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Recipe, error) {
	const op = "recipe.List"

	recipes, err := s.repo.ListRecipes(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return recipes, nil
}

// generateOne вызывает модель и выбирает деградацию: недоступная модель
// заменяется шаблонным рецептом, искажённый ответ — отказом.
func (s *Service) generateOne(ctx context.Context, feature models.FeatureKind, req models.DummyGenerate) (*llm.GeneratedRecipe, bool, error) {
	generated, err := s.generator.GenerateRecipe(ctx, llm.GenerationRequest{
		Kind:        string(feature),
		Cuisine:     req.Cuisine,
		Difficulty:  req.Difficulty,
		Servings:    req.Servings,
		Dietary:     req.Dietary,
		OnHand:      req.OnHand,
		Description: req.Description,
	})
	switch {
	case err == nil:
		return generated, false, nil
	case errors.Is(err, llm.ErrUnavailable):
		s.log.Warn("llm unavailable, using template recipe", sl.Err(err))
		return templateRecipe(feature, req), true, nil
	case errors.Is(err, llm.ErrMalformedResponse):
		return nil, false, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	default:
		return nil, false, err
	}
}

func (s *Service) toRecipe(userUID string, feature models.FeatureKind, generated *llm.GeneratedRecipe, fallback bool, planDate *time.Time) *models.Recipe {
	source := models.SourceIndividual
	switch feature {
	case models.FeatureWeeklyPlan:
		source = models.SourceWeeklyPlan
	case models.FeatureSpecialtyDrink:
		source = models.SourceDrink
	}

	return &models.Recipe{
		UserUID:          userUID,
		Title:            generated.Title,
		Source:           source,
		Ingredients:      generated.Ingredients,
		IngredientsClean: ingredient.NormalizeAll(generated.Ingredients),
		Instructions:     generated.Instructions,
		Nutrition: models.Nutrition{
			Calories: generated.Nutrition.Calories,
			Protein:  generated.Nutrition.Protein,
			Carbs:    generated.Nutrition.Carbs,
			Fat:      generated.Nutrition.Fat,
		},
		EstimatedCost: generated.EstimatedCost,
		Fallback:      fallback,
		PlanDate:      planDate,
	}
}
