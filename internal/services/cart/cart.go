// Package cart собирает корзину продуктов по рецепту: выводит канонические
// поисковые фразы, подбирает товары во внешнем каталоге ограниченным пулом
// воркеров и сводит итог с покрытием и оценкой стоимости. Транспортные
// сбои подбора поглощаются поэлементно и до итога не доходят.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/lib/ingredient"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
	"github.com/buildyoursmartcart/smartcart/internal/productsearch"
)

// ErrEmptyIngredients — у рецепта нет ни одного ингредиента для подбора.
var ErrEmptyIngredients = errors.New("recipe has no ingredients to match")

const (
	// defaultMatchWorkers ограничивает параллелизм запросов к каталогу,
	// если в конфиге не задано иное.
	defaultMatchWorkers = 4
	// retryDelay — пауза перед единственным повтором неудачного поиска.
	retryDelay = 200 * time.Millisecond
	// productCacheTTL — время жизни кеша выдачи по поисковой фразе.
	productCacheTTL = 15 * time.Minute
)

// RecipeRepository описывает операции хранилища, нужные сборке корзины.
type RecipeRepository interface {
	// ReadRecipe возвращает рецепт по ID.
	ReadRecipe(ctx context.Context, id int) (*models.Recipe, error)
	// UpdateCleanIngredients сохраняет заново выведенные канонические фразы.
	UpdateCleanIngredients(ctx context.Context, id int, clean []string) error
}

// ProductSearcher ищет товары во внешнем каталоге.
type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]models.Product, error)
}

// RecipeReader проверяет владение рецептом перед сборкой.
type RecipeReader interface {
	Read(ctx context.Context, userUID string, id int) (*models.Recipe, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
}

// Service собирает корзину продуктов по рецепту.
type Service struct {
	recipes  RecipeReader
	repo     RecipeRepository
	searcher ProductSearcher
	cache    Cache
	log      *slog.Logger
	workers  int
}

// New создает новый экземпляр Service. workers задаёт параллелизм подбора,
// при значении <= 0 используется значение по умолчанию.
func New(recipes RecipeReader, repo RecipeRepository, searcher ProductSearcher, cache Cache, log *slog.Logger, workers int) *Service {
	if workers <= 0 {
		workers = defaultMatchWorkers
	}
	return &Service{
		recipes:  recipes,
		repo:     repo,
		searcher: searcher,
		cache:    cache,
		log:      log,
		workers:  workers,
	}
}

// BuildCart собирает корзину по рецепту пользователя. Порядок позиций
// корзины повторяет порядок ингредиентов рецепта.
func (s *Service) BuildCart(ctx context.Context, userUID string, recipeID int) (*models.CartResult, error) {
	const op = "cart.BuildCart"

	recipe, err := s.recipes.Read(ctx, userUID, recipeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	terms := s.canonicalTerms(ctx, recipe)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyIngredients)
	}

	matches := s.matchAll(ctx, terms)
	result := assemble(terms, matches)

	s.log.Info("cart assembled",
		slog.Int("recipe_id", recipeID),
		slog.String("status", result.Status),
		slog.Float64("coverage", result.Coverage))
	return result, nil
}

// canonicalTerms возвращает канонические фразы рецепта, заново выводя их,
// если сохранённый список отсутствует или разошёлся по длине с сырым.
func (s *Service) canonicalTerms(ctx context.Context, recipe *models.Recipe) []string {
	if len(recipe.IngredientsClean) == len(recipe.Ingredients) && len(recipe.IngredientsClean) > 0 {
		return recipe.IngredientsClean
	}
	terms := ingredient.NormalizeAll(recipe.Ingredients)
	if len(terms) == 0 {
		return terms
	}
	if err := s.repo.UpdateCleanIngredients(ctx, recipe.ID, terms); err != nil {
		s.log.Warn("failed to persist re-derived ingredients", slog.Int("recipe_id", recipe.ID), sl.Err(err))
	}
	return terms
}

// matchAll подбирает товары для всех фраз ограниченным пулом воркеров.
// Результаты пишутся по индексу, поэтому порядок совпадает со входом.
func (s *Service) matchAll(ctx context.Context, terms []string) []models.Match {
	matches := make([]models.Match, len(terms))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, term := range terms {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, query string) {
			defer wg.Done()
			defer func() { <-sem }()
			matches[idx] = s.matchOne(ctx, query)
		}(i, term)
	}
	wg.Wait()
	return matches
}

// matchOne подбирает товар для одной фразы: кеш, затем поиск с одним
// повтором. Окончательный сбой поиска превращается в found:false и не
// валит сборку целиком.
func (s *Service) matchOne(ctx context.Context, query string) models.Match {
	cacheKey := fmt.Sprintf("products:%s", query)
	var cached []models.Product
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read products from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return productsearch.SelectBest(query, cached)
	}

	products, err := s.searcher.Search(ctx, query)
	if err != nil {
		select {
		case <-ctx.Done():
			return models.Match{Found: false}
		case <-time.After(retryDelay):
		}
		products, err = s.searcher.Search(ctx, query)
		if err != nil {
			s.log.Warn("product search failed after retry", slog.String("query", query), sl.Err(err))
			return models.Match{Found: false}
		}
	}

	if err := s.cache.Set(cacheKey, products, productCacheTTL); err != nil {
		s.log.Warn("failed to cache products", slog.String("key", cacheKey), sl.Err(err))
	}
	return productsearch.SelectBest(query, products)
}

// assemble сводит подборы в итоговую корзину.
func assemble(terms []string, matches []models.Match) *models.CartResult {
	items := make([]models.CartItem, 0, len(terms))
	var unmatched []string
	var total float64
	matchedCount := 0

	for i, term := range terms {
		match := matches[i]
		item := models.CartItem{Ingredient: term, Found: match.Found}
		if match.Found {
			item.Product = match.Product
			total += match.Product.Price
			matchedCount++
		} else {
			unmatched = append(unmatched, term)
		}
		items = append(items, item)
	}

	status := models.CartComplete
	switch matchedCount {
	case 0:
		status = models.CartNoProducts
	case len(terms):
		status = models.CartComplete
	default:
		status = models.CartPartial
	}

	return &models.CartResult{
		Items:          items,
		Unmatched:      unmatched,
		EstimatedTotal: total,
		Coverage:       float64(matchedCount) / float64(len(terms)),
		Status:         status,
	}
}
