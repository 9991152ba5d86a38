// Package generate реализует HTTP-обработчик генерации одного рецепта.
//
// Handler принимает JSON с параметрами генерации, валидирует их, извлекает
// uid пользователя из контекста и вызывает бизнес-логику генерации. Один
// экземпляр обслуживает обычные рецепты, другой — фирменные напитки: вид
// функции задаётся при создании.
//
// Исчерпанная квота — штатный отказ с кодом 429, а не ошибка сервера.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/buildyoursmartcart/smartcart/internal/http/middlewarectx"
	"github.com/buildyoursmartcart/smartcart/internal/http/response"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
	recipeservice "github.com/buildyoursmartcart/smartcart/internal/services/recipe"
)

// Handler управляет HTTP-запросами на генерацию рецептов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики генерации рецептов
	feature  models.FeatureKind  // Тарифицируемая функция этого маршрута
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики генерации рецепта.
type Service interface {
	Generate(ctx context.Context, userUID string, feature models.FeatureKind, req models.DummyGenerate) (models.ConsumeOutcome, *models.Recipe, error)
}

// New создает новый Handler для переданного вида функции.
func New(log *slog.Logger, service Service, feature models.FeatureKind) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		feature:  feature,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать рецепт
// @Description Списывает единицу квоты и генерирует рецепт или фирменный напиток.
// @Tags Recipes
// @Accept  json
// @Produce  json
// @Param request body models.DummyGenerate true "Параметры генерации"
// @Success 200 {object} map[string]any "Сгенерированный рецепт"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Квота исчерпана"
// @Failure 502 {object} response.ErrorResponse "Модель вернула некорректный ответ"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при генерации"
// @Router /recipes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recipe.generate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("feature", string(h.feature)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyGenerate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	outcome, recipe, err := h.service.Generate(r.Context(), userUID, h.feature, req)
	if err != nil {
		if errors.Is(err, recipeservice.ErrGenerationFailed) {
			log.Error("generation failed after retry", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("recipe generation failed, try again later"))
			return
		}
		log.Error("failed to generate recipe", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate recipe"))
		return
	}
	if outcome == models.OutcomeLimitExceeded {
		log.Info("quota exhausted", slog.String("user_uid", userUID))
		w.WriteHeader(http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("quota exceeded for this feature"))
		return
	}

	log.Info("success to generate recipe", slog.Int("id", recipe.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"outcome": outcome,
		"recipe":  recipe,
	}))
}
