// Package weeklyplan реализует HTTP-обработчик генерации недельного плана.
//
// План списывает одну единицу квоты и создаёт семь рецептов, по одному на
// каждый из следующих семи дней. Ошибка генерации на любом дне отменяет
// план целиком — частично сохранённых планов не бывает.
package weeklyplan

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

// Handler управляет HTTP-запросами на генерацию недельных планов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики генерации планов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики генерации недельного плана.
type Service interface {
	GenerateWeeklyPlan(ctx context.Context, userUID string, req models.DummyGenerate) (models.ConsumeOutcome, []*models.Recipe, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать недельный план
// @Description Списывает единицу квоты недельного плана и генерирует семь рецептов.
// @Tags Recipes
// @Accept  json
// @Produce  json
// @Param request body models.DummyGenerate true "Параметры генерации"
// @Success 200 {object} map[string]any "Рецепты недельного плана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Квота исчерпана"
// @Failure 502 {object} response.ErrorResponse "Модель вернула некорректный ответ"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при генерации"
// @Router /mealplan [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recipe.weeklyplan"
	log := h.log.With(
		slog.String("op", op),
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

	outcome, recipes, err := h.service.GenerateWeeklyPlan(r.Context(), userUID, req)
	if err != nil {
		if errors.Is(err, recipeservice.ErrGenerationFailed) {
			log.Error("plan generation failed after retry", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("weekly plan generation failed, try again later"))
			return
		}
		log.Error("failed to generate weekly plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate weekly plan"))
		return
	}
	if outcome == models.OutcomeLimitExceeded {
		log.Info("quota exhausted", slog.String("user_uid", userUID))
		w.WriteHeader(http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("quota exceeded for this feature"))
		return
	}

	log.Info("success to generate weekly plan", slog.Int("recipes", len(recipes)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"outcome": outcome,
		"recipes": recipes,
	}))
}
