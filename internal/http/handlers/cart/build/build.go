// Package build реализует HTTP-обработчик сборки корзины продуктов по рецепту.
//
// Handler извлекает ID рецепта из URL, проверяет владение через сервис корзины
// и возвращает итоговую корзину: позиции, непокрытые ингредиенты, оценку
// стоимости и покрытие. Сборка не списывает квоту.
package build

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/buildyoursmartcart/smartcart/internal/http/middlewarectx"
	"github.com/buildyoursmartcart/smartcart/internal/http/response"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
	cartservice "github.com/buildyoursmartcart/smartcart/internal/services/cart"
	recipeservice "github.com/buildyoursmartcart/smartcart/internal/services/recipe"
)

// Handler управляет HTTP-запросами на сборку корзины.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики сборки корзины
}

// Service описывает интерфейс бизнес-логики сборки корзины.
type Service interface {
	BuildCart(ctx context.Context, userUID string, recipeID int) (*models.CartResult, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Собрать корзину по рецепту
// @Description Подбирает товары каталога под ингредиенты рецепта и возвращает итоговую корзину.
// @Tags Cart
// @Produce  json
// @Param id path int true "ID рецепта"
// @Success 200 {object} map[string]any "Итоговая корзина"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Рецепт принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Рецепт не найден"
// @Failure 422 {object} response.ErrorResponse "У рецепта нет ингредиентов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при сборке"
// @Router /recipes/{id}/cart [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.build"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	cart, err := h.service.BuildCart(r.Context(), userUID, id)
	if err != nil {
		switch {
		case errors.Is(err, recipeservice.ErrForbidden):
			log.Error("recipe belongs to another user", slog.Int("id", id))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("recipe belongs to another user"))
		case errors.Is(err, recipeservice.ErrNotFound):
			log.Error("recipe not found", slog.Int("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("recipe not found"))
		case errors.Is(err, cartservice.ErrEmptyIngredients):
			log.Error("recipe has no ingredients", slog.Int("id", id))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("recipe has no ingredients to match"))
		default:
			log.Error("failed to build cart", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not build cart"))
		}
		return
	}

	log.Info("success to build cart",
		slog.Int("recipe_id", id),
		slog.String("status", cart.Status))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"cart": cart,
	}))
}
