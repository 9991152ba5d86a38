// Package read реализует HTTP-обработчик чтения квот текущего пользователя:
// действующий тариф и расход по каждой функции за расчётный период.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/buildyoursmartcart/smartcart/internal/http/middlewarectx"
	"github.com/buildyoursmartcart/smartcart/internal/http/response"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// Handler обрабатывает запросы на чтение квот пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения квот.
type Service interface {
	Usage(ctx context.Context, userUID string) (*models.PlanDescriptor, []models.FeatureUsage, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Квоты пользователя
// @Description Возвращает действующий тариф и расход по каждой функции.
// @Tags Usage
// @Produce  json
// @Success 200 {object} map[string]any "Тариф и расход"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quota.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	descriptor, usage, err := h.service.Usage(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read usage", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read usage"))
		return
	}

	log.Info("success to read usage", slog.String("tier", string(descriptor.Tier)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"tier":  descriptor.Tier,
		"usage": usage,
	}))
}
