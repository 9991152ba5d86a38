// Package smartcart предоставляет маршруты для основного приложения.
package smartcart

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/buildyoursmartcart/smartcart/internal/config"
	"github.com/buildyoursmartcart/smartcart/internal/http/handlers/auth/login"
	"github.com/buildyoursmartcart/smartcart/internal/http/handlers/auth/register"
	billingwebhook "github.com/buildyoursmartcart/smartcart/internal/http/handlers/billing/webhook"
	cartbuild "github.com/buildyoursmartcart/smartcart/internal/http/handlers/cart/build"
	"github.com/buildyoursmartcart/smartcart/internal/http/handlers/health"
	quotaread "github.com/buildyoursmartcart/smartcart/internal/http/handlers/quota/read"
	recipegenerate "github.com/buildyoursmartcart/smartcart/internal/http/handlers/recipe/generate"
	recipelist "github.com/buildyoursmartcart/smartcart/internal/http/handlers/recipe/list"
	reciperead "github.com/buildyoursmartcart/smartcart/internal/http/handlers/recipe/read"
	"github.com/buildyoursmartcart/smartcart/internal/http/handlers/recipe/weeklyplan"
	"github.com/buildyoursmartcart/smartcart/internal/http/middlewarectx"
	"github.com/buildyoursmartcart/smartcart/internal/models"
	authservice "github.com/buildyoursmartcart/smartcart/internal/services/auth"
	cartservice "github.com/buildyoursmartcart/smartcart/internal/services/cart"
	planservice "github.com/buildyoursmartcart/smartcart/internal/services/plan"
	recipeservice "github.com/buildyoursmartcart/smartcart/internal/services/recipe"
	usageservice "github.com/buildyoursmartcart/smartcart/internal/services/usage"
	"github.com/buildyoursmartcart/smartcart/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authSvc *authservice.AuthService, recipeSvc *recipeservice.Service,
	cartSvc *cartservice.Service, usageSvc *usageservice.Service,
	planSvc *planservice.Service, db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authSvc).ServeHTTP)
		r.Post("/login", login.New(logger, authSvc).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authSvc, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/recipes", recipegenerate.New(logger, recipeSvc, models.FeatureIndividualRecipe).ServeHTTP)
			r.Post("/drinks", recipegenerate.New(logger, recipeSvc, models.FeatureSpecialtyDrink).ServeHTTP)
			r.Post("/mealplan", weeklyplan.New(logger, recipeSvc).ServeHTTP)
			r.Get("/recipes/list", recipelist.New(logger, recipeSvc).ServeHTTP)
			r.Get("/recipes/{id}", reciperead.New(logger, recipeSvc).ServeHTTP)
			r.Post("/recipes/{id}/cart", cartbuild.New(logger, cartSvc).ServeHTTP)
			r.Get("/usage", quotaread.New(logger, usageSvc).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/billing/webhook", billingwebhook.New(logger, db, planSvc, cfg.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
