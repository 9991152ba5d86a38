// Package smartcart собирает HTTP-приложение: хранилище, миграции, кеш,
// внешние клиенты и доменные сервисы, и запускает сервер с graceful shutdown.
package smartcart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/buildyoursmartcart/smartcart/internal/billing"
	"github.com/buildyoursmartcart/smartcart/internal/cache"
	"github.com/buildyoursmartcart/smartcart/internal/config"
	customjwt "github.com/buildyoursmartcart/smartcart/internal/lib/jwt"
	"github.com/buildyoursmartcart/smartcart/internal/llm"
	"github.com/buildyoursmartcart/smartcart/internal/migrations"
	"github.com/buildyoursmartcart/smartcart/internal/productsearch"
	authservice "github.com/buildyoursmartcart/smartcart/internal/services/auth"
	cartservice "github.com/buildyoursmartcart/smartcart/internal/services/cart"
	planservice "github.com/buildyoursmartcart/smartcart/internal/services/plan"
	recipeservice "github.com/buildyoursmartcart/smartcart/internal/services/recipe"
	usageservice "github.com/buildyoursmartcart/smartcart/internal/services/usage"
	"github.com/buildyoursmartcart/smartcart/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и ресурсы приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New собирает приложение из конфигурации: подключает Postgres и Redis,
// прогоняет миграции, создает клиентов внешних сервисов и доменные сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	llmClient := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	searchClient, err := productsearch.New(cfg.WalmartBaseURL, cfg.WalmartConsumerID,
		cfg.WalmartKeyVersion, cfg.WalmartPrivateKey, cfg.WalmartTimeout)
	if err != nil {
		return nil, err
	}
	billingClient := billing.NewClient(cfg.BillingBaseURL, cfg.BillingSecretKey, cfg.BillingTimeout)

	jwtMaker := customjwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authSvc := authservice.NewAuthService(db, jwtMaker)
	planSvc := planservice.New(db, billingClient, cacheRedis, logger)
	usageSvc := usageservice.New(db, planSvc, logger)
	recipeSvc := recipeservice.New(db, usageSvc, llmClient, logger)
	cartSvc := cartservice.New(recipeSvc, db, searchClient, cacheRedis, logger, cfg.MatchConcurrency)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, cfg, authSvc, recipeSvc, cartSvc, usageSvc, planSvc, db)

	router.Get("/docs/*", httpSwagger.WrapHandler)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и завершает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		return err
	}
}
