// Package plan выводит действующий тариф пользователя на момент чтения.
// Сохранённый статус подписки считается подсказкой, а не истиной:
// просроченный пробный период и данные платёжного провайдера имеют
// приоритет. При недоступности провайдера сервис деградирует до
// сохранённого статуса и пишет об этом в лог.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/billing"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// cacheTTL ограничивает окно, в котором устаревший тариф может пережить
// изменение статуса у провайдера.
const cacheTTL = time.Minute

// UserRepository описывает контракт для чтения пользователей.
type UserRepository interface {
	// GetUser возвращает пользователя по его UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// BillingProvider описывает запрос состояния подписки у платёжного провайдера.
type BillingProvider interface {
	GetSubscriptionStatus(ctx context.Context, subscriptionID string) (*billing.SubscriptionStatus, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Service выводит действующий тариф пользователя.
type Service struct {
	users   UserRepository
	billing BillingProvider
	cache   Cache
	log     *slog.Logger
	now     func() time.Time
}

// New создает новый экземпляр Service.
func New(users UserRepository, billingProvider BillingProvider, cache Cache, log *slog.Logger) *Service {
	return &Service{
		users:   users,
		billing: billingProvider,
		cache:   cache,
		log:     log,
		now:     time.Now,
	}
}

// Describe возвращает действующий тариф пользователя. Результат ненадолго
// кешируется, чтобы не опрашивать провайдера на каждый запрос.
func (s *Service) Describe(ctx context.Context, userUID string) (*models.PlanDescriptor, error) {
	const op = "plan.Describe"

	cacheKey := fmt.Sprintf("plan:%s", userUID)
	var cached *models.PlanDescriptor
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found && cached != nil {
		return cached, nil
	}

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tier := s.deriveTier(ctx, user)
	descriptor := &models.PlanDescriptor{
		Tier:   tier,
		Limits: models.LimitsFor(tier),
	}

	if err := s.cache.Set(cacheKey, descriptor, cacheTTL); err != nil {
		s.log.Warn("failed to cache plan", slog.String("key", cacheKey), sl.Err(err))
	}
	return descriptor, nil
}

// Invalidate сбрасывает закешированный тариф, например после вебхука оплаты.
func (s *Service) Invalidate(userUID string) {
	cacheKey := fmt.Sprintf("plan:%s", userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate plan cache", slog.String("key", cacheKey), sl.Err(err))
	}
}

func (s *Service) deriveTier(ctx context.Context, user *models.User) models.Tier {
	now := s.now()

	switch user.SubscriptionStatus {
	case models.SubscriptionTrialing:
		if user.TrialEndDate != nil && user.TrialEndDate.Before(now) {
			return models.TierNone
		}
		return models.TierTrial

	case models.SubscriptionActive:
		if user.BillingSubscriptionID == "" {
			return models.TierPremium
		}
		status, err := s.billing.GetSubscriptionStatus(ctx, user.BillingSubscriptionID)
		if err != nil {
			// Провайдер недоступен: живём по сохранённому статусу
			s.log.Warn("billing provider unreachable, using stored status",
				slog.String("user_uid", user.UUID), sl.Err(err))
			return models.TierPremium
		}
		if status.Status != billing.StatusActive {
			return models.TierNone
		}
		return models.TierPremium

	default:
		return models.TierNone
	}
}
