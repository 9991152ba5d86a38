// Package usage реализует учёт расхода квот по функциям сервиса.
// Решение "пускать или нет" принимает хранилище одним условным UPDATE,
// сервис лишь готовит счётчик: лениво создаёт его, освежает лимит под
// действующий тариф и сбрасывает на границе нового расчётного периода.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/lib/period"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// UsageRepository описывает операции хранилища над счётчиками расхода.
type UsageRepository interface {
	// EnsureCounter лениво создаёт счётчик и освежает его лимит.
	EnsureCounter(ctx context.Context, userUID string, feature models.FeatureKind, limit int, periodStart time.Time) error
	// GetCounter возвращает счётчик пары (пользователь, функция).
	GetCounter(ctx context.Context, userUID string, feature models.FeatureKind) (*models.UsageCounter, error)
	// ResetCounterIfRolled условно сбрасывает счётчик на границе периода.
	ResetCounterIfRolled(ctx context.Context, userUID string, feature models.FeatureKind, boundary time.Time) (bool, error)
	// ConsumeUnit атомарно списывает одну единицу квоты.
	ConsumeUnit(ctx context.Context, userUID string, feature models.FeatureKind) (bool, int, error)
	// ListCounters возвращает все счётчики пользователя.
	ListCounters(ctx context.Context, userUID string) ([]*models.UsageCounter, error)
}

// PlanProvider выводит действующий тариф пользователя.
type PlanProvider interface {
	Describe(ctx context.Context, userUID string) (*models.PlanDescriptor, error)
}

// Service реализует учёт расхода квот.
type Service struct {
	repo UsageRepository
	plan PlanProvider
	log  *slog.Logger
	now  func() time.Time
}

// New создает новый экземпляр Service.
func New(repo UsageRepository, plan PlanProvider, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		plan: plan,
		log:  log,
		now:  time.Now,
	}
}

// TryConsume пытается списать одну единицу квоты функции. Возвращаемый
// исход типизирован: LimitExceeded — штатный отказ, не ошибка, и счётчик
// при нём не увеличивается. PeriodRolled означает, что списание прошло
// сразу после сброса счётчика на границе нового периода.
func (s *Service) TryConsume(ctx context.Context, userUID string, feature models.FeatureKind) (models.ConsumeOutcome, error) {
	const op = "usage.TryConsume"

	descriptor, err := s.plan.Describe(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	limit := descriptor.Limits[feature]
	if limit <= 0 {
		return models.OutcomeLimitExceeded, nil
	}

	now := s.now().UTC()
	if err := s.repo.EnsureCounter(ctx, userUID, feature, limit, now); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	counter, err := s.repo.GetCounter(ctx, userUID, feature)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	rolled := false
	if period.Rolled(counter.PeriodStart, now) {
		boundary := period.CurrentBoundary(counter.PeriodStart, now)
		rolled, err = s.repo.ResetCounterIfRolled(ctx, userUID, feature, boundary)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if rolled {
			s.log.Info("usage counter rolled over",
				slog.String("user_uid", userUID),
				slog.String("feature", string(feature)),
				slog.Time("period_start", boundary))
		}
	}

	ok, used, err := s.repo.ConsumeUnit(ctx, userUID, feature)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return models.OutcomeLimitExceeded, nil
	}

	s.log.Info("quota unit consumed",
		slog.String("user_uid", userUID),
		slog.String("feature", string(feature)),
		slog.Int("used", used),
		slog.Int("limit", limit))

	if rolled {
		return models.OutcomePeriodRolled, nil
	}
	return models.OutcomeConsumed, nil
}

// Usage возвращает тариф и расход по каждой функции для отображения квот.
// Счётчики создаются лениво, поэтому у свежего пользователя все нули.
func (s *Service) Usage(ctx context.Context, userUID string) (*models.PlanDescriptor, []models.FeatureUsage, error) {
	const op = "usage.Usage"

	descriptor, err := s.plan.Describe(ctx, userUID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	counters, err := s.repo.ListCounters(ctx, userUID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	used := make(map[models.FeatureKind]int, len(counters))
	now := s.now().UTC()
	for _, c := range counters {
		// Расход прошлого периода не показываем: счётчик ещё не сброшен,
		// но на границе периода он обнулится при первом списании
		if period.Rolled(c.PeriodStart, now) {
			continue
		}
		used[c.FeatureKind] = c.Used
	}

	features := []models.FeatureKind{
		models.FeatureIndividualRecipe,
		models.FeatureWeeklyPlan,
		models.FeatureSpecialtyDrink,
	}
	result := make([]models.FeatureUsage, 0, len(features))
	for _, f := range features {
		result = append(result, models.FeatureUsage{
			Feature: f,
			Used:    used[f],
			Limit:   descriptor.Limits[f],
		})
	}
	return descriptor, result, nil
}
