// Package rollover реализует фоновый обход пользователей с истёкшим
// пробным периодом или оплаченной подпиской: статус понижается до expired,
// событие публикуется в RabbitMQ для воркера уведомлений.
package rollover

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/buildyoursmartcart/smartcart/internal/lib/rabbitmq"
	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// UserRepository описывает операции хранилища, нужные планировщику.
type UserRepository interface {
	// FindLapsedUsers возвращает пользователей, чей доступ истёк,
	// но сохранённый статус ещё не понижен.
	FindLapsedUsers(ctx context.Context, now time.Time) ([]*models.User, error)
	// UpdateSubscriptionStatus обновляет сохранённый статус подписки.
	UpdateSubscriptionStatus(ctx context.Context, userUID, status string) error
}

// LapsedEvent — событие понижения доступа, публикуемое в очередь уведомлений.
type LapsedEvent struct {
	UserUID  string `json:"user_uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Reason   string `json:"reason"` // trial_expired | lapsed
}

// SchedulerService периодически понижает истёкшие подписки.
type SchedulerService struct {
	repo UserRepository
	log  *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo UserRepository, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		log:  log,
	}
}

// DemoteLapsedUsers запускает обход сразу и затем каждые 12 часов.
func (s *SchedulerService) DemoteLapsedUsers(ctx context.Context, channel *amqp.Channel) {
	s.runDemoteLapsedUsers(ctx, channel)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDemoteLapsedUsers(ctx, channel)
		}
	}
}

func (s *SchedulerService) runDemoteLapsedUsers(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting lapsed subscription sweep")
	users, err := s.repo.FindLapsedUsers(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to find lapsed users", sl.Err(err))
		return
	}
	if len(users) == 0 {
		s.log.Info("no lapsed users found")
		return
	}
	s.log.Info("found lapsed users", "count", len(users))

	for _, user := range users {
		reason := "lapsed"
		if user.SubscriptionStatus == models.SubscriptionTrialing {
			reason = "trial_expired"
		}

		if err := s.repo.UpdateSubscriptionStatus(ctx, user.UUID, models.SubscriptionExpired); err != nil {
			s.log.Error("failed to demote user", slog.String("user_uid", user.UUID), sl.Err(err))
			continue
		}

		event := LapsedEvent{
			UserUID:  user.UUID,
			Email:    user.Email,
			Username: user.Username,
			Reason:   reason,
		}
		if err := rabbitmq.PublishMessage(channel, "subscriptions", reason, event); err != nil {
			s.log.Error("failed to publish lapsed event", slog.String("user_uid", user.UUID), sl.Err(err))
		}
	}
}
