// Package webhook реализует приём событий платёжного провайдера.
//
// Провайдер подписывает тело запроса HMAC-SHA256, подпись передаётся в
// заголовке X-Api-Signature. После обработки события закешированный тариф
// пользователя сбрасывается, чтобы смена статуса вступила в силу сразу.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/lib/sl"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// UserStore описывает операции над подпиской пользователя в хранилище.
type UserStore interface {
	// ActivateSubscription переводит пользователя в статус active.
	ActivateSubscription(ctx context.Context, userUID, customerID, subscriptionID string, expiry time.Time) error
	// UpdateSubscriptionStatus обновляет сохранённый статус подписки.
	UpdateSubscriptionStatus(ctx context.Context, userUID, status string) error
}

// PlanInvalidator сбрасывает закешированный тариф пользователя.
type PlanInvalidator interface {
	Invalidate(userUID string)
}

// Handler принимает и обрабатывает события платёжного провайдера.
type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	users         UserStore
	plans         PlanInvalidator
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый Handler с переданными зависимостями и секретом подписи.
func New(log *slog.Logger, users UserStore, plans PlanInvalidator, secret string) *Handler {
	return &Handler{
		log:           log,
		users:         users,
		plans:         plans,
		webhookSecret: secret,
	}
}

// Payload — тело события провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		SubscriptionID   string            `json:"subscription_id"`
		CustomerID       string            `json:"customer_id"`
		Status           string            `json:"status"`
		CurrentPeriodEnd time.Time         `json:"current_period_end"`
		Metadata         map[string]string `json:"metadata"` // user_uid и др.
	} `json:"object"`
}

// Обрабатываемые события провайдера.
const (
	SubscriptionActivated = "subscription.activated"
	SubscriptionRenewed   = "subscription.renewed"
	SubscriptionLapsed    = "subscription.lapsed"
	SubscriptionCancelled = "subscription.cancelled"
)

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	userUID := payload.Object.Metadata["user_uid"]
	if userUID == "" {
		log.Error("webhook payload without user_uid metadata")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch strings.ToLower(payload.Event) {
	case SubscriptionActivated, SubscriptionRenewed:
		err = h.users.ActivateSubscription(r.Context(), userUID,
			payload.Object.CustomerID, payload.Object.SubscriptionID, payload.Object.CurrentPeriodEnd)
	case SubscriptionLapsed:
		err = h.users.UpdateSubscriptionStatus(r.Context(), userUID, models.SubscriptionExpired)
	case SubscriptionCancelled:
		err = h.users.UpdateSubscriptionStatus(r.Context(), userUID, models.SubscriptionCancelled)
	default:
		log.Info("ignored webhook event", slog.String("event", payload.Event))
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Тариф пересчитается при следующем запросе
	h.plans.Invalidate(userUID)

	log.Info("webhook processed successfully",
		slog.String("event", payload.Event),
		slog.String("user_uid", userUID))
	w.WriteHeader(http.StatusOK)
}
