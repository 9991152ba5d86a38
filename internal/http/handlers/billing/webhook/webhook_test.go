package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/buildyoursmartcart/smartcart/internal/models"
)

const testSecret = "webhook_secret"

type UserStoreMock struct {
	mock.Mock
}

func (m *UserStoreMock) ActivateSubscription(ctx context.Context, userUID, customerID, subscriptionID string, expiry time.Time) error {
	return m.Called(ctx, userUID, customerID, subscriptionID, expiry).Error(0)
}

func (m *UserStoreMock) UpdateSubscriptionStatus(ctx context.Context, userUID, status string) error {
	return m.Called(ctx, userUID, status).Error(0)
}

type PlanInvalidatorMock struct {
	mock.Mock
}

func (m *PlanInvalidatorMock) Invalidate(userUID string) {
	m.Called(userUID)
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	activatedBody := `{
		"event": "subscription.activated",
		"object": {
			"subscription_id": "sub_123",
			"customer_id": "cus_456",
			"status": "active",
			"current_period_end": "2026-09-28T00:00:00Z",
			"metadata": {"user_uid": "uid-1"}
		}
	}`
	lapsedBody := `{
		"event": "subscription.lapsed",
		"object": {
			"subscription_id": "sub_123",
			"metadata": {"user_uid": "uid-1"}
		}
	}`
	cancelledBody := `{
		"event": "subscription.cancelled",
		"object": {
			"subscription_id": "sub_123",
			"metadata": {"user_uid": "uid-1"}
		}
	}`

	tests := []struct {
		name           string
		body           string
		signature      string
		setupMocks     func(u *UserStoreMock, p *PlanInvalidatorMock)
		expectedStatus int
	}{
		{
			name:      "активация подписки",
			body:      activatedBody,
			signature: sign(testSecret, activatedBody),
			setupMocks: func(u *UserStoreMock, p *PlanInvalidatorMock) {
				expiry := time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC)
				u.On("ActivateSubscription", mock.Anything, "uid-1", "cus_456", "sub_123", expiry).
					Return(nil).Once()
				p.On("Invalidate", "uid-1").Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "просроченная подписка понижается",
			body:      lapsedBody,
			signature: sign(testSecret, lapsedBody),
			setupMocks: func(u *UserStoreMock, p *PlanInvalidatorMock) {
				u.On("UpdateSubscriptionStatus", mock.Anything, "uid-1", models.SubscriptionExpired).
					Return(nil).Once()
				p.On("Invalidate", "uid-1").Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "отмена подписки",
			body:      cancelledBody,
			signature: sign(testSecret, cancelledBody),
			setupMocks: func(u *UserStoreMock, p *PlanInvalidatorMock) {
				u.On("UpdateSubscriptionStatus", mock.Anything, "uid-1", models.SubscriptionCancelled).
					Return(nil).Once()
				p.On("Invalidate", "uid-1").Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "неверная подпись",
			body:           activatedBody,
			signature:      "bogus",
			setupMocks:     func(_ *UserStoreMock, _ *PlanInvalidatorMock) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "отсутствует подпись",
			body:           activatedBody,
			signature:      "",
			setupMocks:     func(_ *UserStoreMock, _ *PlanInvalidatorMock) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "некорректный JSON",
			body:           `{"event":`,
			signature:      sign(testSecret, `{"event":`),
			setupMocks:     func(_ *UserStoreMock, _ *PlanInvalidatorMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "событие без user_uid",
			body:           `{"event":"subscription.activated","object":{"metadata":{}}}`,
			signature:      sign(testSecret, `{"event":"subscription.activated","object":{"metadata":{}}}`),
			setupMocks:     func(_ *UserStoreMock, _ *PlanInvalidatorMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "неизвестное событие игнорируется",
			body:           `{"event":"invoice.created","object":{"metadata":{"user_uid":"uid-1"}}}`,
			signature:      sign(testSecret, `{"event":"invoice.created","object":{"metadata":{"user_uid":"uid-1"}}}`),
			setupMocks:     func(_ *UserStoreMock, _ *PlanInvalidatorMock) {},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "ошибка хранилища",
			body:      lapsedBody,
			signature: sign(testSecret, lapsedBody),
			setupMocks: func(u *UserStoreMock, _ *PlanInvalidatorMock) {
				u.On("UpdateSubscriptionStatus", mock.Anything, "uid-1", models.SubscriptionExpired).
					Return(errors.New("db error")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserStoreMock)
			plans := new(PlanInvalidatorMock)
			tt.setupMocks(users, plans)

			handler := New(logger, users, plans, testSecret)

			req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set("X-Api-Signature", tt.signature)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			users.AssertExpectations(t)
			plans.AssertExpectations(t)
		})
	}
}
