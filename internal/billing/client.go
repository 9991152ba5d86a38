// Package billing реализует клиент платёжного провайдера для запроса
// актуального состояния подписки. Сервис тарифов опрашивает провайдера
// при чтении; вебхук provider→backend обрабатывается отдельно в HTTP-слое.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable — платёжный провайдер недоступен; вызывающая сторона
// откатывается на сохранённый статус подписки.
var ErrUnavailable = errors.New("billing provider unavailable")

// Статусы подписки в ответах провайдера.
const (
	StatusActive    = "active"
	StatusLapsed    = "lapsed"
	StatusCancelled = "cancelled"
)

// SubscriptionStatus — состояние подписки по данным провайдера.
type SubscriptionStatus struct {
	SubscriptionID   string    `json:"subscription_id"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// Client — клиент платёжного провайдера.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного провайдера.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetSubscriptionStatus запрашивает состояние подписки у провайдера.
func (c *Client) GetSubscriptionStatus(ctx context.Context, subscriptionID string) (*SubscriptionStatus, error) {
	const op = "billing.GetSubscriptionStatus"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: %w: unexpected status %s", op, ErrUnavailable, resp.Status)
	}

	var status SubscriptionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return &status, nil
}
