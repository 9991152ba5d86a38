package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetSubscriptionStatus(t *testing.T) {
	periodEnd := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
		wantErr    error
	}{
		{
			name: "successful status query",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
				assert.Equal(t, "/v1/subscriptions/sub_123", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(SubscriptionStatus{
					SubscriptionID:   "sub_123",
					Status:           StatusActive,
					CurrentPeriodEnd: periodEnd,
				})
			},
			wantStatus: StatusActive,
			wantErr:    nil,
		},
		{
			name: "lapsed subscription",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(SubscriptionStatus{
					SubscriptionID: "sub_123",
					Status:         StatusLapsed,
				})
			},
			wantStatus: StatusLapsed,
			wantErr:    nil,
		},
		{
			name: "provider error reported as unavailable",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, "secret-key", 5*time.Second)

			got, err := client.GetSubscriptionStatus(context.Background(), "sub_123")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}
