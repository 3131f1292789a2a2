package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thriftline/marketplace/internal/config"
)

func TestParseSessionSecret(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		ok      bool
	}{
		{"raw-32", "0123456789abcdef0123456789abcdef", 32, true},
		{"raw-40", "0123456789abcdef0123456789abcdef-extra!!", 40, true},
		{"base64", "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=", 32, true},
		{"hex", "3031323334353637383961626364656630313233343536373839616263646566", 32, true},
		{"too-short", "short", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := parseSessionSecret(tt.input)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, tt.wantLen)
		})
	}
}

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Session: config.SessionConfig{
			Backend:       config.SessionBackendMemory,
			TTL:           time.Hour,
			CookieName:    "connect.sid",
			SweepSchedule: "@every 1h",
		},
		Logging:   config.LoggingConfig{Level: "error", Format: "json", Output: "stderr"},
		RateLimit: config.RateLimitConfig{AuthRPS: 5, AuthBurst: 10},
	}
}

func TestNewApplicationInMemory(t *testing.T) {
	a, err := NewApplication(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	names := make([]string, 0)
	for _, svc := range a.App().Services() {
		names = append(names, svc.Name())
	}
	assert.Contains(t, names, "session-sweeper")
	assert.Contains(t, names, "auth-rate-limiter")

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApplicationRejectsShortSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Session.Secret = "short"
	_, err := NewApplication(context.Background(), cfg)
	require.Error(t, err)
}
