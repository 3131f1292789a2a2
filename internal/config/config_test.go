package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.Server.Addr)
	require.Equal(t, SessionBackendMemory, cfg.Session.Backend)
	require.Equal(t, 168*time.Hour, cfg.Session.TTL)
	require.Equal(t, "connect.sid", cfg.Session.CookieName)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.Server.Origins())
}

func TestLoadPostgresBackendRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/market?sslmode=disable")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SESSION_BACKEND", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SESSION_SECRET", "a-long-enough-secret-for-signing-cookies")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, SessionBackendPostgres, cfg.Session.Backend)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Config{Session: SessionConfig{Backend: "etcd", TTL: time.Hour}}
	require.Error(t, cfg.Validate())
}

func TestOriginsTrimsEntries(t *testing.T) {
	s := ServerConfig{AllowedOrigins: " http://a.test , ,http://b.test"}
	require.Equal(t, []string{"http://a.test", "http://b.test"}, s.Origins())
}
