// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Session backends.
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
	SessionBackendMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `env:"HTTP_ADDR,default=:5000"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=10s"`
	AllowedOrigins  string        `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
}

// DatabaseConfig configures the Postgres pool. An empty DSN selects the
// in-memory stores.
type DatabaseConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=300s"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE,default=true"`
}

// SessionConfig configures cookie sessions.
type SessionConfig struct {
	Secret        string        `env:"SESSION_SECRET"`
	Backend       string        `env:"SESSION_BACKEND"`
	TTL           time.Duration `env:"SESSION_TTL,default=168h"`
	CookieName    string        `env:"SESSION_COOKIE_NAME,default=connect.sid"`
	CookieSecure  bool          `env:"COOKIE_SECURE,default=false"`
	SweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE,default=@every 1h"`
}

// RedisConfig is used when the session backend is redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
	Output string `env:"LOG_OUTPUT,default=stdout"`
}

// RateLimitConfig bounds login and registration attempts per client IP.
type RateLimitConfig struct {
	AuthRPS   int `env:"AUTH_RATE_LIMIT_RPS,default=5"`
	AuthBurst int `env:"AUTH_RATE_LIMIT_BURST,default=10"`
}

// Load reads an optional .env file and decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	if c.Session.Backend == "" {
		if c.Database.DSN != "" {
			c.Session.Backend = SessionBackendPostgres
		} else {
			c.Session.Backend = SessionBackendMemory
		}
	}
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	case SessionBackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("SESSION_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Database.DSN != "" && c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required when DATABASE_URL is set")
	}
	return nil
}

// Origins splits the configured CORS origins.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, part := range strings.Split(s.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
