package runtime

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/thriftline/marketplace/internal/app"
	"github.com/thriftline/marketplace/internal/app/httpapi"
	"github.com/thriftline/marketplace/internal/app/storage/postgres"
	redisstore "github.com/thriftline/marketplace/internal/app/storage/redis"
	"github.com/thriftline/marketplace/internal/config"
	"github.com/thriftline/marketplace/internal/middleware"
	"github.com/thriftline/marketplace/internal/platform/migrations"
	"github.com/thriftline/marketplace/pkg/logger"
)

const minSecretBytes = 32

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sqlx.DB
	redis      *redis.Client
}

// NewApplication constructs the application from cfg. The database is opened
// and, when AutoMigrate is set, migrated; nothing listens until Run.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	secret, err := parseSessionSecret(cfg.Session.Secret)
	if err != nil {
		if cfg.Session.Secret != "" || cfg.Database.DSN != "" {
			return nil, fmt.Errorf("SESSION_SECRET invalid: %w", err)
		}
		log.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
	}

	a := &Application{cfg: cfg, log: log}
	stores, err := a.buildStores(ctx)
	if err != nil {
		a.closeBackends()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application, err := app.New(stores, app.Options{
		SessionSecret: secret,
		SessionTTL:    cfg.Session.TTL,
		SweepSchedule: cfg.Session.SweepSchedule,
	}, log)
	if err != nil {
		a.closeBackends()
		return nil, err
	}
	a.app = application

	limiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst, log.Component("ratelimit"))
	if err := application.Attach(limiter); err != nil {
		a.closeBackends()
		return nil, fmt.Errorf("register %s: %w", limiter.Name(), err)
	}

	handler := httpapi.NewHandler(application, httpapi.Config{
		CookieName:     cfg.Session.CookieName,
		CookieSecure:   cfg.Session.CookieSecure,
		AllowedOrigins: cfg.Server.Origins(),
		RateLimiter:    limiter,
	}, log.Component("http"))

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

// App exposes the composed services.
func (a *Application) App() *app.Application {
	return a.app
}

// Handler returns the HTTP handler served by Run.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts background services and the HTTP server, and blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.httpServer.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, background services and
// backend connections.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	a.closeBackends()
	return errors.Join(errs...)
}

// Close releases backend connections without touching the HTTP server. Used
// by one-shot commands.
func (a *Application) Close() {
	a.closeBackends()
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	var stores app.Stores

	if a.cfg.Database.DSN != "" {
		db, err := openDatabase(ctx, a.cfg.Database)
		if err != nil {
			return stores, err
		}
		a.db = db
		if a.cfg.Database.AutoMigrate {
			if err := migrations.Apply(ctx, db.DB); err != nil {
				return stores, fmt.Errorf("apply migrations: %w", err)
			}
			a.log.Info("database schema applied")
		}
		store := postgres.New(db)
		stores = app.Stores{Users: store, Products: store, Carts: store, Orders: store, Reviews: store}
		if a.cfg.Session.Backend == config.SessionBackendPostgres {
			stores.Sessions = store
		}
	} else {
		a.log.Warn("DATABASE_URL not set; using in-memory stores")
	}

	if a.cfg.Session.Backend == config.SessionBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.redis = client
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return stores, fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Addr, err)
		}
		stores.Sessions = redisstore.NewSessionStore(client)
	}
	a.log.WithField("backend", a.cfg.Session.Backend).Info("session store configured")
	return stores, nil
}

func (a *Application) closeBackends() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
		a.redis = nil
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// parseSessionSecret accepts a hex or base64 encoded key, or a raw string,
// of at least minSecretBytes bytes.
func parseSessionSecret(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("missing session secret")
	}

	// hex
	if decoded, err := hex.DecodeString(value); err == nil && len(decoded) >= minSecretBytes {
		return decoded, nil
	}

	// base64
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && len(decoded) >= minSecretBytes {
		return decoded, nil
	}

	// raw bytes
	if len(value) >= minSecretBytes {
		return []byte(value), nil
	}

	return nil, fmt.Errorf("must be at least %d bytes raw, or hex/base64 encoding of that length", minSecretBytes)
}

func randomSecret() ([]byte, error) {
	secret := make([]byte, minSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, nil
}
