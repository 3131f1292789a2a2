// Package httpapi exposes the marketplace REST API.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/thriftline/marketplace/internal/app"
	"github.com/thriftline/marketplace/internal/app/metrics"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/internal/httputil"
	"github.com/thriftline/marketplace/internal/middleware"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Config controls cookie handling and the outer middleware chain.
type Config struct {
	CookieName     string
	CookieSecure   bool
	AllowedOrigins []string
	// RateLimiter guards login and registration. When nil a limiter with
	// AuthRPS/AuthBurst is created without a cleanup loop.
	RateLimiter *middleware.RateLimiter
	AuthRPS     int
	AuthBurst   int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	cfg Config
	log *logger.Logger
}

// NewHandler returns the fully wrapped REST API.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "connect.sid"
	}
	if cfg.RateLimiter == nil {
		rps, burst := cfg.AuthRPS, cfg.AuthBurst
		if rps <= 0 {
			rps = 5
		}
		if burst <= 0 {
			burst = 10
		}
		cfg.RateLimiter = middleware.NewRateLimiter(rps, burst, log.Component("ratelimit"))
	}
	h := &handler{app: application, cfg: cfg, log: log}

	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, r, nil, apperrors.NotFound("Not Found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorBody{Message: "Method Not Allowed"})
	})

	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	h.registerAuthRoutes(api)
	h.registerProductRoutes(api)
	h.registerCartRoutes(api)
	h.registerOrderRoutes(api)
	h.registerReviewRoutes(api)

	var wrapped http.Handler = router
	wrapped = middleware.NewSessionAuth(application.Sessions, cfg.CookieName, log.Component("auth")).Handler(wrapped)
	wrapped = middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler(wrapped)
	wrapped = middleware.Recovery(log)(wrapped)
	wrapped = middleware.NewTracingMiddleware(log).Handler(wrapped)
	return wrapped
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.app.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("health check failed")
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authed wraps fn so it only runs for authenticated callers.
func (h *handler) authed(fn func(w http.ResponseWriter, r *http.Request, userID string)) http.Handler {
	return middleware.RequireAuthFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, middleware.Auth(r.Context()).UserID())
	})
}

// decode reads a request body; validation failures carry message.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, message string) error {
	err := httputil.DecodeJSON(w, r, dst)
	if se := apperrors.GetServiceError(err); se != nil && se.Code == apperrors.CodeValidation {
		relabelled := *se
		relabelled.Message = message
		return &relabelled
	}
	return err
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, h.log, err)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, apperrors.BadRequest(name + " must be a non-negative integer")
	}
	return &n, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
