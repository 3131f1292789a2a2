package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/services/accounts"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/internal/httputil"
	"github.com/thriftline/marketplace/internal/middleware"
)

func (h *handler) registerAuthRoutes(api *mux.Router) {
	limited := h.cfg.RateLimiter.Handler
	api.Handle("/register", limited(http.HandlerFunc(h.register))).Methods(http.MethodPost)
	api.Handle("/login", limited(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	api.Handle("/user", h.authed(h.currentUser)).Methods(http.MethodGet)
	api.Handle("/user", h.authed(h.updateUser)).Methods(http.MethodPut)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req, "Invalid registration data"); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.app.Accounts.Register(r.Context(), accounts.Registration{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.startSession(w, r, u); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req, "Invalid login data"); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.app.Accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.startSession(w, r, u); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cfg.CookieName); err == nil && cookie.Value != "" {
		if err := h.app.Sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.fail(w, r, apperrors.Internal("Failed to log out", err))
			return
		}
	}
	h.clearCookie(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request, _ string) {
	u, _ := middleware.CurrentUser(r.Context())
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request, userID string) {
	var req profileRequest
	if err := h.decode(w, r, &req, "Invalid profile data"); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.app.Accounts.UpdateProfile(r.Context(), userID, user.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// startSession replaces any existing session cookie with a fresh one for u.
func (h *handler) startSession(w http.ResponseWriter, r *http.Request, u user.User) error {
	if cookie, err := r.Cookie(h.cfg.CookieName); err == nil && cookie.Value != "" {
		if err := h.app.Sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.log.WithError(err).Warn("drop previous session")
		}
	}
	token, expires, err := h.app.Sessions.Create(r.Context(), u.ID)
	if err != nil {
		return apperrors.Internal("Failed to create session", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
