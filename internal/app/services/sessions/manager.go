// Package sessions issues, resolves and revokes cookie sessions.
package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/thriftline/marketplace/internal/app/domain/session"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/storage"
	"github.com/thriftline/marketplace/pkg/logger"
)

const issuer = "marketplace"

// ErrNoSession is returned when a token does not resolve to a live session
// and an existing user.
var ErrNoSession = errors.New("sessions: no valid session")

// Claims is the signed cookie payload. SID is the raw session id; only its
// sha256 is stored server side.
type Claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager ties signed cookies to stored sessions.
type Manager struct {
	store  storage.SessionStore
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// New constructs a Manager. secret signs the cookie token; ttl bounds the
// session lifetime.
func New(store storage.SessionStore, users storage.UserStore, secret []byte, ttl time.Duration, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault("sessions")
	}
	return &Manager{
		store:  store,
		users:  users,
		secret: secret,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create persists a new session for userID and returns the signed token.
func (m *Manager) Create(ctx context.Context, userID string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	sid := uuid.NewString()

	if err := m.store.CreateSession(ctx, session.Session{
		ID:        hashSID(sid),
		UserID:    userID,
		ExpiresAt: expires,
		CreatedAt: now,
	}); err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	m.log.WithField("user_id", userID).Debug("session created")
	return signed, expires, nil
}

// Resolve returns the user behind token. A user deleted after login makes
// the session invalid.
func (m *Manager) Resolve(ctx context.Context, token string) (user.User, error) {
	claims, err := m.parse(token)
	if err != nil {
		return user.User{}, ErrNoSession
	}

	sess, err := m.store.GetSession(ctx, hashSID(claims.SID))
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, ErrNoSession
	}
	if err != nil {
		return user.User{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(m.now()) {
		return user.User{}, ErrNoSession
	}

	u, err := m.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, ErrNoSession
	}
	if err != nil {
		return user.User{}, fmt.Errorf("load session user: %w", err)
	}
	return u, nil
}

// Destroy revokes the session behind token. Unknown or invalid tokens are
// ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.store.DeleteSession(ctx, hashSID(claims.SID))
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now())
}

func (m *Manager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.SID == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

func hashSID(sid string) string {
	sum := sha256.Sum256([]byte(sid))
	return hex.EncodeToString(sum[:])
}
