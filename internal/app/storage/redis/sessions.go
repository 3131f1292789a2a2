// Package redis stores login sessions in Redis with native key expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/thriftline/marketplace/internal/app/domain/session"
	"github.com/thriftline/marketplace/internal/app/storage"
)

const keyPrefix = "marketplace:session:"

// SessionStore implements storage.SessionStore on top of a redis client.
type SessionStore struct {
	client redis.UniversalClient
}

var _ storage.SessionStore = (*SessionStore)(nil)
var _ storage.Pinger = (*SessionStore)(nil)

// NewSessionStore wraps client.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

func key(id string) string { return keyPrefix + id }

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) CreateSession(ctx context.Context, sess session.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", sess.ExpiresAt)
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(sess.ID), payload, ttl).Err()
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (session.Session, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, fmt.Errorf("session: %w", storage.ErrNotFound)
	}
	if err != nil {
		return session.Session{}, err
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, key(id)).Err()
}

// DeleteExpiredSessions is a no-op: redis drops keys when their TTL lapses.
func (s *SessionStore) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}
