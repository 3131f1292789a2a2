package postgres

import (
	"context"
	"time"

	"github.com/thriftline/marketplace/internal/app/domain/session"
)

func (s *Store) CreateSession(ctx context.Context, sess session.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, sess.ID, sess.UserID, sess.ExpiresAt, sess.CreatedAt)
	return mapError(err)
}

func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	var sess session.Session
	err := s.db.GetContext(ctx, &sess, `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`, id)
	if err != nil {
		return session.Session{}, mapError(err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return mapError(err)
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}
