package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/marketplace/internal/app/domain/user"
)

const userColumns = `id, username, email, password, first_name, last_name, avatar, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, password, first_name, last_name, avatar, created_at, updated_at)
		VALUES (:id, :username, :email, :password, :first_name, :last_name, :avatar, :created_at, :updated_at)
	`, u)
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUserBy(ctx, "email", email)
}

func (s *Store) getUserBy(ctx context.Context, column, value string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	var set params
	if upd.Email != nil {
		set.add("email", *upd.Email)
	}
	if upd.FirstName != nil {
		set.add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		set.add("last_name", *upd.LastName)
	}
	if upd.Avatar != nil {
		set.add("avatar", *upd.Avatar)
	}
	set.add("updated_at", time.Now().UTC())
	where := set.next(id)

	var u user.User
	err := s.db.GetContext(ctx, &u, `
		UPDATE users SET `+set.String()+`
		WHERE id = `+where+`
		RETURNING `+userColumns, set.args...)
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}
