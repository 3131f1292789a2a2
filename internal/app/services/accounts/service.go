package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/metrics"
	"github.com/thriftline/marketplace/internal/app/services/credentials"
	"github.com/thriftline/marketplace/internal/app/storage"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

const invalidCredentials = "Invalid username or password"

// Registration is the input to Register.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Service manages marketplace members and their credentials.
type Service struct {
	users storage.UserStore
	log   *logger.Logger

	dummyOnce sync.Once
	dummy     string
}

// New constructs an accounts service.
func New(users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{users: users, log: log}
}

// Register creates a member. Username and email must be unused.
func (s *Service) Register(ctx context.Context, reg Registration) (user.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	var issues []apperrors.Issue
	if reg.Username == "" {
		issues = append(issues, apperrors.Issue{Path: []string{"username"}, Code: "required", Message: "Required"})
	}
	if reg.Email == "" {
		issues = append(issues, apperrors.Issue{Path: []string{"email"}, Code: "required", Message: "Required"})
	}
	if len(issues) > 0 {
		return user.User{}, apperrors.Validation("Invalid registration data", issues)
	}

	if _, err := s.users.GetUserByUsername(ctx, reg.Username); err == nil {
		return user.User{}, apperrors.Conflict("Username already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.Internal("Registration failed", err)
	}
	if _, err := s.users.GetUserByEmail(ctx, reg.Email); err == nil {
		return user.User{}, apperrors.Conflict("Email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.Internal("Registration failed", err)
	}

	hash, err := credentials.Hash(reg.Password)
	if err != nil {
		return user.User{}, apperrors.Internal("Registration failed", err)
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Username:  reg.Username,
		Email:     reg.Email,
		Password:  hash,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	})
	if errors.Is(err, storage.ErrConflict) {
		return user.User{}, apperrors.Conflict("Username already exists")
	}
	if err != nil {
		return user.User{}, apperrors.Internal("Registration failed", err)
	}

	metrics.RecordRegistration()
	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Authenticate checks a username and password. Unknown usernames and wrong
// passwords produce the same Unauthorized error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (user.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		// Burn the same scrypt work as a real check.
		_, _ = credentials.Verify(password, s.dummyCredential())
		metrics.RecordLogin(false)
		return user.User{}, apperrors.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return user.User{}, apperrors.Internal("Login failed", err)
	}

	ok, err := credentials.Verify(password, u.Password)
	if err != nil {
		s.log.WithField("user_id", u.ID).WithError(err).Error("stored credential unreadable")
		return user.User{}, apperrors.Internal("Login failed", err)
	}
	metrics.RecordLogin(ok)
	if !ok {
		return user.User{}, apperrors.Unauthorized(invalidCredentials)
	}
	return u, nil
}

// Get returns a member by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.NotFound("User not found")
	}
	if err != nil {
		return user.User{}, apperrors.Internal("Failed to load user", err)
	}
	return u, nil
}

// UpdateProfile changes email, names or avatar of a member.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		upd.Email = &email
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err == nil && existing.ID != id {
			return user.User{}, apperrors.Conflict("Email already exists")
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return user.User{}, apperrors.Internal("Failed to update profile", err)
		}
	}

	u, err := s.users.UpdateUser(ctx, id, upd)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return user.User{}, apperrors.NotFound("User not found")
	case errors.Is(err, storage.ErrConflict):
		return user.User{}, apperrors.Conflict("Email already exists")
	case err != nil:
		return user.User{}, apperrors.Internal("Failed to update profile", err)
	}
	s.log.WithField("user_id", id).Info("profile updated")
	return u, nil
}

func (s *Service) dummyCredential() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = credentials.Hash("not-a-real-password")
	})
	return s.dummy
}
