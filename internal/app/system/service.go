package system

import "context"

// Service is a background component owned by the Manager: the session
// sweeper, the login rate limiter's janitor, or a placeholder for a
// stateless domain service. Start must not block.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
