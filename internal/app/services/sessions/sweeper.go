package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/thriftline/marketplace/internal/app/metrics"
	"github.com/thriftline/marketplace/internal/app/system"
	"github.com/thriftline/marketplace/pkg/logger"
)

var _ system.Service = (*Sweeper)(nil)

// Sweeper deletes expired sessions on a cron schedule.
type Sweeper struct {
	manager  *Manager
	schedule string
	log      *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a lifecycle-managed sweeper. schedule uses the cron
// descriptor syntax, for example "@every 1h".
func NewSweeper(manager *Manager, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("session-sweeper")
	}
	if schedule == "" {
		schedule = "@every 1h"
	}
	return &Sweeper{manager: manager, schedule: schedule, log: log}
}

func (s *Sweeper) Name() string { return "session-sweeper" }

func (s *Sweeper) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.WithField("schedule", s.schedule).Info("session sweeper started")
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("session sweeper stopped")
	return nil
}

// RunOnce performs a single sweep and returns the number of removed sessions.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := s.manager.Sweep(ctx)
	if err != nil {
		s.log.WithError(err).Warn("session sweep failed")
		return 0
	}
	metrics.RecordSessionSweep(removed)
	if removed > 0 {
		s.log.WithField("removed", removed).Info("expired sessions removed")
	}
	return removed
}
