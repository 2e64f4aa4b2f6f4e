package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/repository"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule purges tokens every quarter hour.
const DefaultSchedule = "@every 15m"

// MaintenanceService deletes refresh tokens nobody can use any more.
type MaintenanceService struct {
	tokens    repository.TokenRepo
	retention time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewMaintenanceService keeps revoked tokens for retention before purging them.
func NewMaintenanceService(tokens repository.TokenRepo, retention time.Duration, log *logger.Logger) *MaintenanceService {
	return &MaintenanceService{
		tokens:    tokens,
		retention: retention,
		log:       logOrNop(log),
		now:       time.Now,
	}
}

// PurgeExpiredTokens deletes expired tokens and tokens revoked longer than
// the retention ago. It returns the number of rows removed.
func (s *MaintenanceService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	n, err := s.tokens.DeleteExpired(ctx, now, now.Add(-s.retention))
	if err != nil {
		s.log.Errorw("maintenance_purge_failed", "err", err)
		return 0, err
	}
	if n > 0 {
		s.log.Infow("maintenance_tokens_purged", "count", n)
	}
	return n, nil
}

// Run purges once, then on schedule until ctx is canceled. It returns an
// error only for a schedule cron cannot parse.
func (s *MaintenanceService) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { _, _ = s.PurgeExpiredTokens(ctx) }); err != nil {
		return fmt.Errorf("maintenance schedule %q: %w", schedule, err)
	}

	_, _ = s.PurgeExpiredTokens(ctx)

	c.Start()
	s.log.Infow("maintenance_started", "schedule", schedule)

	<-ctx.Done()
	// wait for a running job to finish
	<-c.Stop().Done()
	s.log.Infow("maintenance_stopped")
	return nil
}
