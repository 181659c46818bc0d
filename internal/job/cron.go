package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fajarsembar01/home/internal/config"
)

// Expirer deactivates listings not updated since cutoff
type Expirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListingExpiry marks active listings older than the TTL as expired
type ListingExpiry struct {
	repo   Expirer
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewListingExpiry creates the expiry job
func NewListingExpiry(repo Expirer, ttlDays int, logger *slog.Logger) *ListingExpiry {
	return &ListingExpiry{
		repo:   repo,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}
}

// Run expires stale listings once.
func (j *ListingExpiry) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.ttl)
	j.logger.Debug("expiring stale listings", "cutoff", cutoff)
	rows, err := j.repo.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire listings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return rows, nil
}

// Start schedules the expiry job. It returns nil when retention is
// disabled (TTL <= 0); otherwise the caller stops the returned scheduler.
func Start(cfg config.RetentionConfig, repo Expirer, logger *slog.Logger) (*cron.Cron, error) {
	if cfg.ListingTTLDays <= 0 {
		logger.Info("listing expiry disabled")
		return nil, nil
	}

	j := NewListingExpiry(repo, cfg.ListingTTLDays, logger)
	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		rows, err := j.Run(ctx)
		if err != nil {
			logger.Error("listing expiry failed", "error", err)
			return
		}
		logger.Info("listing expiry finished", "expired", rows, "ttl_days", cfg.ListingTTLDays)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	return c, nil
}
