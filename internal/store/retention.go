package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// DefaultPurgeSchedule runs the retention purge once a day at 03:17.
const DefaultPurgeSchedule = "17 3 * * *"

// Retention deletes conclusions older than MaxAge on a cron schedule.
type Retention struct {
	Store    ConclusionStore
	MaxAge   time.Duration
	Schedule string

	now func() time.Time
}

// NewRetention validates the cron expression. An empty schedule uses DefaultPurgeSchedule.
func NewRetention(s ConclusionStore, maxAge time.Duration, schedule string) (*Retention, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid purge schedule %q", schedule)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive, got %s", maxAge)
	}
	return &Retention{Store: s, MaxAge: maxAge, Schedule: schedule, now: time.Now}, nil
}

// NextRun returns the first scheduled purge strictly after ref.
func (r *Retention) NextRun(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(r.Schedule, ref, false)
}

// PurgeOnce deletes everything older than MaxAge relative to now.
func (r *Retention) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.MaxAge)
	n, err := r.Store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge conclusions: %w", err)
	}
	return n, nil
}

// Run purges on schedule until ctx is cancelled.
func (r *Retention) Run(ctx context.Context) {
	for {
		next, err := r.NextRun(r.now())
		if err != nil {
			slog.Warn("retention: cannot compute next run", "schedule", r.Schedule, "error", err)
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		n, err := r.PurgeOnce(ctx)
		if err != nil {
			slog.Warn("retention: purge failed", "error", err)
			continue
		}
		slog.Info("retention: purged old conclusions", "deleted", n, "next_after", next)
	}
}
