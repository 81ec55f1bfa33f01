package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs a Cleaner periodically. It implements suture.Service.
type Scheduler struct {
	Cleaner  *Cleaner
	Interval time.Duration
}

// Serve runs a pass immediately and then every Interval until ctx ends.
// Failed passes are logged and retried on the next tick.
func (s *Scheduler) Serve(ctx context.Context) error {
	slog.Info("cleanup scheduler started", "interval", s.Interval)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Cleaner.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("scheduled cleanup failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) String() string {
	return "cleanup-scheduler"
}
