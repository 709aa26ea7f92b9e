package events

import (
	"context"
	"log/slog"
	"time"
)

// ClaimExpirer is the application-side sweep entry point.
type ClaimExpirer interface {
	ExpireSweep(ctx context.Context) (int, error)
}

// ExpiryWorker runs the periodic claim-expiry sweep. The sweep is idempotent,
// so overlapping runs across replicas are harmless.
type ExpiryWorker struct {
	logger   *slog.Logger
	expirer  ClaimExpirer
	interval time.Duration
}

func NewExpiryWorker(logger *slog.Logger, expirer ClaimExpirer, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{logger: logger, expirer: expirer, interval: interval}
}

// Run executes the sweep loop until context cancellation.
func (w *ExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		count, err := w.expirer.ExpireSweep(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "claim expiry sweep failed",
				"module", "events.expiry_worker",
				"layer", "adapter",
				"operation", "expire_sweep",
				"outcome", "failure",
				"error", err,
			)
		} else if count > 0 {
			w.logger.InfoContext(ctx, "claims expired",
				"module", "events.expiry_worker",
				"layer", "adapter",
				"operation", "expire_sweep",
				"outcome", "success",
				"expired", count,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
