package events

import (
	"context"
	"log/slog"
	"time"
)

// OutboxFlusher is the application-side flush entry point.
type OutboxFlusher interface {
	FlushOutbox(ctx context.Context) (int, error)
}

// OutboxWorker drains the transactional outbox on a fixed cadence.
// This separates transactional writes from broker delivery for reliability.
type OutboxWorker struct {
	logger   *slog.Logger
	flusher  OutboxFlusher
	interval time.Duration
}

func NewOutboxWorker(logger *slog.Logger, flusher OutboxFlusher, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{logger: logger, flusher: flusher, interval: interval}
}

// Run executes the periodic outbox flush loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		sent, err := w.flusher.FlushOutbox(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "outbox flush failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "flush_outbox",
				"outcome", "failure",
				"error", err,
			)
		} else if sent > 0 {
			w.logger.InfoContext(ctx, "outbox flushed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "flush_outbox",
				"outcome", "success",
				"sent", sent,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
