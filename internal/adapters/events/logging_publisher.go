package events

import (
	"context"
	"log/slog"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
)

// LoggingPublisher stands in for the broker when none is configured; every
// envelope is logged instead of delivered. Local/dev only.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "published domain event",
		"event_type", envelope.EventType,
		"event_id", envelope.EventID,
		"partition_key", envelope.PartitionKey,
	)
	return nil
}

func (p *LoggingPublisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "published analytics event",
		"event_type", envelope.EventType,
		"event_id", envelope.EventID,
		"partition_key", envelope.PartitionKey,
	)
	return nil
}

func (p *LoggingPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	p.logger.WarnContext(ctx, "event routed to dlq",
		"event_type", record.OriginalEvent.EventType,
		"event_id", record.OriginalEvent.EventID,
		"error", record.ErrorSummary,
	)
	return nil
}
