package infrastructure

import (
	"context"

	"github.com/draftea/checkout-system/shared/events"
	"go.uber.org/zap"
)

var _ events.Publisher = (*LogEventPublisher)(nil)

// LogEventPublisher writes events to the structured log. Used when no broker
// is configured (local runs, memory storage backend).
type LogEventPublisher struct {
	logger *zap.Logger
}

func NewLogEventPublisher(logger *zap.Logger) *LogEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(_ context.Context, evts ...*events.Event) error {
	for _, event := range evts {
		p.logger.Info("event published",
			zap.String("event", event.EventType),
			zap.String("event_id", event.ID.String()),
			zap.String("aggregate_id", event.AggregateID.String()),
			zap.String("tenant_id", event.TenantID.String()),
			zap.Any("data", event.Data),
		)
	}
	return nil
}
