package infrastructure

import (
	"context"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"go.uber.org/zap"
)

// LogNotificationDispatcher logs notifications instead of enqueueing them.
// Used when no notifications queue is configured.
type LogNotificationDispatcher struct {
	logger *zap.Logger
}

func NewLogNotificationDispatcher(logger *zap.Logger) *LogNotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotificationDispatcher{logger: logger}
}

func (d *LogNotificationDispatcher) Dispatch(_ context.Context, notification domain.Notification) error {
	d.logger.Info("notification dispatched",
		zap.String("kind", string(notification.Kind)),
		zap.String("tenant_id", notification.TenantID.String()),
		zap.String("order_id", notification.OrderID.String()),
		zap.String("status", string(notification.Status)),
	)
	return nil
}
