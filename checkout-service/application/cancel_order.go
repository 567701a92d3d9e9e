package application

import (
	"context"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CancelOrderCommand represents the command to cancel an order
type CancelOrderCommand struct {
	TenantID models.ID `json:"-"`
	OrderID  models.ID `json:"-"`
	ActorID  models.ID `json:"-"`
	Reason   string    `json:"reason"`
}

// CancelOrder use case
type CancelOrder struct {
	orders    domain.OrderRepository
	inventory *InventoryService
	publisher events.Publisher
}

// NewCancelOrder creates a new CancelOrder use case
func NewCancelOrder(orders domain.OrderRepository, inventory *InventoryService, publisher events.Publisher) *CancelOrder {
	return &CancelOrder{
		orders:    orders,
		inventory: inventory,
		publisher: publisher,
	}
}

// Execute cancels the order and returns its stock. The status change is
// stored first so a lost version race never releases stock twice.
func (uc *CancelOrder) Execute(ctx context.Context, cmd *CancelOrderCommand) (*domain.Order, error) {
	order, err := uc.orders.FindByID(ctx, cmd.TenantID, cmd.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.NewNotFoundError("order %s not found", cmd.OrderID)
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "cancelled by customer"
	}

	if err := order.Cancel(cmd.ActorID, reason); err != nil {
		return nil, err
	}

	if err := uc.orders.Update(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to update order")
	}

	if err := uc.inventory.ReleaseLines(ctx, order.TenantID, OrderLines(order)); err != nil {
		logging.FromContext(ctx).Error("failed to release stock for cancelled order",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	} else {
		uc.inventory.PublishReleased(ctx, order, reason)
	}

	publishBestEffort(ctx, uc.publisher, order.Events()...)
	order.ClearEvents()

	return order, nil
}
