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

// CreateOrderCommand represents the command to place an order
type CreateOrderCommand struct {
	TenantID        models.ID         `json:"-"`
	ActorID         models.ID         `json:"-"`
	CustomerID      models.ID         `json:"customer_id"`
	PaymentMethodID models.ID         `json:"payment_method_id"`
	Items           []domain.LineItem `json:"items"`
	ShippingAddress *string           `json:"shipping_address,omitempty"`
}

// CreateOrder use case
type CreateOrder struct {
	orders         domain.OrderRepository
	paymentMethods domain.PaymentMethodRepository
	inventory      *InventoryService
	publisher      events.Publisher
	notifier       domain.NotificationDispatcher
}

// NewCreateOrder creates a new CreateOrder use case
func NewCreateOrder(
	orders domain.OrderRepository,
	paymentMethods domain.PaymentMethodRepository,
	inventory *InventoryService,
	publisher events.Publisher,
	notifier domain.NotificationDispatcher,
) *CreateOrder {
	return &CreateOrder{
		orders:         orders,
		paymentMethods: paymentMethods,
		inventory:      inventory,
		publisher:      publisher,
		notifier:       notifier,
	}
}

// Execute validates the cart, reserves stock and persists the order. Stock
// reserved by this call is returned if the order cannot be stored.
func (uc *CreateOrder) Execute(ctx context.Context, cmd *CreateOrderCommand) (*domain.Order, error) {
	if err := uc.validateCommand(cmd); err != nil {
		return nil, err
	}

	method, err := uc.paymentMethods.FindByID(ctx, cmd.TenantID, cmd.PaymentMethodID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment method")
	}
	if method == nil {
		return nil, domain.NewNotFoundError("payment method %s not found", cmd.PaymentMethodID)
	}
	if !method.IsActive {
		return nil, domain.NewValidationError("payment method %s is not active", cmd.PaymentMethodID)
	}

	lines := requestedLines(cmd.Items)
	if err := uc.inventory.LookupProducts(ctx, cmd.TenantID, lines); err != nil {
		return nil, err
	}
	if err := uc.inventory.ReserveLines(ctx, cmd.TenantID, lines); err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(domain.NewOrderParams{
		TenantID:        cmd.TenantID,
		ActorID:         cmd.ActorID,
		CustomerID:      cmd.CustomerID,
		PaymentMethod:   method,
		Items:           cmd.Items,
		ShippingAddress: cmd.ShippingAddress,
	})
	if err != nil {
		uc.release(ctx, cmd.TenantID, lines)
		return nil, err
	}

	if err := uc.orders.Create(ctx, order); err != nil {
		uc.release(ctx, cmd.TenantID, lines)
		return nil, errors.Wrap(err, "failed to save order")
	}

	publishBestEffort(ctx, uc.publisher, order.Events()...)
	order.ClearEvents()

	dispatchNotification(ctx, uc.notifier, domain.NewOrderNotification(domain.NotificationOrderCreated, order))

	logging.FromContext(ctx).Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("tenant_id", order.TenantID.String()),
		zap.String("status", string(order.Status)),
		zap.String("total", order.Total.String()))

	return order, nil
}

func (uc *CreateOrder) release(ctx context.Context, tenantID models.ID, lines []InventoryLine) {
	if err := uc.inventory.ReleaseLines(ctx, tenantID, lines); err != nil {
		logging.FromContext(ctx).Error("failed to release reservation for unsaved order",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// validateCommand checks everything that does not need a lookup
func (uc *CreateOrder) validateCommand(cmd *CreateOrderCommand) error {
	if cmd.TenantID.IsEmpty() {
		return domain.NewValidationError("tenant ID is required")
	}
	if cmd.CustomerID.IsEmpty() {
		return domain.NewValidationError("customer ID is required")
	}
	if err := domain.ValidateLineItems(cmd.Items); err != nil {
		return err
	}
	if cmd.PaymentMethodID.IsEmpty() {
		return domain.NewValidationError("payment method ID is required")
	}
	return nil
}

// dispatchNotification is fire-and-forget
func dispatchNotification(ctx context.Context, notifier domain.NotificationDispatcher, notification domain.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Dispatch(ctx, notification); err != nil {
		logging.FromContext(ctx).Warn("failed to dispatch notification",
			zap.String("kind", string(notification.Kind)),
			zap.String("order_id", notification.OrderID.String()),
			zap.Error(err))
	}
}
