package domain

import (
	"context"
	"time"

	"github.com/draftea/checkout-system/shared/models"
)

// Finders return (nil, nil) when the entity does not exist in the tenant.

// ProductRepository reads products and performs atomic reservations
type ProductRepository interface {
	FindByID(ctx context.Context, tenantID, productID models.ID) (*Product, error)
	// Reserve checks and decrements inventory as one atomic unit. The row
	// lock, if any, is released before it returns.
	Reserve(ctx context.Context, tenantID, productID models.ID, quantity int64) (*Product, error)
	Release(ctx context.Context, tenantID, productID models.ID, quantity int64) (*Product, error)
}

// OrderRepository persists orders with their items
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	// Update fails with a conflict error if the stored version moved on.
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, tenantID, orderID models.ID) (*Order, error)
}

// PaymentMethodRepository reads tenant payment methods
type PaymentMethodRepository interface {
	FindByID(ctx context.Context, tenantID, paymentMethodID models.ID) (*PaymentMethod, error)
}

// PaymentTransactionRepository persists payment transactions
type PaymentTransactionRepository interface {
	// Create fails with a conflict error when an active transaction already
	// exists for the order.
	Create(ctx context.Context, tx *PaymentTransaction) error
	// Update fails with a conflict error if the stored version moved on.
	Update(ctx context.Context, tx *PaymentTransaction) error
	FindByID(ctx context.Context, tenantID, transactionID models.ID) (*PaymentTransaction, error)
	FindActiveByOrderID(ctx context.Context, tenantID, orderID models.ID) (*PaymentTransaction, error)
}

// NotificationKind names the customer notification to send
type NotificationKind string

const (
	NotificationOrderCreated   NotificationKind = "order_created"
	NotificationOrderConfirmed NotificationKind = "order_confirmed"
)

// Notification is a fire-and-forget customer message
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	TenantID   models.ID        `json:"tenant_id"`
	OrderID    models.ID        `json:"order_id"`
	CustomerID models.ID        `json:"customer_id"`
	Total      models.Money     `json:"total"`
	Status     OrderStatus      `json:"status"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewOrderNotification builds a notification for the order's current state
func NewOrderNotification(kind NotificationKind, order *Order) Notification {
	return Notification{
		Kind:       kind,
		TenantID:   order.TenantID,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
		Status:     order.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// NotificationDispatcher enqueues notifications for async delivery
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification Notification) error
}
