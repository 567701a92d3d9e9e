package domain

import (
	"time"

	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/models"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PendingPayment"
	OrderStatusConfirmed      OrderStatus = "Confirmed"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// LineItem is a requested order line before the order exists
type LineItem struct {
	ProductID models.ID    `json:"product_id"`
	Quantity  int64        `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
}

// ValidateLineItems checks the cart, first failure wins: non-empty, a single
// currency, positive quantities, positive unit prices.
func ValidateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return NewValidationError("order must contain at least one item")
	}

	currency := items[0].UnitPrice.Currency
	for _, item := range items {
		if item.UnitPrice.Currency != currency {
			return NewValidationError("mixed currencies are not supported within a single order")
		}
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return NewValidationError("item quantity must be greater than zero (product: %s)", item.ProductID)
		}
	}

	for _, item := range items {
		if !item.UnitPrice.IsPositive() {
			return NewValidationError("item unit price must be greater than zero (product: %s)", item.ProductID)
		}
	}

	total := models.Zero(currency)
	for _, item := range items {
		price, err := item.UnitPrice.Multiply(item.Quantity)
		if err == nil {
			total, err = total.Add(price)
		}
		if err != nil {
			return NewValidationError("order total exceeds the supported amount")
		}
	}

	return nil
}

// OrderItem is an order line with its unit price snapshotted at creation
type OrderItem struct {
	ID        models.ID
	OrderID   models.ID
	ProductID models.ID
	Quantity  int64
	UnitPrice models.Money
}

// ExtendedPrice is quantity times unit price. Lines are bounded by
// ValidateLineItems, so the product always fits.
func (i OrderItem) ExtendedPrice() models.Money {
	price, _ := i.UnitPrice.Multiply(i.Quantity)
	return price
}

// Order aggregate root
type Order struct {
	ID              models.ID
	TenantID        models.ID
	CustomerID      models.ID
	PaymentMethodID models.ID
	ShippingAddress *string
	Status          OrderStatus
	Total           models.Money
	Items           []OrderItem
	CreatedBy       models.ID
	ModifiedBy      models.ID
	Timestamps      models.Timestamps
	Version         models.Version

	events []*events.Event
}

// NewOrderParams groups the inputs needed to place an order
type NewOrderParams struct {
	TenantID        models.ID
	ActorID         models.ID
	CustomerID      models.ID
	PaymentMethod   *PaymentMethod
	Items           []LineItem
	ShippingAddress *string
}

// NewOrder builds an order from validated line items. Deferred settlement
// methods place the order directly as Confirmed.
func NewOrder(params NewOrderParams) (*Order, error) {
	if err := ValidateLineItems(params.Items); err != nil {
		return nil, err
	}
	if params.PaymentMethod == nil {
		return nil, NewValidationError("payment method is required")
	}

	status := OrderStatusPendingPayment
	if params.PaymentMethod.IsDeferredSettlement() {
		status = OrderStatusConfirmed
	}

	order := &Order{
		ID:              models.GenerateUUID(),
		TenantID:        params.TenantID,
		CustomerID:      params.CustomerID,
		PaymentMethodID: params.PaymentMethod.ID,
		ShippingAddress: params.ShippingAddress,
		Status:          status,
		CreatedBy:       params.ActorID,
		ModifiedBy:      params.ActorID,
		Timestamps:      models.NewTimestamps(),
		Version:         models.NewVersion(),
	}

	total := models.Zero(params.Items[0].UnitPrice.Currency)
	for _, line := range params.Items {
		item := OrderItem{
			ID:        models.GenerateUUID(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		price, err := line.UnitPrice.Multiply(line.Quantity)
		if err != nil {
			return nil, NewValidationError("order total exceeds the supported amount")
		}
		if total, err = total.Add(price); err != nil {
			return nil, NewValidationError("order total exceeds the supported amount")
		}
		order.Items = append(order.Items, item)
	}
	order.Total = total

	order.recordEvent(events.NewEvent(order.ID, events.OrderCreatedEvent, OrderCreatedData{
		OrderID:         order.ID,
		TenantID:        order.TenantID,
		CustomerID:      order.CustomerID,
		PaymentMethodID: order.PaymentMethodID,
		Status:          order.Status,
		Total:           order.Total,
		ItemCount:       len(order.Items),
	}).WithTenant(order.TenantID))

	return order, nil
}

// Confirm marks the order as paid/confirmed. Confirming a confirmed order is a no-op.
func (o *Order) Confirm(actorID models.ID) error {
	switch o.Status {
	case OrderStatusConfirmed:
		return nil
	case OrderStatusPendingPayment:
	default:
		return NewInvalidStateError("order %s cannot be confirmed from status %s", o.ID, o.Status)
	}

	o.Status = OrderStatusConfirmed
	o.touch(actorID)

	o.recordEvent(events.NewEvent(o.ID, events.OrderConfirmedEvent, OrderStatusChangedData{
		OrderID:  o.ID,
		TenantID: o.TenantID,
		Status:   o.Status,
	}).WithTenant(o.TenantID))
	return nil
}

// RevertToPendingPayment undoes a confirmation during compensation
func (o *Order) RevertToPendingPayment(actorID models.ID) error {
	switch o.Status {
	case OrderStatusPendingPayment:
		return nil
	case OrderStatusConfirmed:
	default:
		return NewInvalidStateError("order %s cannot be reverted from status %s", o.ID, o.Status)
	}

	o.Status = OrderStatusPendingPayment
	o.touch(actorID)

	o.recordEvent(events.NewEvent(o.ID, events.OrderRevertedEvent, OrderStatusChangedData{
		OrderID:  o.ID,
		TenantID: o.TenantID,
		Status:   o.Status,
	}).WithTenant(o.TenantID))
	return nil
}

// Cancel is valid from PendingPayment or Confirmed
func (o *Order) Cancel(actorID models.ID, reason string) error {
	if o.Status != OrderStatusPendingPayment && o.Status != OrderStatusConfirmed {
		return NewInvalidStateError("order %s cannot be cancelled from status %s", o.ID, o.Status)
	}

	o.Status = OrderStatusCancelled
	o.touch(actorID)

	o.recordEvent(events.NewEvent(o.ID, events.OrderCancelledEvent, OrderCancelledData{
		OrderID:     o.ID,
		TenantID:    o.TenantID,
		Reason:      reason,
		CancelledAt: o.Timestamps.UpdatedAt,
	}).WithTenant(o.TenantID))
	return nil
}

func (o *Order) touch(actorID models.ID) {
	if !actorID.IsEmpty() {
		o.ModifiedBy = actorID
	}
	o.Timestamps = o.Timestamps.Update()
}

// Clone returns a detached copy without pending events
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		c.ShippingAddress = &addr
	}
	c.events = nil
	return &c
}

// Events returns domain events
func (o *Order) Events() []*events.Event {
	return o.events
}

// ClearEvents clears domain events
func (o *Order) ClearEvents() {
	o.events = nil
}

func (o *Order) recordEvent(event *events.Event) {
	o.events = append(o.events, event)
}

// Event Data Structures
type OrderCreatedData struct {
	OrderID         models.ID    `json:"order_id"`
	TenantID        models.ID    `json:"tenant_id"`
	CustomerID      models.ID    `json:"customer_id"`
	PaymentMethodID models.ID    `json:"payment_method_id"`
	Status          OrderStatus  `json:"status"`
	Total           models.Money `json:"total"`
	ItemCount       int          `json:"item_count"`
}

type OrderStatusChangedData struct {
	OrderID  models.ID   `json:"order_id"`
	TenantID models.ID   `json:"tenant_id"`
	Status   OrderStatus `json:"status"`
}

type OrderCancelledData struct {
	OrderID     models.ID `json:"order_id"`
	TenantID    models.ID `json:"tenant_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}
