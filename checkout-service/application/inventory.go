package application

import (
	"context"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// InventoryLine is a product quantity moved in or out of stock
type InventoryLine struct {
	ProductID models.ID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

// InventoryChangedData is the payload of inventory.reserved and inventory.released
type InventoryChangedData struct {
	OrderID models.ID       `json:"order_id"`
	Lines   []InventoryLine `json:"lines"`
	Reason  string          `json:"reason,omitempty"`
}

// InventoryService reserves and releases stock for order lines
type InventoryService struct {
	products  domain.ProductRepository
	publisher events.Publisher
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(products domain.ProductRepository, publisher events.Publisher) *InventoryService {
	return &InventoryService{
		products:  products,
		publisher: publisher,
	}
}

// LookupProducts checks every line names a product in the catalog. Reads go
// through the product cache, so unknown products are rejected before any
// stock row is locked.
func (s *InventoryService) LookupProducts(ctx context.Context, tenantID models.ID, lines []InventoryLine) error {
	seen := make(map[models.ID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}

		product, err := s.products.FindByID(ctx, tenantID, line.ProductID)
		if err != nil {
			return errors.Wrapf(err, "failed to find product %s", line.ProductID)
		}
		if product == nil {
			return domain.NewNotFoundError("product %s not found", line.ProductID)
		}
	}
	return nil
}

// ReserveLines reserves every line in order. When a line fails the lines
// already reserved are released before the error is returned.
func (s *InventoryService) ReserveLines(ctx context.Context, tenantID models.ID, lines []InventoryLine) error {
	for i, line := range lines {
		if line.Quantity <= 0 {
			s.rollback(ctx, tenantID, lines[:i])
			return domain.NewValidationError("item quantity must be greater than zero (product: %s)", line.ProductID)
		}

		if _, err := s.products.Reserve(ctx, tenantID, line.ProductID, line.Quantity); err != nil {
			s.rollback(ctx, tenantID, lines[:i])
			return errors.Wrapf(err, "failed to reserve product %s", line.ProductID)
		}
	}
	return nil
}

// ReleaseLines returns every line to stock. It keeps going after a failure
// and reports all of them.
func (s *InventoryService) ReleaseLines(ctx context.Context, tenantID models.ID, lines []InventoryLine) error {
	var errs error
	for _, line := range lines {
		if _, err := s.products.Release(ctx, tenantID, line.ProductID, line.Quantity); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "failed to release product %s", line.ProductID))
		}
	}
	return errs
}

// PublishReserved announces the stock held by an order
func (s *InventoryService) PublishReserved(ctx context.Context, order *domain.Order) {
	s.publish(ctx, order, events.InventoryReservedEvent, "")
}

// PublishReleased announces the stock returned by an order
func (s *InventoryService) PublishReleased(ctx context.Context, order *domain.Order, reason string) {
	s.publish(ctx, order, events.InventoryReleasedEvent, reason)
}

func (s *InventoryService) publish(ctx context.Context, order *domain.Order, eventType, reason string) {
	event := events.NewEvent(order.ID, eventType, InventoryChangedData{
		OrderID: order.ID,
		Lines:   OrderLines(order),
		Reason:  reason,
	}).WithTenant(order.TenantID)

	publishBestEffort(ctx, s.publisher, event)
}

func (s *InventoryService) rollback(ctx context.Context, tenantID models.ID, reserved []InventoryLine) {
	if len(reserved) == 0 {
		return
	}
	if err := s.ReleaseLines(ctx, tenantID, reserved); err != nil {
		logging.FromContext(ctx).Error("failed to roll back partial reservation",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// OrderLines lists the stock held by an order
func OrderLines(order *domain.Order) []InventoryLine {
	lines := make([]InventoryLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, InventoryLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func requestedLines(items []domain.LineItem) []InventoryLine {
	lines := make([]InventoryLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, InventoryLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// publishBestEffort publishes events and only logs failures. Callers have
// already committed the state change the events describe.
func publishBestEffort(ctx context.Context, publisher events.Publisher, evts ...*events.Event) {
	if publisher == nil || len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		logging.FromContext(ctx).Warn("failed to publish events",
			zap.Int("count", len(evts)),
			zap.String("event", evts[0].EventType),
			zap.Error(err))
	}
}
