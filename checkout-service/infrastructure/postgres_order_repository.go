package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents order in database
type postgresOrder struct {
	ID              string    `db:"id"`
	TenantID        string    `db:"tenant_id"`
	CustomerID      string    `db:"customer_id"`
	PaymentMethodID string    `db:"payment_method_id"`
	ShippingAddress *string   `db:"shipping_address"`
	Status          string    `db:"status"`
	TotalAmount     int64     `db:"total_amount"`
	Currency        string    `db:"currency"`
	CreatedBy       string    `db:"created_by"`
	ModifiedBy      string    `db:"modified_by"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
	Version         int       `db:"version"`
}

// postgresOrderItem represents order item in database
type postgresOrderItem struct {
	ID              string `db:"id"`
	OrderID         string `db:"order_id"`
	ProductID       string `db:"product_id"`
	Quantity        int64  `db:"quantity"`
	UnitPriceAmount int64  `db:"unit_price_amount"`
	Currency        string `db:"currency"`
}

// Create inserts the order header and its items in one transaction
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin order transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO orders (
			id, tenant_id, customer_id, payment_method_id, shipping_address,
			status, total_amount, currency, created_by, modified_by,
			created_at, updated_at, version
		) VALUES (
			:id, :tenant_id, :customer_id, :payment_method_id, :shipping_address,
			:status, :total_amount, :currency, :created_by, :modified_by,
			:created_at, :updated_at, :version
		)`

	if _, err := tx.NamedExecContext(ctx, query, r.toPostgres(order)); err != nil {
		return errors.Wrap(err, "failed to insert order")
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, product_id, quantity, unit_price_amount, currency
		) VALUES (
			:id, :order_id, :product_id, :quantity, :unit_price_amount, :currency
		)`

	for _, item := range order.Items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, r.itemToPostgres(item)); err != nil {
			return errors.Wrap(err, "failed to insert order item")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit order transaction")
	}

	return nil
}

// Update persists status and audit fields. Items are immutable once placed.
func (r *PostgresOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = :status, modified_by = :modified_by, updated_at = :updated_at,
			version = :version
		WHERE id = :id AND tenant_id = :tenant_id AND version = :old_version`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          order.ID.String(),
		"tenant_id":   order.TenantID.String(),
		"status":      string(order.Status),
		"modified_by": order.ModifiedBy.String(),
		"updated_at":  order.Timestamps.UpdatedAt,
		"version":     order.Version.Value + 1,
		"old_version": order.Version.Value,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}
	if affected == 0 {
		return domain.NewConflictError("order %s was modified concurrently", order.ID)
	}

	order.Version = order.Version.Update()
	return nil
}

// FindByID finds an order with its items in the tenant
func (r *PostgresOrderRepository) FindByID(ctx context.Context, tenantID, orderID models.ID) (*domain.Order, error) {
	query := `
		SELECT id, tenant_id, customer_id, payment_method_id, shipping_address,
			   status, total_amount, currency, created_by, modified_by,
			   created_at, updated_at, version
		FROM orders
		WHERE id = $1 AND tenant_id = $2`

	var pgOrder postgresOrder
	err := r.db.GetContext(ctx, &pgOrder, query, orderID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price_amount, currency
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	var pgItems []postgresOrderItem
	if err := r.db.SelectContext(ctx, &pgItems, itemsQuery, orderID.String()); err != nil {
		return nil, errors.Wrap(err, "failed to find order items")
	}

	return r.toDomain(&pgOrder, pgItems)
}

// toPostgres converts domain order to postgres model
func (r *PostgresOrderRepository) toPostgres(order *domain.Order) *postgresOrder {
	return &postgresOrder{
		ID:              order.ID.String(),
		TenantID:        order.TenantID.String(),
		CustomerID:      order.CustomerID.String(),
		PaymentMethodID: order.PaymentMethodID.String(),
		ShippingAddress: order.ShippingAddress,
		Status:          string(order.Status),
		TotalAmount:     order.Total.Amount,
		Currency:        order.Total.Currency,
		CreatedBy:       order.CreatedBy.String(),
		ModifiedBy:      order.ModifiedBy.String(),
		CreatedAt:       order.Timestamps.CreatedAt,
		UpdatedAt:       order.Timestamps.UpdatedAt,
		Version:         order.Version.Value,
	}
}

func (r *PostgresOrderRepository) itemToPostgres(item domain.OrderItem) *postgresOrderItem {
	return &postgresOrderItem{
		ID:              item.ID.String(),
		OrderID:         item.OrderID.String(),
		ProductID:       item.ProductID.String(),
		Quantity:        item.Quantity,
		UnitPriceAmount: item.UnitPrice.Amount,
		Currency:        item.UnitPrice.Currency,
	}
}

// toDomain converts postgres model to domain order
func (r *PostgresOrderRepository) toDomain(pgOrder *postgresOrder, pgItems []postgresOrderItem) (*domain.Order, error) {
	id, err := models.NewID(pgOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	tenantID, err := models.NewID(pgOrder.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tenant ID")
	}

	customerID, err := models.NewID(pgOrder.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	paymentMethodID, err := models.NewID(pgOrder.PaymentMethodID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment method ID")
	}

	items := make([]domain.OrderItem, len(pgItems))
	for i, pgItem := range pgItems {
		productID, err := models.NewID(pgItem.ProductID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid product ID")
		}
		items[i] = domain.OrderItem{
			ID:        models.ID(pgItem.ID),
			OrderID:   id,
			ProductID: productID,
			Quantity:  pgItem.Quantity,
			UnitPrice: models.NewMoney(pgItem.UnitPriceAmount, pgItem.Currency),
		}
	}

	return &domain.Order{
		ID:              id,
		TenantID:        tenantID,
		CustomerID:      customerID,
		PaymentMethodID: paymentMethodID,
		ShippingAddress: pgOrder.ShippingAddress,
		Status:          domain.OrderStatus(pgOrder.Status),
		Total:           models.NewMoney(pgOrder.TotalAmount, pgOrder.Currency),
		Items:           items,
		CreatedBy:       models.ID(pgOrder.CreatedBy),
		ModifiedBy:      models.ID(pgOrder.ModifiedBy),
		Timestamps: models.Timestamps{
			CreatedAt: pgOrder.CreatedAt,
			UpdatedAt: pgOrder.UpdatedAt,
		},
		Version: models.Version{Value: pgOrder.Version},
	}, nil
}
