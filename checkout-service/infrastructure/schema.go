package infrastructure

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		name TEXT NOT NULL,
		inventory BIGINT NOT NULL CHECK (inventory >= 0),
		price_amount BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		version INT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		provider TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		customer_id UUID NOT NULL,
		payment_method_id UUID NOT NULL REFERENCES payment_methods (id),
		shipping_address TEXT,
		status TEXT NOT NULL,
		total_amount BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		created_by UUID NOT NULL,
		modified_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		version INT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products (id),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		unit_price_amount BIGINT NOT NULL,
		currency CHAR(3) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		order_id UUID NOT NULL REFERENCES orders (id),
		payment_method_id UUID NOT NULL,
		provider TEXT NOT NULL,
		provider_transaction_id TEXT,
		provider_intent_id TEXT,
		amount BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		status TEXT NOT NULL,
		failure_reason TEXT,
		refund_amount BIGINT,
		refund_reason TEXT,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_by UUID NOT NULL,
		modified_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		version INT NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_tenant ON orders (tenant_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
	// One in-flight transaction per order; concurrent intent creation converges on it.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payment_transactions_active_order
		ON payment_transactions (order_id)
		WHERE status IN ('Pending', 'Processing')`,
}

// InitSchema creates the checkout tables if they do not exist
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
	}
	return nil
}
