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

// PostgresProductRepository implements ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db *sqlx.DB
}

// NewPostgresProductRepository creates a new PostgresProductRepository
func NewPostgresProductRepository(db *sqlx.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

// postgresProduct represents product in database
type postgresProduct struct {
	ID          string    `db:"id"`
	TenantID    string    `db:"tenant_id"`
	Name        string    `db:"name"`
	Inventory   int64     `db:"inventory"`
	PriceAmount int64     `db:"price_amount"`
	Currency    string    `db:"currency"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Version     int       `db:"version"`
}

const selectProduct = `
	SELECT id, tenant_id, name, inventory, price_amount, currency,
		   created_at, updated_at, version
	FROM products
	WHERE id = $1 AND tenant_id = $2`

// FindByID finds a product in the tenant
func (r *PostgresProductRepository) FindByID(ctx context.Context, tenantID, productID models.ID) (*domain.Product, error) {
	var pgProduct postgresProduct
	err := r.db.GetContext(ctx, &pgProduct, selectProduct, productID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find product")
	}

	return r.toDomain(&pgProduct)
}

// Reserve locks the product row, checks stock and decrements it in one
// transaction. The lock is released on commit, before returning.
func (r *PostgresProductRepository) Reserve(ctx context.Context, tenantID, productID models.ID, quantity int64) (*domain.Product, error) {
	return r.adjust(ctx, tenantID, productID, func(p *domain.Product) error {
		return p.Reserve(quantity)
	})
}

// Release credits quantity back to the product
func (r *PostgresProductRepository) Release(ctx context.Context, tenantID, productID models.ID, quantity int64) (*domain.Product, error) {
	return r.adjust(ctx, tenantID, productID, func(p *domain.Product) error {
		return p.Release(quantity)
	})
}

func (r *PostgresProductRepository) adjust(
	ctx context.Context,
	tenantID, productID models.ID,
	change func(*domain.Product) error,
) (*domain.Product, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin inventory transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var pgProduct postgresProduct
	err = tx.GetContext(ctx, &pgProduct, selectProduct+" FOR UPDATE", productID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFoundError("product %s not found", productID)
		}
		return nil, errors.Wrap(err, "failed to lock product")
	}

	product, err := r.toDomain(&pgProduct)
	if err != nil {
		return nil, err
	}

	if err := change(product); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET inventory = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND tenant_id = $4`,
		product.Inventory, product.Timestamps.UpdatedAt, productID.String(), tenantID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to update product inventory")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit inventory transaction")
	}

	product.Version = product.Version.Update()
	return product, nil
}

// toDomain converts postgres model to domain product
func (r *PostgresProductRepository) toDomain(pgProduct *postgresProduct) (*domain.Product, error) {
	id, err := models.NewID(pgProduct.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid product ID")
	}

	tenantID, err := models.NewID(pgProduct.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tenant ID")
	}

	return &domain.Product{
		ID:        id,
		TenantID:  tenantID,
		Name:      pgProduct.Name,
		Inventory: pgProduct.Inventory,
		Price:     models.NewMoney(pgProduct.PriceAmount, pgProduct.Currency),
		Timestamps: models.Timestamps{
			CreatedAt: pgProduct.CreatedAt,
			UpdatedAt: pgProduct.UpdatedAt,
		},
		Version: models.Version{Value: pgProduct.Version},
	}, nil
}
