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

// PostgresPaymentMethodRepository implements PaymentMethodRepository using PostgreSQL
type PostgresPaymentMethodRepository struct {
	db *sqlx.DB
}

// NewPostgresPaymentMethodRepository creates a new PostgresPaymentMethodRepository
func NewPostgresPaymentMethodRepository(db *sqlx.DB) *PostgresPaymentMethodRepository {
	return &PostgresPaymentMethodRepository{db: db}
}

type postgresPaymentMethod struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	Provider  string    `db:"provider"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FindByID finds a payment method in the tenant
func (r *PostgresPaymentMethodRepository) FindByID(ctx context.Context, tenantID, paymentMethodID models.ID) (*domain.PaymentMethod, error) {
	query := `
		SELECT id, tenant_id, name, type, provider, is_active, created_at, updated_at
		FROM payment_methods
		WHERE id = $1 AND tenant_id = $2`

	var pgMethod postgresPaymentMethod
	err := r.db.GetContext(ctx, &pgMethod, query, paymentMethodID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find payment method")
	}

	methodType, err := domain.NewPaymentMethodType(pgMethod.Type)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment method type")
	}

	return &domain.PaymentMethod{
		ID:       models.ID(pgMethod.ID),
		TenantID: models.ID(pgMethod.TenantID),
		Name:     pgMethod.Name,
		Type:     methodType,
		Provider: domain.PaymentProvider(pgMethod.Provider),
		IsActive: pgMethod.IsActive,
		Timestamps: models.Timestamps{
			CreatedAt: pgMethod.CreatedAt,
			UpdatedAt: pgMethod.UpdatedAt,
		},
	}, nil
}
