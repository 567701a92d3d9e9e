package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// PostgresPaymentTransactionRepository implements PaymentTransactionRepository using PostgreSQL
type PostgresPaymentTransactionRepository struct {
	db *sqlx.DB
}

// NewPostgresPaymentTransactionRepository creates a new PostgresPaymentTransactionRepository
func NewPostgresPaymentTransactionRepository(db *sqlx.DB) *PostgresPaymentTransactionRepository {
	return &PostgresPaymentTransactionRepository{db: db}
}

// postgresPaymentTransaction represents payment transaction in database
type postgresPaymentTransaction struct {
	ID                    string    `db:"id"`
	TenantID              string    `db:"tenant_id"`
	OrderID               string    `db:"order_id"`
	PaymentMethodID       string    `db:"payment_method_id"`
	Provider              string    `db:"provider"`
	ProviderTransactionID *string   `db:"provider_transaction_id"`
	ProviderIntentID      *string   `db:"provider_intent_id"`
	Amount                int64     `db:"amount"`
	Currency              string    `db:"currency"`
	Status                string    `db:"status"`
	FailureReason         *string   `db:"failure_reason"`
	RefundAmount          *int64    `db:"refund_amount"`
	RefundReason          *string   `db:"refund_reason"`
	Metadata              string    `db:"metadata"`
	CreatedBy             string    `db:"created_by"`
	ModifiedBy            string    `db:"modified_by"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
	Version               int       `db:"version"`
}

const selectPaymentTransaction = `
	SELECT id, tenant_id, order_id, payment_method_id, provider,
		   provider_transaction_id, provider_intent_id, amount, currency, status,
		   failure_reason, refund_amount, refund_reason, metadata,
		   created_by, modified_by, created_at, updated_at, version
	FROM payment_transactions`

// Create inserts a transaction. The partial unique index on active
// transactions turns a concurrent duplicate into a conflict.
func (r *PostgresPaymentTransactionRepository) Create(ctx context.Context, tx *domain.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (
			id, tenant_id, order_id, payment_method_id, provider,
			provider_transaction_id, provider_intent_id, amount, currency, status,
			failure_reason, refund_amount, refund_reason, metadata,
			created_by, modified_by, created_at, updated_at, version
		) VALUES (
			:id, :tenant_id, :order_id, :payment_method_id, :provider,
			:provider_transaction_id, :provider_intent_id, :amount, :currency, :status,
			:failure_reason, :refund_amount, :refund_reason, :metadata,
			:created_by, :modified_by, :created_at, :updated_at, :version
		)`

	pgTx, err := r.toPostgres(tx)
	if err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, query, pgTx); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("order %s already has an active payment transaction", tx.OrderID)
		}
		return errors.Wrap(err, "failed to insert payment transaction")
	}

	return nil
}

// Update persists the mutable columns with an optimistic version check
func (r *PostgresPaymentTransactionRepository) Update(ctx context.Context, tx *domain.PaymentTransaction) error {
	query := `
		UPDATE payment_transactions
		SET provider_transaction_id = :provider_transaction_id,
			provider_intent_id = :provider_intent_id,
			status = :status,
			failure_reason = :failure_reason,
			refund_amount = :refund_amount,
			refund_reason = :refund_reason,
			metadata = :metadata,
			modified_by = :modified_by,
			updated_at = :updated_at,
			version = :version + 1
		WHERE id = :id AND tenant_id = :tenant_id AND version = :version`

	pgTx, err := r.toPostgres(tx)
	if err != nil {
		return err
	}

	result, err := r.db.NamedExecContext(ctx, query, pgTx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("order %s already has an active payment transaction", tx.OrderID)
		}
		return errors.Wrap(err, "failed to update payment transaction")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update payment transaction")
	}
	if affected == 0 {
		return domain.NewConflictError("payment transaction %s was modified concurrently", tx.ID)
	}

	tx.Version = tx.Version.Update()
	return nil
}

// FindByID finds a transaction in the tenant
func (r *PostgresPaymentTransactionRepository) FindByID(ctx context.Context, tenantID, transactionID models.ID) (*domain.PaymentTransaction, error) {
	query := selectPaymentTransaction + ` WHERE id = $1 AND tenant_id = $2`

	var pgTx postgresPaymentTransaction
	err := r.db.GetContext(ctx, &pgTx, query, transactionID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find payment transaction")
	}

	return r.toDomain(&pgTx)
}

// FindActiveByOrderID finds the Pending or Processing transaction of an order
func (r *PostgresPaymentTransactionRepository) FindActiveByOrderID(ctx context.Context, tenantID, orderID models.ID) (*domain.PaymentTransaction, error) {
	query := selectPaymentTransaction + `
		WHERE order_id = $1 AND tenant_id = $2 AND status IN ('Pending', 'Processing')
		LIMIT 1`

	var pgTx postgresPaymentTransaction
	err := r.db.GetContext(ctx, &pgTx, query, orderID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find active payment transaction")
	}

	return r.toDomain(&pgTx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toPostgres converts domain transaction to postgres model
func (r *PostgresPaymentTransactionRepository) toPostgres(tx *domain.PaymentTransaction) (*postgresPaymentTransaction, error) {
	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	rawMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payment metadata")
	}

	var refundAmount *int64
	if tx.RefundAmount != nil {
		amount := tx.RefundAmount.Amount
		refundAmount = &amount
	}

	return &postgresPaymentTransaction{
		ID:                    tx.ID.String(),
		TenantID:              tx.TenantID.String(),
		OrderID:               tx.OrderID.String(),
		PaymentMethodID:       tx.PaymentMethodID.String(),
		Provider:              tx.Provider.String(),
		ProviderTransactionID: nullableString(tx.ProviderTransactionID),
		ProviderIntentID:      nullableString(tx.ProviderIntentID),
		Amount:                tx.Amount.Amount,
		Currency:              tx.Amount.Currency,
		Status:                string(tx.Status),
		FailureReason:         nullableString(tx.FailureReason),
		RefundAmount:          refundAmount,
		RefundReason:          nullableString(tx.RefundReason),
		Metadata:              string(rawMetadata),
		CreatedBy:             tx.CreatedBy.String(),
		ModifiedBy:            tx.ModifiedBy.String(),
		CreatedAt:             tx.Timestamps.CreatedAt,
		UpdatedAt:             tx.Timestamps.UpdatedAt,
		Version:               tx.Version.Value,
	}, nil
}

// toDomain converts postgres model to domain transaction
func (r *PostgresPaymentTransactionRepository) toDomain(pgTx *postgresPaymentTransaction) (*domain.PaymentTransaction, error) {
	id, err := models.NewID(pgTx.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment transaction ID")
	}

	orderID, err := models.NewID(pgTx.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	metadata := map[string]interface{}{}
	if len(pgTx.Metadata) > 0 {
		if err := json.Unmarshal([]byte(pgTx.Metadata), &metadata); err != nil {
			return nil, errors.Wrap(err, "invalid payment metadata")
		}
	}

	var refundAmount *models.Money
	if pgTx.RefundAmount != nil {
		amount := models.NewMoney(*pgTx.RefundAmount, pgTx.Currency)
		refundAmount = &amount
	}

	return &domain.PaymentTransaction{
		ID:                    id,
		TenantID:              models.ID(pgTx.TenantID),
		OrderID:               orderID,
		PaymentMethodID:       models.ID(pgTx.PaymentMethodID),
		Provider:              domain.PaymentProvider(pgTx.Provider),
		ProviderTransactionID: stringValue(pgTx.ProviderTransactionID),
		ProviderIntentID:      stringValue(pgTx.ProviderIntentID),
		Amount:                models.NewMoney(pgTx.Amount, pgTx.Currency),
		Status:                domain.PaymentStatus(pgTx.Status),
		FailureReason:         stringValue(pgTx.FailureReason),
		RefundAmount:          refundAmount,
		RefundReason:          stringValue(pgTx.RefundReason),
		Metadata:              metadata,
		CreatedBy:             models.ID(pgTx.CreatedBy),
		ModifiedBy:            models.ID(pgTx.ModifiedBy),
		Timestamps: models.Timestamps{
			CreatedAt: pgTx.CreatedAt,
			UpdatedAt: pgTx.UpdatedAt,
		},
		Version: models.Version{Value: pgTx.Version},
	}, nil
}
