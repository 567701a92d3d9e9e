package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenant  = models.ID("550e8400-e29b-41d4-a716-446655440001")
	testActor   = models.ID("550e8400-e29b-41d4-a716-446655440002")
	testProduct = models.ID("550e8400-e29b-41d4-a716-446655440010")
	testMethod  = models.ID("550e8400-e29b-41d4-a716-446655440020")
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return sqlx.NewDb(db, "postgres"), mock
}

var productColumns = []string{
	"id", "tenant_id", "name", "inventory", "price_amount", "currency",
	"created_at", "updated_at", "version",
}

func productRow(inventory int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(productColumns).
		AddRow(testProduct.String(), testTenant.String(), "Widget", inventory, int64(2500), "USD", now, now, 1)
}

func TestInitSchema(t *testing.T) {
	db, mock := newMockDB(t)

	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, InitSchema(context.Background(), db))
}

func TestPostgresProductRepository_Reserve(t *testing.T) {
	tests := []struct {
		name          string
		quantity      int64
		setup         func(mock sqlmock.Sqlmock)
		expectedKind  domain.ErrorKind
		wantInventory int64
	}{
		{
			name:     "decrements under row lock",
			quantity: 2,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT (.+) FROM products WHERE id = \$1 AND tenant_id = \$2 FOR UPDATE`).
					WithArgs(testProduct.String(), testTenant.String()).
					WillReturnRows(productRow(5))
				mock.ExpectExec("UPDATE products").
					WithArgs(int64(3), sqlmock.AnyArg(), testProduct.String(), testTenant.String()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantInventory: 3,
		},
		{
			name:     "insufficient inventory rolls back",
			quantity: 10,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("FOR UPDATE").WillReturnRows(productRow(3))
				mock.ExpectRollback()
			},
			expectedKind: domain.ErrorKindInsufficientInventory,
		},
		{
			name:     "unknown product",
			quantity: 1,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows(productColumns))
				mock.ExpectRollback()
			},
			expectedKind: domain.ErrorKindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)

			repo := NewPostgresProductRepository(db)
			product, err := repo.Reserve(context.Background(), testTenant, testProduct, tt.quantity)

			if tt.expectedKind != "" {
				assert.True(t, domain.IsKind(err, tt.expectedKind), "got %v", err)
				assert.Nil(t, product)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantInventory, product.Inventory)
			assert.Equal(t, 2, product.Version.Value)
		})
	}
}

func TestPostgresProductRepository_Release(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(productRow(3))
	mock.ExpectExec("UPDATE products").
		WithArgs(int64(5), sqlmock.AnyArg(), testProduct.String(), testTenant.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	product, err := NewPostgresProductRepository(db).Release(context.Background(), testTenant, testProduct, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), product.Inventory)
}

func TestPostgresProductRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("FROM products").WillReturnRows(sqlmock.NewRows(productColumns))

	product, err := NewPostgresProductRepository(db).FindByID(context.Background(), testTenant, testProduct)
	assert.NoError(t, err)
	assert.Nil(t, product)
}

func newTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(domain.NewOrderParams{
		TenantID:   testTenant,
		ActorID:    testActor,
		CustomerID: testActor,
		PaymentMethod: &domain.PaymentMethod{
			ID:       testMethod,
			TenantID: testTenant,
			Type:     domain.PaymentMethodTypeCreditCard,
			Provider: domain.PaymentProviderSandbox,
		},
		Items: []domain.LineItem{
			{ProductID: testProduct, Quantity: 3, UnitPrice: models.NewMoney(2500, "USD")},
			{ProductID: models.GenerateUUID(), Quantity: 1, UnitPrice: models.NewMoney(100, "USD")},
		},
	})
	require.NoError(t, err)
	return order
}

func TestPostgresOrderRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	order := newTestOrder(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(order.Items[0].ID.String(), order.ID.String(), testProduct.String(), int64(3), int64(2500), "USD").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPostgresOrderRepository(db).Create(context.Background(), order))
}

func TestPostgresOrderRepository_CreateRollsBackOnItemFailure(t *testing.T) {
	db, mock := newMockDB(t)
	order := newTestOrder(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := NewPostgresOrderRepository(db).Create(context.Background(), order)
	assert.ErrorContains(t, err, "failed to insert order item")
}

func TestPostgresOrderRepository_Update(t *testing.T) {
	t.Run("bumps version", func(t *testing.T) {
		db, mock := newMockDB(t)
		order := newTestOrder(t)

		mock.ExpectExec(`UPDATE orders SET (.+) WHERE id = \$5 AND tenant_id = \$6 AND version = \$7`).
			WithArgs(string(order.Status), testActor.String(), sqlmock.AnyArg(), 2, order.ID.String(), testTenant.String(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgresOrderRepository(db).Update(context.Background(), order))
		assert.Equal(t, 2, order.Version.Value)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		order := newTestOrder(t)

		mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewPostgresOrderRepository(db).Update(context.Background(), order)
		assert.True(t, domain.IsKind(err, domain.ErrorKindConflict))
		assert.Equal(t, 1, order.Version.Value)
	})
}

func TestPostgresOrderRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	order := newTestOrder(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM orders").
		WithArgs(order.ID.String(), testTenant.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "customer_id", "payment_method_id", "shipping_address",
			"status", "total_amount", "currency", "created_by", "modified_by",
			"created_at", "updated_at", "version",
		}).AddRow(
			order.ID.String(), testTenant.String(), testActor.String(), testMethod.String(), nil,
			"PendingPayment", int64(7600), "USD", testActor.String(), testActor.String(),
			now, now, 3,
		))
	mock.ExpectQuery("FROM order_items").
		WithArgs(order.ID.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "product_id", "quantity", "unit_price_amount", "currency",
		}).AddRow(order.Items[0].ID.String(), order.ID.String(), testProduct.String(), int64(3), int64(2500), "USD"))

	found, err := NewPostgresOrderRepository(db).FindByID(context.Background(), testTenant, order.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPendingPayment, found.Status)
	assert.Equal(t, models.NewMoney(7600, "USD"), found.Total)
	assert.Nil(t, found.ShippingAddress)
	assert.Equal(t, 3, found.Version.Value)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int64(7500), found.Items[0].ExtendedPrice().Amount)
}

var transactionColumns = []string{
	"id", "tenant_id", "order_id", "payment_method_id", "provider",
	"provider_transaction_id", "provider_intent_id", "amount", "currency", "status",
	"failure_reason", "refund_amount", "refund_reason", "metadata",
	"created_by", "modified_by", "created_at", "updated_at", "version",
}

func TestPostgresPaymentTransactionRepository_Create(t *testing.T) {
	t.Run("inserts", func(t *testing.T) {
		db, mock := newMockDB(t)
		tx := domain.NewPaymentTransaction(newTestOrder(t), domain.PaymentProviderSandbox, testActor)

		mock.ExpectExec("INSERT INTO payment_transactions").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgresPaymentTransactionRepository(db).Create(context.Background(), tx))
	})

	t.Run("active duplicate is a conflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		tx := domain.NewPaymentTransaction(newTestOrder(t), domain.PaymentProviderSandbox, testActor)

		mock.ExpectExec("INSERT INTO payment_transactions").WillReturnError(&pq.Error{Code: "23505"})

		err := NewPostgresPaymentTransactionRepository(db).Create(context.Background(), tx)
		assert.True(t, domain.IsKind(err, domain.ErrorKindConflict))
	})
}

func TestPostgresPaymentTransactionRepository_UpdateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	tx := domain.NewPaymentTransaction(newTestOrder(t), domain.PaymentProviderSandbox, testActor)

	mock.ExpectExec("UPDATE payment_transactions").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewPostgresPaymentTransactionRepository(db).Update(context.Background(), tx)
	assert.True(t, domain.IsKind(err, domain.ErrorKindConflict))
}

func TestPostgresPaymentTransactionRepository_FindActiveByOrderID(t *testing.T) {
	order := newTestOrder(t)

	t.Run("none", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("status IN").WillReturnRows(sqlmock.NewRows(transactionColumns))

		tx, err := NewPostgresPaymentTransactionRepository(db).FindActiveByOrderID(context.Background(), testTenant, order.ID)
		assert.NoError(t, err)
		assert.Nil(t, tx)
	})

	t.Run("maps metadata and refunds", func(t *testing.T) {
		db, mock := newMockDB(t)
		now := time.Now().UTC()
		txID := models.GenerateUUID()

		mock.ExpectQuery("status IN").
			WithArgs(order.ID.String(), testTenant.String()).
			WillReturnRows(sqlmock.NewRows(transactionColumns).AddRow(
				txID.String(), testTenant.String(), order.ID.String(), testMethod.String(), "stripe",
				nil, "pi_123", int64(7600), "USD", "Processing",
				nil, nil, nil, `{"client_secret":"pi_123_secret"}`,
				testActor.String(), testActor.String(), now, now, 2,
			))

		tx, err := NewPostgresPaymentTransactionRepository(db).FindActiveByOrderID(context.Background(), testTenant, order.ID)
		require.NoError(t, err)

		assert.Equal(t, txID, tx.ID)
		assert.Equal(t, domain.PaymentStatusProcessing, tx.Status)
		assert.Equal(t, "pi_123", tx.ProviderIntentID)
		assert.Empty(t, tx.ProviderTransactionID)
		assert.Equal(t, "pi_123_secret", tx.ClientSecret())
		assert.Nil(t, tx.RefundAmount)
		assert.Equal(t, 2, tx.Version.Value)
	})
}

func TestPostgresPaymentMethodRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM payment_methods").
		WithArgs(testMethod.String(), testTenant.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "name", "type", "provider", "is_active", "created_at", "updated_at",
		}).AddRow(testMethod.String(), testTenant.String(), "COD", "cash_on_delivery", "manual", true, now, now))

	method, err := NewPostgresPaymentMethodRepository(db).FindByID(context.Background(), testTenant, testMethod)
	require.NoError(t, err)
	assert.True(t, method.IsDeferredSettlement())
	assert.Equal(t, domain.PaymentProviderManual, method.Provider)
}
