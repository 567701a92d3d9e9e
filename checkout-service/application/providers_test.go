package application

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/checkout-service/infrastructure"
	"github.com/draftea/checkout-system/checkout-service/mocks"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func TestProviderRegistry(t *testing.T) {
	gateway := mocks.NewMockGateway(t)
	registry := NewProviderRegistry(domain.NewGatewayProvider(domain.PaymentProviderSandbox, gateway))

	tests := []struct {
		name         string
		method       *domain.PaymentMethod
		expectedKind domain.ProviderKind
		expectedName domain.PaymentProvider
		expectedErr  bool
	}{
		{
			name:         "card through gateway",
			method:       testPaymentMethod(testCardMethodID, domain.PaymentMethodTypeCreditCard, domain.PaymentProviderSandbox),
			expectedKind: domain.ProviderKindGateway,
			expectedName: domain.PaymentProviderSandbox,
		},
		{
			name:         "cash on delivery settles locally whatever the provider",
			method:       testPaymentMethod(testCODMethodID, domain.PaymentMethodTypeCashOnDelivery, domain.PaymentProviderStripe),
			expectedKind: domain.ProviderKindLocalSettlement,
			expectedName: domain.PaymentProviderManual,
		},
		{
			name:         "manual bank transfer",
			method:       testPaymentMethod(testBankMethodID, domain.PaymentMethodTypeBankTransfer, domain.PaymentProviderManual),
			expectedKind: domain.ProviderKindLocalSettlement,
			expectedName: domain.PaymentProviderManual,
		},
		{
			name:        "provider not configured",
			method:      testPaymentMethod(testCardMethodID, domain.PaymentMethodTypeCreditCard, domain.PaymentProviderStripe),
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := registry.ForMethod(tt.method)
			if tt.expectedErr {
				assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedKind, provider.Kind())
			assert.Equal(t, tt.expectedName, provider.Name())
		})
	}
}

func TestInventoryService_ReleaseLinesKeepsGoing(t *testing.T) {
	products := mocks.NewMockProductRepository(t)
	products.EXPECT().Release(mock.Anything, testTenantID, testProductA, int64(1)).Return(nil, errors.New("timeout")).Once()
	products.EXPECT().Release(mock.Anything, testTenantID, testProductB, int64(2)).Return(testProduct(testProductB, 3), nil).Once()
	products.EXPECT().Release(mock.Anything, testTenantID, testProductP, int64(3)).Return(nil, domain.NewNotFoundError("gone")).Once()

	err := NewInventoryService(products, nil).ReleaseLines(context.Background(), testTenantID, []InventoryLine{
		{ProductID: testProductA, Quantity: 1},
		{ProductID: testProductB, Quantity: 2},
		{ProductID: testProductP, Quantity: 3},
	})

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestInventoryService_ReserveRejectsNonPositiveQuantity(t *testing.T) {
	products := mocks.NewMockProductRepository(t)
	products.EXPECT().Reserve(mock.Anything, testTenantID, testProductA, int64(1)).Return(testProduct(testProductA, 4), nil).Once()
	products.EXPECT().Release(mock.Anything, testTenantID, testProductA, int64(1)).Return(testProduct(testProductA, 5), nil).Once()

	err := NewInventoryService(products, nil).ReserveLines(context.Background(), testTenantID, []InventoryLine{
		{ProductID: testProductA, Quantity: 1},
		{ProductID: testProductB, Quantity: 0},
	})

	assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
}

func TestInventoryService_LookupProductsReadsThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	catalog := mocks.NewMockProductRepository(t)
	catalog.EXPECT().FindByID(mock.Anything, testTenantID, testProductA).Return(testProduct(testProductA, 5), nil).Once()
	catalog.EXPECT().FindByID(mock.Anything, testTenantID, testProductB).Return(nil, nil).Twice()

	products := infrastructure.NewCachedProductRepository(catalog, client, time.Minute, zaptest.NewLogger(t))
	inventory := NewInventoryService(products, nil)
	ctx := context.Background()

	lines := []InventoryLine{{ProductID: testProductA, Quantity: 1}, {ProductID: testProductA, Quantity: 2}}
	require.NoError(t, inventory.LookupProducts(ctx, testTenantID, lines))
	require.NoError(t, inventory.LookupProducts(ctx, testTenantID, lines))

	missing := []InventoryLine{{ProductID: testProductB, Quantity: 1}}
	for i := 0; i < 2; i++ {
		err := inventory.LookupProducts(ctx, testTenantID, missing)
		assert.True(t, domain.IsKind(err, domain.ErrorKindNotFound))
	}
}
