package infrastructure

import (
	"context"
	"sync"
	"testing"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProductRepository_ConcurrentReserve(t *testing.T) {
	repo := NewMemoryProductRepository()
	repo.Save(testProductEntity(10))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve(context.Background(), testTenant, testProduct, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.True(t, domain.IsKind(err, domain.ErrorKindInsufficientInventory))
			}
		}()
	}
	wg.Wait()

	product, err := repo.FindByID(context.Background(), testTenant, testProduct)
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), product.Inventory)
}

func TestMemoryProductRepository_TenantScope(t *testing.T) {
	repo := NewMemoryProductRepository()
	repo.Save(testProductEntity(10))

	product, err := repo.FindByID(context.Background(), testActor, testProduct)
	assert.NoError(t, err)
	assert.Nil(t, product)

	_, err = repo.Reserve(context.Background(), testActor, testProduct, 1)
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotFound))
}

func TestMemoryOrderRepository_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	order := newTestOrder(t)
	require.NoError(t, repo.Create(ctx, order))

	first, err := repo.FindByID(ctx, testTenant, order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, testTenant, order.ID)
	require.NoError(t, err)

	require.NoError(t, first.Confirm(testActor))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version.Value)

	require.NoError(t, second.Cancel(testActor, "late"))
	err = repo.Update(ctx, second)
	assert.True(t, domain.IsKind(err, domain.ErrorKindConflict))

	stored, err := repo.FindByID(ctx, testTenant, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
}

func TestMemoryPaymentTransactionRepository_SingleActivePerOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentTransactionRepository()
	order := newTestOrder(t)

	first := domain.NewPaymentTransaction(order, domain.PaymentProviderSandbox, testActor)
	require.NoError(t, repo.Create(ctx, first))

	duplicate := domain.NewPaymentTransaction(order, domain.PaymentProviderSandbox, testActor)
	assert.True(t, domain.IsKind(repo.Create(ctx, duplicate), domain.ErrorKindConflict))

	active, err := repo.FindActiveByOrderID(ctx, testTenant, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	require.NoError(t, active.MarkFailed(testActor, "card_declined"))
	require.NoError(t, repo.Update(ctx, active))

	active, err = repo.FindActiveByOrderID(ctx, testTenant, order.ID)
	assert.NoError(t, err)
	assert.Nil(t, active)
	assert.NoError(t, repo.Create(ctx, duplicate))
}
