package infrastructure

import (
	"context"
	"sync"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
)

// MemoryProductRepository keeps products in process memory. Reservations are
// serialised by a single mutex, which is the in-memory equivalent of the row
// lock taken by the Postgres implementation.
type MemoryProductRepository struct {
	mu       sync.Mutex
	products map[models.ID]*domain.Product
}

// NewMemoryProductRepository creates an empty product store
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[models.ID]*domain.Product)}
}

// Save inserts or replaces a product
func (r *MemoryProductRepository) Save(product *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product.Clone()
}

func (r *MemoryProductRepository) FindByID(_ context.Context, tenantID, productID models.ID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok || product.TenantID != tenantID {
		return nil, nil
	}
	return product.Clone(), nil
}

func (r *MemoryProductRepository) Reserve(_ context.Context, tenantID, productID models.ID, quantity int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok || product.TenantID != tenantID {
		return nil, domain.NewNotFoundError("product %s not found", productID)
	}

	candidate := product.Clone()
	if err := candidate.Reserve(quantity); err != nil {
		return nil, err
	}
	candidate.Version = candidate.Version.Update()
	r.products[productID] = candidate

	return candidate.Clone(), nil
}

func (r *MemoryProductRepository) Release(_ context.Context, tenantID, productID models.ID, quantity int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok || product.TenantID != tenantID {
		return nil, domain.NewNotFoundError("product %s not found", productID)
	}

	candidate := product.Clone()
	if err := candidate.Release(quantity); err != nil {
		return nil, err
	}
	candidate.Version = candidate.Version.Update()
	r.products[productID] = candidate

	return candidate.Clone(), nil
}

// MemoryOrderRepository keeps orders in process memory
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[models.ID]*domain.Order
}

// NewMemoryOrderRepository creates an empty order store
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[models.ID]*domain.Order)}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.NewConflictError("order %s already exists", order.ID)
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok || stored.TenantID != order.TenantID {
		return domain.NewNotFoundError("order %s not found", order.ID)
	}
	if stored.Version.Value != order.Version.Value {
		return domain.NewConflictError("order %s was modified concurrently", order.ID)
	}

	order.Version = order.Version.Update()
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, tenantID, orderID models.ID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok || order.TenantID != tenantID {
		return nil, nil
	}
	return order.Clone(), nil
}

// MemoryPaymentMethodRepository keeps payment methods in process memory
type MemoryPaymentMethodRepository struct {
	mu      sync.RWMutex
	methods map[models.ID]*domain.PaymentMethod
}

// NewMemoryPaymentMethodRepository creates an empty payment method store
func NewMemoryPaymentMethodRepository() *MemoryPaymentMethodRepository {
	return &MemoryPaymentMethodRepository{methods: make(map[models.ID]*domain.PaymentMethod)}
}

// Save inserts or replaces a payment method
func (r *MemoryPaymentMethodRepository) Save(method *domain.PaymentMethod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := *method
	r.methods[method.ID] = &m
}

func (r *MemoryPaymentMethodRepository) FindByID(_ context.Context, tenantID, paymentMethodID models.ID) (*domain.PaymentMethod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	method, ok := r.methods[paymentMethodID]
	if !ok || method.TenantID != tenantID {
		return nil, nil
	}
	m := *method
	return &m, nil
}

// MemoryPaymentTransactionRepository keeps payment transactions in process
// memory and enforces at most one active transaction per order.
type MemoryPaymentTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[models.ID]*domain.PaymentTransaction
}

// NewMemoryPaymentTransactionRepository creates an empty transaction store
func NewMemoryPaymentTransactionRepository() *MemoryPaymentTransactionRepository {
	return &MemoryPaymentTransactionRepository{transactions: make(map[models.ID]*domain.PaymentTransaction)}
}

func (r *MemoryPaymentTransactionRepository) Create(_ context.Context, tx *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.ID]; exists {
		return domain.NewConflictError("payment transaction %s already exists", tx.ID)
	}
	if tx.IsActive() {
		if active := r.findActive(tx.TenantID, tx.OrderID); active != nil {
			return domain.NewConflictError("order %s already has an active payment transaction", tx.OrderID)
		}
	}

	r.transactions[tx.ID] = tx.Clone()
	return nil
}

func (r *MemoryPaymentTransactionRepository) Update(_ context.Context, tx *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.transactions[tx.ID]
	if !ok || stored.TenantID != tx.TenantID {
		return domain.NewNotFoundError("payment transaction %s not found", tx.ID)
	}
	if stored.Version.Value != tx.Version.Value {
		return domain.NewConflictError("payment transaction %s was modified concurrently", tx.ID)
	}

	tx.Version = tx.Version.Update()
	r.transactions[tx.ID] = tx.Clone()
	return nil
}

func (r *MemoryPaymentTransactionRepository) FindByID(_ context.Context, tenantID, transactionID models.ID) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[transactionID]
	if !ok || tx.TenantID != tenantID {
		return nil, nil
	}
	return tx.Clone(), nil
}

func (r *MemoryPaymentTransactionRepository) FindActiveByOrderID(_ context.Context, tenantID, orderID models.ID) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if active := r.findActive(tenantID, orderID); active != nil {
		return active.Clone(), nil
	}
	return nil, nil
}

func (r *MemoryPaymentTransactionRepository) findActive(tenantID, orderID models.ID) *domain.PaymentTransaction {
	for _, tx := range r.transactions {
		if tx.TenantID == tenantID && tx.OrderID == orderID && tx.IsActive() {
			return tx
		}
	}
	return nil
}
