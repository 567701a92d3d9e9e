package application

import (
	"context"
	"sync"
	"testing"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/checkout-service/infrastructure"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testTenantID     = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0001")
	testActorID      = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0002")
	testCustomerID   = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0003")
	testProductA     = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0010")
	testProductB     = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0011")
	testProductP     = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0012")
	testCardMethodID = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0020")
	testCODMethodID  = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0021")
	testBankMethodID = models.ID("0b5c4d57-7f43-4f0a-9a2b-1a7c1d9e0022")
)

func usd(amount int64) models.Money {
	return models.NewMoney(amount, "USD")
}

func testProduct(id models.ID, inventory int64) *domain.Product {
	return &domain.Product{
		ID:         id,
		TenantID:   testTenantID,
		Name:       "Product " + id.String()[len(id)-2:],
		Inventory:  inventory,
		Price:      usd(2500),
		Timestamps: models.NewTimestamps(),
		Version:    models.NewVersion(),
	}
}

func testPaymentMethod(id models.ID, methodType domain.PaymentMethodType, provider domain.PaymentProvider) *domain.PaymentMethod {
	return &domain.PaymentMethod{
		ID:         id,
		TenantID:   testTenantID,
		Name:       string(methodType),
		Type:       methodType,
		Provider:   provider,
		IsActive:   true,
		Timestamps: models.NewTimestamps(),
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...*events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.EventType)
	}
	return out
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
	panicOn       domain.NotificationKind
}

func (n *recordingNotifier) Dispatch(_ context.Context, notification domain.Notification) error {
	if n.panicOn != "" && notification.Kind == n.panicOn {
		panic("notification queue exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(n.notifications))
	for _, notification := range n.notifications {
		out = append(out, notification.Kind)
	}
	return out
}

// checkoutFixture wires the saga against in-memory storage
type checkoutFixture struct {
	products     *infrastructure.MemoryProductRepository
	orders       domain.OrderRepository
	methods      *infrastructure.MemoryPaymentMethodRepository
	transactions domain.PaymentTransactionRepository
	gateway      domain.Gateway
	publisher    *recordingPublisher
	notifier     *recordingNotifier
	logs         *observer.ObservedLogs
	ctx          context.Context
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	f := &checkoutFixture{
		products:     infrastructure.NewMemoryProductRepository(),
		orders:       infrastructure.NewMemoryOrderRepository(),
		methods:      infrastructure.NewMemoryPaymentMethodRepository(),
		transactions: infrastructure.NewMemoryPaymentTransactionRepository(),
		gateway:      infrastructure.NewSandboxGateway(),
		publisher:    &recordingPublisher{},
		notifier:     &recordingNotifier{},
		logs:         logs,
		ctx:          logging.WithLogger(context.Background(), zap.New(core)),
	}

	f.products.Save(testProduct(testProductA, 5))
	f.products.Save(testProduct(testProductB, 1))
	f.products.Save(testProduct(testProductP, 10))
	f.methods.Save(testPaymentMethod(testCardMethodID, domain.PaymentMethodTypeCreditCard, domain.PaymentProviderSandbox))
	f.methods.Save(testPaymentMethod(testCODMethodID, domain.PaymentMethodTypeCashOnDelivery, domain.PaymentProviderManual))
	f.methods.Save(testPaymentMethod(testBankMethodID, domain.PaymentMethodTypeBankTransfer, domain.PaymentProviderManual))
	return f
}

func (f *checkoutFixture) providers() *ProviderRegistry {
	return NewProviderRegistry(domain.NewGatewayProvider(domain.PaymentProviderSandbox, f.gateway))
}

func (f *checkoutFixture) inventory() *InventoryService {
	return NewInventoryService(f.products, f.publisher)
}

func (f *checkoutFixture) saga() *CheckoutSaga {
	return NewCheckoutSaga(f.orders, f.methods, f.transactions, f.inventory(), f.providers(), f.publisher, f.notifier)
}

func (f *checkoutFixture) stock(t *testing.T, productID models.ID) int64 {
	t.Helper()
	product, err := f.products.FindByID(context.Background(), testTenantID, productID)
	if err != nil || product == nil {
		t.Fatalf("product %s not found: %v", productID, err)
	}
	return product.Inventory
}

func checkoutCommand(methodID models.ID, token string, items ...domain.LineItem) *CheckoutCommand {
	return &CheckoutCommand{
		TenantID:           testTenantID,
		ActorID:            testActorID,
		CustomerID:         testCustomerID,
		PaymentMethodID:    methodID,
		Items:              items,
		PaymentMethodToken: token,
	}
}

func line(productID models.ID, quantity, unitPrice int64) domain.LineItem {
	return domain.LineItem{ProductID: productID, Quantity: quantity, UnitPrice: usd(unitPrice)}
}
