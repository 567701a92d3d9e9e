package application

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/checkout-service/infrastructure"
	"github.com/draftea/checkout-system/checkout-service/mocks"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/saga"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckoutSaga_CardCheckoutCompletes(t *testing.T) {
	f := newCheckoutFixture(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 3, 2500)))
	require.NoError(t, err)

	assert.Equal(t, saga.StatusCompleted, response.SagaStatus)
	assert.Equal(t, usd(7500), response.Order.Total)
	assert.Equal(t, domain.OrderStatusConfirmed, response.Order.Status)
	require.NotNil(t, response.Transaction)
	assert.Equal(t, domain.PaymentStatusSucceeded, response.Transaction.Status)
	assert.False(t, response.RequiresPaymentConfirmation)
	assert.Equal(t, int64(7), f.stock(t, testProductP))

	stored, err := f.orders.FindByID(context.Background(), testTenantID, response.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)

	assert.Equal(t, []domain.NotificationKind{domain.NotificationOrderCreated, domain.NotificationOrderConfirmed}, f.notifier.kinds())
	assert.Equal(t, []string{
		events.OrderCreatedEvent,
		events.InventoryReservedEvent,
		events.PaymentIntentCreatedEvent,
		events.PaymentSucceededEvent,
		events.OrderConfirmedEvent,
		events.SagaCompletedEvent,
	}, f.publisher.types())
	assert.Equal(t, 6, f.logs.FilterMessage("saga_step_completed").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("payment intent created").FilterField(zap.String("provider_kind", "gateway")).Len())
}

func TestCheckoutSaga_DeclinedCardIsCompensated(t *testing.T) {
	f := newCheckoutFixture(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, infrastructure.SandboxTokenDecline, line(testProductP, 3, 2500)))
	require.Error(t, err)

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StepConfirmPayment, sagaErr.FailedStep)
	assert.Equal(t, []saga.Step{StepCreatePaymentIntent, StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)
	assert.Empty(t, sagaErr.CompensationFailures)
	assert.True(t, domain.IsKind(err, domain.ErrorKindGateway))
	assert.Contains(t, err.Error(), "card_declined")

	require.NotNil(t, response)
	assert.Equal(t, saga.StatusFailed, response.SagaStatus)
	assert.Equal(t, domain.OrderStatusCancelled, response.Order.Status)
	assert.Equal(t, domain.PaymentStatusFailed, response.Transaction.Status)
	assert.Equal(t, "card_declined", response.Transaction.FailureReason)
	assert.Equal(t, int64(10), f.stock(t, testProductP))

	assert.Contains(t, f.publisher.types(), events.SagaFailedEvent)
	assert.Contains(t, f.publisher.types(), events.SagaCompensatedEvent)
	assert.Contains(t, f.publisher.types(), events.InventoryReleasedEvent)
	assert.Equal(t, 3, f.logs.FilterMessage("saga_compensated").Len())
}

func TestCheckoutSaga_MultiItemReservationIsAtomic(t *testing.T) {
	f := newCheckoutFixture(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa",
		line(testProductA, 2, 1000),
		line(testProductB, 3, 1000),
	))

	assert.Nil(t, response)
	assert.True(t, domain.IsKind(err, domain.ErrorKindInsufficientInventory))
	var sagaErr *SagaExecutionError
	assert.False(t, errors.As(err, &sagaErr), "nothing to compensate before the order exists")

	assert.Equal(t, int64(5), f.stock(t, testProductA))
	assert.Equal(t, int64(1), f.stock(t, testProductB))
	assert.Empty(t, f.publisher.types())
}

func TestCheckoutSaga_WithoutTokenAwaitsConfirmation(t *testing.T) {
	f := newCheckoutFixture(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "", line(testProductP, 1, 2500)))
	require.NoError(t, err)

	assert.Equal(t, saga.StatusInProgress, response.SagaStatus)
	assert.True(t, response.RequiresPaymentConfirmation)
	assert.NotEmpty(t, response.ClientSecret)
	assert.Equal(t, domain.OrderStatusPendingPayment, response.Order.Status)
	assert.Equal(t, domain.PaymentStatusProcessing, response.Transaction.Status)

	// a retry converges on the same transaction
	again, err := NewCreatePaymentIntent(f.orders, f.methods, f.transactions, f.providers(), f.publisher).
		Execute(f.ctx, &CreatePaymentIntentCommand{TenantID: testTenantID, ActorID: testActorID, OrderID: response.Order.ID})
	require.NoError(t, err)
	assert.Equal(t, response.Transaction.ID, again.ID)

	confirmed, err := NewConfirmPayment(f.orders, f.transactions, f.providers(), f.publisher).
		Execute(f.ctx, &ConfirmPaymentCommand{TenantID: testTenantID, ActorID: testActorID, TransactionID: again.ID, PaymentMethodToken: "tok_visa"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, confirmed.Status)

	order, err := f.orders.FindByID(context.Background(), testTenantID, response.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestCheckoutSaga_RequiresActionStaysInProgress(t *testing.T) {
	f := newCheckoutFixture(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, infrastructure.SandboxTokenRequiresAction, line(testProductP, 1, 2500)))
	require.NoError(t, err)

	assert.Equal(t, saga.StatusInProgress, response.SagaStatus)
	assert.True(t, response.RequiresPaymentConfirmation)
	assert.Equal(t, domain.PaymentStatusProcessing, response.Transaction.Status)
	assert.Equal(t, int64(9), f.stock(t, testProductP))
}

func TestCheckoutSaga_CashOnDeliverySkipsPayment(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway = mocks.NewMockGateway(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCODMethodID, "", line(testProductP, 2, 2500)))
	require.NoError(t, err)

	assert.Equal(t, saga.StatusCompleted, response.SagaStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, response.Order.Status)
	assert.Nil(t, response.Transaction)
	assert.Equal(t, int64(8), f.stock(t, testProductP))
	assert.NotContains(t, f.publisher.types(), events.PaymentIntentCreatedEvent)
}

func TestCheckoutSaga_ManualSettlementConfirmsWithoutGateway(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway = mocks.NewMockGateway(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testBankMethodID, "bank-ref-42", line(testProductP, 1, 2500)))
	require.NoError(t, err)

	assert.Equal(t, saga.StatusCompleted, response.SagaStatus)
	assert.Equal(t, domain.PaymentProviderManual, response.Transaction.Provider)
	assert.Equal(t, domain.PaymentStatusSucceeded, response.Transaction.Status)
	assert.Equal(t, domain.OrderStatusConfirmed, response.Order.Status)
}

// rejectConfirmRepository fails every attempt to store a confirmed order
type rejectConfirmRepository struct {
	*infrastructure.MemoryOrderRepository
}

func (r rejectConfirmRepository) Update(ctx context.Context, order *domain.Order) error {
	if order.Status == domain.OrderStatusConfirmed {
		return errors.New("database unavailable")
	}
	return r.MemoryOrderRepository.Update(ctx, order)
}

func TestCheckoutSaga_CapturedPaymentIsRefunded(t *testing.T) {
	f := newCheckoutFixture(t)
	f.orders = rejectConfirmRepository{infrastructure.NewMemoryOrderRepository()}

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 3, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StepConfirmOrder, sagaErr.FailedStep)
	assert.Equal(t, []saga.Step{StepConfirmPayment, StepCreatePaymentIntent, StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)

	assert.Equal(t, domain.PaymentStatusRefunded, response.Transaction.Status)
	require.NotNil(t, response.Transaction.RefundAmount)
	assert.Equal(t, usd(7500), *response.Transaction.RefundAmount)
	assert.Equal(t, compensationReason, response.Transaction.RefundReason)
	assert.Equal(t, domain.OrderStatusCancelled, response.Order.Status)
	assert.Equal(t, int64(10), f.stock(t, testProductP))
}

func TestCheckoutSaga_PanicInStepIsCompensated(t *testing.T) {
	f := newCheckoutFixture(t)
	f.notifier.panicOn = domain.NotificationOrderConfirmed

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 3, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StepSendNotification, sagaErr.FailedStep)
	assert.Contains(t, sagaErr.Cause.Error(), "panicked")
	assert.Equal(t, []saga.Step{StepConfirmOrder, StepConfirmPayment, StepCreatePaymentIntent, StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)

	assert.Equal(t, domain.OrderStatusCancelled, response.Order.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, response.Transaction.Status)
	assert.Equal(t, int64(10), f.stock(t, testProductP))
}

// voidFailingGateway is the sandbox with a provider outage on void
type voidFailingGateway struct {
	*infrastructure.SandboxGateway
}

func (g voidFailingGateway) VoidIntent(context.Context, string) domain.GatewayResult {
	return domain.FailedResult("provider unavailable")
}

func TestCheckoutSaga_CompensationContinuesAfterFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway = voidFailingGateway{infrastructure.NewSandboxGateway()}

	_, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, infrastructure.SandboxTokenDecline, line(testProductP, 3, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	require.Len(t, sagaErr.CompensationFailures, 1)
	assert.Equal(t, StepCreatePaymentIntent, sagaErr.CompensationFailures[0].Step)
	assert.Contains(t, sagaErr.CompensationFailures[0].Error(), "provider unavailable")
	assert.Equal(t, []saga.Step{StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)
	assert.Contains(t, err.Error(), "compensation failed for: create_payment_intent")

	assert.Equal(t, int64(10), f.stock(t, testProductP))
	assert.Equal(t, 1, f.logs.FilterMessage("saga_compensation_failed").Len())
}

// rejectPaymentStatusRepository fails every attempt to store a payment in
// the given status
type rejectPaymentStatusRepository struct {
	*infrastructure.MemoryPaymentTransactionRepository
	status domain.PaymentStatus
}

func (r rejectPaymentStatusRepository) Update(ctx context.Context, tx *domain.PaymentTransaction) error {
	if tx.Status == r.status {
		return errors.New("database unavailable")
	}
	return r.MemoryPaymentTransactionRepository.Update(ctx, tx)
}

func TestCheckoutSaga_UnstoredCaptureIsRefunded(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions = rejectPaymentStatusRepository{infrastructure.NewMemoryPaymentTransactionRepository(), domain.PaymentStatusSucceeded}

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 3, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StepConfirmOrder, sagaErr.FailedStep)
	assert.Contains(t, sagaErr.Cause.Error(), "failed to record captured payment")
	assert.Equal(t, []saga.Step{StepConfirmPayment, StepCreatePaymentIntent, StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)
	assert.Empty(t, sagaErr.CompensationFailures)

	stored, err := f.transactions.FindByID(context.Background(), testTenantID, response.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, stored.Status)
	require.NotNil(t, stored.RefundAmount)
	assert.Equal(t, usd(7500), *stored.RefundAmount)

	assert.Equal(t, domain.OrderStatusCancelled, response.Order.Status)
	assert.Equal(t, int64(10), f.stock(t, testProductP))
	assert.Equal(t, 1, f.logs.FilterMessage("payment captured but not stored").Len())

	failed := f.logs.FilterMessage("checkout saga failed, compensating").All()
	require.Len(t, failed, 1)
	assert.Equal(t, StepConfirmPayment.String(), failed[0].ContextMap()["last_completed_step"])
}

func TestCheckoutSaga_UnstoredIntentIsVoided(t *testing.T) {
	f := newCheckoutFixture(t)
	f.transactions = rejectPaymentStatusRepository{infrastructure.NewMemoryPaymentTransactionRepository(), domain.PaymentStatusProcessing}

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 3, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StepCreatePaymentIntent, sagaErr.FailedStep)
	assert.Equal(t, []saga.Step{StepCreatePaymentIntent, StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)
	assert.Empty(t, sagaErr.CompensationFailures)

	require.NotNil(t, response.Transaction)
	assert.Equal(t, domain.PaymentStatusCancelled, response.Transaction.Status)
	require.NotEmpty(t, response.Transaction.ProviderIntentID)
	assert.Equal(t, domain.GatewayStatusCanceled, f.gateway.GetStatus(context.Background(), response.Transaction.ProviderIntentID).Status)
	assert.Equal(t, domain.OrderStatusCancelled, response.Order.Status)
	assert.Equal(t, int64(10), f.stock(t, testProductP))
}

func TestCheckoutSaga_FailedVoidLeavesPaymentInFlight(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway = voidFailingGateway{infrastructure.NewSandboxGateway()}
	f.transactions = rejectPaymentStatusRepository{infrastructure.NewMemoryPaymentTransactionRepository(), domain.PaymentStatusProcessing}

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 3, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	require.Len(t, sagaErr.CompensationFailures, 1)
	assert.Equal(t, StepCreatePaymentIntent, sagaErr.CompensationFailures[0].Step)
	assert.Equal(t, []saga.Step{StepReserveInventory, StepCreateOrder}, sagaErr.Compensated)

	stored, err := f.transactions.FindByID(context.Background(), testTenantID, response.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
}

func TestCheckoutSaga_SettlingPaymentStaysInProgress(t *testing.T) {
	f := newCheckoutFixture(t)

	response, err := f.saga().Execute(f.ctx, checkoutCommand(testCardMethodID, infrastructure.SandboxTokenProcessing, line(testProductP, 2, 2500)))
	require.NoError(t, err)

	assert.Equal(t, saga.StatusInProgress, response.SagaStatus)
	assert.Equal(t, domain.PaymentStatusProcessing, response.Transaction.Status)
	assert.Empty(t, response.Transaction.FailureReason)
	assert.Equal(t, domain.OrderStatusPendingPayment, response.Order.Status)
	assert.Equal(t, int64(8), f.stock(t, testProductP))

	synced, err := NewGetPaymentStatus(f.orders, f.transactions, f.providers(), f.publisher).
		Execute(f.ctx, &GetPaymentStatusQuery{TenantID: testTenantID, ActorID: testActorID, TransactionID: response.Transaction.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, synced.Status)

	order, err := f.orders.FindByID(context.Background(), testTenantID, response.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestCheckoutSaga_CancelledContextStillCompensates(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	_, err := f.saga().Execute(ctx, checkoutCommand(testCardMethodID, infrastructure.SandboxTokenDecline, line(testProductP, 4, 2500)))

	var sagaErr *SagaExecutionError
	require.True(t, errors.As(err, &sagaErr))
	assert.Empty(t, sagaErr.CompensationFailures)
	assert.Equal(t, int64(10), f.stock(t, testProductP))
}

func TestCheckoutSaga_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newCheckoutFixture(t)
	f.products.Save(testProduct(testProductP, 5))
	checkout := f.saga()

	var (
		wg        conc.WaitGroup
		completed int32
		rejected  int32
	)
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			response, err := checkout.Execute(f.ctx, checkoutCommand(testCardMethodID, "tok_visa", line(testProductP, 1, 2500)))
			switch {
			case err == nil && response.SagaStatus == saga.StatusCompleted:
				atomic.AddInt32(&completed, 1)
			case domain.IsKind(err, domain.ErrorKindInsufficientInventory):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected checkout outcome: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(5), atomic.LoadInt32(&completed))
	assert.Equal(t, int32(15), atomic.LoadInt32(&rejected))
	assert.Equal(t, int64(0), f.stock(t, testProductP))
}
