package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/draftea/checkout-system/shared/saga"
	"github.com/draftea/checkout-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Checkout steps in execution order
const (
	StepCreateOrder         saga.Step = "create_order"
	StepReserveInventory    saga.Step = "reserve_inventory"
	StepCreatePaymentIntent saga.Step = "create_payment_intent"
	StepConfirmPayment      saga.Step = "confirm_payment"
	StepConfirmOrder        saga.Step = "confirm_order"
	StepSendNotification    saga.Step = "send_notification"
)

const compensationReason = "saga compensation"

// CheckoutCommand represents a full checkout request
type CheckoutCommand struct {
	TenantID           models.ID         `json:"-"`
	ActorID            models.ID         `json:"-"`
	CustomerID         models.ID         `json:"customer_id"`
	PaymentMethodID    models.ID         `json:"payment_method_id"`
	Items              []domain.LineItem `json:"items"`
	ShippingAddress    *string           `json:"shipping_address,omitempty"`
	PaymentMethodToken string            `json:"payment_method_token,omitempty"`
}

// CheckoutResponse is the saga outcome. On failure it is returned together
// with a *SagaExecutionError.
type CheckoutResponse struct {
	SagaID                      models.ID
	SagaStatus                  saga.Status
	Order                       *domain.Order
	Transaction                 *domain.PaymentTransaction
	ClientSecret                string
	RequiresPaymentConfirmation bool
}

// SagaExecutionError reports a checkout that failed after the order was
// created. Cause keeps the original error reachable for errors.Cause/As.
type SagaExecutionError struct {
	SagaID               models.ID
	Cause                error
	FailedStep           saga.Step
	Compensated          []saga.Step
	CompensationFailures []*CompensationError
}

func (e *SagaExecutionError) Error() string {
	msg := fmt.Sprintf("checkout saga failed at %s: %v", e.FailedStep, e.Cause)
	if len(e.CompensationFailures) > 0 {
		failed := make([]string, 0, len(e.CompensationFailures))
		for _, f := range e.CompensationFailures {
			failed = append(failed, f.Step.String())
		}
		msg += fmt.Sprintf(" (compensation failed for: %s)", strings.Join(failed, ", "))
	}
	return msg
}

func (e *SagaExecutionError) Unwrap() error {
	return e.Cause
}

// SagaEventData is the payload of saga lifecycle events
type SagaEventData struct {
	SagaID     models.ID `json:"saga_id"`
	OrderID    models.ID `json:"order_id"`
	Status     string    `json:"status"`
	Steps      []string  `json:"steps"`
	FailedStep string    `json:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// checkoutState is threaded through the steps. Steps return a modified copy.
type checkoutState struct {
	sagaID      models.ID
	cmd         *CheckoutCommand
	log         saga.Log
	order       *domain.Order
	transaction *domain.PaymentTransaction
}

type checkoutStep func(ctx context.Context, state checkoutState) (checkoutState, error)

// CheckoutSaga orchestrates order placement, payment and notification, and
// undoes completed steps in reverse when a later one fails.
type CheckoutSaga struct {
	createOrder    *CreateOrder
	createIntent   *CreatePaymentIntent
	confirmPayment *ConfirmPayment
	refundPayment  *RefundPayment
	inventory      *InventoryService
	orders         domain.OrderRepository
	transactions   domain.PaymentTransactionRepository
	providers      *ProviderRegistry
	publisher      events.Publisher
	notifier       domain.NotificationDispatcher
}

// NewCheckoutSaga creates a new CheckoutSaga
func NewCheckoutSaga(
	orders domain.OrderRepository,
	paymentMethods domain.PaymentMethodRepository,
	transactions domain.PaymentTransactionRepository,
	inventory *InventoryService,
	providers *ProviderRegistry,
	publisher events.Publisher,
	notifier domain.NotificationDispatcher,
) *CheckoutSaga {
	return &CheckoutSaga{
		createOrder:    NewCreateOrder(orders, paymentMethods, inventory, publisher, notifier),
		createIntent:   NewCreatePaymentIntent(orders, paymentMethods, transactions, providers, publisher),
		confirmPayment: NewConfirmPayment(orders, transactions, providers, publisher),
		refundPayment:  NewRefundPayment(transactions, providers, publisher),
		inventory:      inventory,
		orders:         orders,
		transactions:   transactions,
		providers:      providers,
		publisher:      publisher,
		notifier:       notifier,
	}
}

// Execute runs the checkout. Once the order exists the saga ends Completed,
// InProgress (awaiting payment confirmation) or fully compensated.
func (s *CheckoutSaga) Execute(ctx context.Context, cmd *CheckoutCommand) (*CheckoutResponse, error) {
	sagaID := models.GenerateUUID()
	ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(zap.String("saga_id", sagaID.String())))

	ctx, span := telemetry.StartSpan(ctx, "checkout.saga")
	defer span.End()
	span.SetAttributes(attribute.String("saga.id", sagaID.String()))

	start := time.Now()
	state := checkoutState{sagaID: sagaID, cmd: cmd, log: saga.NewLog()}

	state, err := s.run(ctx, state, StepCreateOrder, s.stepCreateOrder)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		s.recordOutcome(ctx, saga.StatusFailed, start)
		return nil, err
	}

	state, status, failedStep, err := s.proceed(ctx, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout saga compensated")
		response, sagaErr := s.fail(ctx, state, failedStep, err)
		s.recordOutcome(ctx, saga.StatusFailed, start)
		return response, sagaErr
	}

	s.recordOutcome(ctx, status, start)
	if status == saga.StatusCompleted {
		s.publishSagaEvent(ctx, events.SagaCompletedEvent, state, status, "", nil)
	}

	logging.FromContext(ctx).Info("checkout saga finished",
		zap.String("status", string(status)),
		zap.String("order_id", state.order.ID.String()),
		zap.Int("steps", state.log.Len()))

	return s.response(state, status), nil
}

// proceed runs every step after order creation. It reports the step that
// failed so compensation can name it.
func (s *CheckoutSaga) proceed(ctx context.Context, state checkoutState) (checkoutState, saga.Status, saga.Step, error) {
	var err error

	if state, err = s.run(ctx, state, StepReserveInventory, s.stepReserveInventory); err != nil {
		return state, saga.StatusFailed, StepReserveInventory, err
	}

	if state.order.Status != domain.OrderStatusPendingPayment {
		// deferred settlement, nothing to pay up front
		return state, saga.StatusCompleted, "", nil
	}

	if state, err = s.run(ctx, state, StepCreatePaymentIntent, s.stepCreatePaymentIntent); err != nil {
		return state, saga.StatusFailed, StepCreatePaymentIntent, err
	}

	if state.cmd.PaymentMethodToken == "" || state.transaction.Status != domain.PaymentStatusProcessing {
		return state, saga.StatusInProgress, "", nil
	}

	if state, err = s.run(ctx, state, StepConfirmPayment, s.stepConfirmPayment); err != nil {
		return state, saga.StatusFailed, StepConfirmPayment, err
	}
	if state.transaction.Status != domain.PaymentStatusSucceeded {
		// customer action pending
		return state, saga.StatusInProgress, "", nil
	}

	if state, err = s.run(ctx, state, StepConfirmOrder, s.stepConfirmOrder); err != nil {
		return state, saga.StatusFailed, StepConfirmOrder, err
	}

	if state, err = s.run(ctx, state, StepSendNotification, s.stepSendNotification); err != nil {
		return state, saga.StatusFailed, StepSendNotification, err
	}

	return state, saga.StatusCompleted, "", nil
}

// run executes one step, appending it to the log only on success. A panic
// inside the step is turned into an error.
func (s *CheckoutSaga) run(ctx context.Context, state checkoutState, step saga.Step, fn checkoutStep) (next checkoutState, err error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.saga."+step.String())
	defer span.End()

	logger := logging.FromContext(ctx).With(zap.String("step", step.String()))
	logger.Debug("saga_step_started")

	defer func() {
		if r := recover(); r != nil {
			next = state
			err = errors.Errorf("step %s panicked: %v", step, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("saga_step_failed", zap.Error(err))
		}
	}()

	next, err = fn(ctx, state)
	if err != nil {
		return next, err
	}

	next.log = next.log.Append(step)
	logger.Info("saga_step_completed", stateFields(next)...)
	return next, nil
}

func (s *CheckoutSaga) stepCreateOrder(ctx context.Context, state checkoutState) (checkoutState, error) {
	order, err := s.createOrder.Execute(ctx, &CreateOrderCommand{
		TenantID:        state.cmd.TenantID,
		ActorID:         state.cmd.ActorID,
		CustomerID:      state.cmd.CustomerID,
		PaymentMethodID: state.cmd.PaymentMethodID,
		Items:           state.cmd.Items,
		ShippingAddress: state.cmd.ShippingAddress,
	})
	if err != nil {
		return state, err
	}
	state.order = order
	return state, nil
}

// stepReserveInventory records the reservation made while creating the order
func (s *CheckoutSaga) stepReserveInventory(ctx context.Context, state checkoutState) (checkoutState, error) {
	s.inventory.PublishReserved(ctx, state.order)
	return state, nil
}

func (s *CheckoutSaga) stepCreatePaymentIntent(ctx context.Context, state checkoutState) (checkoutState, error) {
	tx, err := s.createIntent.Execute(ctx, &CreatePaymentIntentCommand{
		TenantID: state.cmd.TenantID,
		ActorID:  state.cmd.ActorID,
		OrderID:  state.order.ID,
	})
	if tx != nil {
		state.transaction = tx
	}
	if err != nil {
		return state, err
	}
	if tx.Status == domain.PaymentStatusFailed {
		return state, domain.NewGatewayError("payment intent failed: %s", tx.FailureReason)
	}
	return state, nil
}

func (s *CheckoutSaga) stepConfirmPayment(ctx context.Context, state checkoutState) (checkoutState, error) {
	tx, err := s.confirmPayment.Execute(ctx, &ConfirmPaymentCommand{
		TenantID:           state.cmd.TenantID,
		ActorID:            state.cmd.ActorID,
		TransactionID:      state.transaction.ID,
		PaymentMethodToken: state.cmd.PaymentMethodToken,
	})
	if tx != nil {
		state.transaction = tx
	}
	if tx != nil && tx.Status == domain.PaymentStatusSucceeded {
		// money moved; confirm_order retries whatever was not stored
		if err != nil {
			logging.FromContext(ctx).Warn("capture bookkeeping deferred to next step", zap.Error(err))
		}
		return state, nil
	}
	if err != nil {
		return state, err
	}
	if tx.Status == domain.PaymentStatusFailed {
		return state, domain.NewGatewayError("payment confirmation failed: %s", tx.FailureReason)
	}
	return state, nil
}

func (s *CheckoutSaga) stepConfirmOrder(ctx context.Context, state checkoutState) (checkoutState, error) {
	if err := s.recordCapture(ctx, state); err != nil {
		return state, err
	}
	if err := confirmOrder(ctx, s.orders, s.publisher, state.cmd.TenantID, state.order.ID, state.cmd.ActorID); err != nil {
		return state, err
	}

	order, err := s.orders.FindByID(ctx, state.cmd.TenantID, state.order.ID)
	if err != nil {
		return state, errors.Wrap(err, "failed to reload order")
	}
	if order == nil {
		return state, domain.NewNotFoundError("order %s not found", state.order.ID)
	}
	state.order = order
	return state, nil
}

// recordCapture stores a capture that confirm_payment could not save. The
// order is only confirmed once the payment row says Succeeded.
func (s *CheckoutSaga) recordCapture(ctx context.Context, state checkoutState) error {
	stored, err := s.loadTransaction(ctx, state)
	if err != nil {
		return err
	}
	if !stored.IsActive() {
		return nil
	}

	if err := s.transactions.Update(ctx, state.transaction); err != nil {
		return errors.Wrap(err, "failed to record captured payment")
	}
	publishBestEffort(ctx, s.publisher, state.transaction.Events()...)
	state.transaction.ClearEvents()
	return nil
}

func (s *CheckoutSaga) stepSendNotification(ctx context.Context, state checkoutState) (checkoutState, error) {
	dispatchNotification(ctx, s.notifier, domain.NewOrderNotification(domain.NotificationOrderConfirmed, state.order))
	return state, nil
}

func (s *CheckoutSaga) response(state checkoutState, status saga.Status) *CheckoutResponse {
	response := &CheckoutResponse{
		SagaID:      state.sagaID,
		SagaStatus:  status,
		Order:       state.order,
		Transaction: state.transaction,
	}
	if status == saga.StatusInProgress && state.transaction != nil {
		response.ClientSecret = state.transaction.ClientSecret()
		response.RequiresPaymentConfirmation = true
	}
	return response
}

func (s *CheckoutSaga) recordOutcome(ctx context.Context, status saga.Status, start time.Time) {
	attrs := attribute.String("status", string(status))
	telemetry.RecordCounter(ctx, "checkout_saga_total", "Checkout sagas by final status", 1, attrs)
	telemetry.RecordHistogram(ctx, "checkout_saga_duration_seconds", "Checkout saga duration", time.Since(start).Seconds(), attrs)
}

func (s *CheckoutSaga) publishSagaEvent(ctx context.Context, eventType string, state checkoutState, status saga.Status, failedStep saga.Step, cause error) {
	data := SagaEventData{
		SagaID:     state.sagaID,
		OrderID:    state.order.ID,
		Status:     string(status),
		Steps:      stepNames(state.log.Steps()),
		FailedStep: failedStep.String(),
	}
	if cause != nil {
		data.Error = cause.Error()
	}

	publishBestEffort(ctx, s.publisher, events.NewEvent(state.sagaID, eventType, data).WithTenant(state.cmd.TenantID))
}

func stateFields(state checkoutState) []zap.Field {
	fields := []zap.Field{}
	if state.order != nil {
		fields = append(fields, zap.String("order_id", state.order.ID.String()))
	}
	if state.transaction != nil {
		fields = append(fields, zap.String("transaction_id", state.transaction.ID.String()))
	}
	return fields
}
