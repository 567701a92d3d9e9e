package application

import (
	"context"
	"fmt"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/saga"
	"github.com/draftea/checkout-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CompensationError is a step that could not be undone
type CompensationError struct {
	Step saga.Step
	Err  error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation for %s failed: %v", e.Step, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}

// fail compensates every logged step, most recent first. Compensation runs
// detached from the caller's cancellation so it always reaches the end.
func (s *CheckoutSaga) fail(ctx context.Context, state checkoutState, failedStep saga.Step, cause error) (*CheckoutResponse, error) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.FromContext(ctx)

	fields := append(stateFields(state),
		zap.String("failed_step", failedStep.String()),
		zap.Strings("completed_steps", stepNames(state.log.Steps())),
		zap.Error(cause))
	if last, ok := state.log.Last(); ok {
		fields = append(fields, zap.String("last_completed_step", last.String()))
	}
	logger.Warn("checkout saga failed, compensating", fields...)
	s.publishSagaEvent(ctx, events.SagaFailedEvent, state, saga.StatusFailed, failedStep, cause)

	sagaErr := &SagaExecutionError{
		SagaID:     state.sagaID,
		Cause:      cause,
		FailedStep: failedStep,
	}

	steps := state.log.Reverse()
	if leftSideEffects(state, failedStep) {
		steps = append([]saga.Step{failedStep}, steps...)
	}

	logger.Info("saga status changed", zap.String("status", string(saga.StatusCompensating)))
	for _, step := range steps {
		if err := s.compensate(ctx, state, step); err != nil {
			compErr := &CompensationError{Step: step, Err: err}
			sagaErr.CompensationFailures = append(sagaErr.CompensationFailures, compErr)
			logger.Error("saga_compensation_failed", zap.String("step", step.String()), zap.Error(err))
			telemetry.RecordCounter(ctx, "checkout_saga_compensation_failures_total",
				"Saga steps that could not be compensated", 1, attribute.String("step", step.String()))
			continue
		}
		sagaErr.Compensated = append(sagaErr.Compensated, step)
		logger.Info("saga_compensated", zap.String("step", step.String()))
	}
	logger.Info("saga status changed", zap.String("status", string(saga.StatusCompensated)))
	s.publishSagaEvent(ctx, events.SagaCompensatedEvent, state, saga.StatusCompensated, failedStep, cause)

	response := s.response(state, saga.StatusFailed)
	s.refreshResponse(ctx, response)
	return response, sagaErr
}

// leftSideEffects reports a failed step that still changed something outside
// the process: an intent created at the provider whose transaction was never
// stored as Processing.
func leftSideEffects(state checkoutState, failedStep saga.Step) bool {
	return failedStep == StepCreatePaymentIntent &&
		state.transaction != nil &&
		state.transaction.ProviderIntentID != "" &&
		state.transaction.IsActive()
}

// compensate undoes a single step. Panics are reported as errors.
func (s *CheckoutSaga) compensate(ctx context.Context, state checkoutState, step saga.Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("compensation for %s panicked: %v", step, r)
		}
	}()

	switch step {
	case StepSendNotification:
		return nil
	case StepConfirmOrder:
		return s.revertOrderConfirmation(ctx, state)
	case StepConfirmPayment:
		return s.refundCapturedPayment(ctx, state)
	case StepCreatePaymentIntent:
		return s.voidPaymentIntent(ctx, state)
	case StepReserveInventory:
		return s.releaseInventory(ctx, state)
	case StepCreateOrder:
		return s.cancelOrder(ctx, state)
	default:
		return errors.Errorf("unknown saga step %s", step)
	}
}

func (s *CheckoutSaga) revertOrderConfirmation(ctx context.Context, state checkoutState) error {
	order, err := s.loadOrder(ctx, state)
	if err != nil {
		return err
	}
	if err := order.RevertToPendingPayment(state.cmd.ActorID); err != nil {
		return err
	}
	return s.saveOrder(ctx, order)
}

// refundCapturedPayment gives the money back when the capture went through.
// A capture that was never stored is refunded from the saga's own copy.
func (s *CheckoutSaga) refundCapturedPayment(ctx context.Context, state checkoutState) error {
	tx, err := s.loadTransaction(ctx, state)
	if err != nil {
		return err
	}
	if tx.IsActive() && state.transaction.Status == domain.PaymentStatusSucceeded {
		tx = state.transaction
	}
	if tx.Status != domain.PaymentStatusSucceeded && tx.Status != domain.PaymentStatusPartiallyRefunded {
		logging.FromContext(ctx).Info("payment not captured, nothing to refund",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("status", string(tx.Status)))
		return nil
	}

	_, err = s.refundPayment.refund(ctx, tx, &RefundPaymentCommand{
		TenantID:      tx.TenantID,
		ActorID:       state.cmd.ActorID,
		TransactionID: tx.ID,
		Reason:        compensationReason,
	})
	return err
}

// voidPaymentIntent releases the authorization at the provider and then
// cancels the local transaction if it is still in flight. When the provider
// refuses the void the transaction is left in flight, so a later status sync
// records what the provider actually did with the money.
func (s *CheckoutSaga) voidPaymentIntent(ctx context.Context, state checkoutState) error {
	tx, err := s.loadTransaction(ctx, state)
	if err != nil {
		return err
	}

	switch tx.Status {
	case domain.PaymentStatusSucceeded, domain.PaymentStatusPartiallyRefunded,
		domain.PaymentStatusRefunded, domain.PaymentStatusCancelled:
		return nil
	}

	intentID := tx.ProviderIntentID
	if intentID == "" {
		intentID = state.transaction.ProviderIntentID
	}
	if intentID != "" {
		provider, err := s.providers.ByName(tx.Provider)
		if err != nil {
			return err
		}
		if gateway, ok := provider.Gateway(); ok {
			if result := gateway.VoidIntent(ctx, intentID); !result.Success {
				return domain.NewGatewayError("void intent failed: %s", result.ErrorMessage)
			}
		}
	}

	if !tx.IsActive() {
		return nil
	}
	tx.ProviderIntentID = intentID
	if err := tx.Cancel(state.cmd.ActorID, compensationReason); err != nil {
		return err
	}
	if err := s.transactions.Update(ctx, tx); err != nil {
		return errors.Wrap(err, "failed to update payment")
	}
	publishBestEffort(ctx, s.publisher, tx.Events()...)
	tx.ClearEvents()
	return nil
}

func (s *CheckoutSaga) releaseInventory(ctx context.Context, state checkoutState) error {
	if err := s.inventory.ReleaseLines(ctx, state.cmd.TenantID, OrderLines(state.order)); err != nil {
		return err
	}
	s.inventory.PublishReleased(ctx, state.order, compensationReason)
	return nil
}

func (s *CheckoutSaga) cancelOrder(ctx context.Context, state checkoutState) error {
	order, err := s.loadOrder(ctx, state)
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil
	}
	if err := order.Cancel(state.cmd.ActorID, compensationReason); err != nil {
		return err
	}
	return s.saveOrder(ctx, order)
}

func (s *CheckoutSaga) loadOrder(ctx context.Context, state checkoutState) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, state.cmd.TenantID, state.order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.NewNotFoundError("order %s not found", state.order.ID)
	}
	return order, nil
}

func (s *CheckoutSaga) saveOrder(ctx context.Context, order *domain.Order) error {
	if err := s.orders.Update(ctx, order); err != nil {
		return errors.Wrap(err, "failed to update order")
	}
	publishBestEffort(ctx, s.publisher, order.Events()...)
	order.ClearEvents()
	return nil
}

func (s *CheckoutSaga) loadTransaction(ctx context.Context, state checkoutState) (*domain.PaymentTransaction, error) {
	if state.transaction == nil {
		return nil, errors.New("no payment transaction recorded")
	}
	tx, err := s.transactions.FindByID(ctx, state.cmd.TenantID, state.transaction.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if tx == nil {
		return nil, domain.NewNotFoundError("payment %s not found", state.transaction.ID)
	}
	return tx, nil
}

// refreshResponse swaps in the compensated order and transaction so the
// caller sees their final state.
func (s *CheckoutSaga) refreshResponse(ctx context.Context, response *CheckoutResponse) {
	if response.Order != nil {
		if order, err := s.orders.FindByID(ctx, response.Order.TenantID, response.Order.ID); err == nil && order != nil {
			response.Order = order
		}
	}
	if response.Transaction != nil {
		if tx, err := s.transactions.FindByID(ctx, response.Transaction.TenantID, response.Transaction.ID); err == nil && tx != nil {
			response.Transaction = tx
		}
	}
}

func stepNames(steps []saga.Step) []string {
	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.String())
	}
	return names
}
