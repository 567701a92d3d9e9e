package application

import (
	"context"
	"fmt"
	"time"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ConfirmPaymentCommand represents the command to capture a payment
type ConfirmPaymentCommand struct {
	TenantID           models.ID `json:"-"`
	ActorID            models.ID `json:"-"`
	TransactionID      models.ID `json:"-"`
	PaymentMethodToken string    `json:"payment_method_token"`
}

// ConfirmPayment use case
type ConfirmPayment struct {
	orders       domain.OrderRepository
	transactions domain.PaymentTransactionRepository
	providers    *ProviderRegistry
	publisher    events.Publisher
}

// NewConfirmPayment creates a new ConfirmPayment use case
func NewConfirmPayment(
	orders domain.OrderRepository,
	transactions domain.PaymentTransactionRepository,
	providers *ProviderRegistry,
	publisher events.Publisher,
) *ConfirmPayment {
	return &ConfirmPayment{
		orders:       orders,
		transactions: transactions,
		providers:    providers,
		publisher:    publisher,
	}
}

// Execute confirms the payment with its provider. A gateway decline leaves
// the transaction Failed and is not returned as an error. A provider that
// still needs customer action or is still settling leaves it Processing.
//
// The transaction is claimed with a version-checked write before the gateway
// is called, so only one confirmation reaches the provider at a time. When the
// capture succeeds but cannot be stored, the Succeeded transaction is returned
// together with the error so the caller can still refund it.
func (uc *ConfirmPayment) Execute(ctx context.Context, cmd *ConfirmPaymentCommand) (*domain.PaymentTransaction, error) {
	tx, err := uc.transactions.FindByID(ctx, cmd.TenantID, cmd.TransactionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if tx == nil {
		return nil, domain.NewNotFoundError("payment %s not found", cmd.TransactionID)
	}
	if !tx.IsActive() {
		return nil, domain.NewInvalidStateError("payment %s cannot be confirmed from status %s", tx.ID, tx.Status)
	}

	provider, err := uc.providers.ByName(tx.Provider)
	if err != nil {
		return nil, err
	}

	if err := tx.ClaimConfirmation(cmd.ActorID, time.Now()); err != nil {
		return nil, err
	}
	if err := uc.transactions.Update(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "failed to claim payment")
	}

	if gateway, ok := provider.Gateway(); ok {
		gatewayCtx := domain.WithIdempotencyKey(ctx, fmt.Sprintf("%s-confirm-%d", tx.ID, tx.Version.Value))
		result := gateway.Confirm(gatewayCtx, tx.ProviderReference(), cmd.PaymentMethodToken)
		switch {
		case result.Success:
			err = tx.MarkSucceeded(cmd.ActorID, &result)
		case result.InFlight():
			err = tx.AwaitProvider(cmd.ActorID, &result)
		default:
			err = tx.MarkFailed(cmd.ActorID, result.ErrorMessage)
		}
	} else {
		err = tx.MarkSucceeded(cmd.ActorID, nil)
	}
	if err != nil {
		return nil, err
	}

	if err := uc.transactions.Update(ctx, tx); err != nil {
		if tx.Status == domain.PaymentStatusSucceeded {
			logging.FromContext(ctx).Error("payment captured but not stored",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("provider_reference", tx.ProviderReference()),
				zap.Error(err))
			return tx, errors.Wrap(err, "failed to update captured payment")
		}
		return nil, errors.Wrap(err, "failed to update payment")
	}

	publishBestEffort(ctx, uc.publisher, tx.Events()...)
	tx.ClearEvents()

	if tx.Status == domain.PaymentStatusSucceeded {
		if err := confirmOrder(ctx, uc.orders, uc.publisher, tx.TenantID, tx.OrderID, cmd.ActorID); err != nil {
			logging.FromContext(ctx).Error("payment captured but order confirmation failed",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("order_id", tx.OrderID.String()),
				zap.Error(err))
			return tx, err
		}
	}

	return tx, nil
}

// confirmOrder loads the order, confirms it and stores it. Already confirmed
// orders are left alone.
func confirmOrder(
	ctx context.Context,
	orders domain.OrderRepository,
	publisher events.Publisher,
	tenantID, orderID, actorID models.ID,
) error {
	order, err := orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return domain.NewNotFoundError("order %s not found", orderID)
	}
	if order.Status == domain.OrderStatusConfirmed {
		return nil
	}

	if err := order.Confirm(actorID); err != nil {
		return err
	}
	if err := orders.Update(ctx, order); err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	publishBestEffort(ctx, publisher, order.Events()...)
	order.ClearEvents()
	return nil
}
