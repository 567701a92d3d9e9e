package application

import (
	"context"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CreatePaymentIntentCommand represents the command to start paying an order
type CreatePaymentIntentCommand struct {
	TenantID models.ID `json:"-"`
	ActorID  models.ID `json:"-"`
	OrderID  models.ID `json:"order_id"`
}

// CreatePaymentIntent use case. At most one Pending or Processing
// transaction exists per order; repeated calls return it.
type CreatePaymentIntent struct {
	orders         domain.OrderRepository
	paymentMethods domain.PaymentMethodRepository
	transactions   domain.PaymentTransactionRepository
	providers      *ProviderRegistry
	publisher      events.Publisher
}

// NewCreatePaymentIntent creates a new CreatePaymentIntent use case
func NewCreatePaymentIntent(
	orders domain.OrderRepository,
	paymentMethods domain.PaymentMethodRepository,
	transactions domain.PaymentTransactionRepository,
	providers *ProviderRegistry,
	publisher events.Publisher,
) *CreatePaymentIntent {
	return &CreatePaymentIntent{
		orders:         orders,
		paymentMethods: paymentMethods,
		transactions:   transactions,
		providers:      providers,
		publisher:      publisher,
	}
}

// Execute executes the create payment intent use case. If the intent was
// created but the transaction could not be stored, the transaction is
// returned together with the error.
func (uc *CreatePaymentIntent) Execute(ctx context.Context, cmd *CreatePaymentIntentCommand) (*domain.PaymentTransaction, error) {
	order, err := uc.orders.FindByID(ctx, cmd.TenantID, cmd.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.NewNotFoundError("order %s not found", cmd.OrderID)
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return nil, domain.NewInvalidStateError("order %s is not awaiting payment (status: %s)", order.ID, order.Status)
	}

	existing, err := uc.transactions.FindActiveByOrderID(ctx, cmd.TenantID, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active payment")
	}
	if existing != nil {
		return existing, nil
	}

	method, err := uc.paymentMethods.FindByID(ctx, cmd.TenantID, order.PaymentMethodID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment method")
	}
	if method == nil {
		return nil, domain.NewNotFoundError("payment method %s not found", order.PaymentMethodID)
	}

	provider, err := uc.providers.ForMethod(method)
	if err != nil {
		return nil, err
	}

	tx := domain.NewPaymentTransaction(order, provider.Name(), cmd.ActorID)
	if err := uc.transactions.Create(ctx, tx); err != nil {
		if domain.IsKind(err, domain.ErrorKindConflict) {
			// lost the race, converge on the winner's row
			winner, findErr := uc.transactions.FindActiveByOrderID(ctx, cmd.TenantID, order.ID)
			if findErr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, errors.Wrap(err, "failed to save payment")
	}

	if gateway, ok := provider.Gateway(); ok {
		result := gateway.CreateIntent(ctx, domain.IntentRequest{
			Amount:     order.Total,
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			Metadata: map[string]string{
				"transaction_id": tx.ID.String(),
				"tenant_id":      tx.TenantID.String(),
			},
		})
		if result.Success {
			err = tx.MarkProcessing(cmd.ActorID, &result)
		} else {
			logging.FromContext(ctx).Warn("payment intent rejected",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("provider", provider.Name().String()),
				zap.String("reason", result.ErrorMessage))
			err = tx.MarkFailed(cmd.ActorID, result.ErrorMessage)
		}
	} else {
		err = tx.MarkProcessing(cmd.ActorID, nil)
	}
	if err != nil {
		return nil, err
	}

	if err := uc.transactions.Update(ctx, tx); err != nil {
		// the stored row is still Pending; hand back what the provider created
		// so the caller can void it
		return tx, errors.Wrap(err, "failed to update payment")
	}

	publishBestEffort(ctx, uc.publisher, tx.Events()...)
	tx.ClearEvents()

	logging.FromContext(ctx).Info("payment intent created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("provider", provider.Name().String()),
		zap.String("provider_kind", string(provider.Kind())),
		zap.String("status", string(tx.Status)))

	return tx, nil
}
