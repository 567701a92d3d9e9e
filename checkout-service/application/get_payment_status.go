package application

import (
	"context"
	"fmt"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GetPaymentStatusQuery represents the query to read and sync a payment
type GetPaymentStatusQuery struct {
	TenantID      models.ID
	TransactionID models.ID
	ActorID       models.ID
}

// GetPaymentStatus use case. In-flight gateway payments are synced with the
// provider before they are returned.
type GetPaymentStatus struct {
	orders       domain.OrderRepository
	transactions domain.PaymentTransactionRepository
	providers    *ProviderRegistry
	publisher    events.Publisher
}

// NewGetPaymentStatus creates a new GetPaymentStatus use case
func NewGetPaymentStatus(
	orders domain.OrderRepository,
	transactions domain.PaymentTransactionRepository,
	providers *ProviderRegistry,
	publisher events.Publisher,
) *GetPaymentStatus {
	return &GetPaymentStatus{
		orders:       orders,
		transactions: transactions,
		providers:    providers,
		publisher:    publisher,
	}
}

// Execute executes the get payment status use case
func (uc *GetPaymentStatus) Execute(ctx context.Context, query *GetPaymentStatusQuery) (*domain.PaymentTransaction, error) {
	tx, err := uc.transactions.FindByID(ctx, query.TenantID, query.TransactionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if tx == nil {
		return nil, domain.NewNotFoundError("payment %s not found", query.TransactionID)
	}
	if !tx.IsActive() || tx.ProviderReference() == "" {
		return tx, nil
	}

	provider, err := uc.providers.ByName(tx.Provider)
	if err != nil {
		return nil, err
	}
	gateway, ok := provider.Gateway()
	if !ok {
		return tx, nil
	}

	result := gateway.GetStatus(ctx, tx.ProviderReference())
	if !result.Success {
		// the stored state is still the best answer we have
		logging.FromContext(ctx).Warn("payment status sync failed",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("reason", result.ErrorMessage))
		return tx, nil
	}

	switch result.Status {
	case domain.GatewayStatusSucceeded:
		err = tx.MarkSucceeded(query.ActorID, &result)
	case domain.GatewayStatusFailed, domain.GatewayStatusCanceled:
		reason := result.ErrorMessage
		if reason == "" {
			reason = fmt.Sprintf("provider status %s", result.Status)
		}
		err = tx.MarkFailed(query.ActorID, reason)
	default:
		return tx, nil
	}
	if err != nil {
		return nil, err
	}

	if err := uc.transactions.Update(ctx, tx); err != nil {
		if domain.IsKind(err, domain.ErrorKindConflict) {
			// someone else moved it first; theirs is the current state
			return uc.transactions.FindByID(ctx, query.TenantID, query.TransactionID)
		}
		return nil, errors.Wrap(err, "failed to update payment")
	}

	publishBestEffort(ctx, uc.publisher, tx.Events()...)
	tx.ClearEvents()

	if tx.Status == domain.PaymentStatusSucceeded {
		if err := confirmOrder(ctx, uc.orders, uc.publisher, tx.TenantID, tx.OrderID, query.ActorID); err != nil {
			return tx, err
		}
	}

	return tx, nil
}
