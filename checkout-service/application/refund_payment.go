package application

import (
	"context"
	"fmt"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
)

// RefundPaymentCommand represents the command to refund a captured payment.
// A nil Amount refunds whatever is still refundable.
type RefundPaymentCommand struct {
	TenantID      models.ID     `json:"-"`
	ActorID       models.ID     `json:"-"`
	TransactionID models.ID     `json:"-"`
	Amount        *models.Money `json:"amount,omitempty"`
	Reason        string        `json:"reason"`
}

// RefundPayment use case
type RefundPayment struct {
	transactions domain.PaymentTransactionRepository
	providers    *ProviderRegistry
	publisher    events.Publisher
}

// NewRefundPayment creates a new RefundPayment use case
func NewRefundPayment(
	transactions domain.PaymentTransactionRepository,
	providers *ProviderRegistry,
	publisher events.Publisher,
) *RefundPayment {
	return &RefundPayment{
		transactions: transactions,
		providers:    providers,
		publisher:    publisher,
	}
}

// Execute executes the refund payment use case
func (uc *RefundPayment) Execute(ctx context.Context, cmd *RefundPaymentCommand) (*domain.PaymentTransaction, error) {
	tx, err := uc.transactions.FindByID(ctx, cmd.TenantID, cmd.TransactionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if tx == nil {
		return nil, domain.NewNotFoundError("payment %s not found", cmd.TransactionID)
	}

	return uc.refund(ctx, tx, cmd)
}

// refund gives money back on a transaction the caller already holds
func (uc *RefundPayment) refund(ctx context.Context, tx *domain.PaymentTransaction, cmd *RefundPaymentCommand) (*domain.PaymentTransaction, error) {
	amount := tx.RemainingRefundable()
	if cmd.Amount != nil {
		amount = *cmd.Amount
	}
	if err := tx.ValidateRefund(amount); err != nil {
		return nil, err
	}

	provider, err := uc.providers.ByName(tx.Provider)
	if err != nil {
		return nil, err
	}

	if gateway, ok := provider.Gateway(); ok {
		gatewayCtx := domain.WithIdempotencyKey(ctx, fmt.Sprintf("%s-refund-%d", tx.ID, tx.Version.Value))
		result := gateway.Refund(gatewayCtx, tx.ProviderReference(), &amount, cmd.Reason)
		if !result.Success {
			return nil, domain.NewGatewayError("refund failed: %s", result.ErrorMessage)
		}
		tx.MergeMetadata(map[string]interface{}{"last_refund_id": result.TransactionID})
	}

	if err := tx.ApplyRefund(cmd.ActorID, amount, cmd.Reason); err != nil {
		return nil, err
	}

	if err := uc.transactions.Update(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "failed to update payment")
	}

	publishBestEffort(ctx, uc.publisher, tx.Events()...)
	tx.ClearEvents()

	return tx, nil
}
