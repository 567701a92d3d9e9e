package handlers

import (
	"context"

	"github.com/draftea/checkout-system/checkout-service/application"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ProviderUpdateData is the payload of payment.provider.update messages
type ProviderUpdateData struct {
	TransactionID models.ID `json:"transaction_id"`
	TenantID      models.ID `json:"tenant_id,omitempty"`
	Status        string    `json:"status,omitempty"`
}

// ProviderUpdateHandlers syncs payments when a provider reports a change
type ProviderUpdateHandlers struct {
	paymentStatus *application.GetPaymentStatus
}

// NewProviderUpdateHandlers creates new provider update handlers
func NewProviderUpdateHandlers(paymentStatus *application.GetPaymentStatus) *ProviderUpdateHandlers {
	return &ProviderUpdateHandlers{paymentStatus: paymentStatus}
}

// Handle implements the events.EventHandler interface
func (h *ProviderUpdateHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.PaymentProviderUpdateEvent:
		return h.HandleProviderUpdate(ctx, event)
	default:
		return nil
	}
}

// HandleProviderUpdate re-reads the payment from its provider. Missing
// payments are dropped so the message is not redelivered forever.
func (h *ProviderUpdateHandlers) HandleProviderUpdate(ctx context.Context, event *events.Event) error {
	var data ProviderUpdateData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to unmarshal provider update")
	}

	tenantID := data.TenantID
	if tenantID.IsEmpty() {
		tenantID = event.TenantID
	}
	if tenantID.IsEmpty() || data.TransactionID.IsEmpty() {
		logging.FromContext(ctx).Warn("provider update without tenant or transaction", zap.String("event_id", event.ID.String()))
		return nil
	}

	tx, err := h.paymentStatus.Execute(ctx, &application.GetPaymentStatusQuery{
		TenantID:      tenantID,
		TransactionID: data.TransactionID,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrorKindNotFound) {
			logging.FromContext(ctx).Warn("provider update for unknown payment",
				zap.String("transaction_id", data.TransactionID.String()))
			return nil
		}
		return errors.Wrap(err, "failed to sync payment status")
	}

	logging.FromContext(ctx).Info("payment synced from provider update",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("status", string(tx.Status)))
	return nil
}
