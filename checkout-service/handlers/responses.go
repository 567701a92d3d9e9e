package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/draftea/checkout-system/checkout-service/application"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type orderItemResponse struct {
	ID            models.ID    `json:"id"`
	ProductID     models.ID    `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	UnitPrice     models.Money `json:"unit_price"`
	ExtendedPrice models.Money `json:"extended_price"`
}

type orderResponse struct {
	ID              models.ID           `json:"id"`
	TenantID        models.ID           `json:"tenant_id"`
	CustomerID      models.ID           `json:"customer_id"`
	PaymentMethodID models.ID           `json:"payment_method_id"`
	ShippingAddress *string             `json:"shipping_address,omitempty"`
	Status          domain.OrderStatus  `json:"status"`
	Total           models.Money        `json:"total"`
	Items           []orderItemResponse `json:"items"`
	Version         int                 `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type transactionResponse struct {
	ID                    models.ID              `json:"id"`
	OrderID               models.ID              `json:"order_id"`
	PaymentMethodID       models.ID              `json:"payment_method_id"`
	Provider              domain.PaymentProvider `json:"provider"`
	ProviderIntentID      string                 `json:"provider_intent_id,omitempty"`
	ProviderTransactionID string                 `json:"provider_transaction_id,omitempty"`
	Amount                models.Money           `json:"amount"`
	Status                domain.PaymentStatus   `json:"status"`
	FailureReason         string                 `json:"failure_reason,omitempty"`
	RefundAmount          *models.Money          `json:"refund_amount,omitempty"`
	RefundReason          string                 `json:"refund_reason,omitempty"`
	ClientSecret          string                 `json:"client_secret,omitempty"`
	Version               int                    `json:"version"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

type checkoutResponse struct {
	SagaID                      models.ID            `json:"saga_id"`
	Order                       *orderResponse       `json:"order"`
	PaymentTransaction          *transactionResponse `json:"payment_transaction"`
	SagaStatus                  string               `json:"saga_status"`
	ClientSecret                string               `json:"client_secret,omitempty"`
	RequiresPaymentConfirmation bool                 `json:"requires_payment_confirmation"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`

	SagaStatus           string               `json:"saga_status,omitempty"`
	FailedStep           string               `json:"failed_step,omitempty"`
	CompensatedSteps     []string             `json:"compensated_steps,omitempty"`
	CompensationFailures []string             `json:"compensation_failures,omitempty"`
	Order                *orderResponse       `json:"order,omitempty"`
	PaymentTransaction   *transactionResponse `json:"payment_transaction,omitempty"`
}

func newOrderResponse(order *domain.Order) *orderResponse {
	if order == nil {
		return nil
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			ExtendedPrice: item.ExtendedPrice(),
		})
	}
	return &orderResponse{
		ID:              order.ID,
		TenantID:        order.TenantID,
		CustomerID:      order.CustomerID,
		PaymentMethodID: order.PaymentMethodID,
		ShippingAddress: order.ShippingAddress,
		Status:          order.Status,
		Total:           order.Total,
		Items:           items,
		Version:         order.Version.Value,
		CreatedAt:       order.Timestamps.CreatedAt,
		UpdatedAt:       order.Timestamps.UpdatedAt,
	}
}

func newTransactionResponse(tx *domain.PaymentTransaction) *transactionResponse {
	if tx == nil {
		return nil
	}
	return &transactionResponse{
		ID:                    tx.ID,
		OrderID:               tx.OrderID,
		PaymentMethodID:       tx.PaymentMethodID,
		Provider:              tx.Provider,
		ProviderIntentID:      tx.ProviderIntentID,
		ProviderTransactionID: tx.ProviderTransactionID,
		Amount:                tx.Amount,
		Status:                tx.Status,
		FailureReason:         tx.FailureReason,
		RefundAmount:          tx.RefundAmount,
		RefundReason:          tx.RefundReason,
		ClientSecret:          tx.ClientSecret(),
		Version:               tx.Version.Value,
		CreatedAt:             tx.Timestamps.CreatedAt,
		UpdatedAt:             tx.Timestamps.UpdatedAt,
	}
}

func newCheckoutResponse(response *application.CheckoutResponse) *checkoutResponse {
	return &checkoutResponse{
		SagaID:                      response.SagaID,
		Order:                       newOrderResponse(response.Order),
		PaymentTransaction:          newTransactionResponse(response.Transaction),
		SagaStatus:                  string(response.SagaStatus),
		ClientSecret:                response.ClientSecret,
		RequiresPaymentConfirmation: response.RequiresPaymentConfirmation,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps a domain error kind to an HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindInsufficientInventory, domain.ErrorKindInvalidState, domain.ErrorKindConflict:
		return http.StatusConflict
	case domain.ErrorKindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeSagaError(w, r, err, nil)
}

// writeSagaError renders err. A failed saga is always a 500 carrying the
// compensated state.
func writeSagaError(w http.ResponseWriter, r *http.Request, err error, response *application.CheckoutResponse) {
	kind := domain.KindOf(err)
	body := errorResponse{Error: err.Error(), Kind: string(kind)}
	status := statusFor(kind)

	var sagaErr *application.SagaExecutionError
	if errors.As(err, &sagaErr) {
		status = http.StatusInternalServerError
		body.SagaStatus = "failed"
		body.FailedStep = sagaErr.FailedStep.String()
		for _, step := range sagaErr.Compensated {
			body.CompensatedSteps = append(body.CompensatedSteps, step.String())
		}
		for _, failure := range sagaErr.CompensationFailures {
			body.CompensationFailures = append(body.CompensationFailures, failure.Error())
		}
		if response != nil {
			body.Order = newOrderResponse(response.Order)
			body.PaymentTransaction = newTransactionResponse(response.Transaction)
		}
	}

	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	writeJSON(w, status, body)
}
