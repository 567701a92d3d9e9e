package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/draftea/checkout-system/checkout-service/application"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/go-chi/chi/v5"
)

const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderActorID  = "X-Actor-ID"
)

type callerKey struct{}

type caller struct {
	tenantID models.ID
	actorID  models.ID
}

// RequireCaller resolves tenant and actor from request headers
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := models.NewID(r.Header.Get(HeaderTenantID))
		if err != nil {
			writeError(w, r, domain.NewValidationError("%s header must be a UUID", HeaderTenantID))
			return
		}
		actorID, err := models.NewID(r.Header.Get(HeaderActorID))
		if err != nil {
			writeError(w, r, domain.NewValidationError("%s header must be a UUID", HeaderActorID))
			return
		}

		ctx := context.WithValue(r.Context(), callerKey{}, caller{tenantID: tenantID, actorID: actorID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFrom(r *http.Request) caller {
	c, _ := r.Context().Value(callerKey{}).(caller)
	return c
}

// CheckoutHandlers contains checkout HTTP handlers
type CheckoutHandlers struct {
	checkout      *application.CheckoutSaga
	getOrder      *application.GetOrder
	cancelOrder   *application.CancelOrder
	createIntent  *application.CreatePaymentIntent
	confirm       *application.ConfirmPayment
	refund        *application.RefundPayment
	paymentStatus *application.GetPaymentStatus
}

// NewCheckoutHandlers creates new checkout handlers
func NewCheckoutHandlers(
	checkout *application.CheckoutSaga,
	getOrder *application.GetOrder,
	cancelOrder *application.CancelOrder,
	createIntent *application.CreatePaymentIntent,
	confirm *application.ConfirmPayment,
	refund *application.RefundPayment,
	paymentStatus *application.GetPaymentStatus,
) *CheckoutHandlers {
	return &CheckoutHandlers{
		checkout:      checkout,
		getOrder:      getOrder,
		cancelOrder:   cancelOrder,
		createIntent:  createIntent,
		confirm:       confirm,
		refund:        refund,
		paymentStatus: paymentStatus,
	}
}

// RegisterRoutes registers checkout, order and payment routes
func (h *CheckoutHandlers) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireCaller)

		r.Post("/checkout", h.Checkout)

		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Post("/cancel", h.CancelOrder)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intents", h.CreatePaymentIntent)
			r.Get("/{id}", h.GetPayment)
			r.Post("/{id}/confirm", h.ConfirmPayment)
			r.Post("/{id}/refund", h.RefundPayment)
		})
	})
}

// Checkout runs the checkout saga
func (h *CheckoutHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var cmd application.CheckoutCommand
	if !decode(w, r, &cmd) {
		return
	}
	if _, err := models.NewID(cmd.CustomerID.String()); err != nil {
		writeError(w, r, domain.NewValidationError("customer_id must be a UUID"))
		return
	}
	if _, err := models.NewID(cmd.PaymentMethodID.String()); err != nil {
		writeError(w, r, domain.NewValidationError("payment_method_id must be a UUID"))
		return
	}

	c := callerFrom(r)
	cmd.TenantID = c.tenantID
	cmd.ActorID = c.actorID

	response, err := h.checkout.Execute(r.Context(), &cmd)
	if err != nil {
		writeSagaError(w, r, err, response)
		return
	}

	writeJSON(w, http.StatusCreated, newCheckoutResponse(response))
}

// GetOrder handles order retrieval requests
func (h *CheckoutHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.getOrder.Execute(r.Context(), &application.GetOrderQuery{
		TenantID: callerFrom(r).tenantID,
		OrderID:  orderID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// CancelOrder handles order cancellation requests
func (h *CheckoutHandlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	var cmd application.CancelOrderCommand
	if !decodeOptional(w, r, &cmd) {
		return
	}
	c := callerFrom(r)
	cmd.TenantID = c.tenantID
	cmd.ActorID = c.actorID
	cmd.OrderID = orderID

	order, err := h.cancelOrder.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// CreatePaymentIntent handles payment intent requests
func (h *CheckoutHandlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreatePaymentIntentCommand
	if !decode(w, r, &cmd) {
		return
	}
	if _, err := models.NewID(cmd.OrderID.String()); err != nil {
		writeError(w, r, domain.NewValidationError("order_id must be a UUID"))
		return
	}
	c := callerFrom(r)
	cmd.TenantID = c.tenantID
	cmd.ActorID = c.actorID

	tx, err := h.createIntent.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

// ConfirmPayment handles payment confirmation requests
func (h *CheckoutHandlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var cmd application.ConfirmPaymentCommand
	if !decodeOptional(w, r, &cmd) {
		return
	}
	c := callerFrom(r)
	cmd.TenantID = c.tenantID
	cmd.ActorID = c.actorID
	cmd.TransactionID = transactionID

	tx, err := h.confirm.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// RefundPayment handles refund requests
func (h *CheckoutHandlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var cmd application.RefundPaymentCommand
	if !decodeOptional(w, r, &cmd) {
		return
	}
	c := callerFrom(r)
	cmd.TenantID = c.tenantID
	cmd.ActorID = c.actorID
	cmd.TransactionID = transactionID

	tx, err := h.refund.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// GetPayment returns the payment, synced with its provider when in flight
func (h *CheckoutHandlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r)
	if !ok {
		return
	}

	c := callerFrom(r)
	tx, err := h.paymentStatus.Execute(r.Context(), &application.GetPaymentStatusQuery{
		TenantID:      c.tenantID,
		ActorID:       c.actorID,
		TransactionID: transactionID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func pathID(w http.ResponseWriter, r *http.Request) (models.ID, bool) {
	id, err := models.NewID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.NewValidationError("id must be a UUID"))
		return "", false
	}
	return id, true
}

// decodeOptional accepts an empty body
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && err != io.EOF {
		writeError(w, r, domain.NewValidationError("invalid request body"))
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, domain.NewValidationError("invalid request body"))
		return false
	}
	return true
}
