package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultStripeBaseURL = "https://api.stripe.com"
	defaultStripeTimeout = 10 * time.Second
	stripeStatusRetries  = 3
)

// StripeConfig configures the Stripe adapter
type StripeConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// StripeGateway talks to the Stripe PaymentIntents API. Every failure,
// including transport errors, is folded into an unsuccessful GatewayResult.
type StripeGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *zap.Logger
}

// NewStripeGateway creates a new StripeGateway
func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultStripeBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStripeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StripeGateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger.With(zap.String("gateway", "stripe")),
	}
}

type stripePaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	LatestCharge string `json:"latest_charge"`
}

type stripeRefund struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type stripeErrorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
}

// stripeAPIError is a non-2xx answer from Stripe
type stripeAPIError struct {
	StatusCode int
	Reason     string
}

func (e *stripeAPIError) Error() string {
	return fmt.Sprintf("stripe returned %d: %s", e.StatusCode, e.Reason)
}

// CreateIntent creates a PaymentIntent for the order amount
func (g *StripeGateway) CreateIntent(ctx context.Context, req domain.IntentRequest) domain.GatewayResult {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount.Amount, 10))
	form.Set("currency", strings.ToLower(req.Amount.Currency))
	form.Set("metadata[order_id]", req.OrderID.String())
	if !req.CustomerID.IsEmpty() {
		form.Set("metadata[customer_id]", req.CustomerID.String())
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var intent stripePaymentIntent
	if err := g.do(ctx, http.MethodPost, "/v1/payment_intents", form, req.Metadata["transaction_id"], &intent); err != nil {
		return g.failure("create intent", err)
	}

	result := g.intentResult(&intent)
	result.Success = true
	result.ClientSecret = intent.ClientSecret
	return result
}

// Confirm confirms the intent. Only succeeded is a capture; requires_action
// and processing come back in flight with no error, anything else is a failure.
// The idempotency key attached to ctx is sent along.
func (g *StripeGateway) Confirm(ctx context.Context, intentID string, paymentMethodToken string) domain.GatewayResult {
	form := url.Values{}
	if paymentMethodToken != "" {
		form.Set("payment_method", paymentMethodToken)
	}

	var intent stripePaymentIntent
	path := fmt.Sprintf("/v1/payment_intents/%s/confirm", url.PathEscape(intentID))
	if err := g.do(ctx, http.MethodPost, path, form, domain.IdempotencyKeyFrom(ctx), &intent); err != nil {
		return g.failure("confirm", err)
	}

	result := g.intentResult(&intent)
	if intent.LatestCharge != "" {
		result.TransactionID = intent.LatestCharge
		result.Metadata["stripe_charge"] = intent.LatestCharge
	}
	switch intent.Status {
	case "succeeded":
		result.Success = true
	case "requires_action", "processing":
		result.ClientSecret = intent.ClientSecret
	default:
		result.ErrorMessage = fmt.Sprintf("payment intent status %s", intent.Status)
	}
	return result
}

// GetStatus retrieves the intent, retrying transport and 5xx failures
func (g *StripeGateway) GetStatus(ctx context.Context, transactionID string) domain.GatewayResult {
	path := fmt.Sprintf("/v1/payment_intents/%s", url.PathEscape(transactionID))

	intent, err := backoff.Retry(ctx, func() (*stripePaymentIntent, error) {
		var intent stripePaymentIntent
		if err := g.do(ctx, http.MethodGet, path, nil, "", &intent); err != nil {
			var apiErr *stripeAPIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return &intent, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(stripeStatusRetries))
	if err != nil {
		return g.failure("get status", err)
	}

	result := g.intentResult(intent)
	result.Success = true
	if intent.LatestCharge != "" {
		result.Metadata["stripe_charge"] = intent.LatestCharge
	}
	return result
}

// Refund refunds a captured intent. A nil amount refunds the remainder. The
// idempotency key attached to ctx is sent along.
func (g *StripeGateway) Refund(ctx context.Context, transactionID string, amount *models.Money, reason string) domain.GatewayResult {
	form := url.Values{}
	form.Set("payment_intent", transactionID)
	if amount != nil {
		form.Set("amount", strconv.FormatInt(amount.Amount, 10))
	}
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var refund stripeRefund
	if err := g.do(ctx, http.MethodPost, "/v1/refunds", form, domain.IdempotencyKeyFrom(ctx), &refund); err != nil {
		return g.failure("refund", err)
	}

	success := refund.Status == "succeeded" || refund.Status == "pending"
	result := domain.GatewayResult{
		Success:       success,
		TransactionID: refund.ID,
		Amount:        models.NewMoney(refund.Amount, strings.ToUpper(refund.Currency)),
		Status:        domain.GatewayStatusRefunded,
		Metadata: map[string]interface{}{
			"stripe_refund":   refund.ID,
			"provider_status": refund.Status,
		},
	}
	if !success {
		result.Status = domain.GatewayStatusFailed
		result.ErrorMessage = fmt.Sprintf("refund status %s", refund.Status)
	}
	return result
}

// VoidIntent cancels an intent that was never captured
func (g *StripeGateway) VoidIntent(ctx context.Context, intentID string) domain.GatewayResult {
	var intent stripePaymentIntent
	path := fmt.Sprintf("/v1/payment_intents/%s/cancel", url.PathEscape(intentID))
	if err := g.do(ctx, http.MethodPost, path, url.Values{}, "", &intent); err != nil {
		return g.failure("void intent", err)
	}

	result := g.intentResult(&intent)
	result.Success = intent.Status == "canceled"
	if !result.Success {
		result.ErrorMessage = fmt.Sprintf("payment intent status %s", intent.Status)
	}
	return result
}

func (g *StripeGateway) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build stripe request")
	}
	req.SetBasicAuth(g.secretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "stripe request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read stripe response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		reason := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &stripeErr) == nil {
			switch {
			case stripeErr.Error.DeclineCode != "":
				reason = stripeErr.Error.DeclineCode
			case stripeErr.Error.Code != "":
				reason = stripeErr.Error.Code
			case stripeErr.Error.Message != "":
				reason = stripeErr.Error.Message
			}
		}
		return &stripeAPIError{StatusCode: resp.StatusCode, Reason: reason}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "failed to decode stripe response")
	}
	return nil
}

func (g *StripeGateway) intentResult(intent *stripePaymentIntent) domain.GatewayResult {
	return domain.GatewayResult{
		TransactionID:  intent.ID,
		IntentID:       intent.ID,
		Amount:         models.NewMoney(intent.Amount, strings.ToUpper(intent.Currency)),
		Status:         normalizeStripeStatus(intent.Status),
		RequiresAction: intent.Status == "requires_action",
		Metadata: map[string]interface{}{
			"stripe_payment_intent": intent.ID,
			"provider_status":       intent.Status,
		},
	}
}

func (g *StripeGateway) failure(operation string, err error) domain.GatewayResult {
	message := err.Error()
	var apiErr *stripeAPIError
	if errors.As(err, &apiErr) {
		message = apiErr.Reason
	}

	g.logger.Warn("stripe call failed", zap.String("operation", operation), zap.Error(err))
	return domain.FailedResult(message)
}

func normalizeStripeStatus(status string) domain.GatewayStatus {
	switch status {
	case "succeeded":
		return domain.GatewayStatusSucceeded
	case "processing":
		return domain.GatewayStatusProcessing
	case "canceled":
		return domain.GatewayStatusCanceled
	case "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture":
		return domain.GatewayStatusRequiresAction
	default:
		return domain.GatewayStatusFailed
	}
}
