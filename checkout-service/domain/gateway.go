package domain

import (
	"context"

	"github.com/draftea/checkout-system/shared/models"
)

// GatewayStatus is the provider-agnostic status reported by a gateway
type GatewayStatus string

const (
	GatewayStatusRequiresAction GatewayStatus = "requires_action"
	GatewayStatusProcessing     GatewayStatus = "processing"
	GatewayStatusSucceeded      GatewayStatus = "succeeded"
	GatewayStatusFailed         GatewayStatus = "failed"
	GatewayStatusCanceled       GatewayStatus = "canceled"
	GatewayStatusRefunded       GatewayStatus = "refunded"
)

// IntentRequest describes a payment intent to create
type IntentRequest struct {
	Amount     models.Money
	OrderID    models.ID
	CustomerID models.ID
	Metadata   map[string]string
}

// GatewayResult is the normalized outcome of every gateway call. Transport
// failures and provider rejections are reported with Success=false.
type GatewayResult struct {
	Success        bool
	TransactionID  string
	IntentID       string
	Amount         models.Money
	Status         GatewayStatus
	ClientSecret   string
	Metadata       map[string]interface{}
	ErrorMessage   string
	RequiresAction bool
}

// InFlight reports a payment the provider has neither captured nor rejected
// yet: the customer still has to act, or the provider is still settling it.
func (r GatewayResult) InFlight() bool {
	return !r.Success && (r.RequiresAction || r.Status == GatewayStatusProcessing)
}

// FailedResult builds an unsuccessful result
func FailedResult(message string) GatewayResult {
	return GatewayResult{
		Success:      false,
		Status:       GatewayStatusFailed,
		ErrorMessage: message,
	}
}

// Gateway is implemented by every card processor adapter. Methods never
// return Go errors; callers inspect GatewayResult.Success.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) GatewayResult
	Confirm(ctx context.Context, intentID string, paymentMethodToken string) GatewayResult
	GetStatus(ctx context.Context, transactionID string) GatewayResult
	Refund(ctx context.Context, transactionID string, amount *models.Money, reason string) GatewayResult
	VoidIntent(ctx context.Context, intentID string) GatewayResult
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches the key gateways send with mutating calls made
// under ctx, so a repeated call is applied once by the provider.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKeyFrom returns the key attached by WithIdempotencyKey, if any
func IdempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

// ProviderKind tags how a provider settles payments
type ProviderKind string

const (
	ProviderKindGateway         ProviderKind = "gateway"
	ProviderKindLocalSettlement ProviderKind = "local_settlement"
)

// Provider is either a gateway-backed card processor or local settlement
// (manual, cash on delivery) that never leaves the process.
type Provider struct {
	kind    ProviderKind
	name    PaymentProvider
	gateway Gateway
}

// NewGatewayProvider wraps a gateway adapter
func NewGatewayProvider(name PaymentProvider, gateway Gateway) Provider {
	return Provider{kind: ProviderKindGateway, name: name, gateway: gateway}
}

// NewLocalSettlementProvider returns a provider that settles without a gateway
func NewLocalSettlementProvider(name PaymentProvider) Provider {
	return Provider{kind: ProviderKindLocalSettlement, name: name}
}

func (p Provider) Kind() ProviderKind {
	return p.kind
}

func (p Provider) Name() PaymentProvider {
	return p.name
}

// Gateway returns the adapter for gateway providers
func (p Provider) Gateway() (Gateway, bool) {
	if p.kind != ProviderKindGateway || p.gateway == nil {
		return nil, false
	}
	return p.gateway, true
}
