package application

import (
	"github.com/draftea/checkout-system/checkout-service/domain"
)

// ProviderRegistry resolves payment providers configured at startup. The
// manual provider is always registered as local settlement.
type ProviderRegistry struct {
	providers map[domain.PaymentProvider]domain.Provider
}

// NewProviderRegistry builds a registry from the enabled providers
func NewProviderRegistry(providers ...domain.Provider) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: map[domain.PaymentProvider]domain.Provider{
			domain.PaymentProviderManual: domain.NewLocalSettlementProvider(domain.PaymentProviderManual),
		},
	}
	for _, provider := range providers {
		registry.providers[provider.Name()] = provider
	}
	return registry
}

// ForMethod picks the provider a payment method settles through. Deferred
// settlement methods never reach a gateway.
func (r *ProviderRegistry) ForMethod(method *domain.PaymentMethod) (domain.Provider, error) {
	if method.IsDeferredSettlement() {
		return r.providers[domain.PaymentProviderManual], nil
	}
	return r.ByName(method.Provider)
}

// ByName returns the provider a transaction was created with
func (r *ProviderRegistry) ByName(name domain.PaymentProvider) (domain.Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return domain.Provider{}, domain.NewValidationError("payment provider %s is not configured", name)
	}
	return provider, nil
}
