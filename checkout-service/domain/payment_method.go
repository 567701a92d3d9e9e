package domain

import (
	"github.com/draftea/checkout-system/shared/models"
)

// PaymentMethodType represents how the customer pays
type PaymentMethodType string

const (
	PaymentMethodTypeCreditCard     PaymentMethodType = "credit_card"
	PaymentMethodTypeDebitCard      PaymentMethodType = "debit_card"
	PaymentMethodTypePayPal         PaymentMethodType = "paypal"
	PaymentMethodTypeBankTransfer   PaymentMethodType = "bank_transfer"
	PaymentMethodTypeCashOnDelivery PaymentMethodType = "cash_on_delivery"
	PaymentMethodTypeDigitalWallet  PaymentMethodType = "digital_wallet"
	PaymentMethodTypeOther          PaymentMethodType = "other"
)

// NewPaymentMethodType parses a payment method type
func NewPaymentMethodType(value string) (PaymentMethodType, error) {
	switch t := PaymentMethodType(value); t {
	case PaymentMethodTypeCreditCard, PaymentMethodTypeDebitCard, PaymentMethodTypePayPal,
		PaymentMethodTypeBankTransfer, PaymentMethodTypeCashOnDelivery,
		PaymentMethodTypeDigitalWallet, PaymentMethodTypeOther:
		return t, nil
	default:
		return "", NewValidationError("unsupported payment method type %q", value)
	}
}

func (t PaymentMethodType) String() string {
	return string(t)
}

// PaymentProvider names the provider configured on a payment method
type PaymentProvider string

const (
	PaymentProviderStripe  PaymentProvider = "stripe"
	PaymentProviderSandbox PaymentProvider = "sandbox"
	PaymentProviderManual  PaymentProvider = "manual"
)

func (p PaymentProvider) String() string {
	return string(p)
}

// PaymentMethod is a tenant-configured way of paying
type PaymentMethod struct {
	ID         models.ID
	TenantID   models.ID
	Name       string
	Type       PaymentMethodType
	Provider   PaymentProvider
	IsActive   bool
	Timestamps models.Timestamps
}

// IsDeferredSettlement reports whether the order can be confirmed without
// capturing payment (cash on delivery).
func (m *PaymentMethod) IsDeferredSettlement() bool {
	return m.Type == PaymentMethodTypeCashOnDelivery
}
