package domain

import (
	"time"

	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/models"
)

// PaymentStatus represents the status of a payment transaction
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "Pending"
	PaymentStatusProcessing        PaymentStatus = "Processing"
	PaymentStatusSucceeded         PaymentStatus = "Succeeded"
	PaymentStatusFailed            PaymentStatus = "Failed"
	PaymentStatusCancelled         PaymentStatus = "Cancelled"
	PaymentStatusRefunded          PaymentStatus = "Refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "PartiallyRefunded"
)

// MetadataClientSecret is the metadata key holding the provider client secret
const MetadataClientSecret = "client_secret"

// MetadataConfirmationClaim holds when the running confirmation attempt started
const MetadataConfirmationClaim = "confirmation_claimed_at"

// ConfirmationLease is how long a claim keeps other confirmation attempts out.
// It outlives a gateway call so an abandoned claim expires on its own.
const ConfirmationLease = 2 * time.Minute

// PaymentTransaction aggregate root. Status only moves forward, except
// refunds which move Succeeded -> PartiallyRefunded -> Refunded.
type PaymentTransaction struct {
	ID                    models.ID
	TenantID              models.ID
	OrderID               models.ID
	PaymentMethodID       models.ID
	Provider              PaymentProvider
	ProviderTransactionID string
	ProviderIntentID      string
	Amount                models.Money
	Status                PaymentStatus
	FailureReason         string
	RefundAmount          *models.Money
	RefundReason          string
	Metadata              map[string]interface{}
	CreatedBy             models.ID
	ModifiedBy            models.ID
	Timestamps            models.Timestamps
	Version               models.Version

	events []*events.Event
}

// NewPaymentTransaction creates a Pending transaction for the order total
func NewPaymentTransaction(order *Order, provider PaymentProvider, actorID models.ID) *PaymentTransaction {
	return &PaymentTransaction{
		ID:              models.GenerateUUID(),
		TenantID:        order.TenantID,
		OrderID:         order.ID,
		PaymentMethodID: order.PaymentMethodID,
		Provider:        provider,
		Amount:          order.Total,
		Status:          PaymentStatusPending,
		Metadata:        map[string]interface{}{},
		CreatedBy:       actorID,
		ModifiedBy:      actorID,
		Timestamps:      models.NewTimestamps(),
		Version:         models.NewVersion(),
	}
}

// IsActive reports whether the transaction is still in flight
func (t *PaymentTransaction) IsActive() bool {
	return t.Status == PaymentStatusPending || t.Status == PaymentStatusProcessing
}

// ClientSecret extracts the provider client secret from metadata
func (t *PaymentTransaction) ClientSecret() string {
	if secret, ok := t.Metadata[MetadataClientSecret].(string); ok {
		return secret
	}
	return ""
}

// ProviderReference is the id the gateway knows the payment by
func (t *PaymentTransaction) ProviderReference() string {
	if t.ProviderIntentID != "" {
		return t.ProviderIntentID
	}
	return t.ProviderTransactionID
}

// MarkProcessing records a created intent. result may be nil for local settlement.
func (t *PaymentTransaction) MarkProcessing(actorID models.ID, result *GatewayResult) error {
	if t.Status != PaymentStatusPending {
		return NewInvalidStateError("payment %s cannot start processing from status %s", t.ID, t.Status)
	}

	if result != nil {
		t.applyGatewayResult(result)
	}
	t.Status = PaymentStatusProcessing
	t.touch(actorID)

	t.recordEvent(events.NewEvent(t.ID, events.PaymentIntentCreatedEvent, PaymentStatusData{
		TransactionID:    t.ID,
		OrderID:          t.OrderID,
		Provider:         t.Provider,
		ProviderIntentID: t.ProviderIntentID,
		Amount:           t.Amount,
		Status:           t.Status,
	}).WithTenant(t.TenantID))
	return nil
}

// MarkSucceeded records a captured payment. result may be nil for local settlement.
func (t *PaymentTransaction) MarkSucceeded(actorID models.ID, result *GatewayResult) error {
	if !t.IsActive() {
		return NewInvalidStateError("payment %s cannot succeed from status %s", t.ID, t.Status)
	}

	if result != nil {
		t.applyGatewayResult(result)
	}
	t.Status = PaymentStatusSucceeded
	t.FailureReason = ""
	t.releaseConfirmationClaim()
	t.touch(actorID)

	t.recordEvent(events.NewEvent(t.ID, events.PaymentSucceededEvent, PaymentStatusData{
		TransactionID:         t.ID,
		OrderID:               t.OrderID,
		Provider:              t.Provider,
		ProviderIntentID:      t.ProviderIntentID,
		ProviderTransactionID: t.ProviderTransactionID,
		Amount:                t.Amount,
		Status:                t.Status,
	}).WithTenant(t.TenantID))
	return nil
}

// MarkFailed records a provider rejection
func (t *PaymentTransaction) MarkFailed(actorID models.ID, reason string) error {
	if !t.IsActive() {
		return NewInvalidStateError("payment %s cannot fail from status %s", t.ID, t.Status)
	}

	t.Status = PaymentStatusFailed
	t.FailureReason = reason
	t.releaseConfirmationClaim()
	t.touch(actorID)

	t.recordEvent(events.NewEvent(t.ID, events.PaymentFailedEvent, PaymentStatusData{
		TransactionID:    t.ID,
		OrderID:          t.OrderID,
		Provider:         t.Provider,
		ProviderIntentID: t.ProviderIntentID,
		Amount:           t.Amount,
		Status:           t.Status,
		Reason:           reason,
	}).WithTenant(t.TenantID))
	return nil
}

// Cancel abandons an in-flight transaction
func (t *PaymentTransaction) Cancel(actorID models.ID, reason string) error {
	if !t.IsActive() {
		return NewInvalidStateError("payment %s cannot be cancelled from status %s", t.ID, t.Status)
	}

	t.Status = PaymentStatusCancelled
	t.FailureReason = reason
	t.releaseConfirmationClaim()
	t.touch(actorID)

	t.recordEvent(events.NewEvent(t.ID, events.PaymentCancelledEvent, PaymentStatusData{
		TransactionID:    t.ID,
		OrderID:          t.OrderID,
		Provider:         t.Provider,
		ProviderIntentID: t.ProviderIntentID,
		Amount:           t.Amount,
		Status:           t.Status,
		Reason:           reason,
	}).WithTenant(t.TenantID))
	return nil
}

// ClaimConfirmation marks the transaction as being confirmed by the caller.
// Another attempt's claim younger than ConfirmationLease is a conflict.
func (t *PaymentTransaction) ClaimConfirmation(actorID models.ID, now time.Time) error {
	if !t.IsActive() {
		return NewInvalidStateError("payment %s cannot be confirmed from status %s", t.ID, t.Status)
	}
	if claimedAt, ok := t.confirmationClaimedAt(); ok && now.Sub(claimedAt) < ConfirmationLease {
		return NewConflictError("payment %s is already being confirmed", t.ID)
	}

	if t.Metadata == nil {
		t.Metadata = map[string]interface{}{}
	}
	t.Metadata[MetadataConfirmationClaim] = now.UTC().Format(time.RFC3339Nano)
	t.touch(actorID)
	return nil
}

// AwaitProvider records a confirmation the provider has not settled yet.
// The transaction stays Processing and keeps whatever the gateway returned,
// client secret included.
func (t *PaymentTransaction) AwaitProvider(actorID models.ID, result *GatewayResult) error {
	if !t.IsActive() {
		return NewInvalidStateError("payment %s cannot await the provider from status %s", t.ID, t.Status)
	}

	t.applyGatewayResult(result)
	t.Status = PaymentStatusProcessing
	t.releaseConfirmationClaim()
	t.touch(actorID)
	return nil
}

func (t *PaymentTransaction) confirmationClaimedAt() (time.Time, bool) {
	raw, ok := t.Metadata[MetadataConfirmationClaim].(string)
	if !ok {
		return time.Time{}, false
	}
	claimedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return claimedAt, true
}

func (t *PaymentTransaction) releaseConfirmationClaim() {
	delete(t.Metadata, MetadataConfirmationClaim)
}

// RefundedSoFar returns the cumulative refunded amount
func (t *PaymentTransaction) RefundedSoFar() models.Money {
	if t.RefundAmount == nil {
		return models.Zero(t.Amount.Currency)
	}
	return *t.RefundAmount
}

// RemainingRefundable returns what can still be refunded
func (t *PaymentTransaction) RemainingRefundable() models.Money {
	remaining, _ := t.Amount.Subtract(t.RefundedSoFar())
	return remaining
}

// ValidateRefund checks a refund request without mutating
func (t *PaymentTransaction) ValidateRefund(amount models.Money) error {
	if t.Status != PaymentStatusSucceeded && t.Status != PaymentStatusPartiallyRefunded {
		return NewInvalidStateError("only succeeded payments can be refunded (status: %s)", t.Status)
	}
	if !amount.IsPositive() {
		return NewValidationError("refund amount must be positive")
	}
	if amount.Currency != t.Amount.Currency {
		return NewValidationError("refund currency must match payment currency")
	}
	if amount.GreaterThan(t.RemainingRefundable()) {
		return NewValidationError("refund amount cannot exceed remaining refundable amount %s", t.RemainingRefundable())
	}
	return nil
}

// ApplyRefund accumulates a refund. The transaction is Refunded once the
// cumulative refund equals the original amount.
func (t *PaymentTransaction) ApplyRefund(actorID models.ID, amount models.Money, reason string) error {
	if err := t.ValidateRefund(amount); err != nil {
		return err
	}

	total, err := t.RefundedSoFar().Add(amount)
	if err != nil {
		return NewValidationError("refund currency must match payment currency")
	}

	t.RefundAmount = &total
	t.RefundReason = reason
	if total.Amount == t.Amount.Amount {
		t.Status = PaymentStatusRefunded
	} else {
		t.Status = PaymentStatusPartiallyRefunded
	}
	t.touch(actorID)

	t.recordEvent(events.NewEvent(t.ID, events.PaymentRefundedEvent, PaymentRefundedData{
		TransactionID: t.ID,
		OrderID:       t.OrderID,
		Amount:        amount,
		TotalRefunded: total,
		Reason:        reason,
		Status:        t.Status,
		RefundedAt:    time.Now().UTC(),
	}).WithTenant(t.TenantID))
	return nil
}

// MergeMetadata merges provider metadata into the transaction metadata
func (t *PaymentTransaction) MergeMetadata(metadata map[string]interface{}) {
	if t.Metadata == nil {
		t.Metadata = map[string]interface{}{}
	}
	for k, v := range metadata {
		t.Metadata[k] = v
	}
}

func (t *PaymentTransaction) applyGatewayResult(result *GatewayResult) {
	if result.TransactionID != "" {
		t.ProviderTransactionID = result.TransactionID
	}
	if result.IntentID != "" {
		t.ProviderIntentID = result.IntentID
	}
	t.MergeMetadata(result.Metadata)
	if result.ClientSecret != "" {
		t.Metadata[MetadataClientSecret] = result.ClientSecret
	}
}

func (t *PaymentTransaction) touch(actorID models.ID) {
	if !actorID.IsEmpty() {
		t.ModifiedBy = actorID
	}
	t.Timestamps = t.Timestamps.Update()
}

// Clone returns a detached copy without pending events
func (t *PaymentTransaction) Clone() *PaymentTransaction {
	c := *t
	c.Metadata = make(map[string]interface{}, len(t.Metadata))
	for k, v := range t.Metadata {
		c.Metadata[k] = v
	}
	if t.RefundAmount != nil {
		amount := *t.RefundAmount
		c.RefundAmount = &amount
	}
	c.events = nil
	return &c
}

// Events returns domain events
func (t *PaymentTransaction) Events() []*events.Event {
	return t.events
}

// ClearEvents clears domain events
func (t *PaymentTransaction) ClearEvents() {
	t.events = nil
}

func (t *PaymentTransaction) recordEvent(event *events.Event) {
	t.events = append(t.events, event)
}

// Event Data Structures
type PaymentStatusData struct {
	TransactionID         models.ID       `json:"transaction_id"`
	OrderID               models.ID       `json:"order_id"`
	Provider              PaymentProvider `json:"provider"`
	ProviderIntentID      string          `json:"provider_intent_id,omitempty"`
	ProviderTransactionID string          `json:"provider_transaction_id,omitempty"`
	Amount                models.Money    `json:"amount"`
	Status                PaymentStatus   `json:"status"`
	Reason                string          `json:"reason,omitempty"`
}

type PaymentRefundedData struct {
	TransactionID models.ID     `json:"transaction_id"`
	OrderID       models.ID     `json:"order_id"`
	Amount        models.Money  `json:"amount"`
	TotalRefunded models.Money  `json:"total_refunded"`
	Reason        string        `json:"reason"`
	Status        PaymentStatus `json:"status"`
	RefundedAt    time.Time     `json:"refunded_at"`
}
