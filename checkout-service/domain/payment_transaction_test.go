package domain

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T) *PaymentTransaction {
	t.Helper()
	order := newPendingOrder(t)
	order.Total = models.NewMoney(10000, "USD")
	return NewPaymentTransaction(order, PaymentProviderStripe, testActorID)
}

func TestPaymentTransaction_Lifecycle(t *testing.T) {
	txn := newTestTransaction(t)
	assert.Equal(t, PaymentStatusPending, txn.Status)
	assert.True(t, txn.IsActive())

	require.NoError(t, txn.MarkProcessing(testActorID, &GatewayResult{
		Success:      true,
		IntentID:     "pi_123",
		ClientSecret: "pi_123_secret",
		Metadata:     map[string]interface{}{"provider_status": "requires_confirmation"},
	}))
	assert.Equal(t, PaymentStatusProcessing, txn.Status)
	assert.Equal(t, "pi_123", txn.ProviderIntentID)
	assert.Equal(t, "pi_123_secret", txn.ClientSecret())
	assert.Equal(t, "requires_confirmation", txn.Metadata["provider_status"])

	assert.True(t, IsKind(txn.MarkProcessing(testActorID, nil), ErrorKindInvalidState))

	require.NoError(t, txn.MarkSucceeded(testActorID, &GatewayResult{Success: true, TransactionID: "ch_1"}))
	assert.Equal(t, PaymentStatusSucceeded, txn.Status)
	assert.Equal(t, "ch_1", txn.ProviderTransactionID)
	assert.False(t, txn.IsActive())

	assert.True(t, IsKind(txn.MarkFailed(testActorID, "late"), ErrorKindInvalidState))
	assert.True(t, IsKind(txn.Cancel(testActorID, "late"), ErrorKindInvalidState))

	topics := []string{}
	for _, evt := range txn.Events() {
		topics = append(topics, evt.EventType)
	}
	assert.Equal(t, []string{events.PaymentIntentCreatedEvent, events.PaymentSucceededEvent}, topics)
}

func TestPaymentTransaction_FailAndCancel(t *testing.T) {
	failed := newTestTransaction(t)
	require.NoError(t, failed.MarkFailed(testActorID, "card_declined"))
	assert.Equal(t, PaymentStatusFailed, failed.Status)
	assert.Equal(t, "card_declined", failed.FailureReason)

	cancelled := newTestTransaction(t)
	require.NoError(t, cancelled.MarkProcessing(testActorID, nil))
	require.NoError(t, cancelled.Cancel(testActorID, "saga compensation"))
	assert.Equal(t, PaymentStatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.ClientSecret())
}

func TestPaymentTransaction_ClaimConfirmation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txn := newTestTransaction(t)
	require.NoError(t, txn.MarkProcessing(testActorID, nil))

	require.NoError(t, txn.ClaimConfirmation(testActorID, now))
	assert.Equal(t, PaymentStatusProcessing, txn.Status)

	err := txn.ClaimConfirmation(testActorID, now.Add(time.Second))
	assert.True(t, IsKind(err, ErrorKindConflict))

	// an abandoned claim expires
	require.NoError(t, txn.ClaimConfirmation(testActorID, now.Add(ConfirmationLease)))

	require.NoError(t, txn.MarkSucceeded(testActorID, nil))
	assert.NotContains(t, txn.Metadata, MetadataConfirmationClaim)
	assert.True(t, IsKind(txn.ClaimConfirmation(testActorID, now), ErrorKindInvalidState))
}

func TestPaymentTransaction_AwaitProvider(t *testing.T) {
	txn := newTestTransaction(t)
	require.NoError(t, txn.MarkProcessing(testActorID, &GatewayResult{Success: true, IntentID: "pi_1", ClientSecret: "pi_1_secret_a"}))
	require.NoError(t, txn.ClaimConfirmation(testActorID, time.Now()))
	txn.ClearEvents()

	require.NoError(t, txn.AwaitProvider(testActorID, &GatewayResult{
		IntentID:       "pi_1",
		Status:         GatewayStatusRequiresAction,
		RequiresAction: true,
		ClientSecret:   "pi_1_secret_b",
		Metadata:       map[string]interface{}{"provider_status": "requires_action"},
	}))

	assert.Equal(t, PaymentStatusProcessing, txn.Status)
	assert.Equal(t, "pi_1_secret_b", txn.ClientSecret())
	assert.Equal(t, "requires_action", txn.Metadata["provider_status"])
	assert.NotContains(t, txn.Metadata, MetadataConfirmationClaim)
	assert.Empty(t, txn.Events())

	require.NoError(t, txn.MarkFailed(testActorID, "expired"))
	assert.True(t, IsKind(txn.AwaitProvider(testActorID, &GatewayResult{}), ErrorKindInvalidState))
}

func TestGatewayResult_InFlight(t *testing.T) {
	assert.True(t, GatewayResult{RequiresAction: true, Status: GatewayStatusRequiresAction}.InFlight())
	assert.True(t, GatewayResult{Status: GatewayStatusProcessing}.InFlight())
	assert.False(t, GatewayResult{Success: true, Status: GatewayStatusSucceeded}.InFlight())
	assert.False(t, FailedResult("card_declined").InFlight())
}

func TestIdempotencyKey(t *testing.T) {
	assert.Empty(t, IdempotencyKeyFrom(context.Background()))
	ctx := WithIdempotencyKey(context.Background(), "tx-1-confirm-3")
	assert.Equal(t, "tx-1-confirm-3", IdempotencyKeyFrom(ctx))
}

func TestPaymentTransaction_Refunds(t *testing.T) {
	tests := []struct {
		name          string
		refunds       []int64
		expectedError string
		wantStatus    PaymentStatus
		wantRefunded  int64
	}{
		{name: "full refund", refunds: []int64{10000}, wantStatus: PaymentStatusRefunded, wantRefunded: 10000},
		{name: "partial refund", refunds: []int64{2500}, wantStatus: PaymentStatusPartiallyRefunded, wantRefunded: 2500},
		{name: "partials add up to full", refunds: []int64{2500, 7500}, wantStatus: PaymentStatusRefunded, wantRefunded: 10000},
		{
			name:          "exceeds remaining",
			refunds:       []int64{6000, 5000},
			expectedError: "refund amount cannot exceed remaining refundable amount 40.00 USD",
			wantStatus:    PaymentStatusPartiallyRefunded,
			wantRefunded:  6000,
		},
		{name: "zero amount", refunds: []int64{0}, expectedError: "refund amount must be positive", wantStatus: PaymentStatusSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := newTestTransaction(t)
			require.NoError(t, txn.MarkSucceeded(testActorID, nil))

			var err error
			for _, amount := range tt.refunds {
				if err = txn.ApplyRefund(testActorID, models.NewMoney(amount, "USD"), "customer request"); err != nil {
					break
				}
			}

			if tt.expectedError != "" {
				assert.EqualError(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, txn.Status)
			assert.Equal(t, tt.wantRefunded, txn.RefundedSoFar().Amount)
		})
	}
}

func TestPaymentTransaction_RefundRequiresSucceeded(t *testing.T) {
	txn := newTestTransaction(t)
	err := txn.ApplyRefund(testActorID, models.NewMoney(100, "USD"), "")
	assert.True(t, IsKind(err, ErrorKindInvalidState))

	require.NoError(t, txn.MarkSucceeded(testActorID, nil))
	err = txn.ApplyRefund(testActorID, models.NewMoney(100, "EUR"), "")
	assert.EqualError(t, err, "refund currency must match payment currency")
}

func TestPaymentTransaction_Clone(t *testing.T) {
	txn := newTestTransaction(t)
	txn.MergeMetadata(map[string]interface{}{"a": "b"})

	clone := txn.Clone()
	clone.Metadata["a"] = "changed"

	assert.Equal(t, "b", txn.Metadata["a"])
}

func TestProduct_ReserveRelease(t *testing.T) {
	product := &Product{ID: testProductA, TenantID: testTenantID, Inventory: 5}

	require.NoError(t, product.Reserve(2))
	assert.Equal(t, int64(3), product.Inventory)

	err := product.Reserve(10)
	assert.EqualError(t, err, "insufficient inventory. available: 3, requested: 10")
	assert.Equal(t, int64(3), product.Inventory)

	assert.True(t, IsKind(product.Reserve(0), ErrorKindValidation))
	assert.True(t, IsKind(product.Release(-1), ErrorKindValidation))

	require.NoError(t, product.Release(2))
	assert.Equal(t, int64(5), product.Inventory)
}

func TestPaymentMethod(t *testing.T) {
	typ, err := NewPaymentMethodType("cash_on_delivery")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodTypeCashOnDelivery, typ)

	_, err = NewPaymentMethodType("barter")
	assert.True(t, IsKind(err, ErrorKindValidation))

	assert.True(t, codMethod().IsDeferredSettlement())
	assert.False(t, cardMethod().IsDeferredSettlement())
}

func TestProvider(t *testing.T) {
	local := NewLocalSettlementProvider(PaymentProviderManual)
	assert.Equal(t, ProviderKindLocalSettlement, local.Kind())
	_, ok := local.Gateway()
	assert.False(t, ok)

	gw := NewGatewayProvider(PaymentProviderStripe, nil)
	_, ok = gw.Gateway()
	assert.False(t, ok)
	assert.Equal(t, ProviderKindGateway, gw.Kind())
	assert.Equal(t, PaymentProviderStripe, gw.Name())
}
