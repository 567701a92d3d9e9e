package infrastructure

import (
	"context"
	"strings"
	"sync"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/google/uuid"
)

// Sandbox test tokens
const (
	SandboxTokenDecline           = "tok_decline"
	SandboxTokenInsufficientFunds = "tok_insufficient_funds"
	SandboxTokenRequiresAction    = "tok_requires_action"
	SandboxTokenProcessing        = "tok_processing"
)

type sandboxIntent struct {
	id       string
	chargeID string
	amount   models.Money
	refunded int64
	status   domain.GatewayStatus
}

// SandboxGateway is a deterministic in-process card processor used for local
// development and tests. Decline behaviour is driven by the payment token.
type SandboxGateway struct {
	mu      sync.Mutex
	intents map[string]*sandboxIntent
}

// NewSandboxGateway creates a new SandboxGateway
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{intents: make(map[string]*sandboxIntent)}
}

func (g *SandboxGateway) CreateIntent(_ context.Context, req domain.IntentRequest) domain.GatewayResult {
	if !req.Amount.IsPositive() {
		return domain.FailedResult("amount must be positive")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	intent := &sandboxIntent{
		id:     "sb_pi_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		amount: req.Amount,
		status: domain.GatewayStatusRequiresAction,
	}
	g.intents[intent.id] = intent

	result := g.result(intent)
	result.Success = true
	result.ClientSecret = intent.id + "_secret"
	return result
}

func (g *SandboxGateway) Confirm(_ context.Context, intentID string, paymentMethodToken string) domain.GatewayResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return domain.FailedResult("no such payment intent")
	}
	if intent.status != domain.GatewayStatusRequiresAction {
		return domain.FailedResult("payment intent cannot be confirmed in status " + string(intent.status))
	}

	switch paymentMethodToken {
	case SandboxTokenDecline:
		return g.decline(intent, "card_declined")
	case SandboxTokenInsufficientFunds:
		return g.decline(intent, "insufficient_funds")
	case SandboxTokenRequiresAction:
		result := g.result(intent)
		result.RequiresAction = true
		result.ClientSecret = intent.id + "_secret_3ds"
		result.ErrorMessage = "authentication_required"
		return result
	case SandboxTokenProcessing:
		intent.status = domain.GatewayStatusProcessing
		return g.result(intent)
	}

	g.capture(intent)

	result := g.result(intent)
	result.Success = true
	result.TransactionID = intent.chargeID
	return result
}

func (g *SandboxGateway) GetStatus(_ context.Context, transactionID string) domain.GatewayResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := g.lookup(transactionID)
	if intent == nil {
		return domain.FailedResult("no such payment intent")
	}
	if intent.status == domain.GatewayStatusProcessing {
		// settles on the first poll
		g.capture(intent)
	}

	result := g.result(intent)
	result.Success = true
	return result
}

func (g *SandboxGateway) Refund(_ context.Context, transactionID string, amount *models.Money, _ string) domain.GatewayResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := g.lookup(transactionID)
	if intent == nil {
		return domain.FailedResult("no such payment intent")
	}
	if intent.status != domain.GatewayStatusSucceeded {
		return domain.FailedResult("payment intent has not succeeded")
	}

	refund := intent.amount.Amount - intent.refunded
	if amount != nil {
		refund = amount.Amount
	}
	if refund <= 0 || intent.refunded+refund > intent.amount.Amount {
		return domain.FailedResult("refund amount exceeds captured amount")
	}
	intent.refunded += refund

	return domain.GatewayResult{
		Success:       true,
		TransactionID: "sb_re_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		IntentID:      intent.id,
		Amount:        models.NewMoney(refund, intent.amount.Currency),
		Status:        domain.GatewayStatusRefunded,
		Metadata:      map[string]interface{}{"provider_status": "succeeded"},
	}
}

func (g *SandboxGateway) VoidIntent(_ context.Context, intentID string) domain.GatewayResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return domain.FailedResult("no such payment intent")
	}
	if intent.status == domain.GatewayStatusSucceeded {
		return domain.FailedResult("cannot void a captured payment intent")
	}

	intent.status = domain.GatewayStatusCanceled
	result := g.result(intent)
	result.Success = true
	return result
}

func (g *SandboxGateway) capture(intent *sandboxIntent) {
	intent.status = domain.GatewayStatusSucceeded
	intent.chargeID = "sb_ch_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (g *SandboxGateway) decline(intent *sandboxIntent, reason string) domain.GatewayResult {
	intent.status = domain.GatewayStatusFailed
	result := g.result(intent)
	result.ErrorMessage = reason
	return result
}

// lookup accepts either the intent id or the charge id
func (g *SandboxGateway) lookup(id string) *sandboxIntent {
	if intent, ok := g.intents[id]; ok {
		return intent
	}
	for _, intent := range g.intents {
		if intent.chargeID != "" && intent.chargeID == id {
			return intent
		}
	}
	return nil
}

func (g *SandboxGateway) result(intent *sandboxIntent) domain.GatewayResult {
	return domain.GatewayResult{
		TransactionID: intent.id,
		IntentID:      intent.id,
		Amount:        intent.amount,
		Status:        intent.status,
		Metadata: map[string]interface{}{
			"provider_status": string(intent.status),
		},
	}
}
