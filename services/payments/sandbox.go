package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/stripe/stripe-go/v79/webhook"
)

// SandboxGateway is an in-process provider used when no Stripe key is
// configured. Intents stay pending until Settle is called. Webhooks use the
// Stripe event format and signature scheme.
type SandboxGateway struct {
	mu            sync.Mutex
	intents       map[string]*Intent
	idempotency   map[string]string
	webhookSecret string
}

func NewSandboxGateway(webhookSecret string) *SandboxGateway {
	return &SandboxGateway{
		intents:       make(map[string]*Intent),
		idempotency:   make(map[string]string),
		webhookSecret: webhookSecret,
	}
}

func (g *SandboxGateway) CreateIntent(_ context.Context, params CreateParams) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.idempotency[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		cp := *g.intents[id]
		return &cp, nil
	}

	id := "pi_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := &Intent{
		ProviderID:   id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
		Amount:       params.Amount,
		Currency:     strings.ToUpper(params.Currency),
		Status:       model.PaymentPending,
	}
	g.intents[id] = intent
	if params.IdempotencyKey != "" {
		g.idempotency[params.IdempotencyKey] = id
	}

	cp := *intent
	return &cp, nil
}

func (g *SandboxGateway) GetIntent(_ context.Context, providerID string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[providerID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

func (g *SandboxGateway) CancelIntent(_ context.Context, providerID string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[providerID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if intent.Status != model.PaymentPending {
		return nil, ErrNotCancelable
	}
	intent.Status = model.PaymentCanceled
	cp := *intent
	return &cp, nil
}

func (g *SandboxGateway) Refund(_ context.Context, providerID string, amount int64, _ string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[providerID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if intent.Status != model.PaymentSucceeded {
		return nil, fmt.Errorf("%w: intent is %s", ErrPaymentFailed, intent.Status)
	}
	if amount <= 0 {
		amount = intent.Amount
	}
	intent.Status = model.PaymentRefunded
	intent.RefundedAmount = amount
	return &Refund{ID: "re_sandbox_" + uuid.NewString()[:8], Amount: amount, Status: "succeeded"}, nil
}

func (g *SandboxGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return parseEvent(payload, signature, g.webhookSecret)
}

// Settle moves a sandbox intent to a final status, as the customer's bank would
func (g *SandboxGateway) Settle(providerID string, status model.PaymentStatus, failureReason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[providerID]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = status
	intent.FailureReason = failureReason
	return nil
}

// SignedEvent builds a webhook delivery for a sandbox intent, signed with the
// gateway's secret. eventType is a Stripe event type such as
// payment_intent.succeeded or charge.refunded.
func (g *SandboxGateway) SignedEvent(eventID, eventType, providerID string) ([]byte, string) {
	g.mu.Lock()
	var refunded int64
	if intent, ok := g.intents[providerID]; ok {
		refunded = intent.RefundedAmount
	}
	g.mu.Unlock()

	object := map[string]interface{}{"id": providerID, "object": "payment_intent"}
	if eventType == "charge.refunded" {
		object = map[string]interface{}{
			"id":              "ch_" + providerID,
			"object":          "charge",
			"payment_intent":  providerID,
			"amount_refunded": refunded,
		}
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"id":     eventID,
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  g.webhookSecret,
	})
	return signed.Payload, signed.Header
}
