package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testSecret = "whsec_test"

func signed(payload string) ([]byte, string) {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testSecret,
	})
	return sp.Payload, sp.Header
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus model.PaymentStatus
		wantID     string
		wantRefund int64
		wantReason string
	}{
		{
			name:       "succeeded",
			payload:    `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded"}}}`,
			wantStatus: model.PaymentSucceeded,
			wantID:     "pi_1",
		},
		{
			name:       "failed",
			payload:    `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","object":"payment_intent","last_payment_error":{"message":"card declined"}}}}`,
			wantStatus: model.PaymentFailed,
			wantID:     "pi_2",
			wantReason: "card declined",
		},
		{
			name:       "refunded",
			payload:    `{"id":"evt_3","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_3","amount_refunded":500}}}`,
			wantStatus: model.PaymentRefunded,
			wantID:     "pi_3",
			wantRefund: 500,
		},
		{
			name:    "ignored type",
			payload: `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, header := signed(tt.payload)
			ev, err := parseEvent(body, header, testSecret)
			if err != nil {
				t.Fatal(err)
			}
			if ev.Status != tt.wantStatus || ev.ProviderID != tt.wantID && tt.wantID != "" {
				t.Fatalf("event = %+v", ev)
			}
			if ev.RefundedAmount != tt.wantRefund || ev.FailureReason != tt.wantReason {
				t.Fatalf("event = %+v", ev)
			}
		})
	}
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	body, _ := signed(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	if _, err := parseEvent(body, "t=1,v1=deadbeef", testSecret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v", err)
	}
}

func TestMapIntentStatus(t *testing.T) {
	tests := []struct {
		pi   stripe.PaymentIntent
		want model.PaymentStatus
	}{
		{pi: stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}, want: model.PaymentSucceeded},
		{pi: stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled}, want: model.PaymentCanceled},
		{pi: stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing}, want: model.PaymentPending},
		{pi: stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, want: model.PaymentPending},
		{pi: stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod, LastPaymentError: &stripe.Error{Msg: "declined"}}, want: model.PaymentFailed},
	}
	for _, tt := range tests {
		if got, _ := mapIntentStatus(&tt.pi); got != tt.want {
			t.Errorf("status %s: got %s, want %s", tt.pi.Status, got, tt.want)
		}
	}
}

func TestSandboxLifecycle(t *testing.T) {
	g := NewSandboxGateway(testSecret)
	ctx := context.Background()

	intent, err := g.CreateIntent(ctx, CreateParams{Amount: 4900, Currency: "usd", IdempotencyKey: "k1"})
	if err != nil {
		t.Fatal(err)
	}
	if intent.Status != model.PaymentPending || intent.ClientSecret == "" || intent.Currency != "USD" {
		t.Fatalf("intent = %+v", intent)
	}
	again, _ := g.CreateIntent(ctx, CreateParams{Amount: 4900, Currency: "usd", IdempotencyKey: "k1"})
	if again.ProviderID != intent.ProviderID {
		t.Fatal("idempotency key ignored")
	}

	if _, err := g.Refund(ctx, intent.ProviderID, 0, ""); err == nil {
		t.Fatal("refund of pending intent must fail")
	}
	g.Settle(intent.ProviderID, model.PaymentSucceeded, "")
	if _, err := g.CancelIntent(ctx, intent.ProviderID); !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("cancel succeeded intent: %v", err)
	}
	r, err := g.Refund(ctx, intent.ProviderID, 0, "")
	if err != nil || r.Amount != 4900 {
		t.Fatalf("refund = %+v, %v", r, err)
	}
}
