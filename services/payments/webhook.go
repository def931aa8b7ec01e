package payments

import (
	"encoding/json"
	"fmt"

	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// parseEvent verifies a Stripe-format webhook and maps it onto an Event.
// Unknown event types come back with an empty Status.
func parseEvent(payload []byte, signature, secret string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("malformed payment intent event: %w", err)
		}
		out.ProviderID = pi.ID
		switch event.Type {
		case "payment_intent.succeeded":
			out.Status = model.PaymentSucceeded
		case "payment_intent.payment_failed":
			out.Status = model.PaymentFailed
			if pi.LastPaymentError != nil {
				out.FailureReason = pi.LastPaymentError.Msg
			}
		default:
			out.Status = model.PaymentCanceled
		}

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("malformed charge event: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.ProviderID = ch.PaymentIntent.ID
		}
		out.Status = model.PaymentRefunded
		out.RefundedAmount = ch.AmountRefunded
	}

	return out, nil
}

// mapIntentStatus converts a Stripe intent status onto the local state machine
func mapIntentStatus(pi *stripe.PaymentIntent) (model.PaymentStatus, string) {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return model.PaymentSucceeded, ""
	case stripe.PaymentIntentStatusCanceled:
		return model.PaymentCanceled, ""
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// a failed attempt drops the intent back to requires_payment_method
		if pi.LastPaymentError != nil {
			return model.PaymentFailed, pi.LastPaymentError.Msg
		}
	}
	// processing, requires_action, requires_confirmation, requires_capture
	return model.PaymentPending, ""
}
