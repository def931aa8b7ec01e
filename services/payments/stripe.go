package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeGateway implements Gateway on top of the Stripe API
type StripeGateway struct {
	client        *client.API
	webhookSecret string
}

// NewStripeGateway creates a new StripeGateway with the provided secret key
func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)

	return &StripeGateway{client: sc, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req CreateParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("userId", req.UserID)
	params.AddMetadata("courseId", req.CourseID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, providerID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.Get(providerID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, providerID string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonRequestedByCustomer)),
	}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.Cancel(providerID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) Refund(ctx context.Context, providerID string, amount int64, reason string) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(providerID),
		Reason:        stripe.String(refundReason(reason)),
	}
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	params.Context = ctx

	r, err := g.client.Refunds.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Refund{ID: r.ID, Amount: r.Amount, Status: string(r.Status)}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return parseEvent(payload, signature, g.webhookSecret)
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	status, reason := mapIntentStatus(pi)
	out := &Intent{
		ProviderID:    pi.ID,
		ClientSecret:  pi.ClientSecret,
		Amount:        pi.Amount,
		Currency:      strings.ToUpper(string(pi.Currency)),
		Status:        status,
		FailureReason: reason,
	}
	if pi.LatestCharge != nil {
		out.RefundedAmount = pi.LatestCharge.AmountRefunded
	}
	return out
}

// refundReason maps free text onto Stripe's closed reason set
func refundReason(reason string) string {
	switch strings.ToLower(reason) {
	case "duplicate":
		return string(stripe.RefundReasonDuplicate)
	case "fraudulent":
		return string(stripe.RefundReasonFraudulent)
	}
	return string(stripe.RefundReasonRequestedByCustomer)
}

// mapStripeError converts library errors into gateway errors
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.Code == stripe.ErrorCodeResourceMissing:
			return fmt.Errorf("%w: %s", ErrIntentNotFound, stripeErr.Msg)
		case stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState:
			return fmt.Errorf("%w: %s", ErrNotCancelable, stripeErr.Msg)
		case stripeErr.Type == stripe.ErrorTypeCard:
			return fmt.Errorf("%w: %s", ErrPaymentFailed, stripeErr.Msg)
		case stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s", ErrProviderDown, stripeErr.Msg)
		}
	}
	return fmt.Errorf("%w: %v", ErrProviderDown, err)
}
