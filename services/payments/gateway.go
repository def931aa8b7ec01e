package payments

import (
	"context"
	"errors"

	"github.com/sahilchouksey/coursehub-api/model"
)

var (
	ErrInvalidSignature = errors.New("webhook signature invalid")
	ErrProviderDown     = errors.New("payment provider unavailable")
	ErrIntentNotFound   = errors.New("payment intent not found at provider")
	ErrNotCancelable    = errors.New("payment intent cannot be canceled")
	ErrPaymentFailed    = errors.New("payment failed")
)

// CreateParams opens a provider intent for one course purchase
type CreateParams struct {
	Amount         int64
	Currency       string
	UserID         string
	CourseID       string
	Description    string
	IdempotencyKey string
}

// Intent is the provider's view of a payment
type Intent struct {
	ProviderID     string
	ClientSecret   string
	Amount         int64
	Currency       string
	Status         model.PaymentStatus
	FailureReason  string
	RefundedAmount int64
}

// Refund is the provider's view of a refund
type Refund struct {
	ID     string
	Amount int64
	Status string
}

// Event is a verified, normalized webhook event. Status is empty for
// events that do not move a payment.
type Event struct {
	ID             string
	Type           string
	ProviderID     string
	Status         model.PaymentStatus
	FailureReason  string
	RefundedAmount int64
}

// Gateway is the payment provider collaborator
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateParams) (*Intent, error)
	GetIntent(ctx context.Context, providerID string) (*Intent, error)
	CancelIntent(ctx context.Context, providerID string) (*Intent, error)
	Refund(ctx context.Context, providerID string, amount int64, reason string) (*Refund, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
