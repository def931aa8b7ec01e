package model

import "time"

// PaymentStatus is the lifecycle state of a PaymentIntent
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSucceeded, PaymentFailed, PaymentCanceled, PaymentRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is allowed.
// pending -> succeeded|failed|canceled, succeeded -> refunded.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentSucceeded || next == PaymentFailed || next == PaymentCanceled
	case PaymentSucceeded:
		return next == PaymentRefunded
	}
	return false
}

// PaymentIntent is the local cache of one provider payment attempt
type PaymentIntent struct {
	ID                    string        `json:"id"`
	UserID                string        `json:"userId"`
	CourseID              string        `json:"courseId"`
	CourseTitle           string        `json:"courseTitle,omitempty"`
	Amount                int64         `json:"amount"`
	Currency              string        `json:"currency"`
	Status                PaymentStatus `json:"status"`
	ProviderTransactionID string        `json:"providerTransactionId"`
	ClientSecret          string        `json:"-"`
	RefundedAmount        int64         `json:"refundedAmount,omitempty"`
	FailureReason         string        `json:"failureReason,omitempty"`
	ProcessedEvents       []string      `json:"-"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

// HasProcessed reports whether a provider event was already applied
func (p *PaymentIntent) HasProcessed(eventID string) bool {
	for _, id := range p.ProcessedEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (p PaymentIntent) Clone() PaymentIntent {
	p.ProcessedEvents = append([]string(nil), p.ProcessedEvents...)
	return p
}
