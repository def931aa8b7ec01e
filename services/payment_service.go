package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/payments"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

const (
	paymentNotFound = "Payment not found"
	// PaymentTimeout bounds every call to the payment provider
	PaymentTimeout = 30 * time.Second
)

// PaymentService orchestrates payment intents between the provider and the store.
// The local record is a cache of provider truth.
type PaymentService struct {
	store   database.Storage
	gateway payments.Gateway
	policy  auth.Policy
	logger  *slog.Logger
	now     func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(store database.Storage, gateway payments.Gateway, policy auth.Policy, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateIntentRequest opens a payment for one course
type CreateIntentRequest struct {
	CourseID string `json:"courseId" validate:"required,max=100"`
}

// RefundRequest is the admin refund body. A nil amount refunds in full.
type RefundRequest struct {
	Amount *int64 `json:"amount" validate:"omitempty,gte=1"`
	Reason string `json:"reason" validate:"omitempty,oneof=duplicate fraudulent requested_by_customer"`
}

// IntentResult is returned on creation only; clientSecret is never listed
type IntentResult struct {
	Payment      model.PaymentIntent `json:"payment"`
	ClientSecret string              `json:"clientSecret"`
}

// CreateIntent opens a provider intent for the course price. A pending intent
// for the same course and price is handed back instead of opening another.
func (s *PaymentService) CreateIntent(ctx context.Context, id *auth.Identity, req CreateIntentRequest) (*IntentResult, error) {
	course, err := s.store.Courses().FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, storeError(err, courseNotFound)
	}
	if !course.IsPublished {
		return nil, apperr.Validation("Course is not published")
	}
	if course.IsFree() {
		return nil, apperr.Validation("Course is free; enroll directly")
	}

	existing, err := s.store.Payments().FindBy(ctx, database.PaymentFilter{UserID: id.UserID, CourseID: course.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, p := range existing {
		if p.Status == model.PaymentSucceeded {
			return nil, apperr.ErrAlreadyPurchased
		}
	}
	for _, p := range existing {
		if p.Status == model.PaymentPending && p.Amount == course.Price && p.Currency == course.Currency && p.ClientSecret != "" {
			return &IntentResult{Payment: p, ClientSecret: p.ClientSecret}, nil
		}
	}

	gctx, cancel := context.WithTimeout(ctx, PaymentTimeout)
	defer cancel()
	intent, err := s.gateway.CreateIntent(gctx, payments.CreateParams{
		Amount:         course.Price,
		Currency:       course.Currency,
		UserID:         id.UserID,
		CourseID:       course.ID,
		Description:    course.Title,
		IdempotencyKey: fmt.Sprintf("intent-%s-%s-%d", id.UserID, course.ID, len(existing)),
	})
	if err != nil {
		return nil, s.gatewayError("create", err)
	}

	payment, err := s.store.Payments().Create(ctx, model.PaymentIntent{
		UserID:                id.UserID,
		CourseID:              course.ID,
		CourseTitle:           course.Title,
		Amount:                intent.Amount,
		Currency:              intent.Currency,
		Status:                model.PaymentPending,
		ProviderTransactionID: intent.ProviderID,
		ClientSecret:          intent.ClientSecret,
	})
	if errors.Is(err, database.ErrDuplicateProvider) {
		// a concurrent request already stored the intent the provider handed back
		stored, ferr := s.store.Payments().FindByProviderID(ctx, intent.ProviderID)
		if ferr != nil {
			return nil, apperr.Internal(ferr)
		}
		return &IntentResult{Payment: stored, ClientSecret: stored.ClientSecret}, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("payment intent created",
		"payment_id", payment.ID,
		"provider_id", intent.ProviderID,
		"user_id", id.UserID,
		"course_id", course.ID,
		"amount", intent.Amount,
	)
	return &IntentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// Confirm re-reads the intent from the provider and stores its status
func (s *PaymentService) Confirm(ctx context.Context, id *auth.Identity, paymentID string) (model.PaymentIntent, error) {
	payment, err := s.owned(ctx, id, paymentID)
	if err != nil {
		return model.PaymentIntent{}, err
	}

	gctx, cancel := context.WithTimeout(ctx, PaymentTimeout)
	defer cancel()
	remote, err := s.gateway.GetIntent(gctx, payment.ProviderTransactionID)
	if err != nil {
		return model.PaymentIntent{}, s.gatewayError("confirm", err)
	}

	if remote.Status == payment.Status {
		return payment, nil
	}
	updated, err := s.store.Payments().Transition(ctx, payment.ID, remote.Status, func(p *model.PaymentIntent) {
		p.FailureReason = remote.FailureReason
		if remote.Status == model.PaymentRefunded {
			p.RefundedAmount = remote.RefundedAmount
		}
	})
	if err != nil {
		if errors.Is(err, database.ErrAlreadyPurchased) {
			s.logger.Error("provider reports a second successful payment",
				"payment_id", payment.ID, "user_id", payment.UserID, "course_id", payment.CourseID)
		}
		return model.PaymentIntent{}, storeError(err, paymentNotFound)
	}
	s.logger.Info("payment confirmed", "payment_id", payment.ID, "status", updated.Status)
	return updated, nil
}

// Cancel aborts a pending intent at the provider and locally
func (s *PaymentService) Cancel(ctx context.Context, id *auth.Identity, paymentID string) (model.PaymentIntent, error) {
	payment, err := s.owned(ctx, id, paymentID)
	if err != nil {
		return model.PaymentIntent{}, err
	}
	if payment.Status != model.PaymentPending {
		return model.PaymentIntent{}, apperr.Conflict(fmt.Sprintf("Only pending payments can be canceled (status: %s)", payment.Status))
	}

	gctx, cancel := context.WithTimeout(ctx, PaymentTimeout)
	defer cancel()
	if _, err := s.gateway.CancelIntent(gctx, payment.ProviderTransactionID); err != nil {
		return model.PaymentIntent{}, s.gatewayError("cancel", err)
	}

	updated, err := s.store.Payments().Transition(ctx, payment.ID, model.PaymentCanceled, nil)
	if err != nil {
		return model.PaymentIntent{}, storeError(err, paymentNotFound)
	}
	s.logger.Info("payment canceled", "payment_id", payment.ID)
	return updated, nil
}

// Refund returns money for a succeeded payment. Admin only. The enrollment
// created from the payment is kept.
func (s *PaymentService) Refund(ctx context.Context, id *auth.Identity, paymentID string, req RefundRequest) (model.PaymentIntent, error) {
	if err := s.policy.Authorize(id, model.RoleAdmin); err != nil {
		return model.PaymentIntent{}, err
	}
	payment, err := s.store.Payments().FindByID(ctx, paymentID)
	if err != nil {
		return model.PaymentIntent{}, storeError(err, paymentNotFound)
	}
	if payment.Status != model.PaymentSucceeded {
		return model.PaymentIntent{}, apperr.Conflict(fmt.Sprintf("Only succeeded payments can be refunded (status: %s)", payment.Status))
	}

	amount := payment.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount < 1 || amount > payment.Amount {
		return model.PaymentIntent{}, apperr.Validation("Refund amount out of range", apperr.FieldError{
			Field:   "amount",
			Message: fmt.Sprintf("amount must be between 1 and %d", payment.Amount),
			Code:    "range",
		})
	}

	gctx, cancel := context.WithTimeout(ctx, PaymentTimeout)
	defer cancel()
	refund, err := s.gateway.Refund(gctx, payment.ProviderTransactionID, amount, req.Reason)
	if err != nil {
		return model.PaymentIntent{}, s.gatewayError("refund", err)
	}

	updated, err := s.store.Payments().Transition(ctx, payment.ID, model.PaymentRefunded, func(p *model.PaymentIntent) {
		p.RefundedAmount = refund.Amount
	})
	if err != nil {
		return model.PaymentIntent{}, storeError(err, paymentNotFound)
	}
	s.logger.Info("payment refunded", "payment_id", payment.ID, "amount", refund.Amount, "admin_id", id.UserID)
	return updated, nil
}

// HandleWebhook applies a signed provider event. Anything that cannot be
// applied is acknowledged; only a bad signature or payload is an error.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return apperr.Validation("Invalid webhook signature").Wrap(err)
		}
		return apperr.Validation("Invalid webhook payload").Wrap(err)
	}

	log := s.logger.With("event_id", event.ID, "event_type", event.Type, "provider_id", event.ProviderID)
	if event.Status == "" || event.ProviderID == "" {
		log.Debug("ignoring webhook event")
		return nil
	}

	payment, err := s.store.Payments().FindByProviderID(ctx, event.ProviderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Info("webhook for unknown payment intent")
			return nil
		}
		return apperr.Internal(err)
	}
	if payment.HasProcessed(event.ID) || payment.Status == event.Status {
		if err := s.store.Payments().RecordEvent(ctx, payment.ID, event.ID); err != nil {
			return apperr.Internal(err)
		}
		return nil
	}

	_, err = s.store.Payments().Transition(ctx, payment.ID, event.Status, func(p *model.PaymentIntent) {
		p.FailureReason = event.FailureReason
		if event.Status == model.PaymentRefunded {
			p.RefundedAmount = event.RefundedAmount
		}
		p.ProcessedEvents = append(p.ProcessedEvents, event.ID)
	})
	switch {
	case err == nil:
		log.Info("payment updated from webhook", "payment_id", payment.ID, "status", event.Status)
	case errors.Is(err, database.ErrInvalidTransition), errors.Is(err, database.ErrAlreadyPurchased):
		log.Warn("webhook transition rejected", "payment_id", payment.ID, "from", payment.Status, "to", event.Status, "error", err)
		if err := s.store.Payments().RecordEvent(ctx, payment.ID, event.ID); err != nil {
			return apperr.Internal(err)
		}
	default:
		return apperr.Internal(err)
	}
	return nil
}

// List returns payments. Non-admins only see their own.
func (s *PaymentService) List(ctx context.Context, id *auth.Identity, filter database.PaymentFilter) ([]model.PaymentIntent, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("Invalid status filter", apperr.FieldError{
			Field: "status", Message: "unknown payment status", Code: "oneof",
		})
	}
	if !id.IsAdmin() {
		if filter.UserID != "" && filter.UserID != id.UserID {
			return nil, apperr.Forbidden("You can only list your own payments")
		}
		filter.UserID = id.UserID
	}
	list, err := s.store.Payments().FindBy(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Get returns one payment. Owner or admin only.
func (s *PaymentService) Get(ctx context.Context, id *auth.Identity, paymentID string) (model.PaymentIntent, error) {
	return s.owned(ctx, id, paymentID)
}

// ReconcilePending re-queries intents left pending for longer than olderThan
// and stores their provider status. Returns how many changed.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	pending, err := s.store.Payments().FindBy(ctx, database.PaymentFilter{Status: model.PaymentPending})
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-olderThan)
	updated := 0
	for _, p := range pending {
		if p.CreatedAt.After(cutoff) {
			continue
		}
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		gctx, cancel := context.WithTimeout(ctx, PaymentTimeout)
		remote, err := s.gateway.GetIntent(gctx, p.ProviderTransactionID)
		cancel()
		if err != nil {
			s.logger.Warn("reconcile: provider lookup failed", "payment_id", p.ID, "error", err)
			continue
		}
		if remote.Status == p.Status {
			continue
		}

		_, err = s.store.Payments().Transition(ctx, p.ID, remote.Status, func(rec *model.PaymentIntent) {
			rec.FailureReason = remote.FailureReason
		})
		if err != nil {
			s.logger.Warn("reconcile: transition rejected", "payment_id", p.ID, "to", remote.Status, "error", err)
			continue
		}
		updated++
	}
	return updated, nil
}

func (s *PaymentService) owned(ctx context.Context, id *auth.Identity, paymentID string) (model.PaymentIntent, error) {
	payment, err := s.store.Payments().FindByID(ctx, paymentID)
	if err != nil {
		return model.PaymentIntent{}, storeError(err, paymentNotFound)
	}
	if err := s.policy.RequireOwnership(id, payment.UserID); err != nil {
		return model.PaymentIntent{}, err
	}
	return payment, nil
}

func (s *PaymentService) gatewayError(op string, err error) error {
	switch {
	case errors.Is(err, payments.ErrIntentNotFound):
		return apperr.NotFound("Payment intent not found at provider").Wrap(err)
	case errors.Is(err, payments.ErrNotCancelable):
		return apperr.Conflict("Payment can no longer be canceled").Wrap(err)
	case errors.Is(err, payments.ErrPaymentFailed):
		return apperr.Validation("Payment provider rejected the request").Wrap(err)
	}
	s.logger.Error("payment provider call failed", "op", op, "error", err)
	return apperr.ErrPaymentProviderUnavailable.Wrap(err)
}
