package payment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/query"
	"github.com/sahilchouksey/coursehub-api/utils/response"
	"github.com/sahilchouksey/coursehub-api/utils/validation"
)

// DefaultPageSize is the payment list page size when no limit is given
const DefaultPageSize = 20

// PaymentHandler handles payment intent requests and provider webhooks
type PaymentHandler struct {
	payments  *services.PaymentService
	validator *validation.Validator
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		validator: validation.NewValidator(),
	}
}

// CreateIntent handles POST /api/v1/payments/intents
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var req services.CreateIntentRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.payments.CreateIntent(c.UserContext(), middleware.GetIdentity(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, result)
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	p := query.New(c)
	filter := database.PaymentFilter{
		UserID:   p.String("userId"),
		CourseID: p.String("courseId"),
		Status: model.PaymentStatus(p.OneOf("status",
			string(model.PaymentPending), string(model.PaymentSucceeded), string(model.PaymentFailed),
			string(model.PaymentCanceled), string(model.PaymentRefunded))),
	}
	if err := p.Err(); err != nil {
		return response.FromError(c, err)
	}
	page, err := response.ParsePage(c, DefaultPageSize)
	if err != nil {
		return response.FromError(c, err)
	}

	list, err := h.payments.List(c.UserContext(), middleware.GetIdentity(c), filter)
	if err != nil {
		return response.FromError(c, err)
	}

	items, pagination := response.Paginate(list, page)
	return response.Paginated(c, items, pagination)
}

// GetIntent handles GET /api/v1/payments/intents/:id
func (h *PaymentHandler) GetIntent(c *fiber.Ctx) error {
	payment, err := h.payments.Get(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, payment)
}

// ConfirmIntent handles POST /api/v1/payments/intents/:id/confirm
func (h *PaymentHandler) ConfirmIntent(c *fiber.Ctx) error {
	payment, err := h.payments.Confirm(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, payment)
}

// CancelIntent handles POST /api/v1/payments/intents/:id/cancel
func (h *PaymentHandler) CancelIntent(c *fiber.Ctx) error {
	payment, err := h.payments.Cancel(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Payment canceled", payment)
}

// RefundIntent handles POST /api/v1/payments/intents/:id/refund (admin)
func (h *PaymentHandler) RefundIntent(c *fiber.Ctx) error {
	var req services.RefundRequest
	if len(c.Body()) > 0 {
		if err := h.validator.ParseBody(c, &req); err != nil {
			return response.FromError(c, err)
		}
	}

	payment, err := h.payments.Refund(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Payment refunded", payment)
}

// Webhook handles POST /api/v1/payments/webhook. It is authenticated by the
// provider signature only, so the raw body must reach the verifier untouched.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	if err := h.payments.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature")); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"received": true})
}
