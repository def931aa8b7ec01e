package response

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

// Debug exposes internal error causes in responses. Off in production.
var Debug = false

// Response represents a standardized API response
type Response struct {
	Success    bool                `json:"success"`
	Data       interface{}         `json:"data,omitempty"`
	Message    string              `json:"message,omitempty"`
	Error      string              `json:"error,omitempty"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
	Pagination *Pagination         `json:"pagination,omitempty"`
}

// Pagination contains pagination metadata
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage returns a successful response with a message
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created returns a 201 Created response
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: "Resource created successfully",
		Data:    data,
	})
}

// Paginated returns a page of results
func Paginated(c *fiber.Ctx, data interface{}, pagination Pagination) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success:    true,
		Data:       data,
		Pagination: &pagination,
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, statusCode int, message string, code string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message, "BAD_REQUEST")
}

// Unauthorized returns a 401 Unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Unauthorized access"
	}
	return Error(c, fiber.StatusUnauthorized, message, "UNAUTHENTICATED")
}

// Forbidden returns a 403 Forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Access forbidden"
	}
	return Error(c, fiber.StatusForbidden, message, "FORBIDDEN")
}

// NotFound returns a 404 Not Found response
func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return Error(c, fiber.StatusNotFound, message, "NOT_FOUND")
}

// TooManyRequests returns a 429 Too Many Requests response
func TooManyRequests(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Too many requests"
	}
	return Error(c, fiber.StatusTooManyRequests, message, "TOO_MANY_REQUESTS")
}

// InternalServerError returns a 500 Internal Server Error response
func InternalServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, fiber.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// FromError translates any error into the envelope.
// Application errors keep their kind; anything else becomes a 500.
func FromError(c *fiber.Ctx, err error) error {
	appErr := apperr.As(err)

	message := appErr.Message
	if appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindUpstream {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"code", appErr.Code,
			"error", err,
		)
		if Debug && appErr.Err != nil {
			message = appErr.Message + ": " + appErr.Err.Error()
		}
	}

	return c.Status(appErr.Kind.Status()).JSON(Response{
		Success: false,
		Message: message,
		Error:   appErr.Code,
		Errors:  appErr.Fields,
	})
}
