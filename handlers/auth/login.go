package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		// Only bad credentials count towards a lockout
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			h.bruteForceProtection.RecordFailedAttempt(c)
		}
		return response.FromError(c, err)
	}

	// Clear failed attempts on successful login
	h.bruteForceProtection.RecordSuccessfulAttempt(c)

	return response.Success(c, result)
}
