package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
	"github.com/sahilchouksey/coursehub-api/utils/validation"
)

// AuthHandler handles authentication and profile requests
type AuthHandler struct {
	auth                 *services.AuthService
	users                *services.UserService
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil.
func NewAuthHandler(auth *services.AuthService, users *services.UserService, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		auth:                 auth,
		users:                users,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
	}
}

// Signup handles POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req services.SignupRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.auth.Signup(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}
