package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// RefreshToken handles POST /api/v1/auth/refresh. The presented token is
// consumed; a second use is rejected.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req services.RefreshRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req services.RefreshRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	if err := h.auth.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
