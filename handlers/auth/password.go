package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// ChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req services.ChangePasswordRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	if err := h.auth.ChangePassword(c.UserContext(), middleware.GetIdentity(c), req); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Password changed successfully", nil)
}
