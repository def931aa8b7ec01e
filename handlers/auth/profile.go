package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// GetProfile handles GET /api/v1/profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, err := h.users.GetProfile(c.UserContext(), middleware.GetIdentity(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req services.UpdateProfileRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	user, err := h.users.UpdateProfile(c.UserContext(), middleware.GetIdentity(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Profile updated successfully", user)
}

// UpdatePreferences handles PUT /api/v1/profile/preferences
func (h *AuthHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req services.UpdatePreferencesRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	user, err := h.users.UpdatePreferences(c.UserContext(), middleware.GetIdentity(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user.Preferences)
}

// DeleteAccount handles DELETE /api/v1/profile
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	var req services.DeleteAccountRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	if err := h.users.DeleteAccount(c.UserContext(), middleware.GetIdentity(c), req); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Account deleted successfully", nil)
}

// GetEnrollments handles GET /api/v1/profile/enrollments
func (h *AuthHandler) GetEnrollments(c *fiber.Ctx) error {
	enrollments, err := h.users.Enrollments(c.UserContext(), middleware.GetIdentity(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, enrollments)
}

// GetUserProgress handles GET /api/v1/users/:id/progress
func (h *AuthHandler) GetUserProgress(c *fiber.Ctx) error {
	progress, err := h.users.Progress(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, progress)
}
