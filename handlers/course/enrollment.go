package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// Enroll handles POST /api/v1/courses/:id/enroll
func (h *CourseHandler) Enroll(c *fiber.Ctx) error {
	progress, err := h.courses.Enroll(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, progress)
}

// UpdateProgress handles PUT /api/v1/courses/:id/progress
func (h *CourseHandler) UpdateProgress(c *fiber.Ctx) error {
	var req services.ProgressRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	progress, err := h.courses.UpdateProgress(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, progress)
}

// GetResourceURL handles GET /api/v1/courses/:id/resources/signed-url?url=...
func (h *CourseHandler) GetResourceURL(c *fiber.Ctx) error {
	resource := c.Query("url")
	if resource == "" {
		return response.FromError(c, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "url", Message: "url is required", Code: "required"}))
	}

	signed, err := h.courses.ResourceURL(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), resource)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, signed)
}
