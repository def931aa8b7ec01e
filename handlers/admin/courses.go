package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// SetCourseStats handles PUT /api/v1/admin/courses/:id/stats
func (h *AdminHandler) SetCourseStats(c *fiber.Ctx) error {
	var req services.StatsRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	course, err := h.courses.SetStats(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course stats updated", course)
}
