package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// UploadThumbnail handles POST /api/v1/courses/:id/thumbnail (multipart field "file")
func (h *CourseHandler) UploadThumbnail(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return response.FromError(c, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "file", Message: "file is required", Code: "required"}))
	}

	file, err := header.Open()
	if err != nil {
		return response.FromError(c, apperr.Validation("Could not read uploaded file"))
	}
	defer file.Close()

	course, err := h.courses.UploadThumbnail(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), header.Filename, header.Size, file)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Thumbnail uploaded successfully", course)
}

// DeleteThumbnail handles DELETE /api/v1/courses/:id/thumbnail
func (h *CourseHandler) DeleteThumbnail(c *fiber.Ctx) error {
	course, err := h.courses.DeleteThumbnail(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Thumbnail removed successfully", course)
}
