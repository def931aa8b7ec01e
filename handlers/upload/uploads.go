package upload

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
	"github.com/sahilchouksey/coursehub-api/utils/validation"
)

// UploadHandler handles object storage uploads
type UploadHandler struct {
	uploads   *services.UploadService
	validator *validation.Validator
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{
		uploads:   uploads,
		validator: validation.NewValidator(),
	}
}

// Upload handles POST /api/v1/uploads (multipart field "file")
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
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

	result, err := h.uploads.Upload(c.UserContext(), middleware.GetIdentity(c), header.Filename, header.Size, file)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, result)
}

// Delete handles DELETE /api/v1/uploads with {"key": "<key or url>"}
func (h *UploadHandler) Delete(c *fiber.Ctx) error {
	var req services.DeleteUploadRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	if err := h.uploads.Delete(c.UserContext(), middleware.GetIdentity(c), req.Key); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "File deleted successfully", nil)
}
