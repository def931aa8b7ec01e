package ai

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/response"
	"github.com/sahilchouksey/coursehub-api/utils/validation"
)

// AIHandler exposes the AI-assisted learning features
type AIHandler struct {
	ai        *services.AIService
	validator *validation.Validator
}

// NewAIHandler creates a new AI handler
func NewAIHandler(ai *services.AIService) *AIHandler {
	return &AIHandler{
		ai:        ai,
		validator: validation.NewValidator(),
	}
}

// Tutor handles POST /api/v1/ai/tutor
func (h *AIHandler) Tutor(c *fiber.Ctx) error {
	var req services.TutorRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	answer, err := h.ai.Tutor(c.UserContext(), middleware.GetIdentity(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, answer)
}

// AnalyzeResume handles POST /api/v1/ai/resume/analyze. Accepts either JSON
// {resumeText, targetRole} or a multipart PDF in field "file".
func (h *AIHandler) AnalyzeResume(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return h.analyzeResumeUpload(c)
	}

	var req services.ResumeRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	analysis, err := h.ai.AnalyzeResume(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, analysis)
}

func (h *AIHandler) analyzeResumeUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return response.FromError(c, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "file", Message: "file is required", Code: "required"}))
	}
	if header.Size > services.MaxResumePDFSize {
		return response.FromError(c, apperr.Validation("Resume file exceeds the 5 MB limit"))
	}

	file, err := header.Open()
	if err != nil {
		return response.FromError(c, apperr.Validation("Could not read uploaded file"))
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, services.MaxResumePDFSize+1))
	if err != nil {
		return response.FromError(c, apperr.Validation("Could not read uploaded file"))
	}

	targetRole := validation.SanitizeString(c.FormValue("targetRole"))
	if len(targetRole) > 200 {
		return response.FromError(c, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "targetRole", Message: "targetRole must be at most 200 characters", Code: "max"}))
	}

	analysis, err := h.ai.AnalyzeResumePDF(c.UserContext(), content, targetRole)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, analysis)
}

// Summarize handles POST /api/v1/ai/summarize
func (h *AIHandler) Summarize(c *fiber.Ctx) error {
	var req services.SummarizeRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	summary, err := h.ai.Summarize(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, summary)
}

// GenerateQuiz handles POST /api/v1/ai/quiz/generate
func (h *AIHandler) GenerateQuiz(c *fiber.Ctx) error {
	var req services.QuizRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	quiz, err := h.ai.GenerateQuiz(c.UserContext(), middleware.GetIdentity(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, quiz)
}
