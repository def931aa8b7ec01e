package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/query"
	"github.com/sahilchouksey/coursehub-api/utils/response"
	"github.com/sahilchouksey/coursehub-api/utils/validation"
)

// DefaultPageSize is the catalog page size when no limit is given
const DefaultPageSize = 12

// CourseHandler handles course-related requests
type CourseHandler struct {
	courses   *services.CourseService
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{
		courses:   courses,
		validator: validation.NewValidator(),
	}
}

func parseCourseQuery(c *fiber.Ctx) (services.CourseQuery, error) {
	p := query.New(c)
	q := services.CourseQuery{
		Search:        p.String("search"),
		Category:      p.String("category"),
		Level:         model.Level(p.OneOf("level", string(model.LevelBeginner), string(model.LevelIntermediate), string(model.LevelAdvanced))),
		InstructorID:  p.String("instructorId"),
		MinPrice:      p.Int64("minPrice"),
		MaxPrice:      p.Int64("maxPrice"),
		MinRating:     p.Float("minRating"),
		MaxRating:     p.Float("maxRating"),
		IncludeDrafts: p.Bool("includeDrafts"),
	}
	return q, p.Err()
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	q, err := parseCourseQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	page, err := response.ParsePage(c, DefaultPageSize)
	if err != nil {
		return response.FromError(c, err)
	}

	courses, err := h.courses.List(c.UserContext(), middleware.GetIdentity(c), q)
	if err != nil {
		return response.FromError(c, err)
	}

	items, pagination := response.Paginate(courses, page)
	return response.Paginated(c, items, pagination)
}

// ListMyCourses handles GET /api/v1/courses/mine
func (h *CourseHandler) ListMyCourses(c *fiber.Ctx) error {
	page, err := response.ParsePage(c, DefaultPageSize)
	if err != nil {
		return response.FromError(c, err)
	}

	courses, err := h.courses.Mine(c.UserContext(), middleware.GetIdentity(c))
	if err != nil {
		return response.FromError(c, err)
	}

	items, pagination := response.Paginate(courses, page)
	return response.Paginated(c, items, pagination)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.courses.Get(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req services.CreateCourseRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	course, err := h.courses.Create(c.UserContext(), middleware.GetIdentity(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	var req services.UpdateCourseRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	course, err := h.courses.Update(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	if err := h.courses.Delete(c.UserContext(), middleware.GetIdentity(c), c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}

// PublishCourse handles POST /api/v1/courses/:id/publish
func (h *CourseHandler) PublishCourse(c *fiber.Ctx) error {
	course, err := h.courses.Publish(c.UserContext(), middleware.GetIdentity(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course published successfully", course)
}
