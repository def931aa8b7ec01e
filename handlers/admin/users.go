package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
	"github.com/sahilchouksey/coursehub-api/utils/query"
	"github.com/sahilchouksey/coursehub-api/utils/response"
	"github.com/sahilchouksey/coursehub-api/utils/validation"
)

// DefaultPageSize is the user list page size when no limit is given
const DefaultPageSize = 20

// AdminHandler handles the admin-only user and course management routes.
// Role checks happen in the router; services still enforce self-protection.
type AdminHandler struct {
	users     *services.UserService
	courses   *services.CourseService
	validator *validation.Validator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *services.UserService, courses *services.CourseService) *AdminHandler {
	return &AdminHandler{
		users:     users,
		courses:   courses,
		validator: validation.NewValidator(),
	}
}

// ListUsers handles GET /api/v1/admin/users?search=&role=
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := query.New(c)
	filter := database.UserFilter{
		Search: p.String("search"),
		Role:   model.Role(p.OneOf("role", string(model.RoleStudent), string(model.RoleInstructor), string(model.RoleAdmin))),
	}
	if err := p.Err(); err != nil {
		return response.FromError(c, err)
	}
	page, err := response.ParsePage(c, DefaultPageSize)
	if err != nil {
		return response.FromError(c, err)
	}

	users, err := h.users.ListUsers(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}

	items, pagination := response.Paginate(users, page)
	return response.Paginated(c, items, pagination)
}

// GetUser handles GET /api/v1/admin/users/:id
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// ChangeRole handles PUT /api/v1/admin/users/:id/role
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	var req services.ChangeRoleRequest
	if err := h.validator.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	user, err := h.users.ChangeRole(c.UserContext(), middleware.GetIdentity(c), c.Params("id"), req.Role)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Role updated successfully", user)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.DeleteUser(c.UserContext(), middleware.GetIdentity(c), c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "User deleted successfully", nil)
}
