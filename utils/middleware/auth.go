package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

const identityKey = "identity"

// AuthMiddleware handles JWT authentication and role checks
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      database.UserStore
	policy     auth.Policy
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, users database.UserStore, policy auth.Policy) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
		policy:     policy,
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", apperr.Unauthenticated("Missing authorization token")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperr.Unauthenticated("Invalid authorization format")
	}
	return parts[1], nil
}

// resolve turns the bearer token into an identity carrying the stored role
func (m *AuthMiddleware) resolve(c *fiber.Ctx) (*auth.Identity, error) {
	token, err := bearerToken(c)
	if err != nil {
		return nil, err
	}

	claims, err := m.jwtManager.ValidateAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperr.Unauthenticated("Token has expired")
		}
		return nil, apperr.Unauthenticated("Invalid token")
	}

	user, err := m.users.FindByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	return &auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// Required is middleware that requires a valid access token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := m.resolve(c)
		if err != nil {
			return response.FromError(c, err)
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// Optional populates the identity when a valid token is present and never fails
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		if id, err := m.resolve(c); err == nil {
			c.Locals(identityKey, id)
		}
		return c.Next()
	}
}

// RequireRole must run after Required
func (m *AuthMiddleware) RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := m.policy.Authorize(GetIdentity(c), roles...); err != nil {
			return response.FromError(c, err)
		}
		return c.Next()
	}
}

// RequireAdmin must run after Required
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRole(model.RoleAdmin)
}

// GetIdentity returns the caller, nil for anonymous requests
func GetIdentity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityKey).(*auth.Identity)
	return id
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	id := GetIdentity(c)
	if id == nil {
		return "", false
	}
	return id.UserID, true
}
