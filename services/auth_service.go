package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

var errRefreshReused = apperr.Unauthenticated("Refresh token has already been used")

// AuthService handles credentials and token issuance
type AuthService struct {
	users   database.UserStore
	tokens  *auth.JWTManager
	hasher  *auth.Hasher
	refresh auth.RefreshRegistry
	logger  *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users database.UserStore, tokens *auth.JWTManager, hasher *auth.Hasher, refresh auth.RefreshRegistry, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		refresh: refresh,
		logger:  logger,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Email     string     `json:"email" validate:"required,email,max=254"`
	Password  string     `json:"password" validate:"required,min=6"`
	FirstName string     `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string     `json:"lastName" validate:"required,min=1,max=100"`
	Role      model.Role `json:"role" validate:"omitempty,oneof=student instructor admin"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// AuthResult is the profile plus a fresh token pair
type AuthResult struct {
	User   model.User      `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func passwordError(field string, err error) error {
	return apperr.Validation("Validation failed", apperr.FieldError{
		Field:   field,
		Message: err.Error(),
		Code:    "password",
	})
}

// Signup registers a new account
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	role := req.Role
	if role == "" {
		role = model.RoleStudent
	}
	if role == model.RoleAdmin {
		return nil, apperr.Validation("Admin role cannot be self-assigned", apperr.FieldError{
			Field:   "role",
			Message: "role must be student or instructor",
			Code:    "oneof",
		})
	}
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role")
	}
	if err := auth.CheckPolicy(req.Password); err != nil {
		return nil, passwordError("password", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user, err := s.users.Create(ctx, model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		Preferences:  model.DefaultPreferences(),
		Progress:     []model.CourseProgress{},
	})
	if err != nil {
		return nil, storeError(err, "User not found")
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.hasher.VerifyDummy(req.Password)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	if err := s.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	return s.issue(user)
}

// Refresh rotates a refresh token. Each refresh token is accepted once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	fresh, err := s.refresh.Consume(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !fresh {
		s.logger.Warn("refresh token replay", "user_id", user.ID, "jti", claims.ID)
		return nil, errRefreshReused
	}

	return s.issue(user)
}

// Logout consumes the refresh token so it cannot be used again
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return tokenError(err)
	}
	if _, err := s.refresh.Consume(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, id *auth.Identity, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, id.UserID)
	if err != nil {
		return storeError(err, "User not found")
	}

	if err := s.hasher.Verify(user.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperr.Validation("Current password is incorrect", apperr.FieldError{
				Field:   "currentPassword",
				Message: "current password is incorrect",
				Code:    "mismatch",
			})
		}
		return apperr.Internal(err)
	}
	if err := auth.CheckPolicy(req.NewPassword); err != nil {
		return passwordError("newPassword", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if _, err := s.users.Update(ctx, user.ID, database.UserUpdate{PasswordHash: &hash}); err != nil {
		return storeError(err, "User not found")
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

func (s *AuthService) issue(user model.User) (*AuthResult, error) {
	tokens, err := s.tokens.GeneratePair(&user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return apperr.Unauthenticated("Refresh token has expired").Wrap(err)
	default:
		return apperr.Unauthenticated("Invalid refresh token").Wrap(err)
	}
}
