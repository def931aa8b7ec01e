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

// UserService handles profiles, enrollment listings and user administration
type UserService struct {
	store  database.Storage
	hasher *auth.Hasher
	policy auth.Policy
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(store database.Storage, hasher *auth.Hasher, policy auth.Policy, logger *slog.Logger) *UserService {
	return &UserService{store: store, hasher: hasher, policy: policy, logger: logger}
}

// UpdateProfileRequest is a partial profile patch
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=2048"`
}

// UpdatePreferencesRequest is a partial preference patch
type UpdatePreferencesRequest struct {
	EmailNotifications *bool     `json:"emailNotifications"`
	Language           *string   `json:"language" validate:"omitempty,min=2,max=10"`
	Theme              *string   `json:"theme" validate:"omitempty,oneof=light dark system"`
	LearningGoals      *[]string `json:"learningGoals" validate:"omitempty,max=20,dive,min=1,max=200"`
}

// DeleteAccountRequest confirms account deletion
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// ChangeRoleRequest is the admin role change body
type ChangeRoleRequest struct {
	Role model.Role `json:"role" validate:"required,oneof=student instructor admin"`
}

// Enrollment is one progress record joined with its course
type Enrollment struct {
	model.CourseProgress
	CourseTitle    string `json:"courseTitle"`
	InstructorName string `json:"instructorName"`
	ThumbnailURL   string `json:"thumbnailUrl,omitempty"`
	CourseDeleted  bool   `json:"courseDeleted,omitempty"`
}

// GetProfile returns the caller's profile
func (s *UserService) GetProfile(ctx context.Context, id *auth.Identity) (model.User, error) {
	user, err := s.store.Users().FindByID(ctx, id.UserID)
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}
	return user, nil
}

// UpdateProfile applies a partial profile patch to the caller
func (s *UserService) UpdateProfile(ctx context.Context, id *auth.Identity, req UpdateProfileRequest) (model.User, error) {
	patch := database.UserUpdate{
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	}
	user, err := s.store.Users().Update(ctx, id.UserID, patch)
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}
	return user, nil
}

// UpdatePreferences merges a preference patch into the caller's bundle
func (s *UserService) UpdatePreferences(ctx context.Context, id *auth.Identity, req UpdatePreferencesRequest) (model.User, error) {
	user, err := s.store.Users().FindByID(ctx, id.UserID)
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}

	prefs := user.Preferences
	if req.EmailNotifications != nil {
		prefs.EmailNotifications = *req.EmailNotifications
	}
	if req.Language != nil {
		prefs.Language = *req.Language
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.LearningGoals != nil {
		prefs.LearningGoals = append([]string{}, (*req.LearningGoals)...)
	}

	user, err = s.store.Users().Update(ctx, id.UserID, database.UserUpdate{Preferences: &prefs})
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}
	return user, nil
}

// DeleteAccount removes the caller after re-checking the password.
// Courses and payments referencing the user are left in place.
func (s *UserService) DeleteAccount(ctx context.Context, id *auth.Identity, req DeleteAccountRequest) error {
	user, err := s.store.Users().FindByID(ctx, id.UserID)
	if err != nil {
		return storeError(err, "User not found")
	}
	if err := s.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperr.Validation("Password is incorrect", apperr.FieldError{
				Field:   "password",
				Message: "password is incorrect",
				Code:    "mismatch",
			})
		}
		return apperr.Internal(err)
	}

	if _, err := s.store.Users().Delete(ctx, user.ID); err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info("account deleted", "user_id", user.ID)
	return nil
}

// Enrollments lists the caller's enrollments with course details
func (s *UserService) Enrollments(ctx context.Context, id *auth.Identity) ([]Enrollment, error) {
	user, err := s.store.Users().FindByID(ctx, id.UserID)
	if err != nil {
		return nil, storeError(err, "User not found")
	}

	out := make([]Enrollment, 0, len(user.Progress))
	for _, p := range user.Progress {
		e := Enrollment{CourseProgress: p}
		course, err := s.store.Courses().FindByID(ctx, p.CourseID)
		switch {
		case err == nil:
			e.CourseTitle = course.Title
			e.InstructorName = instructorLabel(course.InstructorName)
			e.ThumbnailURL = course.ThumbnailURL
		case errors.Is(err, database.ErrNotFound):
			e.CourseTitle = model.DeletedCourseLabel
			e.InstructorName = model.UnknownInstructorLabel
			e.CourseDeleted = true
		default:
			return nil, apperr.Internal(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Progress returns a user's progress records. Owner or admin only.
func (s *UserService) Progress(ctx context.Context, id *auth.Identity, userID string) ([]model.CourseProgress, error) {
	if err := s.policy.RequireOwnership(id, userID); err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User not found")
	}
	return user.Progress, nil
}

// ListUsers searches users for administration
func (s *UserService) ListUsers(ctx context.Context, filter database.UserFilter) ([]model.User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperr.Validation("Invalid role filter", apperr.FieldError{
			Field: "role", Message: "role must be student, instructor or admin", Code: "oneof",
		})
	}
	users, err := s.store.Users().FindBy(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// GetUser returns any user by id
func (s *UserService) GetUser(ctx context.Context, userID string) (model.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}
	return user, nil
}

// ChangeRole sets the role of another user
func (s *UserService) ChangeRole(ctx context.Context, id *auth.Identity, userID string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, apperr.Validation("Invalid role")
	}
	if id.UserID == userID {
		return model.User{}, apperr.Validation("You cannot change your own role")
	}
	user, err := s.store.Users().Update(ctx, userID, database.UserUpdate{Role: &role})
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}
	s.logger.Info("role changed", "admin_id", id.UserID, "user_id", userID, "role", role)
	return user, nil
}

// DeleteUser removes another user
func (s *UserService) DeleteUser(ctx context.Context, id *auth.Identity, userID string) error {
	if id.UserID == userID {
		return apperr.Validation("Use account deletion to remove your own account")
	}
	existed, err := s.store.Users().Delete(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !existed {
		return apperr.NotFound("User not found")
	}
	s.logger.Info("user deleted", "admin_id", id.UserID, "user_id", userID)
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func instructorLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return model.UnknownInstructorLabel
	}
	return name
}
