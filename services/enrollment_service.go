package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

// ProgressRequest updates one enrollment
type ProgressRequest struct {
	CompletedModuleID string `json:"completedModuleId" validate:"omitempty,max=100"`
	CurrentModuleID   string `json:"currentModuleId" validate:"omitempty,max=100"`
	Completed         bool   `json:"completed"`
}

// SignedURLResult is a time-limited link to a lesson resource
type SignedURLResult struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Enroll adds the caller to a published course. Paid courses require a
// succeeded payment for the same user and course.
func (s *CourseService) Enroll(ctx context.Context, id *auth.Identity, courseID string) (model.CourseProgress, error) {
	course, err := s.Get(ctx, id, courseID)
	if err != nil {
		return model.CourseProgress{}, err
	}
	if !course.IsPublished {
		return model.CourseProgress{}, apperr.Validation("Course is not published")
	}

	if !course.IsFree() {
		paid, err := s.store.Payments().FindBy(ctx, database.PaymentFilter{
			UserID:   id.UserID,
			CourseID: courseID,
			Status:   model.PaymentSucceeded,
		})
		if err != nil {
			return model.CourseProgress{}, apperr.Internal(err)
		}
		if len(paid) == 0 {
			return model.CourseProgress{}, apperr.ErrPaymentRequired
		}
	}

	now := s.now().UTC()
	progress := model.CourseProgress{
		CourseID:         courseID,
		EnrolledAt:       now,
		CompletedModules: []string{},
		LastAccessedAt:   now,
	}
	if len(course.Modules) > 0 {
		progress.CurrentModule = course.Modules[0].ID
	}

	if _, err := s.store.Users().AddProgress(ctx, id.UserID, progress); err != nil {
		return model.CourseProgress{}, storeError(err, "User not found")
	}

	if _, err := s.store.Courses().IncrementEnrollment(ctx, courseID); err != nil {
		// the course vanished between lookup and increment; the enrollment stays
		s.logger.Warn("failed to increment enrollment count", "course_id", courseID, "error", err)
	}

	s.logger.Info("user enrolled", "user_id", id.UserID, "course_id", courseID, "paid", !course.IsFree())
	return progress, nil
}

// UpdateProgress records module completion for the caller's enrollment.
// Reaching 100% issues the certificate once.
func (s *CourseService) UpdateProgress(ctx context.Context, id *auth.Identity, courseID string, req ProgressRequest) (model.CourseProgress, error) {
	course, err := s.store.Courses().FindByID(ctx, courseID)
	if err != nil {
		return model.CourseProgress{}, storeError(err, courseNotFound)
	}
	for _, ref := range [][2]string{
		{"completedModuleId", req.CompletedModuleID},
		{"currentModuleId", req.CurrentModuleID},
	} {
		if ref[1] != "" && !course.HasModule(ref[1]) {
			return model.CourseProgress{}, apperr.Validation("Module does not belong to this course", apperr.FieldError{
				Field: ref[0], Message: "unknown module", Code: "exists",
			})
		}
	}

	now := s.now().UTC()
	progress, err := s.store.Users().UpdateProgress(ctx, id.UserID, courseID, func(p *model.CourseProgress) error {
		p.MarkCompleted(req.CompletedModuleID)
		if req.Completed {
			for _, m := range course.Modules {
				p.MarkCompleted(m.ID)
			}
		}
		if req.CurrentModuleID != "" {
			p.CurrentModule = req.CurrentModuleID
		}
		p.LastAccessedAt = now

		p.Percentage = completion(&course, p, req.Completed)
		if p.Percentage == 100 && !p.CertificateIssued {
			p.CertificateIssued = true
			p.CertificateIssuedAt = &now
			if s.objects != nil {
				p.CertificateURL = s.objects.PublicURL(storage.CertificateKey(id.UserID, courseID))
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.CourseProgress{}, apperr.NotFound("Not enrolled in this course")
		}
		return model.CourseProgress{}, storeError(err, "Not enrolled in this course")
	}
	return progress, nil
}

// completion is round(100 * completed course modules / course modules).
// A course without modules stays at 0 until explicitly completed.
func completion(course *model.Course, p *model.CourseProgress, completed bool) int {
	if len(course.Modules) == 0 {
		if completed || p.CertificateIssued {
			return 100
		}
		return 0
	}
	done := 0
	for _, m := range course.Modules {
		if p.HasCompleted(m.ID) {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(course.Modules))))
}

// ResourceURL returns a signed link for a resource attached to one of the
// course's lessons. Enrolled users, the owner and admins may request it.
// Resources hosted outside the object store are returned unchanged.
func (s *CourseService) ResourceURL(ctx context.Context, id *auth.Identity, courseID, resourceURL string) (*SignedURLResult, error) {
	if resourceURL == "" {
		return nil, apperr.Validation("url query parameter is required", apperr.FieldError{
			Field: "url", Message: "url is required", Code: "required",
		})
	}
	course, err := s.Get(ctx, id, courseID)
	if err != nil {
		return nil, err
	}
	if !course.HasResource(resourceURL) {
		return nil, apperr.NotFound("Resource not found in this course")
	}

	if err := s.policy.RequireOwnership(id, course.InstructorID); err != nil {
		user, uerr := s.store.Users().FindByID(ctx, id.UserID)
		if uerr != nil {
			return nil, storeError(uerr, "User not found")
		}
		if _, enrolled := user.ProgressFor(courseID); !enrolled {
			return nil, apperr.Forbidden("Enroll in the course to access its resources")
		}
	}

	key, ok := s.objects.KeyFromURL(resourceURL)
	if !ok {
		return &SignedURLResult{URL: resourceURL}, nil
	}
	signed, err := s.objects.SignedURL(ctx, key, storage.SignedURLTTL)
	if err != nil {
		return nil, apperr.ErrStorageUnavailable.Wrap(err)
	}
	expires := s.now().UTC().Add(storage.SignedURLTTL)
	return &SignedURLResult{URL: signed, ExpiresAt: &expires}, nil
}
