package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

const courseNotFound = "Course not found"

// CourseService handles the course catalog, publishing and enrollment
type CourseService struct {
	store   database.Storage
	objects storage.ObjectStore
	policy  auth.Policy
	logger  *slog.Logger
	now     func() time.Time
}

// NewCourseService creates a new course service
func NewCourseService(store database.Storage, objects storage.ObjectStore, policy auth.Policy, logger *slog.Logger) *CourseService {
	return &CourseService{
		store:   store,
		objects: objects,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateCourseRequest represents the create course body
type CreateCourseRequest struct {
	Title            string         `json:"title" validate:"required,min=3,max=200"`
	Description      string         `json:"description" validate:"required,min=10,max=10000"`
	ShortDescription string         `json:"shortDescription" validate:"max=300"`
	Category         string         `json:"category" validate:"required,min=2,max=100"`
	Level            model.Level    `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Language         string         `json:"language" validate:"omitempty,min=2,max=10"`
	Tags             []string       `json:"tags" validate:"max=20,dive,min=1,max=50"`
	Price            int64          `json:"price" validate:"gte=0,lte=10000000"`
	Currency         string         `json:"currency" validate:"omitempty,len=3,alpha"`
	Modules          []model.Module `json:"modules" validate:"max=100,dive"`
}

// UpdateCourseRequest is a partial course patch
type UpdateCourseRequest struct {
	Title            *string         `json:"title" validate:"omitempty,min=3,max=200"`
	Description      *string         `json:"description" validate:"omitempty,min=10,max=10000"`
	ShortDescription *string         `json:"shortDescription" validate:"omitempty,max=300"`
	Category         *string         `json:"category" validate:"omitempty,min=2,max=100"`
	Level            *model.Level    `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Language         *string         `json:"language" validate:"omitempty,min=2,max=10"`
	Tags             *[]string       `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	Price            *int64          `json:"price" validate:"omitempty,gte=0,lte=10000000"`
	Currency         *string         `json:"currency" validate:"omitempty,len=3,alpha"`
	Modules          *[]model.Module `json:"modules" validate:"omitempty,max=100,dive"`
	IsPublished      *bool           `json:"isPublished"`
}

// CourseQuery is the parsed catalog query
type CourseQuery struct {
	Search        string
	Category      string
	Level         model.Level
	InstructorID  string
	MinPrice      *int64
	MaxPrice      *int64
	MinRating     *float64
	MaxRating     *float64
	IncludeDrafts bool
}

// StatsRequest is the admin stats correction body
type StatsRequest struct {
	Rating          *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ReviewCount     *int     `json:"reviewCount" validate:"omitempty,gte=0"`
	EnrollmentCount *int     `json:"enrollmentCount" validate:"omitempty,gte=0"`
}

// List returns the catalog. Drafts are only included on request: an admin
// sees every draft, anyone else only their own.
func (s *CourseService) List(ctx context.Context, id *auth.Identity, q CourseQuery) ([]model.Course, error) {
	if q.Level != "" && !validLevel(q.Level) {
		return nil, apperr.Validation("Invalid level", apperr.FieldError{
			Field: "level", Message: "level must be beginner, intermediate or advanced", Code: "oneof",
		})
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, apperr.Validation("minPrice cannot exceed maxPrice")
	}
	if q.MinRating != nil && q.MaxRating != nil && *q.MinRating > *q.MaxRating {
		return nil, apperr.Validation("minRating cannot exceed maxRating")
	}

	filter := database.CourseFilter{
		Search:       q.Search,
		Category:     q.Category,
		Level:        q.Level,
		InstructorID: q.InstructorID,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		MinRating:    q.MinRating,
		MaxRating:    q.MaxRating,
	}
	if q.IncludeDrafts && id != nil {
		if id.IsAdmin() {
			filter.IncludeUnpublished = true
		} else {
			filter.VisibleTo = id.UserID
		}
	}

	courses, err := s.store.Courses().FindBy(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return courses, nil
}

// Mine lists the caller's own courses, drafts included
func (s *CourseService) Mine(ctx context.Context, id *auth.Identity) ([]model.Course, error) {
	if err := s.policy.Authorize(id, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}
	courses, err := s.store.Courses().FindBy(ctx, database.CourseFilter{
		InstructorID: id.UserID,
		VisibleTo:    id.UserID,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return courses, nil
}

// Get returns a course visible to the caller. Drafts of other instructors
// are reported as missing.
func (s *CourseService) Get(ctx context.Context, id *auth.Identity, courseID string) (model.Course, error) {
	course, err := s.store.Courses().FindByID(ctx, courseID)
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}
	if !s.visible(id, &course) {
		return model.Course{}, apperr.NotFound(courseNotFound)
	}
	return course, nil
}

func (s *CourseService) visible(id *auth.Identity, course *model.Course) bool {
	if course.IsPublished {
		return true
	}
	return id != nil && (id.IsAdmin() || id.UserID == course.InstructorID)
}

// Create adds a draft course owned by the caller
func (s *CourseService) Create(ctx context.Context, id *auth.Identity, req CreateCourseRequest) (model.Course, error) {
	if err := s.policy.Authorize(id, model.RoleInstructor, model.RoleAdmin); err != nil {
		return model.Course{}, err
	}

	modules := model.CloneModules(req.Modules)
	if err := prepareModules(modules); err != nil {
		return model.Course{}, err
	}

	instructorName := model.UnknownInstructorLabel
	if owner, err := s.store.Users().FindByID(ctx, id.UserID); err == nil && owner.FullName() != "" {
		instructorName = owner.FullName()
	}

	course, err := s.store.Courses().Create(ctx, model.Course{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Category:         strings.TrimSpace(req.Category),
		Level:            req.Level,
		Language:         defaultString(req.Language, "en"),
		Tags:             normalizeTags(req.Tags),
		InstructorID:     id.UserID,
		InstructorName:   instructorName,
		Price:            req.Price,
		Currency:         normalizeCurrency(req.Currency),
		Modules:          modules,
	})
	if err != nil {
		return model.Course{}, apperr.Internal(err)
	}

	s.logger.Info("course created", "course_id", course.ID, "instructor_id", id.UserID)
	return course, nil
}

// Update applies a partial patch. Owner or admin only. A published course
// cannot be unpublished.
func (s *CourseService) Update(ctx context.Context, id *auth.Identity, courseID string, req UpdateCourseRequest) (model.Course, error) {
	course, err := s.owned(ctx, id, courseID)
	if err != nil {
		return model.Course{}, err
	}

	patch := database.CourseUpdate{
		Title:            trimmed(req.Title),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Category:         trimmed(req.Category),
		Level:            req.Level,
		Language:         req.Language,
		Price:            req.Price,
	}
	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		patch.Tags = &tags
	}
	if req.Currency != nil {
		currency := normalizeCurrency(*req.Currency)
		patch.Currency = &currency
	}

	modules := course.Modules
	if req.Modules != nil {
		modules = model.CloneModules(*req.Modules)
		if err := prepareModules(modules); err != nil {
			return model.Course{}, err
		}
		patch.Modules = &modules
	}

	if req.IsPublished != nil {
		switch {
		case course.IsPublished && !*req.IsPublished:
			return model.Course{}, apperr.Conflict("A published course cannot be unpublished")
		case !course.IsPublished && *req.IsPublished:
			if err := checkPublishable(modules); err != nil {
				return model.Course{}, err
			}
			now := s.now().UTC()
			published := true
			patch.IsPublished = &published
			patch.PublishedAt = &now
		}
	}
	if course.IsPublished && req.Modules != nil {
		if err := checkPublishable(modules); err != nil {
			return model.Course{}, err
		}
	}

	updated, err := s.store.Courses().Update(ctx, courseID, patch)
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}
	return updated, nil
}

// Delete removes a course and its thumbnail. Owner or admin only.
// Enrollments and payments referencing it are kept.
func (s *CourseService) Delete(ctx context.Context, id *auth.Identity, courseID string) error {
	course, err := s.owned(ctx, id, courseID)
	if err != nil {
		return err
	}

	existed, err := s.store.Courses().Delete(ctx, courseID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !existed {
		return apperr.NotFound(courseNotFound)
	}

	if course.ThumbnailKey != "" {
		if err := s.objects.Delete(ctx, course.ThumbnailKey); err != nil {
			s.logger.Warn("failed to delete course thumbnail", "course_id", courseID, "key", course.ThumbnailKey, "error", err)
		}
	}
	s.logger.Info("course deleted", "course_id", courseID, "by", id.UserID)
	return nil
}

// Publish makes a draft visible in the catalog. Publishing an already
// published course returns it unchanged.
func (s *CourseService) Publish(ctx context.Context, id *auth.Identity, courseID string) (model.Course, error) {
	course, err := s.owned(ctx, id, courseID)
	if err != nil {
		return model.Course{}, err
	}
	if course.IsPublished {
		return course, nil
	}
	if err := checkPublishable(course.Modules); err != nil {
		return model.Course{}, err
	}

	now := s.now().UTC()
	published := true
	updated, err := s.store.Courses().Update(ctx, courseID, database.CourseUpdate{
		IsPublished: &published,
		PublishedAt: &now,
	})
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}
	s.logger.Info("course published", "course_id", courseID)
	return updated, nil
}

// UploadThumbnail stores an image and points the course at it
func (s *CourseService) UploadThumbnail(ctx context.Context, id *auth.Identity, courseID, filename string, size int64, body io.ReadSeeker) (model.Course, error) {
	course, err := s.owned(ctx, id, courseID)
	if err != nil {
		return model.Course{}, err
	}
	if !storage.IsImage(filename) {
		return model.Course{}, apperr.Validation("Thumbnail must be a PNG, JPEG, GIF or WebP image")
	}
	if size > storage.MaxUploadSize {
		return model.Course{}, apperr.Validation(fmt.Sprintf("File exceeds the %d MB limit", storage.MaxUploadSize>>20))
	}

	key := storage.ThumbnailKey(courseID, filename, s.now())
	url, err := s.objects.Put(ctx, key, body, storage.ContentType(filename))
	if err != nil {
		return model.Course{}, apperr.ErrStorageUnavailable.Wrap(err)
	}

	updated, err := s.store.Courses().Update(ctx, courseID, database.CourseUpdate{
		ThumbnailURL: &url,
		ThumbnailKey: &key,
	})
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}

	if course.ThumbnailKey != "" && course.ThumbnailKey != key {
		if err := s.objects.Delete(ctx, course.ThumbnailKey); err != nil {
			s.logger.Warn("failed to delete previous thumbnail", "course_id", courseID, "error", err)
		}
	}
	return updated, nil
}

// DeleteThumbnail clears the course thumbnail
func (s *CourseService) DeleteThumbnail(ctx context.Context, id *auth.Identity, courseID string) (model.Course, error) {
	course, err := s.owned(ctx, id, courseID)
	if err != nil {
		return model.Course{}, err
	}
	if course.ThumbnailKey == "" && course.ThumbnailURL == "" {
		return model.Course{}, apperr.NotFound("Course has no thumbnail")
	}
	if course.ThumbnailKey != "" {
		if err := s.objects.Delete(ctx, course.ThumbnailKey); err != nil {
			return model.Course{}, apperr.ErrStorageUnavailable.Wrap(err)
		}
	}

	empty := ""
	updated, err := s.store.Courses().Update(ctx, courseID, database.CourseUpdate{
		ThumbnailURL: &empty,
		ThumbnailKey: &empty,
	})
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}
	return updated, nil
}

// SetStats overwrites the aggregate counters. Admin only.
func (s *CourseService) SetStats(ctx context.Context, id *auth.Identity, courseID string, req StatsRequest) (model.Course, error) {
	if err := s.policy.Authorize(id, model.RoleAdmin); err != nil {
		return model.Course{}, err
	}
	course, err := s.store.Courses().FindByID(ctx, courseID)
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}

	stats := course.Stats
	if req.Rating != nil {
		stats.Rating = *req.Rating
	}
	if req.ReviewCount != nil {
		stats.ReviewCount = *req.ReviewCount
	}
	if req.EnrollmentCount != nil {
		stats.EnrollmentCount = *req.EnrollmentCount
	}

	updated, err := s.store.Courses().SetStats(ctx, courseID, stats)
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}
	s.logger.Info("course stats corrected", "course_id", courseID, "admin_id", id.UserID)
	return updated, nil
}

// owned loads a course and checks the caller owns it or is admin
func (s *CourseService) owned(ctx context.Context, id *auth.Identity, courseID string) (model.Course, error) {
	course, err := s.store.Courses().FindByID(ctx, courseID)
	if err != nil {
		return model.Course{}, storeError(err, courseNotFound)
	}
	if !s.visible(id, &course) {
		return model.Course{}, apperr.NotFound(courseNotFound)
	}
	if err := s.policy.RequireOwnership(id, course.InstructorID); err != nil {
		return model.Course{}, err
	}
	return course, nil
}

// prepareModules assigns missing ids and orders, and checks quiz answers
func prepareModules(modules []model.Module) error {
	seen := make(map[string]bool, len(modules))
	for i := range modules {
		m := &modules[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if seen[m.ID] {
			return apperr.Validation("Module ids must be unique", apperr.FieldError{
				Field: fmt.Sprintf("modules[%d].id", i), Message: "duplicate module id", Code: "unique",
			})
		}
		seen[m.ID] = true
		if m.Order == 0 {
			m.Order = i + 1
		}
		if m.Lessons == nil {
			m.Lessons = []model.Lesson{}
		}
		for j := range m.Lessons {
			if m.Lessons[j].ID == "" {
				m.Lessons[j].ID = uuid.NewString()
			}
		}
		if m.Quiz != nil {
			if m.Quiz.ID == "" {
				m.Quiz.ID = uuid.NewString()
			}
			for k := range m.Quiz.Questions {
				q := &m.Quiz.Questions[k]
				if q.ID == "" {
					q.ID = uuid.NewString()
				}
				if q.CorrectAnswer >= len(q.Options) {
					return apperr.Validation("Quiz answer out of range", apperr.FieldError{
						Field:   fmt.Sprintf("modules[%d].quiz.questions[%d].correctAnswer", i, k),
						Message: "correctAnswer must index one of the options",
						Code:    "range",
					})
				}
			}
		}
	}
	return nil
}

// checkPublishable requires at least one module with at least one lesson
func checkPublishable(modules []model.Module) error {
	for _, m := range modules {
		if len(m.Lessons) > 0 {
			return nil
		}
	}
	return apperr.Validation("Course must have at least one module with a lesson before publishing")
}

func validLevel(l model.Level) bool {
	switch l {
	case model.LevelBeginner, model.LevelIntermediate, model.LevelAdvanced:
		return true
	}
	return false
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "USD"
	}
	return c
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
