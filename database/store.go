package database

import (
	"context"
	"errors"
	"time"

	"github.com/sahilchouksey/coursehub-api/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrAlreadyEnrolled   = errors.New("user already enrolled in course")
	ErrAlreadyPurchased  = errors.New("course already purchased by user")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrDuplicateProvider = errors.New("provider transaction id already stored")
)

// Storage is the aggregate of all entity stores
type Storage interface {
	Users() UserStore
	Courses() CourseStore
	Payments() PaymentStore

	Init() error
	Close() error
	HealthCheck() error
}

// UserFilter selects users. Zero values match everything.
type UserFilter struct {
	Search string
	Role   model.Role
}

// UserUpdate is a partial user patch; nil fields are left unchanged
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	Bio          *string
	AvatarURL    *string
	Role         *model.Role
	PasswordHash *string
	Preferences  *model.Preferences
}

type UserStore interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindBy(ctx context.Context, filter UserFilter) ([]model.User, error)
	Update(ctx context.Context, id string, patch UserUpdate) (model.User, error)
	Delete(ctx context.Context, id string) (bool, error)

	// AddProgress appends an enrollment, failing with ErrAlreadyEnrolled when
	// the user already has one for the same course.
	AddProgress(ctx context.Context, userID string, progress model.CourseProgress) (model.User, error)
	// UpdateProgress mutates the enrollment for courseID under the store lock.
	UpdateProgress(ctx context.Context, userID, courseID string, fn func(*model.CourseProgress) error) (model.CourseProgress, error)
}

// CourseFilter selects courses. Nil pointers match everything.
type CourseFilter struct {
	Search       string
	Category     string
	Level        model.Level
	InstructorID string
	MinPrice     *int64
	MaxPrice     *int64
	MinRating    *float64
	MaxRating    *float64

	// IncludeUnpublished returns drafts of every instructor.
	IncludeUnpublished bool
	// VisibleTo returns drafts owned by this user id.
	VisibleTo string
}

// CourseUpdate is a partial course patch
type CourseUpdate struct {
	Title            *string
	Description      *string
	ShortDescription *string
	Category         *string
	Level            *model.Level
	Language         *string
	Tags             *[]string
	ThumbnailURL     *string
	ThumbnailKey     *string
	InstructorName   *string
	Price            *int64
	Currency         *string
	Modules          *[]model.Module
	IsPublished      *bool
	PublishedAt      *time.Time
}

type CourseStore interface {
	Create(ctx context.Context, course model.Course) (model.Course, error)
	FindByID(ctx context.Context, id string) (model.Course, error)
	FindBy(ctx context.Context, filter CourseFilter) ([]model.Course, error)
	Update(ctx context.Context, id string, patch CourseUpdate) (model.Course, error)
	Delete(ctx context.Context, id string) (bool, error)

	IncrementEnrollment(ctx context.Context, id string) (model.Course, error)
	SetStats(ctx context.Context, id string, stats model.CourseStats) (model.Course, error)
}

// PaymentFilter selects payment intents
type PaymentFilter struct {
	UserID   string
	CourseID string
	Status   model.PaymentStatus
}

type PaymentStore interface {
	Create(ctx context.Context, payment model.PaymentIntent) (model.PaymentIntent, error)
	FindByID(ctx context.Context, id string) (model.PaymentIntent, error)
	FindByProviderID(ctx context.Context, providerID string) (model.PaymentIntent, error)
	FindBy(ctx context.Context, filter PaymentFilter) ([]model.PaymentIntent, error)
	Delete(ctx context.Context, id string) (bool, error)

	// Transition moves the intent to next, applying fn to the record first.
	// Returns ErrInvalidTransition for moves outside the state machine and
	// ErrAlreadyPurchased when another intent for the same user and course
	// already succeeded.
	Transition(ctx context.Context, id string, next model.PaymentStatus, fn func(*model.PaymentIntent)) (model.PaymentIntent, error)
	// RecordEvent marks a provider event as applied without changing status.
	RecordEvent(ctx context.Context, id, eventID string) error
}
