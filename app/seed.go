package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

// SeedOptions selects what Seed creates
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	// Demo adds an instructor with a free and a paid published course
	Demo bool
}

// SeedResult lists what Seed created. Existing records are left alone.
type SeedResult struct {
	Admin   string
	Users   []string
	Courses []string
}

const demoInstructorEmail = "instructor@coursehub.dev"

// Seed creates the bootstrap admin and optional demo data. Running it twice
// is safe.
func Seed(ctx context.Context, c *Container, opts SeedOptions) (*SeedResult, error) {
	result := &SeedResult{}

	if opts.AdminEmail != "" {
		email, err := seedAdmin(ctx, c, opts.AdminEmail, opts.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		result.Admin = email
	}

	if opts.Demo {
		if err := seedDemo(ctx, c, result); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	return result, nil
}

// seedAdmin signs the admin up like any user, then promotes it in the store
// since the API refuses self-assigned admin roles
func seedAdmin(ctx context.Context, c *Container, email, password string) (string, error) {
	users := c.Store.Users()

	user, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		if password == "" {
			return "", errors.New("ADMIN_PASSWORD is required to create the admin user")
		}
		created, err := c.Deps.Auth.Signup(ctx, services.SignupRequest{
			Email: email, Password: password, FirstName: "Admin", LastName: "User",
		})
		if err != nil {
			return "", err
		}
		user = created.User
	default:
		return "", err
	}

	if user.Role != model.RoleAdmin {
		role := model.RoleAdmin
		if _, err := users.Update(ctx, user.ID, database.UserUpdate{Role: &role}); err != nil {
			return "", err
		}
	}
	return user.Email, nil
}

func seedDemo(ctx context.Context, c *Container, result *SeedResult) error {
	if _, err := c.Store.Users().FindByEmail(ctx, demoInstructorEmail); err == nil {
		return nil
	}

	created, err := c.Deps.Auth.Signup(ctx, services.SignupRequest{
		Email: demoInstructorEmail, Password: "instructor123", FirstName: "Grace", LastName: "Hopper", Role: model.RoleInstructor,
	})
	if err != nil {
		return err
	}
	result.Users = append(result.Users, created.User.Email)

	id := &auth.Identity{UserID: created.User.ID, Email: created.User.Email, Role: created.User.Role}
	for _, req := range demoCourses() {
		course, err := c.Deps.Courses.Create(ctx, id, req)
		if err != nil {
			return err
		}
		if _, err := c.Deps.Courses.Publish(ctx, id, course.ID); err != nil {
			return err
		}
		result.Courses = append(result.Courses, course.Title)
	}
	return nil
}

func demoCourses() []services.CreateCourseRequest {
	lesson := func(title, content string) model.Lesson {
		return model.Lesson{Title: title, Type: model.LessonText, Content: content, DurationMinutes: 10, IsPreview: true}
	}
	return []services.CreateCourseRequest{
		{
			Title:       "Getting Started with Go",
			Description: "Install the toolchain, write your first program and learn the core syntax.",
			Category:    "programming",
			Level:       model.LevelBeginner,
			Tags:        []string{"go", "basics"},
			Modules: []model.Module{
				{Title: "Setup", Lessons: []model.Lesson{lesson("Installing Go", "Download the toolchain and verify it with go version.")}},
				{Title: "Syntax", Lessons: []model.Lesson{lesson("Variables and types", "Go is statically typed with type inference.")}},
			},
		},
		{
			Title:       "Concurrency in Practice",
			Description: "Goroutines, channels and the sync package applied to real services.",
			Category:    "programming",
			Level:       model.LevelIntermediate,
			Tags:        []string{"go", "concurrency", "backend"},
			Price:       2900,
			Modules: []model.Module{
				{Title: "Goroutines", Lessons: []model.Lesson{lesson("The go statement", "A goroutine is a lightweight thread managed by the runtime.")}},
			},
		},
	}
}
