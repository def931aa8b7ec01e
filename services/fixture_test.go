package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/inference"
	"github.com/sahilchouksey/coursehub-api/services/payments"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

const webhookSecret = "whsec_services_test"

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]inference.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []inference.Message, _ ...inference.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	return f.reply, f.err
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	msgs := f.calls[len(f.calls)-1]
	out := ""
	for _, m := range msgs {
		out += m.Content + "\n"
	}
	return out
}

type fixture struct {
	store   *database.MemoryStore
	gateway *payments.SandboxGateway
	objects *storage.MemoryStore
	llm     *fakeLLM

	auth     *AuthService
	users    *UserService
	courses  *CourseService
	payments *PaymentService
	ai       *AIService
	uploads  *UploadService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	tokens := auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "coursehub-test",
	})
	hasher := auth.NewHasher(4)
	policy := auth.RolePolicy{}

	f := &fixture{
		store:   store,
		gateway: payments.NewSandboxGateway(webhookSecret),
		objects: storage.NewMemoryStore("https://cdn.test"),
		llm:     &fakeLLM{},
	}
	f.auth = NewAuthService(store.Users(), tokens, hasher, auth.NewMemoryRefreshRegistry(), logger)
	f.users = NewUserService(store, hasher, policy, logger)
	f.courses = NewCourseService(store, f.objects, policy, logger)
	f.payments = NewPaymentService(store, f.gateway, policy, logger)
	f.ai = NewAIService(f.llm, f.courses, NewPDFExtractor(), logger)
	f.uploads = NewUploadService(f.objects, policy, logger)
	return f
}

// account signs a user up and returns the caller identity. Admins are
// promoted through the store since signup refuses the role.
func (f *fixture) account(t *testing.T, email string, role model.Role) *auth.Identity {
	t.Helper()
	signupRole := role
	if role == model.RoleAdmin {
		signupRole = model.RoleStudent
	}
	res, err := f.auth.Signup(context.Background(), SignupRequest{
		Email:     email,
		Password:  "password123",
		FirstName: "Test",
		LastName:  string(role),
		Role:      signupRole,
	})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	if role == model.RoleAdmin {
		if _, err := f.store.Users().Update(context.Background(), res.User.ID, database.UserUpdate{Role: &role}); err != nil {
			t.Fatal(err)
		}
	}
	return &auth.Identity{UserID: res.User.ID, Email: res.User.Email, Role: role}
}

func sampleModules() []model.Module {
	return []model.Module{
		{
			Title: "Getting started",
			Lessons: []model.Lesson{
				{Title: "Welcome", Type: model.LessonVideo, DurationMinutes: 5,
					Resources: []model.Resource{{Title: "Slides", URL: "https://cdn.test/uploads/slides.pdf"}}},
			},
		},
		{
			Title:   "Concurrency patterns",
			Lessons: []model.Lesson{{Title: "Channels", Type: model.LessonText, Content: "Channels connect goroutines."}},
		},
	}
}

func (f *fixture) course(t *testing.T, owner *auth.Identity, price int64, publish bool) model.Course {
	t.Helper()
	ctx := context.Background()
	c, err := f.courses.Create(ctx, owner, CreateCourseRequest{
		Title:       "Go in Practice",
		Description: "Practical Go for backend engineers.",
		Category:    "programming",
		Level:       model.LevelBeginner,
		Tags:        []string{"Go", "backend"},
		Price:       price,
		Modules:     sampleModules(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if publish {
		if c, err = f.courses.Publish(ctx, owner, c.ID); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("kind = %d, want %d (err: %v)", got, kind, err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
