package database

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB connects to TEST_DATABASE_DSN or skips
func openTestDB(t *testing.T) *GORMStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := NewGORMStore(db)
	if err := store.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGORMUserLifecycle(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	email := uuid.NewString() + "@Example.com"

	u, err := store.Users().Create(ctx, model.User{Email: email, Role: model.RoleStudent, FirstName: "Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Users().Create(ctx, model.User{Email: email}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate email: err = %v", err)
	}

	bio := "hi"
	updated, err := store.Users().Update(ctx, u.ID, UserUpdate{Bio: &bio})
	if err != nil || updated.Bio != bio || updated.FirstName != "Ada" || !updated.UpdatedAt.After(u.UpdatedAt) {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if _, err := store.Users().AddProgress(ctx, u.ID, model.CourseProgress{CourseID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Users().AddProgress(ctx, u.ID, model.CourseProgress{CourseID: "c1"}); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("second enrollment: err = %v", err)
	}

	if ok, err := store.Users().Delete(ctx, u.ID); !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := store.Users().FindByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find deleted: err = %v", err)
	}
}

func TestGORMPaymentSingleSuccess(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	userID, courseID := uuid.NewString(), uuid.NewString()

	first, _ := store.Payments().Create(ctx, model.PaymentIntent{UserID: userID, CourseID: courseID, ProviderTransactionID: uuid.NewString()})
	second, _ := store.Payments().Create(ctx, model.PaymentIntent{UserID: userID, CourseID: courseID, ProviderTransactionID: uuid.NewString()})

	if _, err := store.Payments().Transition(ctx, first.ID, model.PaymentSucceeded, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Payments().Transition(ctx, second.ID, model.PaymentSucceeded, nil); !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("second success: err = %v", err)
	}
	if _, err := store.Payments().Transition(ctx, second.ID, model.PaymentRefunded, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> refunded: err = %v", err)
	}
}

func TestGORMPaymentCourseTitleAndProviderID(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	providerID := uuid.NewString()

	created, err := store.Payments().Create(ctx, model.PaymentIntent{
		UserID: uuid.NewString(), CourseID: uuid.NewString(), CourseTitle: "Concurrency in Practice", ProviderTransactionID: providerID,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Payments().FindByProviderID(ctx, providerID)
	if err != nil || got.ID != created.ID || got.CourseTitle != "Concurrency in Practice" {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := store.Payments().Create(ctx, model.PaymentIntent{UserID: created.UserID, CourseID: created.CourseID, ProviderTransactionID: providerID}); !errors.Is(err, ErrDuplicateProvider) {
		t.Fatalf("duplicate provider id: err = %v", err)
	}
}
