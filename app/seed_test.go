package app

import (
	"context"
	"testing"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
)

func TestSeedIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	opts := SeedOptions{AdminEmail: "admin@coursehub.dev", AdminPassword: "admin-secret", Demo: true}

	result, err := Seed(ctx, h.container, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.Admin != "admin@coursehub.dev" || len(result.Courses) != 2 {
		t.Fatalf("result = %+v", result)
	}

	admin, err := h.container.Store.Users().FindByEmail(ctx, "admin@coursehub.dev")
	if err != nil || admin.Role != model.RoleAdmin {
		t.Fatalf("admin = %+v, err = %v", admin, err)
	}

	again, err := Seed(ctx, h.container, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Courses) != 0 {
		t.Fatalf("second run created %v", again.Courses)
	}

	courses, err := h.container.Store.Courses().FindBy(ctx, database.CourseFilter{})
	if err != nil || len(courses) != 2 {
		t.Fatalf("published courses = %d, err = %v", len(courses), err)
	}
}

func TestSeedAdminNeedsPassword(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := Seed(context.Background(), h.container, SeedOptions{AdminEmail: "nopass@coursehub.dev"}); err == nil {
		t.Fatal("expected an error without ADMIN_PASSWORD")
	}
}
