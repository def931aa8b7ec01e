package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

func TestUpdateProfileAndPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "me@example.com", model.RoleStudent)

	bio := "Learning Go"
	first := "  Grace "
	user, err := f.users.UpdateProfile(ctx, id, UpdateProfileRequest{Bio: &bio, FirstName: &first})
	if err != nil {
		t.Fatal(err)
	}
	if user.Bio != bio || user.FirstName != "Grace" || user.LastName != "student" {
		t.Fatalf("user = %+v", user)
	}

	theme := "dark"
	goals := []string{"ship a service"}
	user, err = f.users.UpdatePreferences(ctx, id, UpdatePreferencesRequest{Theme: &theme, LearningGoals: &goals})
	if err != nil {
		t.Fatal(err)
	}
	p := user.Preferences
	if p.Theme != "dark" || p.Language != "en" || !p.EmailNotifications || len(p.LearningGoals) != 1 {
		t.Fatalf("preferences = %+v", p)
	}
}

func TestDeleteAccountNeedsPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "leaving@example.com", model.RoleStudent)

	err := f.users.DeleteAccount(ctx, id, DeleteAccountRequest{Password: "wrong-one"})
	wantKind(t, err, apperr.KindValidation)

	if err := f.users.DeleteAccount(ctx, id, DeleteAccountRequest{Password: "password123"}); err != nil {
		t.Fatal(err)
	}
	_, err = f.users.GetProfile(ctx, id)
	wantKind(t, err, apperr.KindNotFound)
}

func TestProgressOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "p-owner@example.com", model.RoleStudent)
	other := f.account(t, "p-other@example.com", model.RoleStudent)
	admin := f.account(t, "p-admin@example.com", model.RoleAdmin)

	if _, err := f.users.Progress(ctx, owner, owner.UserID); err != nil {
		t.Fatal(err)
	}
	_, err := f.users.Progress(ctx, other, owner.UserID)
	wantKind(t, err, apperr.KindForbidden)
	if _, err := f.users.Progress(ctx, admin, owner.UserID); err != nil {
		t.Fatal(err)
	}
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.account(t, "chief@example.com", model.RoleAdmin)
	target := f.account(t, "promote@example.com", model.RoleStudent)

	users, err := f.users.ListUsers(ctx, database.UserFilter{Search: "PROMOTE"})
	if err != nil || len(users) != 1 {
		t.Fatalf("search = %d, %v", len(users), err)
	}
	_, err = f.users.ListUsers(ctx, database.UserFilter{Role: "wizard"})
	wantKind(t, err, apperr.KindValidation)

	user, err := f.users.ChangeRole(ctx, admin, target.UserID, model.RoleInstructor)
	if err != nil || user.Role != model.RoleInstructor {
		t.Fatalf("change role: %+v, %v", user, err)
	}
	_, err = f.users.ChangeRole(ctx, admin, admin.UserID, model.RoleStudent)
	wantKind(t, err, apperr.KindValidation)

	wantKind(t, f.users.DeleteUser(ctx, admin, admin.UserID), apperr.KindValidation)
	if err := f.users.DeleteUser(ctx, admin, target.UserID); err != nil {
		t.Fatal(err)
	}
	wantKind(t, f.users.DeleteUser(ctx, admin, target.UserID), apperr.KindNotFound)
}
