package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

func TestSignupReturnsProfileWithoutHash(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Signup(context.Background(), SignupRequest{
		Email:     "Ada@Example.com",
		Password:  "s3cret-pass",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.User.Role != model.RoleStudent {
		t.Errorf("role = %s, want student", res.User.Role)
	}
	if res.User.Email != "ada@example.com" {
		t.Errorf("email = %s", res.User.Email)
	}
	if res.User.Preferences.Theme != "system" || !res.User.Preferences.EmailNotifications {
		t.Errorf("preferences = %+v", res.User.Preferences)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("missing tokens")
	}

	body, _ := json.Marshal(res.User)
	if strings.Contains(string(body), "$2a$") || strings.Contains(strings.ToLower(string(body)), "password") {
		t.Fatalf("profile leaks credential: %s", body)
	}
}

func TestSignupDuplicateEmailAnyCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := SignupRequest{Email: "dup@example.com", Password: "password1", FirstName: "A", LastName: "B"}
	if _, err := f.auth.Signup(ctx, req); err != nil {
		t.Fatal(err)
	}

	req.Email = "DUP@example.com"
	_, err := f.auth.Signup(ctx, req)
	wantErr(t, err, apperr.ErrDuplicateEmail)
	wantKind(t, err, apperr.KindConflict)

	users, _ := f.store.Users().FindBy(ctx, database.UserFilter{})
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"admin self-assign", SignupRequest{Email: "a@x.io", Password: "password1", FirstName: "A", LastName: "B", Role: model.RoleAdmin}},
		{"short password", SignupRequest{Email: "b@x.io", Password: "abc", FirstName: "A", LastName: "B"}},
		{"password over 72 bytes", SignupRequest{Email: "c@x.io", Password: strings.Repeat("p", 73), FirstName: "A", LastName: "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Signup(ctx, tt.req)
			wantKind(t, err, apperr.KindValidation)
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, "login@example.com", model.RoleStudent)

	_, err := f.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	wantErr(t, err, apperr.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	wantErr(t, err, apperr.ErrInvalidCredentials)

	res, err := f.auth.Login(ctx, LoginRequest{Email: "LOGIN@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if res.User.Email != "login@example.com" {
		t.Fatalf("user = %+v", res.User)
	}
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, "rotate@example.com", model.RoleStudent)

	login, err := f.auth.Login(ctx, LoginRequest{Email: "rotate@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}

	next, err := f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.Tokens.RefreshToken == login.Tokens.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	_, err = f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	wantKind(t, err, apperr.KindUnauthenticated)
	if msg := apperr.As(err).Message; msg != "Refresh token has already been used" {
		t.Fatalf("message = %q", msg)
	}

	if _, err := f.auth.Refresh(ctx, next.Tokens.RefreshToken); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefreshRejectsAccessTokenAndDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "gone@example.com", model.RoleStudent)

	login, _ := f.auth.Login(ctx, LoginRequest{Email: "gone@example.com", Password: "password123"})

	_, err := f.auth.Refresh(ctx, login.Tokens.AccessToken)
	wantKind(t, err, apperr.KindUnauthenticated)

	if _, err := f.store.Users().Delete(ctx, id.UserID); err != nil {
		t.Fatal(err)
	}
	_, err = f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	wantErr(t, err, apperr.ErrUserNotFound)
}

func TestLogoutConsumesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, "bye@example.com", model.RoleStudent)

	login, _ := f.auth.Login(ctx, LoginRequest{Email: "bye@example.com", Password: "password123"})
	if err := f.auth.Logout(ctx, login.Tokens.RefreshToken); err != nil {
		t.Fatal(err)
	}
	_, err := f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	wantKind(t, err, apperr.KindUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "pw@example.com", model.RoleStudent)

	err := f.auth.ChangePassword(ctx, id, ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "new-password"})
	wantKind(t, err, apperr.KindValidation)

	if err := f.auth.ChangePassword(ctx, id, ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "new-password"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.auth.Login(ctx, LoginRequest{Email: "pw@example.com", Password: "password123"}); err == nil {
		t.Fatal("old password still accepted")
	}
	if _, err := f.auth.Login(ctx, LoginRequest{Email: "pw@example.com", Password: "new-password"}); err != nil {
		t.Fatal(err)
	}
}
