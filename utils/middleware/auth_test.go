package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

type authFixture struct {
	app   *fiber.App
	jwt   *auth.JWTManager
	store *database.MemoryStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := database.NewMemoryStore()
	jwt := auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	mw := NewAuthMiddleware(jwt, store.Users(), auth.RolePolicy{})

	app := fiber.New()
	app.Get("/private", mw.Required(), func(c *fiber.Ctx) error {
		return c.SendString(string(GetIdentity(c).Role))
	})
	app.Get("/authors", mw.Required(), mw.RequireRole(model.RoleInstructor, model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/public", mw.Optional(), func(c *fiber.Ctx) error {
		if GetIdentity(c) == nil {
			return c.SendString("anonymous")
		}
		return c.SendString("known")
	})
	return &authFixture{app: app, jwt: jwt, store: store}
}

func (f *authFixture) token(t *testing.T, role model.Role) (string, model.User) {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), model.User{Email: string(role) + "@x.io", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	pair, err := f.jwt.GeneratePair(&u)
	if err != nil {
		t.Fatal(err)
	}
	return pair.AccessToken, u
}

func (f *authFixture) do(t *testing.T, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode
}

func TestRequiredRejectsMissingAndInvalidTokens(t *testing.T) {
	f := newAuthFixture(t)
	if code := f.do(t, "/private", ""); code != fiber.StatusUnauthorized {
		t.Fatalf("missing token: %d", code)
	}
	if code := f.do(t, "/private", "garbage"); code != fiber.StatusUnauthorized {
		t.Fatalf("garbage token: %d", code)
	}

	student, _ := f.token(t, model.RoleStudent)
	if code := f.do(t, "/private", student); code != fiber.StatusOK {
		t.Fatalf("valid token: %d", code)
	}
}

func TestRequiredRejectsDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	token, u := f.token(t, model.RoleStudent)
	f.store.Users().Delete(context.Background(), u.ID)

	if code := f.do(t, "/private", token); code != fiber.StatusUnauthorized {
		t.Fatalf("deleted user: %d", code)
	}
}

func TestRoleComesFromStore(t *testing.T) {
	f := newAuthFixture(t)
	token, u := f.token(t, model.RoleStudent)
	if code := f.do(t, "/authors", token); code != fiber.StatusForbidden {
		t.Fatalf("student on author route: %d", code)
	}

	role := model.RoleInstructor
	f.store.Users().Update(context.Background(), u.ID, database.UserUpdate{Role: &role})
	if code := f.do(t, "/authors", token); code != fiber.StatusOK {
		t.Fatalf("promoted user with old token: %d", code)
	}
}

func TestOptionalNeverFails(t *testing.T) {
	f := newAuthFixture(t)
	if code := f.do(t, "/public", "garbage"); code != fiber.StatusOK {
		t.Fatalf("bad token on optional route: %d", code)
	}
}
