package middleware

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/model"
)

func TestAdminAuditLogRecordsOutcome(t *testing.T) {
	f := newAuthFixture(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	f.app.Delete("/users/:id", NewAuthMiddleware(f.jwt, f.store.Users(), nil).Required(),
		AdminAuditLog(logger, "delete_user", "users"),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	token, admin := f.token(t, model.RoleAdmin)
	req := httptest.NewRequest("DELETE", "/users/u-42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if _, err := f.app.Test(req); err != nil {
		t.Fatal(err)
	}

	line := buf.String()
	for _, want := range []string{"action=delete_user", "resource_id=u-42", "status=204", "admin_id=" + admin.ID} {
		if !strings.Contains(line, want) {
			t.Fatalf("log %q missing %q", line, want)
		}
	}
}
