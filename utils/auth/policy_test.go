package auth

import (
	"testing"

	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

func TestRolePolicy(t *testing.T) {
	p := RolePolicy{}
	student := &Identity{UserID: "s", Role: model.RoleStudent}
	instructor := &Identity{UserID: "i", Role: model.RoleInstructor}
	admin := &Identity{UserID: "a", Role: model.RoleAdmin}

	tests := []struct {
		name string
		err  error
		want apperr.Kind
		ok   bool
	}{
		{name: "student cannot author", err: p.Authorize(student, model.RoleInstructor, model.RoleAdmin), want: apperr.KindForbidden},
		{name: "instructor can author", err: p.Authorize(instructor, model.RoleInstructor, model.RoleAdmin), ok: true},
		{name: "anonymous", err: p.Authorize(nil, model.RoleStudent), want: apperr.KindUnauthenticated},
		{name: "owner", err: p.RequireOwnership(instructor, "i"), ok: true},
		{name: "other instructor", err: p.RequireOwnership(instructor, "x"), want: apperr.KindForbidden},
		{name: "admin overrides", err: p.RequireOwnership(admin, "x"), ok: true},
		{name: "empty owner", err: p.RequireOwnership(student, ""), want: apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ok {
				if tt.err != nil {
					t.Fatalf("unexpected error %v", tt.err)
				}
				return
			}
			if apperr.KindOf(tt.err) != tt.want {
				t.Fatalf("kind = %v, want %v (%v)", apperr.KindOf(tt.err), tt.want, tt.err)
			}
		})
	}
}
