package validation

import (
	"testing"

	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

type signupRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Tags     []string `json:"tags" validate:"max=2"`
	Nested   struct {
		Title string `json:"title" validate:"required"`
	} `json:"nested"`
}

func TestValidateStructReportsJSONNames(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(&signupRequest{Email: "bad", Password: "123", Tags: []string{"a", "b", "c"}})

	appErr := apperr.As(err)
	if appErr.Kind != apperr.KindValidation {
		t.Fatalf("kind = %v", appErr.Kind)
	}

	got := map[string]string{}
	for _, f := range appErr.Fields {
		got[f.Field] = f.Code
	}
	want := map[string]string{"email": "email", "password": "min", "tags": "max", "nested.title": "required"}
	for field, code := range want {
		if got[field] != code {
			t.Errorf("field %q: code %q, want %q (all: %v)", field, got[field], code, got)
		}
	}
}

func TestValidateStructOK(t *testing.T) {
	v := NewValidator()
	req := signupRequest{Email: "a@b.io", Password: "123456"}
	req.Nested.Title = "x"
	if err := v.ValidateStruct(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  a\x00b  "); got != "ab" {
		t.Fatalf("got %q", got)
	}
}
