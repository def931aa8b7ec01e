package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
)

func TestLockoutAfterFiveFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	bf := NewBruteForceProtection(rc)

	app := fiber.New()
	app.Post("/login", bf.CheckAndRecordAttempt(), func(c *fiber.Ctx) error {
		if c.Query("ok") == "1" {
			bf.RecordSuccessfulAttempt(c)
			return c.SendStatus(fiber.StatusOK)
		}
		bf.RecordFailedAttempt(c)
		return c.SendStatus(fiber.StatusUnauthorized)
	})

	call := func(query string) int {
		resp, err := app.Test(httptest.NewRequest("POST", "/login"+query, nil))
		if err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 5; i++ {
		if code := call(""); code != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: %d", i+1, code)
		}
	}
	if code := call("?ok=1"); code != fiber.StatusTooManyRequests {
		t.Fatalf("locked IP: %d", code)
	}

	mr.FastForward(3 * time.Minute)
	if code := call("?ok=1"); code != fiber.StatusOK {
		t.Fatalf("after lockout: %d", code)
	}
}

func TestLockoutTiers(t *testing.T) {
	tests := []struct {
		attempts int64
		want     time.Duration
	}{
		{4, 0},
		{5, 2 * time.Minute},
		{9, 2 * time.Minute},
		{10, time.Hour},
		{25, 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := lockoutFor(tt.attempts); got != tt.want {
			t.Errorf("lockoutFor(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestNilProtectionIsDisabled(t *testing.T) {
	bf := NewBruteForceProtection(nil)
	app := fiber.New()
	app.Get("/", bf.CheckAndRecordAttempt(), func(c *fiber.Ctx) error {
		bf.RecordFailedAttempt(c)
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %v, err %v", resp, err)
	}
}
