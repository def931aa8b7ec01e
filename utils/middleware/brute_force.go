package middleware

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// BruteForceProtection tracks failed logins per IP in Redis. A nil
// receiver disables it.
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

// NewBruteForceProtection returns nil when redisCache is nil
func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	if redisCache == nil {
		return nil
	}
	return &BruteForceProtection{redisCache: redisCache}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// lockoutFor returns the progressive lockout for a failure count
func lockoutFor(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	}
	return 0
}

// CheckAndRecordAttempt rejects requests from a locked IP
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		key := lockKey(c.IP())

		locked, err := b.redisCache.Exists(ctx, key)
		if err != nil {
			// Redis down: do not block legitimate users
			slog.Warn("brute force check failed", "error", err)
			return c.Next()
		}

		if locked {
			ttl, _ := b.redisCache.TTL(ctx, key)
			retryAfter := int(ttl.Seconds())
			if retryAfter <= 0 {
				retryAfter = 60
			}

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return response.FromError(c, apperr.RateLimited(
				fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter)))
		}

		return c.Next()
	}
}

// RecordFailedAttempt counts a failure and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx) {
	if b == nil {
		return
	}
	ctx := c.UserContext()
	ip := c.IP()

	attempts, err := b.redisCache.Increment(ctx, attemptKey(ip))
	if err != nil {
		slog.Warn("brute force increment failed", "error", err)
		return
	}

	// Attempts counter window, long enough to reach the 24h tier
	if attempts == 1 {
		b.redisCache.Expire(ctx, attemptKey(ip), 24*time.Hour)
	}

	if d := lockoutFor(attempts); d > 0 {
		slog.Warn("login locked out", "ip", ip, "attempts", attempts, "duration", d)
		b.redisCache.Set(ctx, lockKey(ip), "locked", d)
	}
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx) {
	if b == nil {
		return
	}
	ip := c.IP()
	b.redisCache.Delete(c.UserContext(), attemptKey(ip), lockKey(ip))
}
