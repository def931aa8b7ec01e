package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/services/cron"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

// HealthHandler reports the state of the store and optional dependencies.
// cache and jobs may be nil.
type HealthHandler struct {
	store database.Storage
	cache *cache.RedisCache
	jobs  *cron.CronManager
}

func NewHealthHandler(store database.Storage, cache *cache.RedisCache, jobs *cron.CronManager) *HealthHandler {
	return &HealthHandler{store: store, cache: cache, jobs: jobs}
}

// HealthStatus is the health check payload
type HealthStatus struct {
	Status string            `json:"status"` // ok, degraded
	Time   time.Time         `json:"time"`
	Checks map[string]string `json:"checks"`
	Jobs   []cron.JobStatus  `json:"jobs,omitempty"`
}

// HandleCheckHealth handles GET /api/v1/health and /ping. A failing store
// answers 503; a failing cache only degrades the status.
func (h *HealthHandler) HandleCheckHealth(c *fiber.Ctx) error {
	status := HealthStatus{Status: "ok", Time: time.Now().UTC(), Checks: map[string]string{}}

	storeOK := true
	if err := h.store.HealthCheck(); err != nil {
		storeOK = false
		status.Status = "degraded"
		status.Checks["store"] = "error: " + err.Error()
	} else {
		status.Checks["store"] = "ok"
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks["cache"] = "error: " + err.Error()
		} else {
			status.Checks["cache"] = "ok"
		}
	}

	if h.jobs != nil {
		status.Jobs = h.jobs.Status()
	}

	if !storeOK {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response.Response{Success: false, Data: status, Error: "UNAVAILABLE"})
	}
	return response.Success(c, status)
}
