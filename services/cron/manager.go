package cron

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// ReconcileSchedule runs the payment reconciliation every 10 minutes
	ReconcileSchedule = "0 */10 * * * *"
	// PurgeSchedule runs the refresh registry cleanup hourly
	PurgeSchedule = "0 5 * * * *"
	// DefaultPendingAge is how long an intent stays pending before it is re-queried
	DefaultPendingAge = 30 * time.Minute
)

// PaymentReconciler re-reads stale pending payments from the provider
type PaymentReconciler interface {
	ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// TokenPurger drops expired entries from the refresh token registry
type TokenPurger interface {
	Purge(ctx context.Context) int
}

// JobStatus is the outcome of the latest run of a job
type JobStatus struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"` // running, completed, failed
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron       *cron.Cron
	payments   PaymentReconciler
	tokens     TokenPurger
	pendingAge time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	runs map[string]JobStatus
}

// NewCronManager creates a new cron manager
func NewCronManager(payments PaymentReconciler, tokens TokenPurger, logger *slog.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:       c,
		payments:   payments,
		tokens:     tokens,
		pendingAge: DefaultPendingAge,
		logger:     logger.With("component", "cron"),
		runs:       make(map[string]JobStatus),
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.logger.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()

	m.logger.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	m.logger.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every 10 minutes: confirm payments stuck in pending
	if m.payments != nil {
		if _, err := m.cron.AddFunc(ReconcileSchedule, m.ReconcilePayments); err != nil {
			return err
		}
	}

	// 2. Hourly: forget refresh tokens past their expiry
	if m.tokens != nil {
		if _, err := m.cron.AddFunc(PurgeSchedule, m.PurgeRefreshTokens); err != nil {
			return err
		}
	}
	return nil
}

// Status returns the latest run of every job, ordered by name
func (m *CronManager) Status() []JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]JobStatus, 0, len(m.runs))
	for _, s := range m.runs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	m.logger.Info("job started", "job", jobName)

	m.mu.Lock()
	m.runs[jobName] = JobStatus{Name: jobName, Status: "running", StartedAt: time.Now()}
	m.mu.Unlock()
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	m.logger.Info("job completed", "job", jobName, "message", message)

	m.mu.Lock()
	run := m.runs[jobName]
	run.Status = "completed"
	run.CompletedAt = time.Now()
	run.Message = message
	m.runs[jobName] = run
	m.mu.Unlock()
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	m.logger.Error("job failed", "job", jobName, "error", err)

	m.mu.Lock()
	run := m.runs[jobName]
	run.Status = "failed"
	run.CompletedAt = time.Now()
	run.Error = err.Error()
	m.runs[jobName] = run
	m.mu.Unlock()
}
