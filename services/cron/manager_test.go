package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type stubReconciler struct {
	n         int
	err       error
	olderThan time.Duration
}

func (s *stubReconciler) ReconcilePending(_ context.Context, olderThan time.Duration) (int, error) {
	s.olderThan = olderThan
	return s.n, s.err
}

type stubPurger struct{ n int }

func (s stubPurger) Purge(context.Context) int { return s.n }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestJobsRecordStatus(t *testing.T) {
	rec := &stubReconciler{n: 3}
	m := NewCronManager(rec, stubPurger{n: 2}, discard())

	m.ReconcilePayments()
	m.PurgeRefreshTokens()

	if rec.olderThan != DefaultPendingAge {
		t.Fatalf("olderThan = %s", rec.olderThan)
	}
	status := m.Status()
	if len(status) != 2 {
		t.Fatalf("status = %+v", status)
	}
	if status[0].Name != jobPurgeTokens || status[0].Message != "Removed 2 entries" || status[0].Status != "completed" {
		t.Fatalf("purge = %+v", status[0])
	}
	if status[1].Name != jobReconcilePayments || status[1].Message != "Updated 3 payments" {
		t.Fatalf("reconcile = %+v", status[1])
	}
}

func TestJobFailureIsRecorded(t *testing.T) {
	m := NewCronManager(&stubReconciler{err: errors.New("store down")}, nil, discard())
	m.ReconcilePayments()

	status := m.Status()
	if len(status) != 1 || status[0].Status != "failed" || status[0].Error == "" {
		t.Fatalf("status = %+v", status)
	}
}

func TestStartRegistersConfiguredJobs(t *testing.T) {
	m := NewCronManager(&stubReconciler{}, nil, discard())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if n := len(m.cron.Entries()); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
}
