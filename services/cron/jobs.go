package cron

import (
	"context"
	"fmt"
	"time"
)

const (
	jobReconcilePayments = "reconcile_pending_payments"
	jobPurgeTokens       = "purge_refresh_tokens"
)

// ReconcilePayments confirms payments left pending longer than the pending age.
// Webhooks normally settle them; this covers lost deliveries.
func (m *CronManager) ReconcilePayments() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	m.logJobStart(jobReconcilePayments)

	updated, err := m.payments.ReconcilePending(ctx, m.pendingAge)
	if err != nil {
		m.logJobError(jobReconcilePayments, fmt.Errorf("failed to reconcile payments: %w", err))
		return
	}
	m.logJobComplete(jobReconcilePayments, fmt.Sprintf("Updated %d payments", updated))
}

// PurgeRefreshTokens drops used refresh token ids whose tokens have expired
func (m *CronManager) PurgeRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	m.logJobStart(jobPurgeTokens)
	removed := m.tokens.Purge(ctx)
	m.logJobComplete(jobPurgeTokens, fmt.Sprintf("Removed %d entries", removed))
}
