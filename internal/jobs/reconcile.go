// Package jobs holds scheduled maintenance work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/salesboard/internal/metrics"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/robfig/cron/v3"
)

// runTimeout bounds one scheduled reconcile pass.
const runTimeout = 5 * time.Minute

// Reconciler brings every tenant's record_count back in line with the rows
// actually stored in its partition. Counts drift when a write lands but the
// follow-up count refresh fails.
type Reconciler struct {
	store   store.Store
	metrics *metrics.Metrics
}

func NewReconciler(s store.Store, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: s, metrics: m}
}

// Run checks every tenant once and returns how many counts it corrected.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	tenants, err := r.store.ListTenants(ctx)
	if err != nil {
		r.metrics.RecordReconcile("error", 0, 0)
		return 0, fmt.Errorf("list tenants: %w", err)
	}

	corrected := 0
	for _, t := range tenants {
		count, err := r.store.CountSales(ctx, t.Partition)
		if err != nil {
			r.metrics.RecordReconcile("error", len(tenants), corrected)
			return corrected, fmt.Errorf("count %s: %w", t.Partition, err)
		}
		if count == t.RecordCount {
			continue
		}
		if err := r.store.UpdateTenantRecordCount(ctx, t.ID, count); err != nil {
			r.metrics.RecordReconcile("error", len(tenants), corrected)
			return corrected, fmt.Errorf("update %s: %w", t.Partition, err)
		}
		slog.Info("record count corrected", "tenant_id", t.ID, "partition", t.Partition,
			"was", t.RecordCount, "now", count)
		corrected++
	}

	r.metrics.RecordReconcile("success", len(tenants), corrected)
	return corrected, nil
}

// Schedule runs the reconciler on a standard five-field cron spec until the
// returned scheduler is stopped.
func (r *Reconciler) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			slog.Error("reconcile failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}
	c.Start()
	slog.Info("reconcile scheduler started", "schedule", spec)
	return c, nil
}
