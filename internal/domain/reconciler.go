// internal/domain/reconciler.go
//
// Reconciler — sweeps domains stranded mid-saga and re-drives them.
//
// Context
// -------
// A crash between a provider call and the following status write leaves a
// row sitting in pending, verifying, or deleting with nobody working on
// it.  The sweep finds rows whose updated_at is older than staleAfter and
// re-enters the matching saga step.  Every step is idempotent (CAS status
// guards plus idempotency keys on create), so re-driving a row that a
// live goroutine is still working on is harmless: one of the two loses
// its CAS and stops.

package domain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/metrics"
)

// Reconciler periodically re-drives stranded domain sagas.
type Reconciler struct {
	lc         *Lifecycle
	interval   time.Duration
	staleAfter time.Duration
	log        *zap.SugaredLogger
}

// NewReconciler builds a sweep loop over lc's pool.
func NewReconciler(lc *Lifecycle, interval, staleAfter time.Duration, log *zap.SugaredLogger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &Reconciler{lc: lc, interval: interval, staleAfter: staleAfter, log: log}
}

// Run sweeps on a ticker until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep re-drives every stale non-terminal row once.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleAfter)
	rows, err := listStale(ctx, r.lc.db, cutoff)
	if err != nil {
		r.log.Errorw("reconciler list failed", "err", err)
		return
	}

	for _, rec := range rows {
		metrics.ReconcilerSweepTotal.Inc()
		r.log.Infow("reconciling stale domain",
			"domain", rec.ID, "name", rec.Name, "status", rec.Status)

		switch rec.Status {
		case StatusPending:
			r.lc.provision(ctx, rec.ID)
		case StatusVerifying:
			if !rec.RecordRef.Valid {
				// Verifying without a ref should be unreachable
				// (setVerifying stores both in one statement).  Fail the
				// row so the anomaly surfaces instead of staying stale.
				r.lc.fail(ctx, rec.ID, StatusVerifying,
					"reconcile", fault.New(fault.Internal,
						"domain.reconcile", "verifying row has no record ref"))
				continue
			}
			r.lc.verify(ctx, rec.ID, rec.RecordRef.String)
		case StatusDeleting:
			r.lc.destroy(ctx, rec.ID)
		}
	}
}
