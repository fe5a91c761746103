package workers

import (
	"context"
	"time"

	"feedquire/logger"
	"feedquire/services"
)

// Reconciler is the part of PaymentService the worker drives.
type Reconciler interface {
	ReconcilePending(ctx context.Context, olderThan, abandonAfter time.Duration) (services.ReconcileStats, error)
}

type PaymentReconcileWorker struct {
	reconciler   Reconciler
	interval     time.Duration
	olderThan    time.Duration
	abandonAfter time.Duration
	log          *logger.Logger
}

func NewPaymentReconcileWorker(r Reconciler, interval time.Duration, log *logger.Logger) *PaymentReconcileWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PaymentReconcileWorker{
		reconciler:   r,
		interval:     interval,
		olderThan:    time.Minute,
		abandonAfter: 24 * time.Hour,
		log:          log.With("worker", "PaymentReconcileWorker"),
	}
}

// RunOnce performs a single reconcile pass.
func (w *PaymentReconcileWorker) RunOnce(ctx context.Context) (services.ReconcileStats, error) {
	passCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	return w.reconciler.ReconcilePending(passCtx, w.olderThan, w.abandonAfter)
}

// Run polls until ctx is cancelled. A failed pass is retried on the next tick.
func (w *PaymentReconcileWorker) Run(ctx context.Context) {
	w.log.Info("Starting payment reconciliation", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Payment reconciliation stopped.")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("❌ reconcile pass failed", "error", err)
			}
		}
	}
}
