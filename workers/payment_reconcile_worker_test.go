package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"feedquire/logger"
	"feedquire/services"
)

type countingReconciler struct {
	calls     atomic.Int32
	olderThan time.Duration
	err       error
}

func (r *countingReconciler) ReconcilePending(ctx context.Context, olderThan, _ time.Duration) (services.ReconcileStats, error) {
	r.calls.Add(1)
	r.olderThan = olderThan
	return services.ReconcileStats{Checked: 1}, r.err
}

func TestRunOnce(t *testing.T) {
	r := &countingReconciler{}
	w := NewPaymentReconcileWorker(r, time.Minute, logger.Nop())

	stats, err := w.RunOnce(context.Background())
	if err != nil || stats.Checked != 1 {
		t.Fatalf("RunOnce = %+v, %v", stats, err)
	}
	if r.olderThan != time.Minute {
		t.Fatalf("olderThan = %v", r.olderThan)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := &countingReconciler{err: errors.New("gateway down")}
	w := NewPaymentReconcileWorker(r, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
