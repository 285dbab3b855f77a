package invest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gethsun1/project-mocha-demo/internal/ports"
)

// Reconciler runs after a session succeeds: it refreshes the cached farm
// view and, after a fixed settling delay, fires the navigation callback.
// It is a side effect of SUCCEEDED, never part of the state machine: a
// refresh failure is logged and swallowed because the on-ledger purchase
// already happened.
type Reconciler struct {
	snapshots ports.SnapshotProvider
	settle    time.Duration
	navigate  func()

	once sync.Once
}

// NewReconciler wires a reconciler. navigate may be nil when the caller has
// nowhere to go afterwards (the CLI); it is invoked at most once.
func NewReconciler(snapshots ports.SnapshotProvider, settle time.Duration, navigate func()) *Reconciler {
	return &Reconciler{snapshots: snapshots, settle: settle, navigate: navigate}
}

// OnSuccess refreshes the snapshot and signals completion.
func (r *Reconciler) OnSuccess(ctx context.Context, farmID uint64) {
	if r == nil {
		return
	}

	snap, err := r.snapshots.FarmSnapshot(ctx, farmID)
	if err != nil {
		slog.Warn("invest: post-success snapshot refresh failed", "farm", farmID, "err", err)
	} else {
		slog.Info("invest: farm refreshed after purchase",
			"farm", farmID,
			"current_trees", snap.CurrentTrees,
			"capacity", snap.TreeCapacity,
		)
	}

	select {
	case <-time.After(r.settle):
	case <-ctx.Done():
	}

	if r.navigate != nil {
		r.once.Do(r.navigate)
	}
}
