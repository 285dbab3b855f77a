package invest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

type countingSnapshots struct {
	calls int32
	err   error
}

func (c *countingSnapshots) FarmSnapshot(ctx context.Context, farmID uint64) (domain.FarmSnapshot, error) {
	atomic.AddInt32(&c.calls, 1)
	return domain.FarmSnapshot{FarmID: farmID, Source: domain.SourceLedger}, c.err
}

func TestReconciler_NavigatesExactlyOnce(t *testing.T) {
	var navigated int32
	snaps := &countingSnapshots{}
	r := NewReconciler(snaps, time.Millisecond, func() { atomic.AddInt32(&navigated, 1) })

	r.OnSuccess(context.Background(), 1)
	r.OnSuccess(context.Background(), 1)

	assert.Equal(t, int32(1), atomic.LoadInt32(&navigated))
	assert.Equal(t, int32(2), atomic.LoadInt32(&snaps.calls))
}

func TestReconciler_RefreshFailureStillNavigates(t *testing.T) {
	var navigated int32
	snaps := &countingSnapshots{err: errors.New("rpc down")}
	r := NewReconciler(snaps, time.Millisecond, func() { atomic.AddInt32(&navigated, 1) })

	r.OnSuccess(context.Background(), 1)

	assert.Equal(t, int32(1), atomic.LoadInt32(&navigated))
}

func TestReconciler_NilNavigateIsFine(t *testing.T) {
	r := NewReconciler(&countingSnapshots{}, time.Millisecond, nil)
	r.OnSuccess(context.Background(), 1)
}

func TestReconciler_CancelledContextSkipsSettleDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReconciler(&countingSnapshots{}, time.Hour, nil)
	done := make(chan struct{})
	go func() {
		r.OnSuccess(ctx, 1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not return after context cancellation")
	}
}
