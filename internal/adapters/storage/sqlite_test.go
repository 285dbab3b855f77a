package storage

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(started time.Time) domain.SessionRecord {
	return domain.SessionRecord{
		ID:        "sess-1",
		FarmID:    7,
		Actor:     "0xabc",
		TreeCount: 100,
		CostWei:   new(big.Int).Mul(big.NewInt(400), big.NewInt(1e18)),
		Phase:     domain.PhaseValidating,
		StartedAt: started,
	}
}

func TestSQLiteStore_SessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	rec := sampleSession(started)
	require.NoError(t, store.SaveSession(ctx, rec))

	// upsert with terminal state
	finished := started.Add(30 * time.Second)
	rec.Phase = domain.PhaseFailed
	rec.FailureKind = domain.FailPurchaseReverted
	rec.FinishedAt = &finished
	require.NoError(t, store.SaveSession(ctx, rec))

	got, err := store.History(ctx, started.Add(-time.Minute), started.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "sess-1", got[0].ID)
	assert.Equal(t, uint64(7), got[0].FarmID)
	assert.Equal(t, domain.PhaseFailed, got[0].Phase)
	assert.Equal(t, domain.FailPurchaseReverted, got[0].FailureKind)
	assert.Equal(t, rec.CostWei.String(), got[0].CostWei.String())
	require.NotNil(t, got[0].FinishedAt)
	assert.WithinDuration(t, finished, *got[0].FinishedAt, time.Second)
}

func TestSQLiteStore_AttemptStatusUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveSession(ctx, sampleSession(started)))

	att := domain.TransactionAttempt{
		ID:          "att-1",
		Kind:        domain.AttemptPurchase,
		GasTier:     0,
		GasLimit:    300_000,
		Amount:      big.NewInt(4e18),
		SubmittedAt: started,
	}
	require.NoError(t, store.SaveAttempt(ctx, "sess-1", att))

	// hash and status arrive later
	att.TxHash = "0xdeadbeef"
	att.Status = domain.StatusSuccess
	require.NoError(t, store.SaveAttempt(ctx, "sess-1", att))

	got, err := store.History(ctx, started.Add(-time.Minute), started.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attempts, 1)

	saved := got[0].Attempts[0]
	assert.Equal(t, "0xdeadbeef", saved.TxHash)
	assert.Equal(t, domain.StatusSuccess, saved.Status)
	assert.Equal(t, uint64(300_000), saved.GasLimit)
	assert.Equal(t, "4000000000000000000", saved.Amount.String())
}

func TestSQLiteStore_AttemptsOrderedBySubmission(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveSession(ctx, sampleSession(started)))

	first := domain.TransactionAttempt{
		ID: "att-1", Kind: domain.AttemptPurchase, GasTier: 0, GasLimit: 300_000,
		Amount: big.NewInt(1), SubmittedAt: started,
	}
	second := domain.TransactionAttempt{
		ID: "att-2", Kind: domain.AttemptPurchase, GasTier: 1, GasLimit: 650_000,
		Amount: big.NewInt(1), SubmittedAt: started.Add(5 * time.Second),
	}
	require.NoError(t, store.SaveAttempt(ctx, "sess-1", second))
	require.NoError(t, store.SaveAttempt(ctx, "sess-1", first))

	got, err := store.History(ctx, started.Add(-time.Minute), started.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attempts, 2)
	assert.Equal(t, "att-1", got[0].Attempts[0].ID)
	assert.Equal(t, "att-2", got[0].Attempts[1].ID)
}

func TestSQLiteStore_HistoryWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	old := sampleSession(base.Add(-48 * time.Hour))
	old.ID = "sess-old"
	recent := sampleSession(base)
	recent.ID = "sess-new"

	require.NoError(t, store.SaveSession(ctx, old))
	require.NoError(t, store.SaveSession(ctx, recent))

	got, err := store.History(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sess-new", got[0].ID)
}
