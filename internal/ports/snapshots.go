package ports

import (
	"context"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// SnapshotProvider serves farm snapshots, either straight from the ledger
// or through the no-cache HTTP layer. Implementations must tag the
// snapshot's Source so degraded data is never mistaken for a validated read.
type SnapshotProvider interface {
	FarmSnapshot(ctx context.Context, farmID uint64) (domain.FarmSnapshot, error)
}
