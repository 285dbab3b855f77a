package ports

import (
	"context"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// Notifier renders session outcomes and farm listings to the user.
type Notifier interface {
	// PhaseChanged is called on every orchestrator transition. Must not block.
	PhaseChanged(sessionID string, from, to domain.Phase)

	// SessionResult renders the terminal session with its attempts.
	SessionResult(ctx context.Context, rec domain.SessionRecord) error

	// FarmTable renders the farm catalogue.
	FarmTable(ctx context.Context, farms []domain.FarmSnapshot, stats map[uint64]domain.FarmStats) error
}
