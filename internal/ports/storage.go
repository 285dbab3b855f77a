package ports

import (
	"context"
	"time"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// InvestmentStore persists sessions and their attempts for auditing.
type InvestmentStore interface {
	// SaveSession upserts the session row (phase, failure, finish time).
	SaveSession(ctx context.Context, rec domain.SessionRecord) error

	// SaveAttempt appends one attempt, or updates its terminal status.
	SaveAttempt(ctx context.Context, sessionID string, att domain.TransactionAttempt) error

	// History returns sessions started within the range, newest first,
	// attempts included.
	History(ctx context.Context, from, to time.Time) ([]domain.SessionRecord, error)

	// Close closes the database cleanly.
	Close() error
}
