package storage

// sqlite.go: audit trail for investment sessions.
//
// Two tables: one row per session, one row per transaction attempt.
// Attempts are append-only like the in-memory records; updates only ever
// fill in the tx hash and terminal status of an existing row.

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id           TEXT PRIMARY KEY,
    farm_id      INTEGER NOT NULL,
    actor        TEXT    NOT NULL,
    tree_count   INTEGER NOT NULL,
    cost_wei     TEXT    NOT NULL,
    phase        TEXT    NOT NULL,
    failure_kind TEXT    NOT NULL DEFAULT '',
    started_at   DATETIME NOT NULL,
    finished_at  DATETIME
);

CREATE TABLE IF NOT EXISTS attempts (
    id           TEXT PRIMARY KEY,
    session_id   TEXT    NOT NULL REFERENCES sessions(id),
    kind         TEXT    NOT NULL,
    tx_hash      TEXT    NOT NULL DEFAULT '',
    gas_tier     INTEGER NOT NULL,
    gas_limit    INTEGER NOT NULL,
    amount_wei   TEXT    NOT NULL,
    submitted_at DATETIME NOT NULL,
    status       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id);
`

// SQLiteStore implements ports.InvestmentStore using SQLite (pure Go, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveSession upserts the session row.
func (s *SQLiteStore) SaveSession(ctx context.Context, rec domain.SessionRecord) error {
	cost := "0"
	if rec.CostWei != nil {
		cost = rec.CostWei.String()
	}

	var finished any
	if rec.FinishedAt != nil {
		finished = rec.FinishedAt.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, farm_id, actor, tree_count, cost_wei, phase, failure_kind, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase        = excluded.phase,
			failure_kind = excluded.failure_kind,
			finished_at  = excluded.finished_at`,
		rec.ID, rec.FarmID, rec.Actor, rec.TreeCount, cost,
		string(rec.Phase), string(rec.FailureKind), rec.StartedAt.UTC(), finished,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSession: %w", err)
	}
	return nil
}

// SaveAttempt inserts or updates one attempt row.
func (s *SQLiteStore) SaveAttempt(ctx context.Context, sessionID string, att domain.TransactionAttempt) error {
	amount := "0"
	if att.Amount != nil {
		amount = att.Amount.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, session_id, kind, tx_hash, gas_tier, gas_limit, amount_wei, submitted_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tx_hash = excluded.tx_hash,
			status  = excluded.status`,
		att.ID, sessionID, string(att.Kind), att.TxHash, att.GasTier, att.GasLimit,
		amount, att.SubmittedAt.UTC(), string(att.Status),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveAttempt: %w", err)
	}
	return nil
}

// History returns sessions started within [from, to], newest first, with
// their attempts attached.
func (s *SQLiteStore) History(ctx context.Context, from, to time.Time) ([]domain.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, farm_id, actor, tree_count, cost_wei, phase, failure_kind, started_at, finished_at
		FROM sessions
		WHERE started_at BETWEEN ? AND ?
		ORDER BY started_at DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.History: query sessions: %w", err)
	}
	defer rows.Close()

	var recs []domain.SessionRecord
	for rows.Next() {
		var (
			rec      domain.SessionRecord
			cost     string
			phase    string
			failure  string
			finished sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.FarmID, &rec.Actor, &rec.TreeCount,
			&cost, &phase, &failure, &rec.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("storage.History: scan session: %w", err)
		}
		rec.CostWei, _ = new(big.Int).SetString(cost, 10)
		rec.Phase = domain.Phase(phase)
		rec.FailureKind = domain.FailureKind(failure)
		if finished.Valid {
			t := finished.Time.UTC()
			rec.FinishedAt = &t
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.History: iterate sessions: %w", err)
	}

	for i := range recs {
		atts, err := s.attemptsFor(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
		recs[i].Attempts = atts
	}
	return recs, nil
}

func (s *SQLiteStore) attemptsFor(ctx context.Context, sessionID string) ([]domain.TransactionAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, tx_hash, gas_tier, gas_limit, amount_wei, submitted_at, status
		FROM attempts
		WHERE session_id = ?
		ORDER BY submitted_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.History: query attempts: %w", err)
	}
	defer rows.Close()

	var atts []domain.TransactionAttempt
	for rows.Next() {
		var (
			att    domain.TransactionAttempt
			kind   string
			amount string
			status string
		)
		if err := rows.Scan(&att.ID, &kind, &att.TxHash, &att.GasTier,
			&att.GasLimit, &amount, &att.SubmittedAt, &status); err != nil {
			return nil, fmt.Errorf("storage.History: scan attempt: %w", err)
		}
		att.Kind = domain.AttemptKind(kind)
		att.Amount, _ = new(big.Int).SetString(amount, 10)
		att.Status = domain.TerminalStatus(status)
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// Close closes the database connection cleanly.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
