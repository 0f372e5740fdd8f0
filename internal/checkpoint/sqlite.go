// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/draft-engine/pkg/types"
)

const dbFile = "sessions.db"

// SQLiteStore persists checkpoints in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the sessions database at dir/sessions.db,
// creating the schema if it does not exist.
func NewSQLiteStore(cfg types.CheckpointConfig) (*SQLiteStore, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "sessions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		session TEXT PRIMARY KEY,
		step TEXT NOT NULL,
		record TEXT NOT NULL,
		version INTEGER NOT NULL,
		consumed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Save upserts the session's checkpoint. The stored version always advances,
// and the consumed flag resets so the new suspension is resumable.
func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint) error {
	if cp.Session == "" {
		return fmt.Errorf("session key is required")
	}

	recordJSON, err := json.Marshal(cp.Record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	createdAt := cp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session, step, record, version, consumed, created_at)
		 VALUES (?, ?, ?, 1, 0, ?)
		 ON CONFLICT(session) DO UPDATE SET
			step=excluded.step, record=excluded.record,
			version=checkpoints.version+1, consumed=0,
			created_at=excluded.created_at`,
		cp.Session, cp.Step, string(recordJSON), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting checkpoint: %w", err)
	}
	return nil
}

// Load returns the session's checkpoint or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, session string) (Checkpoint, error) {
	var (
		cp         Checkpoint
		recordJSON string
		consumed   int
		createdAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session, step, record, version, consumed, created_at
		 FROM checkpoints WHERE session = ?`, session,
	).Scan(&cp.Session, &cp.Step, &recordJSON, &cp.Version, &consumed, &createdAt)
	if err == sql.ErrNoRows {
		return Checkpoint{}, fmt.Errorf("session %s: %w", session, ErrNotFound)
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("loading checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(recordJSON), &cp.Record); err != nil {
		return Checkpoint{}, fmt.Errorf("parsing stored record: %w", err)
	}
	cp.Consumed = consumed != 0
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		cp.CreatedAt = t
	}
	return cp, nil
}

// Consume marks the given checkpoint version consumed. The guarded UPDATE
// makes resume exactly-once even under concurrent callers.
func (s *SQLiteStore) Consume(ctx context.Context, session string, version int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE checkpoints SET consumed = 1
		 WHERE session = ? AND version = ? AND consumed = 0`,
		session, version,
	)
	if err != nil {
		return fmt.Errorf("consuming checkpoint: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consuming checkpoint: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Distinguish unknown session from already-consumed.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM checkpoints WHERE session = ?`, session,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking checkpoint: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %s: %w", session, ErrNotFound)
	}
	return fmt.Errorf("session %s version %d: %w", session, version, ErrConsumed)
}
