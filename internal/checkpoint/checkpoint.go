// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists pipeline suspension snapshots keyed by session.
// A checkpoint is sufficient, alone, to resume a suspended pipeline: it holds
// the full Record, the suspend step's name, and a consumed flag so each
// suspension instance is resumable exactly once.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/pdiddy/draft-engine/pkg/types"
)

// ErrNotFound is returned by Load and Consume for an unknown session key.
var ErrNotFound = errors.New("checkpoint not found")

// ErrConsumed is returned by Consume when the checkpoint version was already
// consumed. Duplicate resume is a caller error, not a crash.
var ErrConsumed = errors.New("checkpoint already consumed")

// Checkpoint is a durable snapshot of a suspended pipeline.
type Checkpoint struct {
	// Session is the caller-supplied key isolating independent runs.
	Session string `json:"session"`

	// Step is the name of the suspend step the pipeline stopped at.
	Step string `json:"step"`

	// Record is the full pipeline state at suspension.
	Record types.Record `json:"record"`

	// Version increments on every Save for the session. Consume targets a
	// specific version so a stale resume cannot race a newer suspension.
	Version int `json:"version"`

	// Consumed marks the checkpoint as already resumed.
	Consumed bool `json:"consumed"`

	// CreatedAt is when the snapshot was saved.
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence backend for checkpoints. Implementations:
// SQLiteStore for durable sessions, MemoryStore for tests.
type Store interface {
	// Save upserts the session's checkpoint, bumping its version and
	// clearing the consumed flag.
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the session's checkpoint or ErrNotFound.
	Load(ctx context.Context, session string) (Checkpoint, error)

	// Consume marks the given version consumed. Returns ErrNotFound for an
	// unknown session, ErrConsumed when that version was already consumed
	// or superseded.
	Consume(ctx context.Context, session string, version int) error
}
