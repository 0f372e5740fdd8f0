// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process runs.
type MemoryStore struct {
	mu          sync.Mutex
	checkpoints map[string]Checkpoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]Checkpoint)}
}

// Save upserts the session's checkpoint, bumping version and clearing consumed.
func (m *MemoryStore) Save(_ context.Context, cp Checkpoint) error {
	if cp.Session == "" {
		return fmt.Errorf("session key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.checkpoints[cp.Session]
	if ok {
		cp.Version = prev.Version + 1
	} else {
		cp.Version = 1
	}
	cp.Consumed = false
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.checkpoints[cp.Session] = cp
	return nil
}

// Load returns the session's checkpoint or ErrNotFound.
func (m *MemoryStore) Load(_ context.Context, session string) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp, ok := m.checkpoints[session]
	if !ok {
		return Checkpoint{}, fmt.Errorf("session %s: %w", session, ErrNotFound)
	}
	return cp, nil
}

// Consume marks the given version consumed, exactly once.
func (m *MemoryStore) Consume(_ context.Context, session string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp, ok := m.checkpoints[session]
	if !ok {
		return fmt.Errorf("session %s: %w", session, ErrNotFound)
	}
	if cp.Consumed || cp.Version != version {
		return fmt.Errorf("session %s version %d: %w", session, version, ErrConsumed)
	}
	cp.Consumed = true
	m.checkpoints[session] = cp
	return nil
}
