// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact stores large step output outside the pipeline Record.
// Each key maps to a directory of numbered segment files; concurrent workers
// append disjoint segments tagged with an order key, and Read reconciles them
// back into outline order with a sort-then-concatenate pass.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrNotFound is returned by Read when a key has never been written.
var ErrNotFound = errors.New("artifact not found")

// segmentPattern matches numbered segment files: NNNN.part.
var segmentPattern = regexp.MustCompile(`^\d{4}\.part$`)

// Store persists artifacts as segment files under a base directory.
// Appends targeting the same key are safe to run concurrently because every
// append with a distinct order key lands in its own segment file.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Append writes content as the segment with order key seq under key.
// Re-appending the same seq overwrites the previous segment (last write wins),
// which makes worker retries after a partial write safe.
func (s *Store) Append(key string, seq int, content string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if seq < 0 || seq > 9999 {
		return fmt.Errorf("order key %d out of range [0,9999]", seq)
	}

	keyDir := filepath.Join(s.dir, key)
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return fmt.Errorf("creating artifact key %s: %w", key, err)
	}

	path := filepath.Join(keyDir, fmt.Sprintf("%04d.part", seq))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing segment %04d of %s: %w", seq, key, err)
	}
	return nil
}

// Read returns the full content for key: all segments sorted by order key,
// concatenated. Completion order of the original appends does not matter.
// Returns ErrNotFound when the key was never written.
func (s *Store) Read(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	keyDir := filepath.Join(s.dir, key)
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("reading artifact key %s: %w", key, err)
	}

	var segments []string
	for _, e := range entries {
		if e.IsDir() || !segmentPattern.MatchString(e.Name()) {
			continue
		}
		segments = append(segments, e.Name())
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
	}

	// Zero-padded names sort lexicographically in order-key order.
	sort.Strings(segments)

	var b strings.Builder
	for _, name := range segments {
		data, err := os.ReadFile(filepath.Join(keyDir, name))
		if err != nil {
			return "", fmt.Errorf("reading segment %s of %s: %w", name, key, err)
		}
		b.Write(data)
	}
	return b.String(), nil
}

// Segments returns the number of segments stored under key, 0 if none.
func (s *Store) Segments(key string) (int, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading artifact key %s: %w", key, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && segmentPattern.MatchString(e.Name()) {
			n++
		}
	}
	return n, nil
}

// Remove deletes all segments for key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, key)); err != nil {
		return fmt.Errorf("removing artifact key %s: %w", key, err)
	}
	return nil
}

// validKey rejects keys that would escape the store directory.
func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("artifact key is required")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid artifact key %q", key)
	}
	return nil
}
