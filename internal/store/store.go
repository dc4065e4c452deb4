// Package store holds completed processor results keyed by their
// content-derived cache key. The store is append-only for a given key: the
// orchestrator schedules each node at most once per build, so writers never
// contend on the same key within a build.
package store

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/seedbloom/internal/processor"
)

// Entry is what a cache hit yields: the stored identity, the location of the
// stored publish tree, and the original run duration.
type Entry struct {
	Identity   string
	PublishDir string
	Duration   time.Duration
}

// Store is the orchestrator's result cache. Get reports a miss with
// ok=false; Put records a completed result under its cache key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, res processor.Result) error
	Close() error
}

// Memory is an in-process Store. Publish trees are referenced in place, so
// entries stay valid only as long as the referenced directories exist.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, res processor.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{
		Identity:   res.Identity,
		PublishDir: res.PublishDir,
		Duration:   res.Timing.Duration,
	}
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
