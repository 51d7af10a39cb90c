package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-ingest/internal/catalog"
)

// Memory is an in-process RecordStore with the same idempotence contract as
// Postgres. It backs tests and the dry-run mode.
type Memory struct {
	mu      sync.Mutex
	rows    map[string]catalog.ProductRecord
	upserts int
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rows: make(map[string]catalog.ProductRecord),
		now:  time.Now,
	}
}

// Upsert inserts or replaces the row for rec.ID, preserving the original
// created_at on replacement.
func (m *Memory) Upsert(_ context.Context, rec catalog.ProductRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if existing, ok := m.rows[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.rows[rec.ID] = rec
	m.upserts++
	return nil
}

// Ping always succeeds; the in-memory store has no backend to lose.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}

// Get returns the stored row for id, if present.
func (m *Memory) Get(id string) (catalog.ProductRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	return rec, ok
}

// Len reports the number of distinct rows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Upserts reports the total number of upsert calls, including updates.
func (m *Memory) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}
