package store

import (
	"context"
	"sync"

	"invsync/internal/inventory"
)

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Replace(_ context.Context, snap Snapshot) error {
	snap.Records = cloneRecords(snap.Records)
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snap
	snap.Records = cloneRecords(snap.Records)
	return snap, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.snap = Snapshot{}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() {}

func cloneRecords(in []inventory.Record) []inventory.Record {
	if in == nil {
		return nil
	}
	out := make([]inventory.Record, len(in))
	copy(out, in)
	return out
}
