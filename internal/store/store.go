// Package store persists the current inventory snapshot.
//
// A snapshot is replaced as a whole after every successful sync. Stores never
// merge, so a reader sees either the previous snapshot or the new one.
package store

import (
	"context"
	"fmt"
	"time"

	"invsync/internal/inventory"
)

// Snapshot is the record list produced by one successful sync.
type Snapshot struct {
	Records  []inventory.Record `json:"records"`
	Mode     string             `json:"mode"`
	SyncedAt time.Time          `json:"syncedAt"`
}

// Empty reports whether no sync has been stored.
func (s Snapshot) Empty() bool {
	return s.SyncedAt.IsZero()
}

// Store holds at most one snapshot.
type Store interface {
	// Replace swaps the stored snapshot atomically.
	Replace(ctx context.Context, snap Snapshot) error
	// Load returns the stored snapshot, or an empty one.
	Load(ctx context.Context) (Snapshot, error)
	// Clear removes the stored snapshot.
	Clear(ctx context.Context) error
	Close()
}

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Open creates the store selected by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
