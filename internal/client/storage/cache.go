package storage

import (
	"context"
	"encoding/json"
	"time"
)

// CacheStorage defines the interface for the durable, fail-soft cache
// store. Implementations must never surface engine failures to callers:
// a broken or unavailable backend degrades every operation to a no-op
// or a nil result, so calling code can treat persistence as optional.
//
// workspaceID semantics: an empty workspaceID argument on reads means
// "no tenant filter" (global entries and any-workspace lookups); a
// non-empty one must match the stored entry's WorkspaceID exactly.
type CacheStorage interface {
	// Set upserts an entry unconditionally (last-writer-wins)
	Set(ctx context.Context, store, key string, data any, workspaceID string, ttl time.Duration)

	// Get returns the stored data or nil on miss. Expired entries are
	// deleted opportunistically; workspace mismatches are a plain miss
	// and leave the entry in place.
	Get(ctx context.Context, store, key, workspaceID string) json.RawMessage

	// GetAll returns all non-expired entries of the store belonging to
	// the workspace. Expired matches are dropped from the result
	// without a deletion guarantee.
	GetAll(ctx context.Context, store, workspaceID string) []json.RawMessage

	// Delete removes a single entry if present
	Delete(ctx context.Context, store, key string)

	// ClearWorkspace removes every entry of the workspace from all
	// workspace-scoped stores. Global stores are left untouched.
	ClearWorkspace(ctx context.Context, workspaceID string)

	// ClearAll wipes every store, global ones included (logout)
	ClearAll(ctx context.Context)

	// CleanExpired sweeps all stores and deletes expired entries,
	// returning the number deleted. Best-effort, caller-scheduled.
	CleanExpired(ctx context.Context) int

	// Enabled reports whether the backing engine is usable
	Enabled() bool

	// Close releases the underlying database
	Close() error
}
