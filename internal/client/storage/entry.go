package storage

import (
	"encoding/json"
	"time"
)

// Store names. Каждому имени соответствует отдельный bucket в BoltDB.
const (
	StoreAuth          = "auth"
	StoreWorkspaces    = "workspaces"
	StoreExercices     = "exercices"
	StoreEntrainements = "entrainements"
	StoreTags          = "tags"
	StoreEchauffements = "echauffements"
	StoreSituations    = "situations"
)

// WorkspaceStores lists the stores holding workspace-scoped data.
// StoreAuth and StoreWorkspaces are global: they survive a workspace
// switch and are only dropped on full logout.
var WorkspaceStores = []string{
	StoreExercices,
	StoreEntrainements,
	StoreTags,
	StoreEchauffements,
	StoreSituations,
}

// AllStores lists every configured store, global ones included.
var AllStores = []string{
	StoreAuth,
	StoreWorkspaces,
	StoreExercices,
	StoreEntrainements,
	StoreTags,
	StoreEchauffements,
	StoreSituations,
}

// Default TTLs for persisted cache entries.
const (
	// DefaultTTL применяется к спискам сущностей workspace
	DefaultTTL = 24 * time.Hour

	// GlobalTTL применяется к глобальным записям (auth, workspaces)
	GlobalTTL = 365 * 24 * time.Hour
)

// CacheEntry is the persisted envelope for a single cached value.
// Timestamp and ExpiresAt are epoch milliseconds; ExpiresAt is always
// strictly greater than Timestamp.
type CacheEntry struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId,omitempty"`
	Data        json.RawMessage `json:"data"`
	Timestamp   int64           `json:"timestamp"`
	ExpiresAt   int64           `json:"expiresAt"`
	Version     string          `json:"version,omitempty"`
}

// Expired reports whether the entry's TTL has elapsed at the given time
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.UnixMilli() >= e.ExpiresAt
}
