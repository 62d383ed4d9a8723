package boltdb

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/nvoropaev/traincache/internal/client/storage"
)

// now is overridable in tests
var now = time.Now

// Set upserts a cache entry unconditionally (last-writer-wins).
// Engine and marshal failures are logged and swallowed.
func (s *Storage) Set(ctx context.Context, store, key string, data any, workspaceID string, ttl time.Duration) {
	if !s.Enabled() {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("failed to marshal cache entry", "store", store, "key", key, "error", err)
		return
	}

	ts := now()
	entry := storage.CacheEntry{
		ID:          key,
		WorkspaceID: workspaceID,
		Data:        raw,
		Timestamp:   ts.UnixMilli(),
		ExpiresAt:   ts.Add(ttl).UnixMilli(),
	}

	value, err := json.Marshal(&entry)
	if err != nil {
		s.logger.Warn("failed to marshal cache envelope", "store", store, "key", key, "error", err)
		return
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(store))
		if bucket == nil {
			return nil // неизвестный store - молча игнорируем
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		s.logger.Warn("failed to persist cache entry", "store", store, "key", key, "error", err)
	}
}

// Get returns the stored data or nil on miss.
// A workspace mismatch is a miss that leaves the entry in place (it is
// still valid for its own workspace). An expired entry is a miss that
// deletes the entry opportunistically.
func (s *Storage) Get(ctx context.Context, store, key, workspaceID string) json.RawMessage {
	if !s.Enabled() {
		return nil
	}

	var data json.RawMessage
	expired := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(store))
		if bucket == nil {
			return nil
		}

		value := bucket.Get([]byte(key))
		if value == nil {
			return nil
		}

		var entry storage.CacheEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return err
		}

		// Фильтр по workspace: пустой аргумент - без фильтра
		if workspaceID != "" && entry.WorkspaceID != workspaceID {
			return nil
		}

		if entry.Expired(now()) {
			expired = true
			return nil
		}

		data = entry.Data
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to read cache entry", "store", store, "key", key, "error", err)
		return nil
	}

	// Ленивая очистка найденной, но протухшей записи
	if expired {
		s.Delete(ctx, store, key)
	}

	return data
}

// GetAll returns the data of all non-expired entries of the store
// belonging to the workspace. Expired matches are silently skipped.
func (s *Storage) GetAll(ctx context.Context, store, workspaceID string) []json.RawMessage {
	if !s.Enabled() {
		return nil
	}

	var result []json.RawMessage

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(store))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var entry storage.CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				s.logger.Warn("skipping unreadable cache entry", "store", store, "key", string(k), "error", err)
				return nil
			}

			if workspaceID != "" && entry.WorkspaceID != workspaceID {
				return nil
			}
			if entry.Expired(now()) {
				return nil
			}

			result = append(result, entry.Data)
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("failed to scan store", "store", store, "error", err)
		return nil
	}

	return result
}

// Delete removes a single entry if present
func (s *Storage) Delete(ctx context.Context, store, key string) {
	if !s.Enabled() {
		return
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(store))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		s.logger.Warn("failed to delete cache entry", "store", store, "key", key, "error", err)
	}
}

// ClearWorkspace removes every entry of the workspace from all
// workspace-scoped stores. The global auth and workspaces stores are
// exempt.
func (s *Storage) ClearWorkspace(ctx context.Context, workspaceID string) {
	if !s.Enabled() || workspaceID == "" {
		return
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, store := range storage.WorkspaceStores {
			bucket := tx.Bucket([]byte(store))
			if bucket == nil {
				continue
			}

			// Собираем ключи через cursor, удаляем после итерации
			var keys [][]byte
			cursor := bucket.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				var entry storage.CacheEntry
				if err := json.Unmarshal(v, &entry); err != nil {
					continue
				}
				if entry.WorkspaceID == workspaceID {
					keys = append(keys, append([]byte(nil), k...))
				}
			}
			for _, k := range keys {
				if err := bucket.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to clear workspace data", "workspace_id", workspaceID, "error", err)
		return
	}

	s.logger.Info("cleared workspace cache", "workspace_id", workspaceID)
}

// ClearAll wipes every store, global ones included (logout)
func (s *Storage) ClearAll(ctx context.Context) {
	if !s.Enabled() {
		return
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, store := range storage.AllStores {
			if err := tx.DeleteBucket([]byte(store)); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(store)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to clear all stores", "error", err)
	}
}

// CleanExpired sweeps every store with a cursor and deletes entries
// whose TTL has elapsed. Returns the number of deleted entries.
func (s *Storage) CleanExpired(ctx context.Context) int {
	if !s.Enabled() {
		return 0
	}

	deleted := 0
	ts := now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, store := range storage.AllStores {
			bucket := tx.Bucket([]byte(store))
			if bucket == nil {
				continue
			}

			var keys [][]byte
			cursor := bucket.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				var entry storage.CacheEntry
				if err := json.Unmarshal(v, &entry); err != nil {
					continue
				}
				if entry.Expired(ts) {
					keys = append(keys, append([]byte(nil), k...))
				}
			}
			for _, k := range keys {
				if err := bucket.Delete(k); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to clean expired entries", "error", err)
	}

	if deleted > 0 {
		s.logger.Debug("cleaned expired cache entries", "count", deleted)
	}

	return deleted
}
