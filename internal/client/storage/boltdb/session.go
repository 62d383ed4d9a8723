package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/nvoropaev/traincache/internal/client/storage"
)

// sessionKey - фиксированный ключ записи сессии в auth bucket
const sessionKey = "session"

// SaveSession stores or replaces the current auth session
func (s *Storage) SaveSession(ctx context.Context, session *storage.Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if !s.Enabled() {
		// Без персистентности сессия живет только в памяти вызывающего
		return nil
	}

	entry := storage.CacheEntry{
		ID:        sessionKey,
		Timestamp: now().UnixMilli(),
		ExpiresAt: now().Add(storage.GlobalTTL).UnixMilli(),
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	entry.Data = raw

	value, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal session envelope: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(storage.StoreAuth))
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		if err := bucket.Put([]byte(sessionKey), value); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves the stored auth session.
// Returns storage.ErrSessionNotFound when no session exists, including
// when persistence is disabled.
func (s *Storage) GetSession(ctx context.Context) (*storage.Session, error) {
	if !s.Enabled() {
		return nil, storage.ErrSessionNotFound
	}

	var session *storage.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(storage.StoreAuth))
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		value := bucket.Get([]byte(sessionKey))
		if value == nil {
			return storage.ErrSessionNotFound
		}

		var entry storage.CacheEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("failed to unmarshal session envelope: %w", err)
		}

		session = &storage.Session{}
		if err := json.Unmarshal(entry.Data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession removes the stored auth session
func (s *Storage) DeleteSession(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(storage.StoreAuth))
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		return bucket.Delete([]byte(sessionKey))
	})
}

// IsAuthenticated reports whether a non-expired session is stored
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return false, nil
		}
		return false, err
	}

	return session.ExpiresAt == 0 || time.Unix(session.ExpiresAt, 0).After(now()), nil
}
