package boltdb

import (
	"context"
	"log/slog"

	"go.etcd.io/bbolt"

	"github.com/nvoropaev/traincache/internal/client/storage"
)

// Storage represents the BoltDB-backed cache storage for the client.
// When the database cannot be opened (readonly filesystem, quota,
// corrupted file) the instance flips to disabled mode: every cache
// operation becomes a logged no-op so callers never have to handle
// persistence failures.
type Storage struct {
	db       *bbolt.DB
	logger   *slog.Logger
	disabled bool
}

// Compile-time interface checks
var (
	_ storage.CacheStorage   = (*Storage)(nil)
	_ storage.SessionStorage = (*Storage)(nil)
)

// New opens the BoltDB database at dbPath and creates missing buckets.
// Never returns an error: open or migration failures produce a disabled
// instance instead.
func New(ctx context.Context, dbPath string, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}

	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		logger.Error("failed to open boltdb, cache persistence disabled",
			"path", dbPath, "error", err)
		return &Storage{logger: logger, disabled: true}
	}

	s := &Storage{db: db, logger: logger}

	// Инициализируем buckets. Существующие buckets не трогаем.
	if err := s.initBuckets(); err != nil {
		logger.Error("failed to initialize buckets, cache persistence disabled", "error", err)
		_ = db.Close()
		return &Storage{logger: logger, disabled: true}
	}

	return s
}

// Enabled reports whether the backing database is usable
func (s *Storage) Enabled() bool {
	return !s.disabled && s.db != nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает bucket на каждый сконфигурированный store,
// если он еще не существует
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range storage.AllStores {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}
