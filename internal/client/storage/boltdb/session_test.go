package boltdb

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoropaev/traincache/internal/client/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveAndGetSession(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	session := &storage.Session{
		UserID:      "u1",
		Email:       "coach@example.com",
		AccessToken: "token-123",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}

	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestGetSession_NotFound(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSaveSession_Nil(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	assert.Error(t, store.SaveSession(ctx, nil))
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SaveSession(ctx, &storage.Session{UserID: "u1", AccessToken: "t"}))
	require.NoError(t, store.DeleteSession(ctx))

	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Без сессии - не аутентифицирован
	ok, err := store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Действующая сессия
	require.NoError(t, store.SaveSession(ctx, &storage.Session{
		UserID:      "u1",
		AccessToken: "t",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}))
	ok, err = store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Истекшая сессия
	require.NoError(t, store.SaveSession(ctx, &storage.Session{
		UserID:      "u1",
		AccessToken: "t",
		ExpiresAt:   time.Now().Add(-time.Hour).Unix(),
	}))
	ok, err = store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionDisabledStorage(t *testing.T) {
	ctx := context.Background()

	store := New(ctx, filepath.Join(t.TempDir(), "no", "such", "dir", "cache.db"), testLogger())
	require.False(t, store.Enabled())

	// Сохранение - no-op, чтение - not found
	assert.NoError(t, store.SaveSession(ctx, &storage.Session{UserID: "u1", AccessToken: "t"}))
	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	assert.NoError(t, store.DeleteSession(ctx))
}
