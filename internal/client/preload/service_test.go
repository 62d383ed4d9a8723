package preload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoropaev/traincache/internal/client/cache"
	"github.com/nvoropaev/traincache/internal/client/storage"
	"github.com/nvoropaev/traincache/internal/client/storage/boltdb"
	"github.com/nvoropaev/traincache/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wsStub реализует cache.WorkspaceContext с фиксированным workspace
type wsStub struct{ id string }

func (s *wsStub) GetCurrentWorkspaceID() string    { return s.id }
func (s *wsStub) OnChange(fn func(*api.Workspace)) {}

// apiMock реализует API через подменяемые функции
type apiMock struct {
	GetWorkspacePreloadFunc func(ctx context.Context, workspaceID string) (*api.PreloadResponse, error)
	ListExercicesFunc       func(ctx context.Context) ([]api.Exercice, error)
	ListEntrainementsFunc   func(ctx context.Context) ([]api.Entrainement, error)
	ListEchauffementsFunc   func(ctx context.Context) ([]api.Echauffement, error)
	ListSituationsFunc      func(ctx context.Context) ([]api.SituationMatch, error)
	ListTagsFunc            func(ctx context.Context) ([]api.Tag, error)
	GetDashboardStatsFunc   func(ctx context.Context) (*api.DashboardStats, error)
}

func (m *apiMock) GetWorkspacePreload(ctx context.Context, workspaceID string) (*api.PreloadResponse, error) {
	return m.GetWorkspacePreloadFunc(ctx, workspaceID)
}

func (m *apiMock) ListExercices(ctx context.Context) ([]api.Exercice, error) {
	return m.ListExercicesFunc(ctx)
}

func (m *apiMock) ListEntrainements(ctx context.Context) ([]api.Entrainement, error) {
	return m.ListEntrainementsFunc(ctx)
}

func (m *apiMock) ListEchauffements(ctx context.Context) ([]api.Echauffement, error) {
	return m.ListEchauffementsFunc(ctx)
}

func (m *apiMock) ListSituations(ctx context.Context) ([]api.SituationMatch, error) {
	return m.ListSituationsFunc(ctx)
}

func (m *apiMock) ListTags(ctx context.Context) ([]api.Tag, error) {
	return m.ListTagsFunc(ctx)
}

func (m *apiMock) GetDashboardStats(ctx context.Context) (*api.DashboardStats, error) {
	return m.GetDashboardStatsFunc(ctx)
}

func createTestService(t *testing.T, mock *apiMock) (*Service, *cache.Cache, *boltdb.Storage, *DataStore) {
	t.Helper()

	store := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "preload_test.db"), testLogger())
	require.True(t, store.Enabled())
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	requestCache := cache.New(&wsStub{id: "ws-1"}, testLogger())
	data := NewDataStore()

	return NewService(mock, requestCache, store, data, testLogger()), requestCache, store, data
}

// drainProgress вычитывает весь поток прогресса
func drainProgress(t *testing.T, progress <-chan Progress) []Progress {
	t.Helper()

	var events []Progress
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-progress:
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatal("progress stream did not complete")
		}
	}
}

func TestSmartPreload_CombinedEndpoint(t *testing.T) {
	ctx := context.Background()

	mock := &apiMock{
		GetWorkspacePreloadFunc: func(ctx context.Context, workspaceID string) (*api.PreloadResponse, error) {
			assert.Equal(t, "ws-1", workspaceID)
			return &api.PreloadResponse{
				Tags:      []api.Tag{{ID: "t1", Label: "Physique"}},
				Exercices: []api.Exercice{{ID: "e1", Nom: "Passes"}},
				Stats:     api.DashboardStats{TotalExercices: 1, TotalTags: 1},
			}, nil
		},
	}

	svc, requestCache, store, data := createTestService(t, mock)

	events := drainProgress(t, svc.SmartPreload(ctx, "ws-1"))

	// Ровно одно терминальное событие, и оно последнее
	completed := 0
	for _, e := range events {
		if e.Completed {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.True(t, events[len(events)-1].Completed)
	assert.Equal(t, 100, events[len(events)-1].Percentage)
	assert.Equal(t, len(preloadTasks), events[len(events)-1].Total)

	// Кеш запросов засеян: чтение не дергает сеть
	tags, err := cache.Fetch(ctx, requestCache, cache.KeyTagsList, time.Minute, func(ctx context.Context) ([]api.Tag, error) {
		return nil, errors.New("network must not be hit")
	})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "t1", tags[0].ID)

	// Персистентный store засеян
	assert.NotNil(t, store.Get(ctx, storage.StoreTags, cache.KeyTagsList, "ws-1"))
	assert.NotNil(t, store.Get(ctx, storage.StoreExercices, cache.KeyExercicesList, "ws-1"))

	// Типизированный data store заполнен, отсутствующие коллекции пустые
	assert.Len(t, data.Tags(), 1)
	assert.Len(t, data.Exercices(), 1)
	assert.NotNil(t, data.Entrainements())
	assert.Empty(t, data.Entrainements())
	require.NotNil(t, data.Stats())
	assert.Equal(t, 1, data.Stats().TotalExercices)
}

// TestSmartPreload_FallbackPartialFailure: комбинированный эндпоинт
// падает, fallback переживает отказ одного из запросов
func TestSmartPreload_FallbackPartialFailure(t *testing.T) {
	ctx := context.Background()

	mock := &apiMock{
		GetWorkspacePreloadFunc: func(ctx context.Context, workspaceID string) (*api.PreloadResponse, error) {
			return nil, errors.New("server error (500)")
		},
		ListExercicesFunc: func(ctx context.Context) ([]api.Exercice, error) {
			return []api.Exercice{{ID: "e1"}}, nil
		},
		ListEntrainementsFunc: func(ctx context.Context) ([]api.Entrainement, error) {
			return []api.Entrainement{{ID: "en1"}}, nil
		},
		ListEchauffementsFunc: func(ctx context.Context) ([]api.Echauffement, error) {
			return []api.Echauffement{{ID: "ec1"}}, nil
		},
		ListSituationsFunc: func(ctx context.Context) ([]api.SituationMatch, error) {
			return []api.SituationMatch{{ID: "s1"}}, nil
		},
		ListTagsFunc: func(ctx context.Context) ([]api.Tag, error) {
			return nil, errors.New("tags endpoint down")
		},
		GetDashboardStatsFunc: func(ctx context.Context) (*api.DashboardStats, error) {
			return &api.DashboardStats{TotalExercices: 1}, nil
		},
	}

	svc, _, store, data := createTestService(t, mock)

	events := drainProgress(t, svc.SmartPreload(ctx, "ws-1"))

	completed := 0
	for _, e := range events {
		if e.Completed {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.True(t, events[len(events)-1].Completed)

	// Упавшая коллекция деградировала до пустой, остальные не задеты
	assert.NotNil(t, data.Tags())
	assert.Empty(t, data.Tags())
	assert.Len(t, data.Exercices(), 1)
	assert.Len(t, data.Entrainements(), 1)
	assert.Len(t, data.Echauffements(), 1)
	assert.Len(t, data.Situations(), 1)

	// Пустой список тоже персистится: полнота кеша считает его присутствующим
	assert.NotNil(t, store.Get(ctx, storage.StoreTags, cache.KeyTagsList, "ws-1"))
}

func TestGetCacheCompleteness(t *testing.T) {
	ctx := context.Background()

	mock := &apiMock{
		GetWorkspacePreloadFunc: func(ctx context.Context, workspaceID string) (*api.PreloadResponse, error) {
			return &api.PreloadResponse{}, nil
		},
	}

	svc, _, store, _ := createTestService(t, mock)

	// Пустой store - полнота нулевая
	assert.Zero(t, svc.GetCacheCompleteness(ctx, "ws-1"))

	// Частичное заполнение
	store.Set(ctx, storage.StoreTags, cache.KeyTagsList, []api.Tag{}, "ws-1", time.Hour)
	store.Set(ctx, storage.StoreExercices, cache.KeyExercicesList, []api.Exercice{}, "ws-1", time.Hour)
	assert.InDelta(t, 0.4, svc.GetCacheCompleteness(ctx, "ws-1"), 0.001)

	// Полный preload - полнота единица
	drainProgress(t, svc.SmartPreload(ctx, "ws-1"))
	assert.InDelta(t, 1.0, svc.GetCacheCompleteness(ctx, "ws-1"), 0.001)

	// Для другого workspace кеш по-прежнему пуст
	assert.Zero(t, svc.GetCacheCompleteness(ctx, "ws-2"))
}
