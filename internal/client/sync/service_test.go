package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoropaev/traincache/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// invalidatorMock записывает инвалидированные ключи
type invalidatorMock struct {
	mu   gosync.Mutex
	keys []string
}

func (m *invalidatorMock) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
}

func (m *invalidatorMock) invalidated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.keys...)
}

// wsMock реализует WorkspaceContext
type wsMock struct {
	id string
}

func (m *wsMock) GetCurrentWorkspaceID() string { return m.id }

// versionsAPIMock реализует VersionsAPI
type versionsAPIMock struct {
	GetSyncVersionsFunc func(ctx context.Context) (*api.SyncVersions, error)
	calls               atomic.Int32
}

func (m *versionsAPIMock) GetSyncVersions(ctx context.Context) (*api.SyncVersions, error) {
	m.calls.Add(1)
	return m.GetSyncVersionsFunc(ctx)
}

// offlineMock реализует Connectivity
type offlineMock struct{ online bool }

func (m *offlineMock) Online() bool { return m.online }

func tsPtr(t time.Time) *time.Time { return &t }

func TestMemBus_PublishSubscribe(t *testing.T) {
	bus := NewMemBus()

	var received []ChangeMessage
	unsubscribe := bus.Subscribe(func(msg ChangeMessage) {
		received = append(received, msg)
	})

	bus.Publish(ChangeMessage{Type: "exercice", Action: ActionCreate, ID: "e1"})
	require.Len(t, received, 1)
	assert.Equal(t, "e1", received[0].ID)

	unsubscribe()
	bus.Publish(ChangeMessage{Type: "exercice", Action: ActionCreate, ID: "e2"})
	assert.Len(t, received, 1)
}

// TestCrossContextInvalidation воспроизводит сценарий: контекст A
// публикует update, контекст B с тем же workspace сбрасывает и
// списочный, и индивидуальный ключ.
func TestCrossContextInvalidation(t *testing.T) {
	bus := NewMemBus()

	invalidatorA := &invalidatorMock{}
	invalidatorB := &invalidatorMock{}

	svcA := NewService(bus, invalidatorA, &wsMock{id: "ws-1"}, nil, nil, testLogger())
	svcB := NewService(bus, invalidatorB, &wsMock{id: "ws-1"}, nil, nil, testLogger())
	defer svcA.Close()
	defer svcB.Close()

	var receivedB []ChangeMessage
	svcB.OnDataChanged(func(msg ChangeMessage) { receivedB = append(receivedB, msg) })

	svcA.NotifyChange(ChangeMessage{
		Type:        "exercice",
		Action:      ActionUpdate,
		ID:          "e1",
		WorkspaceID: "ws-1",
	})

	assert.Equal(t, []string{"exercices-list", "exercice-e1"}, invalidatorB.invalidated())
	require.Len(t, receivedB, 1)
	assert.Equal(t, ActionUpdate, receivedB[0].Action)

	// Отправитель свое сообщение не обрабатывает
	assert.Empty(t, invalidatorA.invalidated())
}

// TestCrossContextInvalidation_WorkspaceScoping проверяет изоляцию
// тенантов: сообщение чужого workspace не трогает кеш получателя
func TestCrossContextInvalidation_WorkspaceScoping(t *testing.T) {
	bus := NewMemBus()

	invalidatorB := &invalidatorMock{}
	svcA := NewService(bus, &invalidatorMock{}, &wsMock{id: "ws-2"}, nil, nil, testLogger())
	svcB := NewService(bus, invalidatorB, &wsMock{id: "ws-1"}, nil, nil, testLogger())
	defer svcA.Close()
	defer svcB.Close()

	received := 0
	svcB.OnDataChanged(func(ChangeMessage) { received++ })

	svcA.NotifyChange(ChangeMessage{
		Type:        "exercice",
		Action:      ActionUpdate,
		ID:          "e1",
		WorkspaceID: "ws-2",
	})

	assert.Empty(t, invalidatorB.invalidated())
	assert.Zero(t, received)
}

// TestCreateInvalidatesListOnly: у create нет индивидуального ключа
func TestCreateInvalidatesListOnly(t *testing.T) {
	bus := NewMemBus()

	invalidatorB := &invalidatorMock{}
	svcA := NewService(bus, nil, &wsMock{id: "ws-1"}, nil, nil, testLogger())
	svcB := NewService(bus, invalidatorB, &wsMock{id: "ws-1"}, nil, nil, testLogger())
	defer svcA.Close()
	defer svcB.Close()

	svcA.NotifyChange(ChangeMessage{
		Type:        "tag",
		Action:      ActionCreate,
		ID:          "t1",
		WorkspaceID: "ws-1",
	})

	assert.Equal(t, []string{"tags-list"}, invalidatorB.invalidated())
}

func TestNotifyChange_NilBus(t *testing.T) {
	svc := NewService(nil, &invalidatorMock{}, &wsMock{id: "ws-1"}, nil, nil, testLogger())
	defer svc.Close()

	// Не паникует, сообщение молча отбрасывается
	svc.NotifyChange(ChangeMessage{Type: "tag", Action: ActionCreate, ID: "t1", WorkspaceID: "ws-1"})
}

// TestForceSync_BaselineNeverEmits: первый опрос после сброса только
// устанавливает базовую линию, независимо от меток сервера
func TestForceSync_BaselineNeverEmits(t *testing.T) {
	invalidator := &invalidatorMock{}
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			return &api.SyncVersions{
				Exercices: tsPtr(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
				Tags:      tsPtr(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)),
				Timestamp: time.Now(),
			}, nil
		},
	}

	svc := NewService(NewMemBus(), invalidator, &wsMock{id: "ws-1"}, versions, nil, testLogger())
	defer svc.Close()

	emitted := 0
	svc.OnDataChanged(func(ChangeMessage) { emitted++ })

	require.NoError(t, svc.ForceSync(context.Background()))

	assert.Zero(t, emitted)
	assert.Empty(t, invalidator.invalidated())
}

// TestForceSync_DetectsChanges: изменение метки одного типа дает
// инвалидацию его списочного ключа и синтетический refresh с id "all"
func TestForceSync_DetectsChanges(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	current := &api.SyncVersions{
		Exercices: tsPtr(base),
		Tags:      tsPtr(base),
		Timestamp: base,
	}
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			return current, nil
		},
	}

	invalidator := &invalidatorMock{}
	svc := NewService(NewMemBus(), invalidator, &wsMock{id: "ws-1"}, versions, nil, testLogger())
	defer svc.Close()

	var received []ChangeMessage
	svc.OnDataChanged(func(msg ChangeMessage) { received = append(received, msg) })

	// Базовая линия
	require.NoError(t, svc.ForceSync(context.Background()))

	// Меняется только exercices
	current = &api.SyncVersions{
		Exercices: tsPtr(base.Add(time.Minute)),
		Tags:      tsPtr(base),
		Timestamp: base.Add(time.Minute),
	}
	require.NoError(t, svc.ForceSync(context.Background()))

	assert.Equal(t, []string{"exercices-list"}, invalidator.invalidated())
	require.Len(t, received, 1)
	assert.Equal(t, "exercice", received[0].Type)
	assert.Equal(t, ActionRefresh, received[0].Action)
	assert.Equal(t, RefreshAll, received[0].ID)
	assert.Equal(t, "ws-1", received[0].WorkspaceID)

	// Без изменений - тишина
	require.NoError(t, svc.ForceSync(context.Background()))
	assert.Len(t, received, 1)
}

// TestForceSync_NilWatermarkTransition: появление первой сущности
// типа (nil -> timestamp) тоже считается изменением
func TestForceSync_NilWatermarkTransition(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	current := &api.SyncVersions{Timestamp: base}
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			return current, nil
		},
	}

	invalidator := &invalidatorMock{}
	svc := NewService(NewMemBus(), invalidator, &wsMock{id: "ws-1"}, versions, nil, testLogger())
	defer svc.Close()

	require.NoError(t, svc.ForceSync(context.Background()))

	current = &api.SyncVersions{Tags: tsPtr(base.Add(time.Minute)), Timestamp: base.Add(time.Minute)}
	require.NoError(t, svc.ForceSync(context.Background()))

	assert.Equal(t, []string{"tags-list"}, invalidator.invalidated())
}

func TestResetVersions(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	current := &api.SyncVersions{Exercices: tsPtr(base), Timestamp: base}
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			return current, nil
		},
	}

	invalidator := &invalidatorMock{}
	svc := NewService(NewMemBus(), invalidator, &wsMock{id: "ws-1"}, versions, nil, testLogger())
	defer svc.Close()

	require.NoError(t, svc.ForceSync(context.Background()))

	// После сброса следующий опрос не диффит против старого тенанта
	svc.ResetVersions()
	current = &api.SyncVersions{Exercices: tsPtr(base.Add(time.Hour)), Timestamp: base.Add(time.Hour)}
	require.NoError(t, svc.ForceSync(context.Background()))

	assert.Empty(t, invalidator.invalidated())
}

func TestForceSync_SkippedOffline(t *testing.T) {
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			return &api.SyncVersions{Timestamp: time.Now()}, nil
		},
	}

	svc := NewService(NewMemBus(), nil, &wsMock{id: "ws-1"}, versions, &offlineMock{online: false}, testLogger())
	defer svc.Close()

	require.NoError(t, svc.ForceSync(context.Background()))
	assert.Zero(t, versions.calls.Load())
}

func TestForceSync_SkippedWithoutWorkspace(t *testing.T) {
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			return &api.SyncVersions{Timestamp: time.Now()}, nil
		},
	}

	svc := NewService(NewMemBus(), nil, &wsMock{id: ""}, versions, nil, testLogger())
	defer svc.Close()

	require.NoError(t, svc.ForceSync(context.Background()))
	assert.Zero(t, versions.calls.Load())
}

func TestForceSync_FetchFailure(t *testing.T) {
	fail := true
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			if fail {
				return nil, errors.New("gateway timeout")
			}
			return &api.SyncVersions{Timestamp: time.Now()}, nil
		},
	}

	svc := NewService(NewMemBus(), nil, &wsMock{id: "ws-1"}, versions, nil, testLogger())
	defer svc.Close()

	// Ошибка возвращается вызывающему, но не ломает следующий опрос
	require.Error(t, svc.ForceSync(context.Background()))

	fail = false
	require.NoError(t, svc.ForceSync(context.Background()))
}

func TestPeriodicSync(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	var mu gosync.Mutex
	current := &api.SyncVersions{Exercices: tsPtr(base), Timestamp: base}
	versions := &versionsAPIMock{
		GetSyncVersionsFunc: func(ctx context.Context) (*api.SyncVersions, error) {
			mu.Lock()
			defer mu.Unlock()
			return current, nil
		},
	}

	invalidator := &invalidatorMock{}
	svc := NewService(NewMemBus(), invalidator, &wsMock{id: "ws-1"}, versions, nil, testLogger())
	defer svc.Close()

	svc.StartPeriodicSync(10 * time.Millisecond)
	// Повторный запуск - no-op
	svc.StartPeriodicSync(10 * time.Millisecond)

	// Ждем базовую линию, затем меняем версию
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return versions.calls.Load() > 0
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	current = &api.SyncVersions{Exercices: tsPtr(base.Add(time.Minute)), Timestamp: base.Add(time.Minute)}
	mu.Unlock()

	require.Eventually(t, func() bool {
		return len(invalidator.invalidated()) > 0
	}, time.Second, 5*time.Millisecond)

	svc.StopPeriodicSync()
	assert.Equal(t, []string{"exercices-list"}, invalidator.invalidated())
}
