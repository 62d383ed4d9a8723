package workspace

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nvoropaev/traincache/internal/client/storage"
	"github.com/nvoropaev/traincache/pkg/api"
)

// currentKey - ключ записи активного workspace в workspaces store
const currentKey = "current"

// ChangeEvent carries the workspace transition announced to
// subscribers BEFORE the switch is committed.
type ChangeEvent struct {
	From string // id предыдущего workspace, "" если не было
	To   string
}

// ChangeState is a one-shot stash of UI state saved right before a
// workspace switch and consumed by the next load. Session-scoped: it
// never survives a process restart.
type ChangeState struct {
	Route     string            `json:"route,omitempty"`
	ScrollY   int               `json:"scrollY,omitempty"`
	ActiveTab string            `json:"activeTab,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	SavedAt   time.Time         `json:"savedAt"`
}

// ReloadFunc re-runs the initial data load after a committed switch.
// Replaces the full page reload of a browser client: every consumer
// awaits it instead of being restarted.
type ReloadFunc func(ctx context.Context) error

// Service is the single source of truth for the active workspace.
// One instance per process; all mutations go through it and are
// announced via the registered callbacks.
type Service struct {
	store  storage.CacheStorage
	logger *slog.Logger
	reload ReloadFunc

	mu           sync.Mutex
	current      *api.Workspace
	changeState  *ChangeState
	changingSubs []func(ChangeEvent)
	changeSubs   []func(*api.Workspace)
}

// NewService creates the workspace context and restores the persisted
// selection, if any.
func NewService(ctx context.Context, store storage.CacheStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{store: store, logger: logger}

	// Восстанавливаем сохраненный выбор workspace
	if raw := store.Get(ctx, storage.StoreWorkspaces, currentKey, ""); raw != nil {
		var ws api.Workspace
		if err := json.Unmarshal(raw, &ws); err != nil {
			logger.Warn("failed to restore persisted workspace", "error", err)
		} else if ws.ID != "" {
			s.current = &ws
			logger.Info("restored workspace", "workspace_id", ws.ID, "name", ws.Name)
		}
	}

	return s
}

// SetReloadFunc installs the post-switch orchestration hook
func (s *Service) SetReloadFunc(fn ReloadFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reload = fn
}

// OnChanging registers a callback fired before a switch is committed,
// carrying the {from, to} pair.
func (s *Service) OnChanging(fn func(ChangeEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changingSubs = append(s.changingSubs, fn)
}

// OnChange registers a callback fired after the current workspace
// changed. A nil argument means the selection was cleared.
func (s *Service) OnChange(fn func(*api.Workspace)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changeSubs = append(s.changeSubs, fn)
}

// GetCurrentWorkspace returns the active workspace or nil
func (s *Service) GetCurrentWorkspace() *api.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	ws := *s.current
	return &ws
}

// GetCurrentWorkspaceID returns the active workspace id or ""
func (s *Service) GetCurrentWorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.ID
}

// SetCurrentWorkspace switches the active workspace.
// Switching to the already active id is a strict no-op: no events, no
// eviction. A real switch announces the changing event first, then
// evicts the previous workspace's persisted partitions, then commits
// and persists the new selection, notifies subscribers and finally
// runs the reload hook unless skipReload is set.
func (s *Service) SetCurrentWorkspace(ctx context.Context, ws *api.Workspace, skipReload bool) error {
	if ws == nil || ws.ID == "" {
		return nil
	}

	s.mu.Lock()
	previousID := ""
	if s.current != nil {
		previousID = s.current.ID
	}

	if previousID == ws.ID {
		s.mu.Unlock()
		return nil
	}

	changingSubs := make([]func(ChangeEvent), len(s.changingSubs))
	copy(changingSubs, s.changingSubs)
	s.mu.Unlock()

	s.logger.Info("switching workspace", "from", previousID, "to", ws.ID)

	// Событие "changing" уходит до какой-либо мутации состояния
	event := ChangeEvent{From: previousID, To: ws.ID}
	for _, fn := range changingSubs {
		fn(event)
	}

	// Чистим персистентные данные предыдущего workspace
	if previousID != "" {
		s.store.ClearWorkspace(ctx, previousID)
	}

	// Фиксируем и персистим новый выбор
	s.mu.Lock()
	wsCopy := *ws
	s.current = &wsCopy
	changeSubs := make([]func(*api.Workspace), len(s.changeSubs))
	copy(changeSubs, s.changeSubs)
	reload := s.reload
	s.mu.Unlock()

	s.store.Set(ctx, storage.StoreWorkspaces, currentKey, ws, "", storage.GlobalTTL)

	for _, fn := range changeSubs {
		fn(&wsCopy)
	}

	if !skipReload && reload != nil {
		if err := reload(ctx); err != nil {
			s.logger.Warn("post-switch reload failed", "workspace_id", ws.ID, "error", err)
		}
	}

	return nil
}

// Clear drops the workspace selection (logout, access denied)
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	hadWorkspace := s.current != nil
	s.current = nil
	s.changeState = nil
	changeSubs := make([]func(*api.Workspace), len(s.changeSubs))
	copy(changeSubs, s.changeSubs)
	s.mu.Unlock()

	s.store.Delete(ctx, storage.StoreWorkspaces, currentKey)

	if hadWorkspace {
		for _, fn := range changeSubs {
			fn(nil)
		}
	}
}

// SaveChangeState stashes UI state ahead of a workspace switch.
// At most one pending state: a second save overwrites the first.
func (s *Service) SaveChangeState(state ChangeState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}
	s.changeState = &state
}

// RestoreChangeState consumes the pending stash (read-then-delete)
func (s *Service) RestoreChangeState() (*ChangeState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.changeState == nil {
		return nil, false
	}
	state := s.changeState
	s.changeState = nil
	return state, true
}
