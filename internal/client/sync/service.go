package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvoropaev/traincache/internal/client/cache"
	"github.com/nvoropaev/traincache/pkg/api"
)

// Invalidator is the slice of the request-level cache this service
// drives
type Invalidator interface {
	Invalidate(key string)
}

// WorkspaceContext supplies the receiving context's active workspace
type WorkspaceContext interface {
	GetCurrentWorkspaceID() string
}

// VersionsAPI fetches the server's per-kind "last modified" snapshot
type VersionsAPI interface {
	GetSyncVersions(ctx context.Context) (*api.SyncVersions, error)
}

// Connectivity reports whether the network is reachable
type Connectivity interface {
	Online() bool
}

// AlwaysOnline is the default Connectivity for environments without a
// reachability signal
type AlwaysOnline struct{}

// Online always reports true
func (AlwaysOnline) Online() bool { return true }

// Service propagates "data changed" notifications between client
// contexts and reconciles the staleness the bus cannot observe
// (offline periods, other devices) through a periodic version poll.
type Service struct {
	bus       Bus // nil - уведомления отключены
	cache     Invalidator
	ws        WorkspaceContext
	apiClient VersionsAPI
	online    Connectivity
	logger    *slog.Logger
	contextID string

	mu           gosync.Mutex
	lastVersions *api.SyncVersions
	subs         []func(ChangeMessage)
	stop         chan struct{}
	unsubscribe  func()
}

// NewService creates the sync service and attaches it to the bus.
// A nil bus degrades to notifications-disabled: the local cache still
// works, there is just no cross-context invalidation.
func NewService(bus Bus, invalidator Invalidator, ws WorkspaceContext, apiClient VersionsAPI, online Connectivity, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if online == nil {
		online = AlwaysOnline{}
	}

	s := &Service{
		bus:       bus,
		cache:     invalidator,
		ws:        ws,
		apiClient: apiClient,
		online:    online,
		logger:    logger,
		contextID: uuid.New().String(),
	}

	if bus == nil {
		logger.Warn("broadcast bus unavailable, cross-context notifications disabled")
	} else {
		s.unsubscribe = bus.Subscribe(s.handleMessage)
	}

	return s
}

// Close detaches the service from the bus and stops the periodic poll
func (s *Service) Close() {
	s.StopPeriodicSync()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// OnDataChanged registers a callback invoked for every accepted change
// message, both received and synthetic. UI layers use it to refetch
// whatever they currently display.
func (s *Service) OnDataChanged(fn func(ChangeMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// NotifyChange broadcasts a change produced by this context.
// Fire-and-forget: delivery to closed contexts or other tenants
// silently does nothing.
func (s *Service) NotifyChange(msg ChangeMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Source = s.contextID

	if s.bus == nil {
		s.logger.Debug("dropping change notification, bus disabled",
			"type", msg.Type, "action", msg.Action)
		return
	}

	s.bus.Publish(msg)
}

// handleMessage обрабатывает входящее сообщение шины
func (s *Service) handleMessage(msg ChangeMessage) {
	// Свои сообщения не обрабатываем (семантика BroadcastChannel)
	if msg.Source == s.contextID {
		return
	}

	// Изоляция тенантов: сообщения чужого workspace игнорируются
	if msg.WorkspaceID != s.ws.GetCurrentWorkspaceID() {
		return
	}

	s.invalidateFor(msg)
	s.emit(msg)
}

// invalidateFor вычисляет и сбрасывает затронутые ключи кеша:
// списочный ключ всегда, индивидуальный - только для update/delete
// (у create индивидуального ключа еще нет).
func (s *Service) invalidateFor(msg ChangeMessage) {
	if s.cache == nil {
		return
	}

	if listKey, ok := cache.ListKey(msg.Type); ok {
		s.cache.Invalidate(listKey)
	}

	if msg.Action == ActionUpdate || msg.Action == ActionDelete {
		s.cache.Invalidate(cache.EntityKey(msg.Type, msg.ID))
	}
}

// emit рассылает сообщение локальным подписчикам
func (s *Service) emit(msg ChangeMessage) {
	s.mu.Lock()
	subs := make([]func(ChangeMessage), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// StartPeriodicSync launches the reconciliation poll. Идемпотентен:
// повторный запуск при работающем цикле - no-op.
func (s *Service) StartPeriodicSync(interval time.Duration) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.logger.Info("periodic sync started", "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// Оффлайн-тики отфильтровываются внутри checkAndSync,
				// сам цикл не останавливается
				if err := s.checkAndSync(context.Background()); err != nil {
					s.logger.Warn("periodic sync tick failed", "error", err)
				}
			}
		}
	}()
}

// StopPeriodicSync stops the reconciliation poll
func (s *Service) StopPeriodicSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// ForceSync runs one out-of-cycle reconciliation (used on reconnect
// and by the CLI sync command)
func (s *Service) ForceSync(ctx context.Context) error {
	return s.checkAndSync(ctx)
}

// HandleOnline reacts to an offline→online transition with an
// immediate reconciliation
func (s *Service) HandleOnline(ctx context.Context) {
	if err := s.checkAndSync(ctx); err != nil {
		s.logger.Warn("reconnect sync failed", "error", err)
	}
}

// ResetVersions clears the remembered baseline so the next poll
// re-establishes it instead of diffing across tenants (workspace
// switch).
func (s *Service) ResetVersions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVersions = nil
}

// checkAndSync fetches the server versions snapshot, diffs it against
// the previous one and turns every changed kind into a list-key
// invalidation plus a synthetic refresh message. The first poll after
// a reset only records the baseline and never emits.
func (s *Service) checkAndSync(ctx context.Context) error {
	if !s.online.Online() {
		s.logger.Debug("skipping sync, offline")
		return nil
	}

	workspaceID := s.ws.GetCurrentWorkspaceID()
	if workspaceID == "" {
		s.logger.Debug("skipping sync, no active workspace")
		return nil
	}

	versions, err := s.apiClient.GetSyncVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch sync versions: %w", err)
	}

	s.mu.Lock()
	previous := s.lastVersions
	s.lastVersions = versions
	s.mu.Unlock()

	// Первый опрос - только базовая линия, без диффа
	if previous == nil {
		s.logger.Debug("sync baseline established", "workspace_id", workspaceID)
		return nil
	}

	changedKinds := diffVersions(previous, versions)
	for _, kind := range changedKinds {
		if listKey, ok := cache.ListKey(kind); ok && s.cache != nil {
			s.cache.Invalidate(listKey)
		}

		s.emit(ChangeMessage{
			Type:        kind,
			Action:      ActionRefresh,
			ID:          RefreshAll,
			WorkspaceID: workspaceID,
			Timestamp:   time.Now(),
		})
	}

	if len(changedKinds) > 0 {
		s.logger.Info("sync detected server-side changes", "kinds", changedKinds)
	}

	return nil
}

// diffVersions returns the kinds whose watermark differs between the
// two snapshots
func diffVersions(prev, cur *api.SyncVersions) []string {
	var changed []string

	pairs := []struct {
		kind string
		a, b *time.Time
	}{
		{cache.KindExercice, prev.Exercices, cur.Exercices},
		{cache.KindEntrainement, prev.Entrainements, cur.Entrainements},
		{cache.KindTag, prev.Tags, cur.Tags},
		{cache.KindEchauffement, prev.Echauffements, cur.Echauffements},
		{cache.KindSituation, prev.Situations, cur.Situations},
	}

	for _, p := range pairs {
		if versionChanged(p.a, p.b) {
			changed = append(changed, p.kind)
		}
	}

	return changed
}

// versionChanged сравнивает две nullable метки времени
func versionChanged(a, b *time.Time) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return !a.Equal(*b)
}
