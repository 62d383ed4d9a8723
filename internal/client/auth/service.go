package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nvoropaev/traincache/internal/client/storage"
)

// Service manages the locally stored auth session. Token issuing and
// validation belong to the excluded auth provider; this service only
// persists the session, hands the bearer token to the API client and
// notifies subscribers about authenticated/not-authenticated
// transitions so dependent caches can drop their state.
type Service struct {
	sessions storage.SessionStorage
	cache    storage.CacheStorage
	logger   *slog.Logger

	mu   sync.Mutex
	subs []func(authenticated bool)
}

// NewService creates a new auth session service
func NewService(sessions storage.SessionStorage, cache storage.CacheStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		cache:    cache,
		logger:   logger,
	}
}

// OnChange registers a callback invoked on every auth state transition
func (s *Service) OnChange(fn func(authenticated bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// SaveSession persists the session and notifies subscribers
func (s *Service) SaveSession(ctx context.Context, session *storage.Session) error {
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.notify(true)
	return nil
}

// Token returns the stored bearer token.
// Returns storage.ErrSessionNotFound when no session exists.
func (s *Service) Token(ctx context.Context) (string, error) {
	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// GetSession returns the stored session
func (s *Service) GetSession(ctx context.Context) (*storage.Session, error) {
	return s.sessions.GetSession(ctx)
}

// IsAuthenticated reports whether a usable session is stored
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	_, err := s.sessions.GetSession(ctx)
	return err == nil
}

// Logout removes the session, wipes every persistent store and
// notifies subscribers. Всегда завершается успешно: потеря локальных
// данных при выходе не считается ошибкой.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.DeleteSession(ctx); err != nil {
		s.logger.Warn("failed to delete session on logout", "error", err)
	}

	// Полный сброс локального кеша, включая глобальные stores
	if s.cache != nil {
		s.cache.ClearAll(ctx)
	}

	s.notify(false)
	s.logger.Info("logged out, local caches cleared")
	return nil
}

// notify рассылает переход состояния всем подписчикам
func (s *Service) notify(authenticated bool) {
	s.mu.Lock()
	subs := make([]func(bool), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(authenticated)
	}
}
