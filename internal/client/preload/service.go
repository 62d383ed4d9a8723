package preload

import (
	"context"
	"log/slog"
	gosync "sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/nvoropaev/traincache/internal/client/cache"
	"github.com/nvoropaev/traincache/internal/client/storage"
	"github.com/nvoropaev/traincache/pkg/api"
)

// Progress is one preload progress event. Completed=true marks the
// terminal event, emitted exactly once.
type Progress struct {
	Current     int
	Total       int
	Percentage  int
	CurrentTask string
	Completed   bool
}

// API is the backend surface the preloader depends on
type API interface {
	GetWorkspacePreload(ctx context.Context, workspaceID string) (*api.PreloadResponse, error)
	ListExercices(ctx context.Context) ([]api.Exercice, error)
	ListEntrainements(ctx context.Context) ([]api.Entrainement, error)
	ListEchauffements(ctx context.Context) ([]api.Echauffement, error)
	ListSituations(ctx context.Context) ([]api.SituationMatch, error)
	ListTags(ctx context.Context) ([]api.Tag, error)
	GetDashboardStats(ctx context.Context) (*api.DashboardStats, error)
}

// Логические задачи preload. Комбинированный запрос физически один,
// но прогресс моделируется по задачам, чтобы UI показывал движение.
var preloadTasks = []string{
	"exercices",
	"entrainements",
	"echauffements",
	"situations-matchs",
	"tags",
	"stats",
}

// Service fetches all collections of a workspace in as few round
// trips as possible and seeds both cache layers plus the typed data
// store.
type Service struct {
	api    API
	cache  *cache.Cache
	store  storage.CacheStorage
	data   *DataStore
	logger *slog.Logger
}

// NewService creates a new preloader
func NewService(apiClient API, requestCache *cache.Cache, store storage.CacheStorage, data *DataStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:    apiClient,
		cache:  requestCache,
		store:  store,
		data:   data,
		logger: logger,
	}
}

// SmartPreload fetches every collection of the workspace and seeds the
// caches, reporting progress on the returned channel. The channel is
// buffered for the whole event sequence and closed after the terminal
// event, so slow consumers never block the preload.
//
// Primary strategy is the combined preload endpoint; on any failure it
// falls back to parallel per-entity fetches where each failed fetch
// degrades to an empty collection. Idempotent: a second call re-runs
// the same fetch-and-seed sequence, later results overwrite earlier
// ones.
//
// workspaceID is expected to be the active workspace: the request
// cache is seeded under the caller's current tenant scope.
func (s *Service) SmartPreload(ctx context.Context, workspaceID string) <-chan Progress {
	total := len(preloadTasks)
	progress := make(chan Progress, total+1)

	go func() {
		defer close(progress)

		resp, err := s.api.GetWorkspacePreload(ctx, workspaceID)
		if err != nil {
			s.logger.Warn("combined preload failed, falling back to per-entity fetches",
				"workspace_id", workspaceID, "error", err)
			s.fallbackPreload(ctx, workspaceID, progress)
			return
		}

		s.seedFromCombined(ctx, workspaceID, resp, progress)
	}()

	return progress
}

// seedFromCombined раскладывает комбинированный ответ по кешам.
// Отсутствующая в payload коллекция эквивалентна пустой.
func (s *Service) seedFromCombined(ctx context.Context, workspaceID string, resp *api.PreloadResponse, progress chan<- Progress) {
	total := len(preloadTasks)
	current := 0

	advance := func(task string) {
		current++
		progress <- Progress{
			Current:     current,
			Total:       total,
			Percentage:  current * 100 / total,
			CurrentTask: task,
		}
	}

	s.seedExercices(ctx, workspaceID, resp.Exercices)
	advance("exercices")

	s.seedEntrainements(ctx, workspaceID, resp.Entrainements)
	advance("entrainements")

	s.seedEchauffements(ctx, workspaceID, resp.Echauffements)
	advance("echauffements")

	s.seedSituations(ctx, workspaceID, resp.Situations)
	advance("situations-matchs")

	s.seedTags(ctx, workspaceID, resp.Tags)
	advance("tags")

	stats := resp.Stats
	s.seedStats(&stats)
	advance("stats")

	s.logger.Info("workspace preloaded via combined endpoint",
		"workspace_id", workspaceID,
		"exercices", len(resp.Exercices),
		"entrainements", len(resp.Entrainements),
		"tags", len(resp.Tags))

	progress <- Progress{Current: total, Total: total, Percentage: 100, Completed: true}
}

// fallbackPreload выполняет параллельные пер-сущностные запросы.
// Отказ одного запроса деградирует его коллекцию до пустой и не
// мешает остальным: частичный успех - ожидаемое состояние fallback.
func (s *Service) fallbackPreload(ctx context.Context, workspaceID string, progress chan<- Progress) {
	total := len(preloadTasks)

	var mu gosync.Mutex
	current := 0
	advance := func(task string) {
		mu.Lock()
		defer mu.Unlock()
		current++
		progress <- Progress{
			Current:     current,
			Total:       total,
			Percentage:  current * 100 / total,
			CurrentTask: task,
		}
	}

	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		items, err := s.api.ListExercices(ctx)
		if err != nil {
			s.logger.Error("fallback fetch failed", "task", "exercices", "error", err)
			items = nil
		}
		s.seedExercices(ctx, workspaceID, items)
		advance("exercices")
		return nil
	})

	p.Go(func(ctx context.Context) error {
		items, err := s.api.ListEntrainements(ctx)
		if err != nil {
			s.logger.Error("fallback fetch failed", "task", "entrainements", "error", err)
			items = nil
		}
		s.seedEntrainements(ctx, workspaceID, items)
		advance("entrainements")
		return nil
	})

	p.Go(func(ctx context.Context) error {
		items, err := s.api.ListEchauffements(ctx)
		if err != nil {
			s.logger.Error("fallback fetch failed", "task", "echauffements", "error", err)
			items = nil
		}
		s.seedEchauffements(ctx, workspaceID, items)
		advance("echauffements")
		return nil
	})

	p.Go(func(ctx context.Context) error {
		items, err := s.api.ListSituations(ctx)
		if err != nil {
			s.logger.Error("fallback fetch failed", "task", "situations-matchs", "error", err)
			items = nil
		}
		s.seedSituations(ctx, workspaceID, items)
		advance("situations-matchs")
		return nil
	})

	p.Go(func(ctx context.Context) error {
		items, err := s.api.ListTags(ctx)
		if err != nil {
			s.logger.Error("fallback fetch failed", "task", "tags", "error", err)
			items = nil
		}
		s.seedTags(ctx, workspaceID, items)
		advance("tags")
		return nil
	})

	p.Go(func(ctx context.Context) error {
		stats, err := s.api.GetDashboardStats(ctx)
		if err != nil {
			s.logger.Error("fallback fetch failed", "task", "stats", "error", err)
			stats = nil
		}
		s.seedStats(stats)
		advance("stats")
		return nil
	})

	_ = p.Wait()

	s.logger.Info("workspace preloaded via fallback", "workspace_id", workspaceID)

	progress <- Progress{Current: total, Total: total, Percentage: 100, Completed: true}
}

// GetCacheCompleteness samples the persistent store for presence (not
// freshness) of each expected collection key and returns the fraction
// present. Callers use it to pick between a full preload and a light
// background refresh.
func (s *Service) GetCacheCompleteness(ctx context.Context, workspaceID string) float64 {
	checks := []struct {
		store string
		key   string
	}{
		{storage.StoreExercices, cache.KeyExercicesList},
		{storage.StoreEntrainements, cache.KeyEntrainementsList},
		{storage.StoreEchauffements, cache.KeyEchauffementsList},
		{storage.StoreSituations, cache.KeySituationsList},
		{storage.StoreTags, cache.KeyTagsList},
	}

	present := 0
	for _, check := range checks {
		if s.store.Get(ctx, check.store, check.key, workspaceID) != nil {
			present++
		}
	}

	return float64(present) / float64(len(checks))
}

func (s *Service) seedExercices(ctx context.Context, workspaceID string, items []api.Exercice) {
	if items == nil {
		items = []api.Exercice{}
	}
	s.cache.Put(cache.KeyExercicesList, items)
	s.store.Set(ctx, storage.StoreExercices, cache.KeyExercicesList, items, workspaceID, storage.DefaultTTL)
	s.data.setExercices(items)
}

func (s *Service) seedEntrainements(ctx context.Context, workspaceID string, items []api.Entrainement) {
	if items == nil {
		items = []api.Entrainement{}
	}
	s.cache.Put(cache.KeyEntrainementsList, items)
	s.store.Set(ctx, storage.StoreEntrainements, cache.KeyEntrainementsList, items, workspaceID, storage.DefaultTTL)
	s.data.setEntrainements(items)
}

func (s *Service) seedEchauffements(ctx context.Context, workspaceID string, items []api.Echauffement) {
	if items == nil {
		items = []api.Echauffement{}
	}
	s.cache.Put(cache.KeyEchauffementsList, items)
	s.store.Set(ctx, storage.StoreEchauffements, cache.KeyEchauffementsList, items, workspaceID, storage.DefaultTTL)
	s.data.setEchauffements(items)
}

func (s *Service) seedSituations(ctx context.Context, workspaceID string, items []api.SituationMatch) {
	if items == nil {
		items = []api.SituationMatch{}
	}
	s.cache.Put(cache.KeySituationsList, items)
	s.store.Set(ctx, storage.StoreSituations, cache.KeySituationsList, items, workspaceID, storage.DefaultTTL)
	s.data.setSituations(items)
}

func (s *Service) seedTags(ctx context.Context, workspaceID string, items []api.Tag) {
	if items == nil {
		items = []api.Tag{}
	}
	s.cache.Put(cache.KeyTagsList, items)
	s.store.Set(ctx, storage.StoreTags, cache.KeyTagsList, items, workspaceID, storage.DefaultTTL)
	s.data.setTags(items)
}

// seedStats держит статистику только в памяти: она дешевая при
// повторном запросе и не участвует в проверке полноты кеша
func (s *Service) seedStats(stats *api.DashboardStats) {
	if stats != nil {
		s.cache.Put(cache.KeyDashboardStats, *stats)
	}
	s.data.setStats(stats)
}
