package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	clientapi "github.com/nvoropaev/traincache/internal/client/api"
	"github.com/nvoropaev/traincache/internal/client/cache"
	"github.com/nvoropaev/traincache/internal/client/storage"
	"github.com/nvoropaev/traincache/pkg/api"
)

// defaultShowTTL используется, когда конфигурация недоступна
const defaultShowTTL = 5 * time.Minute

func (c *Cli) runShow(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: show <tags|exercices|entrainements|echauffements|situations>")
	}
	if c.wsService.GetCurrentWorkspaceID() == "" {
		return fmt.Errorf("no workspace selected, run 'use <id>' first")
	}

	switch args[0] {
	case "tags":
		return showList(ctx, c, storage.StoreTags, cache.KeyTagsList,
			c.apiClient.ListTags,
			func(t api.Tag) string { return fmt.Sprintf("%s  %s [%s]", t.ID, t.Label, t.Category) })
	case "exercices":
		return showList(ctx, c, storage.StoreExercices, cache.KeyExercicesList,
			c.apiClient.ListExercices,
			func(e api.Exercice) string { return fmt.Sprintf("%s  %s", e.ID, e.Nom) })
	case "entrainements":
		return showList(ctx, c, storage.StoreEntrainements, cache.KeyEntrainementsList,
			c.apiClient.ListEntrainements,
			func(e api.Entrainement) string {
				return fmt.Sprintf("%s  %s (%s)", e.ID, e.Titre, e.Date.Format("2006-01-02"))
			})
	case "echauffements":
		return showList(ctx, c, storage.StoreEchauffements, cache.KeyEchauffementsList,
			c.apiClient.ListEchauffements,
			func(e api.Echauffement) string { return fmt.Sprintf("%s  %s", e.ID, e.Nom) })
	case "situations":
		return showList(ctx, c, storage.StoreSituations, cache.KeySituationsList,
			c.apiClient.ListSituations,
			func(s api.SituationMatch) string { return fmt.Sprintf("%s  %s [%s]", s.ID, s.Nom, s.Type) })
	default:
		return fmt.Errorf("unknown kind: %s", args[0])
	}
}

// showList читает коллекцию через кеш запросов; при недоступной сети
// падает обратно на персистентный кеш workspace
func showList[T any](ctx context.Context, c *Cli, storeName, listKey string, fetch func(ctx context.Context) ([]T, error), describe func(T) string) error {
	ttl := defaultShowTTL
	if c.cfg != nil {
		ttl = c.cfg.RequestTTL
	}

	items, err := cache.Fetch(ctx, c.requestCache, listKey, ttl, fetch)
	if err != nil {
		// Потеря доступа к workspace - не повод показывать его кеш
		if errors.Is(err, clientapi.ErrWorkspaceAccessDenied) {
			return c.handleAccessDenied(ctx, err)
		}

		raw := c.store.Get(ctx, storeName, listKey, c.wsService.GetCurrentWorkspaceID())
		if raw == nil {
			return fmt.Errorf("fetch failed and no cached copy available: %w", err)
		}
		if jsonErr := json.Unmarshal(raw, &items); jsonErr != nil {
			return fmt.Errorf("fetch failed and cached copy unreadable: %w", err)
		}
		c.io.Println("(offline, showing cached data)")
	}

	if len(items) == 0 {
		c.io.Println("No entries")
		return nil
	}
	for _, item := range items {
		c.io.Println(describe(item))
	}
	return nil
}
