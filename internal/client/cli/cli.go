package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvoropaev/traincache/internal/client/api"
	"github.com/nvoropaev/traincache/internal/client/auth"
	"github.com/nvoropaev/traincache/internal/client/cache"
	"github.com/nvoropaev/traincache/internal/client/iocli"
	"github.com/nvoropaev/traincache/internal/client/preload"
	"github.com/nvoropaev/traincache/internal/client/storage"
	csync "github.com/nvoropaev/traincache/internal/client/sync"
	"github.com/nvoropaev/traincache/internal/client/workspace"
	"github.com/nvoropaev/traincache/internal/config"
)

// Cli binds the client services to terminal commands
type Cli struct {
	io             iocli.IO
	cfg            *config.Config
	apiClient      *api.Client
	store          storage.CacheStorage
	requestCache   *cache.Cache
	authService    *auth.Service
	wsService      *workspace.Service
	syncService    *csync.Service
	preloadService *preload.Service
}

// New creates the command dispatcher
func New(
	io iocli.IO,
	cfg *config.Config,
	apiClient *api.Client,
	store storage.CacheStorage,
	requestCache *cache.Cache,
	authService *auth.Service,
	wsService *workspace.Service,
	syncService *csync.Service,
	preloadService *preload.Service,
) *Cli {
	return &Cli{
		io:             io,
		cfg:            cfg,
		apiClient:      apiClient,
		store:          store,
		requestCache:   requestCache,
		authService:    authService,
		wsService:      wsService,
		syncService:    syncService,
		preloadService: preloadService,
	}
}

// Run executes a single command
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "workspaces":
		return c.runWorkspaces(ctx)
	case "use":
		return c.runUse(ctx, args)
	case "status":
		return c.runStatus(ctx)
	case "show":
		return c.runShow(ctx, args)
	case "preload":
		return c.runPreload(ctx)
	case "sync":
		return c.runSync(ctx)
	case "clean":
		return c.runClean(ctx)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage выводит справку по командам
func PrintUsage(io iocli.IO) {
	io.Println("Usage: traincache [flags] <command>")
	io.Println()
	io.Println("Commands:")
	io.Println("  login <token>    Store the API token")
	io.Println("  logout           Drop the session and wipe local caches")
	io.Println("  workspaces       List available workspaces")
	io.Println("  use <id>         Switch the active workspace")
	io.Println("  status           Show session, workspace and cache state")
	io.Println("  show <kind>      List tags, exercices, entrainements,")
	io.Println("                   echauffements or situations")
	io.Println("  preload          Preload the active workspace's data")
	io.Println("  sync             Run one reconciliation poll")
	io.Println("  clean            Delete expired cache entries")
}

// handleAccessDenied сбрасывает выбор workspace при 403/404 от бекенда
func (c *Cli) handleAccessDenied(ctx context.Context, err error) error {
	if errors.Is(err, api.ErrWorkspaceAccessDenied) {
		c.wsService.Clear(ctx)
		return fmt.Errorf("workspace access denied, selection cleared: %w", err)
	}
	return err
}
