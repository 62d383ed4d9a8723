package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvoropaev/traincache/internal/client/api"
	"github.com/nvoropaev/traincache/internal/client/auth"
	"github.com/nvoropaev/traincache/internal/client/cache"
	"github.com/nvoropaev/traincache/internal/client/cli"
	"github.com/nvoropaev/traincache/internal/client/iocli"
	"github.com/nvoropaev/traincache/internal/client/preload"
	"github.com/nvoropaev/traincache/internal/client/storage/boltdb"
	csync "github.com/nvoropaev/traincache/internal/client/sync"
	"github.com/nvoropaev/traincache/internal/client/workspace"
	"github.com/nvoropaev/traincache/internal/config"
	pkgapi "github.com/nvoropaev/traincache/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Глобальные флаги. Переопределяют значения из окружения.
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "", "Server URL (overrides TRAINCACHE_SERVER_URL)")
	dbPath := flag.String("db", "", "Path to local database (overrides TRAINCACHE_DB_PATH)")

	flag.Parse()

	if *showVersion {
		printVersion()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	io := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(io)
		os.Exit(1)
	}
	command := args[0]

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx := context.Background()

	// Локальное хранилище. При ошибке открытия деградирует в
	// выключенный режим, команда всё равно выполняется.
	store := boltdb.New(ctx, cfg.DBPath, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	authService := auth.NewService(store, store, logger)
	wsService := workspace.NewService(ctx, store, logger)
	apiClient := api.NewClient(cfg.ServerURL, authService, wsService)
	requestCache := cache.New(wsService, logger)

	dataStore := preload.NewDataStore()
	preloadService := preload.NewService(apiClient, requestCache, store, dataStore, logger)

	syncService := csync.NewService(csync.NewMemBus(), requestCache, wsService, apiClient, nil, logger)
	defer syncService.Close()

	// Фоновая сверка версий на время выполнения команды
	syncService.StartPeriodicSync(cfg.SyncInterval)

	// Разлогин сбрасывает request-level кеш вместе с персистентным
	authService.OnChange(func(authenticated bool) {
		if !authenticated {
			requestCache.ClearAll()
		}
	})

	// Смена workspace обнуляет baseline версий и данные в памяти
	wsService.OnChange(func(_ *pkgapi.Workspace) {
		syncService.ResetVersions()
		dataStore.Clear()
	})
	wsService.SetReloadFunc(func(ctx context.Context) error {
		workspaceID := wsService.GetCurrentWorkspaceID()
		if workspaceID == "" {
			return nil
		}
		for range preloadService.SmartPreload(ctx, workspaceID) {
			// прогресс нужен только интерактивной команде preload
		}
		return nil
	})

	appCli := cli.New(io, cfg, apiClient, store, requestCache, authService, wsService, syncService, preloadService)
	if err := appCli.Run(ctx, command, args[1:]); err != nil {
		return err
	}
	return nil
}

func printVersion() {
	fmt.Printf("TrainCache Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
