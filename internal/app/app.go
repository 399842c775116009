// Package app wires configuration, storage, clients, and services into a
// runnable gateway. It is the shared core used by cmd/payoff-gateway.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/payoff/internal/cache"
	"github.com/bobmcallan/payoff/internal/clients/upstream"
	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/fallback"
	"github.com/bobmcallan/payoff/internal/interfaces"
	"github.com/bobmcallan/payoff/internal/lifecycle"
	"github.com/bobmcallan/payoff/internal/storage/badger"
	"github.com/bobmcallan/payoff/internal/strategy"
)

// installRetryInterval is how often a failed install is retried. The
// install must eventually succeed for offline navigation to work, but the
// gateway keeps serving (network-only) in the meantime.
const installRetryInterval = 30 * time.Second

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	CacheStore  interfaces.CacheStore
	SyncStore   interfaces.SyncQueueStore
	Cache       *cache.Manager
	Upstream    interfaces.UpstreamClient
	Resolver    *strategy.Resolver
	Executor    *strategy.Executor
	Hub         *lifecycle.Hub
	Controller  *lifecycle.Controller
	StartupTime time.Time

	installCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes all services, clients, and storage.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, PAYOFF_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("PAYOFF_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "payoff.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/payoff.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to binary directory
	if config.Storage.Cache.Path != "" && !filepath.IsAbs(config.Storage.Cache.Path) {
		config.Storage.Cache.Path = filepath.Join(binDir, config.Storage.Cache.Path)
	}
	if config.Storage.Sync.Path != "" && !filepath.IsAbs(config.Storage.Sync.Path) {
		config.Storage.Sync.Path = filepath.Join(binDir, config.Storage.Sync.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	cacheDB, err := badger.NewStore(logger, config.Storage.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache storage: %w", err)
	}
	syncDB, err := badger.NewStore(logger, config.Storage.Sync.Path)
	if err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to open sync storage: %w", err)
	}

	cacheStore := badger.NewCacheStorage(cacheDB, logger)
	syncStore := badger.NewSyncStorage(syncDB, logger)

	up := upstream.NewClient(config.Upstream.BaseURL,
		upstream.WithLogger(logger),
		upstream.WithRateLimit(config.Upstream.RateLimit),
		upstream.WithTimeout(config.Upstream.GetTimeout()),
	)

	manager := cache.NewManager(config.Cache, cacheStore, up, logger)
	sims := fallback.NewTable()
	hub := lifecycle.NewHub(logger)
	controller := lifecycle.NewController(manager, syncStore, up, hub, config.Sync, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		CacheStore:  cacheStore,
		SyncStore:   syncStore,
		Cache:       manager,
		Upstream:    up,
		Resolver:    strategy.NewResolver(config.Server.PublicHost, config.Cache),
		Executor:    strategy.NewExecutor(manager, up, sims, syncStore, logger),
		Hub:         hub,
		Controller:  controller,
		StartupTime: time.Now(),
	}

	return a, nil
}

// Start runs the lifecycle: install (retried until it succeeds), then
// activate, plus the background-sync loop and the notification hub.
func (a *App) Start() {
	a.Controller.Start()

	ctx, cancel := context.WithCancel(context.Background())
	a.installCancel = cancel

	go func() {
		for {
			if err := a.Controller.Install(ctx); err == nil {
				if err := a.Controller.Activate(ctx); err != nil {
					a.Logger.Error().Err(err).Msg("Activation failed")
				}
				return
			} else {
				a.Logger.Warn().Err(err).
					Dur("retry_in", installRetryInterval).
					Msg("Install failed, will retry")
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(installRetryInterval):
			}
		}
	}()
}

// Close stops background services and closes storage.
func (a *App) Close() {
	if a.installCancel != nil {
		a.installCancel()
	}
	a.Controller.Stop()

	if err := a.CacheStore.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close cache storage")
	}
	if err := a.SyncStore.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close sync storage")
	}
}
