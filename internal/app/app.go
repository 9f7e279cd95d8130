package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/coinboard/internal/cache"
	"github.com/bobmcallan/coinboard/internal/client"
	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/config"
	"github.com/bobmcallan/coinboard/internal/gateway"
	"github.com/bobmcallan/coinboard/internal/handlers"
	"github.com/bobmcallan/coinboard/internal/interfaces"
	"github.com/bobmcallan/coinboard/internal/market"
	"github.com/bobmcallan/coinboard/internal/mcp"
	"github.com/bobmcallan/coinboard/internal/simulator"
	"github.com/bobmcallan/coinboard/internal/storage"
	"github.com/bobmcallan/coinboard/internal/warmup"
)

// loadTimeout bounds reading persisted lists at startup.
const loadTimeout = 10 * time.Second

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage   interfaces.StorageManager
	Gateway   *gateway.Client
	Cache     *cache.ResponseCache
	Hub       *market.Hub
	Favorites *market.FavoritesStore
	Recent    *market.RecentSearches
	Simulator *simulator.Simulator
	Market    *client.MarketClient
	Warmup    *warmup.Scheduler

	// HTTP handlers
	HealthHandler    *handlers.HealthHandler
	VersionHandler   *handlers.VersionHandler
	MarketHandler    *handlers.MarketHandler
	FavoritesHandler *handlers.FavoritesHandler
	RecentHandler    *handlers.RecentHandler
	SimulateHandler  *handlers.SimulateHandler
	MCPHandler       *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("running in dev mode")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}
	if cfg.Gateway.APIKey == "" {
		logger.Warn().Msg("no upstream API key configured, requests use the keyless rate limit")
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}
	if err := a.initMarket(); err != nil {
		a.Close()
		return nil, err
	}
	a.initHandlers()
	if err := a.initWarmup(); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Str("storage", a.Storage.Backend()).
		Str("proxy_url", cfg.ProxyURL()).
		Msg("application initialization complete")

	return a, nil
}

// initStorage opens the configured storage backend.
func (a *App) initStorage() error {
	mgr, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.Storage = mgr
	return nil
}

// initMarket creates the upstream client, proxy cache and shared stores.
func (a *App) initMarket() error {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	a.Gateway = gateway.NewClient(&a.Config.Gateway, a.Logger)
	a.Cache = cache.New(common.FreshnessListings, a.Config.Cache.MaxEntries)
	a.Hub = market.NewHub()
	a.Simulator = simulator.New(nil)
	a.Market = client.NewMarketClient(a.Config.ProxyURL(), a.Config.Market.GetRequestTimeout())

	kv := a.Storage.KeyValueStorage()
	favorites, err := market.NewFavoritesStore(ctx, kv, a.Config.Market.Profile, a.Hub, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}
	a.Favorites = favorites

	recent, err := market.NewRecentSearches(ctx, kv, a.Config.Market.Profile, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load recent searches: %w", err)
	}
	a.Recent = recent

	a.Logger.Debug().
		Int("favorites", len(favorites.IDs())).
		Int("recent_searches", len(recent.Items())).
		Str("profile", a.Config.Market.Profile).
		Msg("market state loaded")
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Storage.Backend, a.Cache.Len, a.Hub.Subscribers)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.MarketHandler = handlers.NewMarketHandler(a.Gateway, a.Cache, a.Logger)
	a.FavoritesHandler = handlers.NewFavoritesHandler(a.Favorites, a.Logger)
	a.RecentHandler = handlers.NewRecentHandler(a.Recent, a.Logger)
	a.SimulateHandler = handlers.NewSimulateHandler(a.Simulator, a.Logger)

	timeout := a.Config.Market.GetRequestTimeout()
	a.MCPHandler = mcp.NewHandler(mcp.Deps{
		Market:    a.Market,
		Charts:    market.NewChartBuilder(a.Market, timeout, a.Logger),
		Favorites: a.Favorites,
		Simulator: a.Simulator,
		Timeout:   timeout,
	}, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// initWarmup registers the cache refresh job. It runs once Start is called.
func (a *App) initWarmup() error {
	if !a.Config.Warmup.Enabled {
		return nil
	}
	s, err := warmup.New(a.Config.Warmup, a.MarketHandler, a.Logger)
	if err != nil {
		return err
	}
	a.Warmup = s
	return nil
}

// SessionDeps returns the shared components a dashboard session runs against.
func (a *App) SessionDeps() market.SessionDeps {
	m := a.Config.Market
	return market.SessionDeps{
		Source:    a.Market,
		Favorites: a.Favorites,
		Recent:    a.Recent,
		Logger:    a.Logger,
		Config: market.SessionConfig{
			HeaderDebounce: m.GetHeaderDebounce(),
			MinQueryLength: m.MinQueryLength,
			HeaderResults:  m.HeaderResults,
			CompareResults: m.CompareResults,
			RequestTimeout: m.GetRequestTimeout(),
		},
	}
}

// Start starts background jobs.
func (a *App) Start() {
	if a.Warmup != nil {
		a.Warmup.Start()
	}
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Warmup != nil {
		a.Warmup.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
