package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"crypto-recommendations/internal/cache"
	"crypto-recommendations/internal/config"
	"crypto-recommendations/internal/ingest"
	"crypto-recommendations/internal/service"
	"crypto-recommendations/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newLoader() *ingest.Loader {
	return ingest.NewLoader(a.Config.Data.Dir, a.Config.Data.Symbols, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openCache(ctx context.Context) (cache.Cache, error) {
	if !a.Config.Cache.Enabled {
		return cache.NewDisabled(), nil
	}
	redisCache, err := cache.NewRedis(ctx, a.Config.Cache)
	if err != nil {
		return nil, err
	}
	return redisCache, nil
}

func (a *App) newService(store storage.PricePointStore, responseCache cache.Cache) *service.Service {
	return service.New(store, a.newLoader(), service.Options{
		Cache:           responseCache,
		AdvisoryLockKey: a.Config.Scheduler.AdvisoryLockKey,
	}, a.Logger)
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// LoadOptions configure the load command.
type LoadOptions struct {
	Symbol string
	All    bool
}

// ExportOptions hold parameters for exporting a symbol's price history.
type ExportOptions struct {
	Symbol    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
