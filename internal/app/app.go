// Package app assembles the configured logger, store, searcher and service that
// every grandline binary runs on.
package app

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/config"
	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/service"
	"github.com/peterkuimelis/grandline/internal/store"
)

type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Store   *store.Store
	Service *service.Service
	Table   *service.Table
}

// Open builds the application from cfg. When the catalog YAML file exists it is
// imported into the store first, so edits to the file take effect on restart.
func Open(cfg *config.Config) (*App, error) {
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	db, err := store.Open(cfg.Catalog.DSN, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	if err := importCatalog(db, cfg.Catalog.Path, logger); err != nil {
		db.Close()
		return nil, err
	}

	svc := service.New(service.Options{
		Catalog:           db,
		Archive:           db,
		Searcher:          NewSearcher(cfg.Search, logger),
		Logger:            logger,
		StartingResources: cfg.Game.StartingResources,
	})
	return &App{
		Config:  cfg,
		Log:     logger,
		Store:   db,
		Service: svc,
		Table:   service.NewTable(svc),
	}, nil
}

func importCatalog(db *store.Store, path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	cat, err := game.LoadCatalogYAML(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("catalog file not found, using stored catalog", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	return db.Import(cat)
}

// NewSearcher configures a searcher from the search section.
func NewSearcher(sc config.SearchConfig, logger *zap.Logger) *ai.Searcher {
	s := ai.NewSearcher(sc.Depth, ai.Budget{Time: sc.TimeBudget(), Nodes: sc.NodeBudget})
	s.Branching = sc.Branching
	s.Workers = sc.Workers
	s.Log = logger.Named("search")
	return s
}

func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.Store.Close()
}

// Load reads the config file and opens the application. A missing path uses
// defaults and environment only.
func Load(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return Open(cfg)
}
