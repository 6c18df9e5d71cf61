package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wonny/factorband/internal/backtest"
	"github.com/wonny/factorband/internal/banding"
	"github.com/wonny/factorband/internal/s0_data"
	"github.com/wonny/factorband/internal/s1_universe"
	"github.com/wonny/factorband/internal/selection"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/config"
	"github.com/wonny/factorband/pkg/database"
	"github.com/wonny/factorband/pkg/logger"
	"github.com/wonny/factorband/pkg/redis"
)

const keyPrefix = "factorband"

// app holds the wired services shared by every command
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	redis      *redis.Client
	strategies *strategyconfig.Registry

	data      *s0_data.Repository
	rankStore *selection.Repository
	universes *s1_universe.Repository

	rankings *selection.Service
	banding  *banding.Service
	backtest *backtest.Engine
	runs     *backtest.Repository
}

// loadSettings reads env config, the logger and the strategy registry (no connections)
func loadSettings() (*config.Config, *logger.Logger, *strategyconfig.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile != "" {
		cfg.Engine.StrategyFile = strategyFile
	}

	log := logger.New(cfg)

	registry, _, err := strategyconfig.Load(cfg.Engine.StrategyFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load strategies %s: %w", cfg.Engine.StrategyFile, err)
	}
	return cfg, log, registry, nil
}

// newApp connects PostgreSQL and Redis and wires the services
func newApp(ctx context.Context) (*app, error) {
	cfg, log, registry, err := loadSettings()
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	data := s0_data.NewRepository(db.Pool)
	cache := redis.NewCache(rdb, keyPrefix)

	rankStore := selection.NewRepository(db.Pool)
	universes := s1_universe.NewRepository(db.Pool)

	rankings := selection.NewService(data, registry, log).
		WithStore(rankStore).
		WithUniverseStore(universes).
		WithCache(cache, cfg.Engine.RankingCacheTTL)

	runs := backtest.NewRepository(db.Pool)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      rdb,
		strategies: registry,
		data:       data,
		rankStore:  rankStore,
		universes:  universes,
		rankings:   rankings,
		banding:    banding.NewService(rankings, registry, data, banding.NewRepository(db.Pool), log),
		backtest:   backtest.NewEngine(data, registry, cfg.Engine.BacktestChunkSize, log).WithStore(runs),
		runs:       runs,
	}, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

// owner identifies this process in distributed locks
func owner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
