package selection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
	"github.com/wonny/factorband/pkg/redis"
)

// RankingStore persists ranking results
type RankingStore interface {
	SaveRanking(ctx context.Context, result *contracts.RankingResult) error
}

// UniverseStore persists the admitted universe of each ranking
type UniverseStore interface {
	SaveUniverse(ctx context.Context, strategy string, universe *contracts.Universe) error
}

// RankingCache is the subset of *redis.Cache the service uses
type RankingCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service computes rankings from collaborator data
// ⭐ SSOT: ComputeRanking 진입점
type Service struct {
	data       contracts.DataProvider
	strategies strategyconfig.Source
	engine     *Engine
	logger     *logger.Logger

	store      RankingStore
	universes  UniverseStore
	cache      RankingCache
	cacheTTL   time.Duration
	historical bool
}

// NewService creates a new ranking service
func NewService(data contracts.DataProvider, strategies strategyconfig.Source, log *logger.Logger) *Service {
	return &Service{
		data:       data,
		strategies: strategies,
		engine:     NewEngine(log),
		logger:     log.WithField("stage", contracts.StageRanker.String()),
		cacheTTL:   redis.TTLDaily,
	}
}

// WithStore persists every computed ranking
func (s *Service) WithStore(store RankingStore) *Service {
	s.store = store
	return s
}

// WithUniverseStore persists the admitted universe with its exclusion reasons
func (s *Service) WithUniverseStore(store UniverseStore) *Service {
	s.universes = store
	return s
}

// WithCache caches rankings by strategy/date/config hash
func (s *Service) WithCache(cache RankingCache, ttl time.Duration) *Service {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithHistoricalMarketCap filters the universe on month-keyed market cap history
func (s *Service) WithHistoricalMarketCap(enabled bool) *Service {
	s.historical = enabled
	return s
}

// ComputeRanking ranks one strategy on date.
// Data gaps produce warnings or a ResultError on the result; only configuration
// and collaborator failures return an error.
func (s *Service) ComputeRanking(ctx context.Context, strategy string, date time.Time) (*contracts.RankingResult, error) {
	cfg, err := s.strategies.Strategy(strategy)
	if err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	key := redis.RankingKey(cfg.Name, date, hash)
	if s.cache != nil {
		var cached contracts.RankingResult
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Ranking cache read failed")
		} else if found {
			s.logger.WithFields(map[string]interface{}{
				"strategy": cfg.Name,
				"date":     date.Format("2006-01-02"),
			}).Debug("Ranking cache hit")
			return &cached, nil
		}
	}

	in, err := s.load(ctx, cfg, date)
	if err != nil {
		return nil, err
	}

	universe := s.engine.Admit(cfg, date, in.Entries)
	if s.universes != nil {
		if err := s.universes.SaveUniverse(ctx, cfg.Name, universe); err != nil {
			return nil, fmt.Errorf("save universe %s: %w", cfg.Name, err)
		}
	}

	result := s.engine.RankAdmitted(cfg, date, universe, in)
	result.Metadata["config_hash"] = hash

	if s.store != nil {
		if err := s.store.SaveRanking(ctx, result); err != nil {
			return nil, fmt.Errorf("save ranking %s: %w", cfg.Name, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Ranking cache write failed")
		}
	}
	return result, nil
}

// ComputeAll ranks every configured strategy on date concurrently
func (s *Service) ComputeAll(ctx context.Context, date time.Time) (map[string]*contracts.RankingResult, error) {
	names := s.strategies.Names()
	results := make(map[string]*contracts.RankingResult, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			result, err := s.ComputeRanking(gctx, name, date)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", name, err)
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"strategies": len(results),
	}).Info("All rankings computed")
	return results, nil
}

// load reads every input one ranking needs
func (s *Service) load(ctx context.Context, cfg *strategyconfig.StrategyConfig, date time.Time) (Inputs, error) {
	var in Inputs

	entries, err := s.data.Universe(ctx, date)
	if err != nil {
		return in, fmt.Errorf("load universe: %w", err)
	}
	if s.historical {
		entries, in.Warnings, err = HistoricalMarketCaps(ctx, s.data, date, entries)
		if err != nil {
			return in, err
		}
	}
	in.Entries = entries

	tickers := make([]string, len(entries))
	for i, e := range entries {
		tickers[i] = e.Ticker
	}
	if len(tickers) == 0 {
		return in, nil
	}

	in.Fundamentals, err = s.data.Fundamentals(ctx, date, tickers)
	if err != nil {
		return in, fmt.Errorf("load fundamentals: %w", err)
	}
	in.Prices, err = s.data.Prices(ctx, tickers, PriceWindow(cfg, date))
	if err != nil {
		return in, fmt.Errorf("load prices: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"strategy":     cfg.Name,
		"date":         date.Format("2006-01-02"),
		"entries":      len(in.Entries),
		"fundamentals": len(in.Fundamentals),
		"prices":       len(in.Prices),
	}).Debug("Ranking inputs loaded")
	return in, nil
}
