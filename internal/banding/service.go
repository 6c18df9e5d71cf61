package banding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// priceLookbackDays covers holidays when reading the last close before a date
const priceLookbackDays = 14

// RankingProvider supplies the fresh ranking banding evaluates against
type RankingProvider interface {
	ComputeRanking(ctx context.Context, strategy string, date time.Time) (*contracts.RankingResult, error)
}

// Request is one compute_banding call
type Request struct {
	Strategy  string
	Date      time.Time
	Positions []contracts.Position // 현재 보유 수량
	NewCash   float64
}

// Service runs banding recalculations.
// Recalculations of the same strategy are serialized; different strategies run independently.
// ⭐ SSOT: ComputeBanding 진입점
type Service struct {
	rankings   RankingProvider
	strategies strategyconfig.Source
	prices     contracts.PriceReader
	store      contracts.BandingStateStore
	engine     *Engine
	logger     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new banding service
func NewService(
	rankings RankingProvider,
	strategies strategyconfig.Source,
	prices contracts.PriceReader,
	store contracts.BandingStateStore,
	log *logger.Logger,
) *Service {
	return &Service{
		rankings:   rankings,
		strategies: strategies,
		prices:     prices,
		store:      store,
		engine:     NewEngine(log),
		logger:     log.WithField("stage", contracts.StageBanding.String()),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *Service) lock(strategy string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[strategy]
	if !ok {
		l = &sync.Mutex{}
		s.locks[strategy] = l
	}
	return l
}

// ComputeBanding decides hold/sell/buy for one strategy, sizes the trades and
// persists the changed holdings
func (s *Service) ComputeBanding(ctx context.Context, req Request) (*contracts.BandingResult, error) {
	cfg, err := s.strategies.Strategy(req.Strategy)
	if err != nil {
		return nil, err
	}

	l := s.lock(cfg.Name)
	l.Lock()
	defer l.Unlock()

	ranking, err := s.rankings.ComputeRanking(ctx, cfg.Name, req.Date)
	if err != nil {
		return nil, fmt.Errorf("compute ranking: %w", err)
	}

	state, err := s.store.Load(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("load banding state: %w", err)
	}
	s.adopt(state, ranking, req)

	result := s.engine.Decide(cfg, ranking, state)
	if result.Error != nil {
		return result, nil
	}

	prices, err := s.closes(ctx, result, req.Date)
	if err != nil {
		return nil, err
	}
	SizeTrades(result, SizingInput{
		PositionCount: cfg.PositionCount,
		NewCash:       req.NewCash,
		Positions:     req.Positions,
		Prices:        prices,
		Fractional:    cfg.Backtest.FractionalShares,
	})

	for _, h := range Apply(state, result, req.Date) {
		if err := s.store.UpsertHolding(ctx, cfg.Name, h); err != nil {
			return nil, fmt.Errorf("persist holding: %w", err)
		}
	}

	return result, nil
}

// ComputeAll runs ComputeBanding for every request concurrently
func (s *Service) ComputeAll(ctx context.Context, reqs []Request) (map[string]*contracts.BandingResult, error) {
	results := make(map[string]*contracts.BandingResult, len(reqs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			result, err := s.ComputeBanding(gctx, req)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", req.Strategy, err)
			}
			mu.Lock()
			results[req.Strategy] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// adopt registers caller positions the state does not know as active holdings
func (s *Service) adopt(state *contracts.BandingState, ranking *contracts.RankingResult, req Request) {
	for _, p := range req.Positions {
		if p.Shares <= 0 {
			continue
		}
		if _, ok := state.ActiveTicker(p.Ticker); ok {
			continue
		}
		rank, _ := ranking.RankOf(p.Ticker)
		state.Holdings = append(state.Holdings, &contracts.Holding{
			Ticker:      p.Ticker,
			EntryRank:   rank,
			EntryDate:   req.Date,
			CurrentRank: rank,
			LastUpdated: req.Date,
			Active:      true,
		})
		s.logger.WithFields(map[string]interface{}{
			"strategy": req.Strategy,
			"ticker":   p.Ticker,
		}).Info("Adopted untracked position into banding state")
	}
}

// closes reads the last close on or before date for every ticker in result
func (s *Service) closes(ctx context.Context, result *contracts.BandingResult, date time.Time) (map[string]float64, error) {
	var tickers []string
	for _, group := range [][]contracts.BandingDecision{result.Hold, result.Sell, result.Buy} {
		for _, d := range group {
			tickers = append(tickers, d.Ticker)
		}
	}
	if len(tickers) == 0 {
		return map[string]float64{}, nil
	}

	window := contracts.DateRange{From: date.AddDate(0, 0, -priceLookbackDays), To: date}
	series, err := s.prices.Prices(ctx, tickers, window)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	prices := make(map[string]float64, len(series))
	for ticker, ps := range series {
		if p, ok := ps.CloseOnOrBefore(date); ok {
			prices[ticker] = p.Close
		}
	}
	return prices, nil
}
