package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/s1_universe"
	"github.com/wonny/factorband/internal/s2_signals"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// Inputs is the point-in-time data a single ranking consumes.
// When Returns is set it replaces the trailing returns derived from Prices.
type Inputs struct {
	Entries      []contracts.UniverseEntry
	Warnings     []contracts.Warning // 로딩 단계 경고 (시가총액 보정 등)
	Fundamentals []contracts.FundamentalSnapshot
	Prices       map[string]contracts.PriceSeries
	Returns      map[string][]*float64
}

// Engine runs S1 → S2 → S3 on already-loaded inputs.
// Identical inputs produce identical output; nothing reads the wall clock.
// ⭐ SSOT: 랭킹 파이프라인 (live, backtest 공용)
type Engine struct {
	ranker *Ranker
	logger *logger.Logger
}

// NewEngine creates a new ranking engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		ranker: NewRanker(log),
		logger: log,
	}
}

// Rank computes the ranking of cfg on date from in
func (e *Engine) Rank(cfg *strategyconfig.StrategyConfig, date time.Time, in Inputs) *contracts.RankingResult {
	return e.RankAdmitted(cfg, date, e.Admit(cfg, date, in.Entries), in)
}

// Admit applies the universe filter (S1)
func (e *Engine) Admit(cfg *strategyconfig.StrategyConfig, date time.Time, entries []contracts.UniverseEntry) *contracts.Universe {
	filter := s1_universe.NewFilter(s1_universe.Config{MinMarketCap: cfg.Universe.MinMarketCap})
	return filter.Apply(date, cfg.Category, entries)
}

// Returns computes trailing momentum returns for the admitted tickers present in prices or fundamentals.
// Callers loading prices in ticker chunks merge the per-chunk maps.
func (e *Engine) Returns(
	cfg *strategyconfig.StrategyConfig,
	date time.Time,
	universe *contracts.Universe,
	prices map[string]contracts.PriceSeries,
	snapshots []contracts.FundamentalSnapshot,
) map[string][]*float64 {
	fundamentals, _ := PointInTimeFundamentals(date, universe, snapshots)
	calc := s2_signals.NewMomentumCalculator(cfg.Momentum.LookbacksDays, cfg.Momentum.Weights, e.logger)
	return PeriodReturns(calc, date, universe, prices, fundamentals)
}

// RankAdmitted scores and ranks an already admitted universe (S2 → S3)
func (e *Engine) RankAdmitted(
	cfg *strategyconfig.StrategyConfig,
	date time.Time,
	universe *contracts.Universe,
	in Inputs,
) *contracts.RankingResult {
	builder := s2_signals.NewBuilderFor(cfg, e.logger)
	fundamentals, warnings := PointInTimeFundamentals(date, universe, in.Fundamentals)

	returns := in.Returns
	if returns == nil {
		returns = PeriodReturns(builder.Momentum(), date, universe, in.Prices, fundamentals)
	}

	set := builder.Build(cfg, universe, fundamentals, returns)
	set.Warnings = append(append(append([]contracts.Warning(nil), in.Warnings...), warnings...), set.Warnings...)

	return e.ranker.Rank(cfg, universe, set, builder.QualityGate())
}

// PointInTimeFundamentals keeps the latest snapshot on or before date per admitted ticker.
// Snapshots dated after date are dropped with a look-ahead warning.
func PointInTimeFundamentals(
	date time.Time,
	universe *contracts.Universe,
	snapshots []contracts.FundamentalSnapshot,
) (map[string]*contracts.FundamentalSnapshot, []contracts.Warning) {
	out := make(map[string]*contracts.FundamentalSnapshot)
	var warnings []contracts.Warning

	for i := range snapshots {
		s := &snapshots[i]
		if !universe.Contains(s.Ticker) {
			continue
		}
		if s.Date.After(date) {
			warnings = append(warnings, contracts.Warning{
				Code:    contracts.ReasonLookAheadBias,
				Ticker:  s.Ticker,
				Message: fmt.Sprintf("snapshot dated %s ignored", s.Date.Format("2006-01-02")),
			})
			continue
		}
		if prev, ok := out[s.Ticker]; ok && !s.Date.After(prev.Date) {
			continue
		}
		out[s.Ticker] = s
	}
	return out, warnings
}

// PeriodReturns computes momentum period returns per admitted ticker from prices up to date
func PeriodReturns(
	calc *s2_signals.MomentumCalculator,
	date time.Time,
	universe *contracts.Universe,
	prices map[string]contracts.PriceSeries,
	fundamentals map[string]*contracts.FundamentalSnapshot,
) map[string][]*float64 {
	returns := make(map[string][]*float64, universe.Count())
	for _, entry := range universe.Entries {
		series, ok := prices[entry.Ticker]
		if ok {
			series = series.Until(date) // 미래 가격 차단
		}
		snap := fundamentals[entry.Ticker]
		if !ok && snap == nil {
			continue
		}
		returns[entry.Ticker] = calc.PeriodReturns(series, snap)
	}
	return returns
}

// PriceWindow returns the calendar window covering the longest lookback before date
func PriceWindow(cfg *strategyconfig.StrategyConfig, date time.Time) contracts.DateRange {
	longest := 0
	for _, n := range cfg.Momentum.LookbacksDays {
		if n > longest {
			longest = n
		}
	}
	// 거래일 → 달력일 환산 (주말, 휴장 여유분 포함)
	days := longest*7/5 + 30
	return contracts.DateRange{From: date.AddDate(0, 0, -days), To: date}
}

// HistoricalMarketCaps replaces each entry's market cap with the snapshot for date's month.
// Entries without a snapshot keep the supplied value and raise a survivorship warning.
func HistoricalMarketCaps(
	ctx context.Context,
	reader contracts.MarketCapReader,
	date time.Time,
	entries []contracts.UniverseEntry,
) ([]contracts.UniverseEntry, []contracts.Warning, error) {
	out := make([]contracts.UniverseEntry, len(entries))
	var warnings []contracts.Warning

	for i, e := range entries {
		value, ok, err := reader.MarketCap(ctx, e.Ticker, date)
		if err != nil {
			return nil, nil, fmt.Errorf("market cap %s: %w", e.Ticker, err)
		}
		if ok {
			e.MarketCap = contracts.Float(value)
		} else {
			warnings = append(warnings, contracts.Warning{
				Code:    contracts.ReasonSurvivorshipBias,
				Ticker:  e.Ticker,
				Message: "no historical market cap; current value used",
			})
		}
		out[i] = e
	}
	return out, warnings, nil
}
