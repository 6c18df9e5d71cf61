package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/factorband/internal/audit"
	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/selection"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// runNamespace scopes deterministic backtest run IDs
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("factorband/backtest"))

// DataSource is everything a backtest reads
type DataSource interface {
	contracts.DataProvider
	TradingCalendar
}

// RunStore persists finished runs
type RunStore interface {
	SaveRun(ctx context.Context, run *contracts.BacktestRun) error
}

// Engine runs backtesting simulations
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	data       DataSource
	strategies strategyconfig.Source
	ranking    *selection.Engine
	loader     *Loader
	store      RunStore
	logger     *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(data DataSource, strategies strategyconfig.Source, chunkSize int, log *logger.Logger) *Engine {
	return &Engine{
		data:       data,
		strategies: strategies,
		ranking:    selection.NewEngine(log),
		loader:     NewLoader(data, chunkSize, log),
		logger:     log.WithField("stage", contracts.StageBacktest.String()),
	}
}

// WithStore persists every finished run
func (e *Engine) WithStore(store RunStore) *Engine {
	e.store = store
	return e
}

// RunID derives the deterministic run ID of a strategy/config/window
func RunID(strategy, configHash string, start, end time.Time) string {
	key := strings.Join([]string{strategy, configHash, start.Format("2006-01-02"), end.Format("2006-01-02")}, "|")
	return uuid.NewSHA1(runNamespace, []byte(key)).String()
}

// RunBacktest simulates strategy between start and end.
// No trading dates fails with ErrNoTradingDates; a universe empty at every rebalance
// fails with ErrEmptyUniverse. Per-date failures land in DateErrors.
func (e *Engine) RunBacktest(ctx context.Context, strategy string, start, end time.Time) (*contracts.BacktestRun, error) {
	cfg, err := e.strategies.Strategy(strategy)
	if err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("config hash: %w", err)
	}

	window := contracts.DateRange{From: start, To: end}
	dates, err := tradingDates(ctx, e.data, window)
	if err != nil {
		return nil, err
	}
	scheduled, err := ScheduledDates(cfg.Schedule, window)
	if err != nil {
		return nil, err
	}
	rebalances := RebalanceDates(dates, scheduled)

	e.logger.WithFields(map[string]interface{}{
		"strategy":      strategy,
		"start_date":    start.Format("2006-01-02"),
		"end_date":      end.Format("2006-01-02"),
		"trading_days":  len(dates),
		"rebalances":    len(rebalances),
		"cost_rate":     cfg.Backtest.CostRate(),
		"fractional":    cfg.Backtest.FractionalShares,
		"initial_value": cfg.Backtest.InitialCapital,
	}).Info("Starting backtest")

	run := &contracts.BacktestRun{
		ID:             RunID(strategy, hash, start, end),
		Strategy:       strategy,
		ConfigHash:     hash,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: cfg.Backtest.InitialCapital,
		EquityCurve:    make([]contracts.EquityPoint, 0, len(dates)),
	}
	warnings := newWarningSet()

	sim := NewSimulator(cfg.Backtest.CostRate(), cfg.Backtest.FractionalShares, e.logger)
	sim.Initialize(cfg.Backtest.InitialCapital)

	var seg *Segment
	selectedAny := false
	next := 0 // 다음 리밸런싱 인덱스

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		warnings.add(sim.Mark(d, seg)...)

		if next < len(rebalances) && d.Equal(rebalances[next]) {
			next++
			until := end
			if next < len(rebalances) {
				until = rebalances[next]
			}

			newSeg, record, dateErr, err := e.rebalance(ctx, cfg, sim, d, until, warnings)
			if err != nil {
				return nil, err
			}
			if dateErr != nil {
				run.DateErrors = append(run.DateErrors, *dateErr)
			} else {
				selectedAny = true
				run.Rebalances = append(run.Rebalances, record)
			}
			seg = newSeg // 이전 보유 구간 가격 해제
		}

		// 기록된 값은 이후 수정하지 않음
		run.EquityCurve = append(run.EquityCurve, contracts.EquityPoint{Date: d, Value: sim.Equity()})
	}

	if !selectedAny {
		return nil, &contracts.InsufficientDataError{
			Reason: contracts.ReasonEmptyUniverse,
			Detail: fmt.Sprintf("%d rebalance dates without a selection", len(rebalances)),
			Err:    contracts.ErrEmptyUniverse,
		}
	}

	run.FinalValue = run.EquityCurve[len(run.EquityCurve)-1].Value
	run.Trades = sim.Trades()
	run.TransactionCost = sim.TotalCost()
	run.DailyReturns = audit.PeriodicReturns(run.EquityCurve)
	run.MonthlyReturns = audit.MonthlyReturns(run.EquityCurve)
	run.Warnings = warnings.list()

	analyzer := audit.NewAnalyzer(audit.TradingDaysPerYear, cfg.Backtest.RiskFreeRate, e.logger)
	run.Metrics = analyzer.Analyze(run.EquityCurve, audit.Values(run.DailyReturns))

	if e.store != nil {
		if err := e.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"strategy":     strategy,
		"run_id":       run.ID,
		"rebalances":   len(run.Rebalances),
		"date_errors":  len(run.DateErrors),
		"total_return": fmt.Sprintf("%.2f%%", run.Metrics.TotalReturn*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", run.Metrics.Sharpe),
		"max_drawdown": fmt.Sprintf("%.2f%%", run.Metrics.MaxDrawdown*100),
	}).Info("Backtest completed")

	return run, nil
}

// rebalance ranks on d and moves the simulator to the new selection.
// It always returns the price segment for the holdings that survive until the next rebalance.
func (e *Engine) rebalance(
	ctx context.Context,
	cfg *strategyconfig.StrategyConfig,
	sim *Simulator,
	d, until time.Time,
	warnings *warningSet,
) (*Segment, contracts.RebalanceRecord, *contracts.DateError, error) {
	keep := func(code contracts.ReasonCode, msg string) (*Segment, contracts.RebalanceRecord, *contracts.DateError, error) {
		e.logger.WithFields(map[string]interface{}{
			"date":   d.Format("2006-01-02"),
			"reason": code,
		}).Warn("Rebalance skipped, positions kept")

		seg, err := e.loader.Segment(ctx, sim.Holdings(), d, until)
		if err != nil {
			return nil, contracts.RebalanceRecord{}, nil, err
		}
		return seg, contracts.RebalanceRecord{}, &contracts.DateError{Date: d, Code: code, Message: msg}, nil
	}

	universe, in, err := e.loader.RankingInputs(ctx, cfg, e.ranking, d)
	if err != nil {
		return nil, contracts.RebalanceRecord{}, nil, err
	}
	ranking := e.ranking.RankAdmitted(cfg, d, universe, in)
	warnings.add(ranking.Warnings...)

	if ranking.Error != nil {
		return keep(ranking.Error.Code, ranking.Error.Message)
	}
	if len(ranking.Entries) == 0 {
		return keep(contracts.ReasonEmptyUniverse, "no instrument selected")
	}

	seg, err := e.loader.Segment(ctx, ranking.Tickers(), d, until)
	if err != nil {
		return nil, contracts.RebalanceRecord{}, nil, err
	}

	prices := make(map[string]float64, len(ranking.Entries))
	for _, t := range ranking.Tickers() {
		px, ok := seg.CloseOnOrBefore(t, d)
		if !ok || px <= 0 {
			warnings.add(contracts.Warning{
				Code:    contracts.ReasonMissingPrice,
				Ticker:  t,
				Message: "no close on or before rebalance date; not bought",
			})
			continue
		}
		prices[t] = px
	}
	if len(prices) == 0 {
		return keep(contracts.ReasonMissingPrice, "no selected instrument has a price")
	}

	record := sim.Rebalance(d, prices)
	return seg, record, nil, nil
}

// warningSet deduplicates warnings by code and ticker, keeping first-seen order
type warningSet struct {
	seen  map[string]bool
	items []contracts.Warning
}

func newWarningSet() *warningSet {
	return &warningSet{seen: make(map[string]bool)}
}

func (w *warningSet) add(ws ...contracts.Warning) {
	for _, warning := range ws {
		key := string(warning.Code) + "|" + warning.Ticker
		if w.seen[key] {
			continue
		}
		w.seen[key] = true
		w.items = append(w.items, warning)
	}
}

func (w *warningSet) list() []contracts.Warning {
	return w.items
}
