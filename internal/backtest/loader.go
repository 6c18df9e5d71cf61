package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/selection"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// DefaultChunkSize is the ticker chunk used when none is configured
const DefaultChunkSize = 200

// holdingLookback covers a rebalance date that falls on a ticker's non-trading day
const holdingLookback = 14 * 24 * time.Hour

// Loader reads historical data in ticker-bounded chunks.
// No more than one chunk of lookback prices is resident at a time.
type Loader struct {
	data      contracts.DataProvider
	chunkSize int
	logger    *logger.Logger
}

// NewLoader creates a new chunked loader
func NewLoader(data contracts.DataProvider, chunkSize int, log *logger.Logger) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Loader{data: data, chunkSize: chunkSize, logger: log}
}

// chunks splits tickers into consecutive slices of at most size
func chunks(tickers []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(tickers); start += size {
		end := start + size
		if end > len(tickers) {
			end = len(tickers)
		}
		out = append(out, tickers[start:end])
	}
	return out
}

// RankingInputs assembles point-in-time ranking inputs for date.
// Market caps always come from the month snapshot; lookback prices are reduced to
// trailing returns chunk by chunk and released.
func (l *Loader) RankingInputs(
	ctx context.Context,
	cfg *strategyconfig.StrategyConfig,
	engine *selection.Engine,
	date time.Time,
) (*contracts.Universe, selection.Inputs, error) {
	entries, err := l.data.Universe(ctx, date)
	if err != nil {
		return nil, selection.Inputs{}, fmt.Errorf("universe: %w", err)
	}
	entries, capWarnings, err := selection.HistoricalMarketCaps(ctx, l.data, date, entries)
	if err != nil {
		return nil, selection.Inputs{}, err
	}

	universe := engine.Admit(cfg, date, entries)
	in := selection.Inputs{Warnings: capWarnings}
	if universe.Count() == 0 {
		return universe, in, nil
	}

	in.Fundamentals, err = l.data.Fundamentals(ctx, date, universe.Tickers())
	if err != nil {
		return nil, selection.Inputs{}, fmt.Errorf("fundamentals: %w", err)
	}

	byTicker := make(map[string]contracts.UniverseEntry, universe.Count())
	for _, e := range universe.Entries {
		byTicker[e.Ticker] = e
	}

	window := selection.PriceWindow(cfg, date)
	in.Returns = make(map[string][]*float64, universe.Count())
	for _, chunk := range chunks(universe.Tickers(), l.chunkSize) {
		prices, err := l.data.Prices(ctx, chunk, window)
		if err != nil {
			return nil, selection.Inputs{}, fmt.Errorf("prices: %w", err)
		}

		sub := &contracts.Universe{Date: date, Entries: make([]contracts.UniverseEntry, 0, len(chunk))}
		for _, t := range chunk {
			sub.Entries = append(sub.Entries, byTicker[t])
		}
		for ticker, r := range engine.Returns(cfg, date, sub, prices, in.Fundamentals) {
			in.Returns[ticker] = r
		}
	}

	l.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"admitted": universe.Count(),
		"chunks":   (universe.Count() + l.chunkSize - 1) / l.chunkSize,
	}).Debug("Ranking inputs loaded")

	return universe, in, nil
}

// Segment holds the closes of held tickers for one holding period
type Segment struct {
	window contracts.DateRange
	series map[string]contracts.PriceSeries
	closes map[string]map[time.Time]float64
}

// Close returns the close of ticker exactly on date
func (g *Segment) Close(ticker string, date time.Time) (float64, bool) {
	if g == nil {
		return 0, false
	}
	c, ok := g.closes[ticker][date]
	return c, ok
}

// CloseOnOrBefore returns the latest close of ticker dated on or before date
func (g *Segment) CloseOnOrBefore(ticker string, date time.Time) (float64, bool) {
	if g == nil {
		return 0, false
	}
	s, ok := g.series[ticker]
	if !ok {
		return 0, false
	}
	p, ok := s.CloseOnOrBefore(date)
	return p.Close, ok
}

// Segment loads closes for tickers from a short lookback before from through to
func (l *Loader) Segment(ctx context.Context, tickers []string, from, to time.Time) (*Segment, error) {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)

	seg := &Segment{
		window: contracts.DateRange{From: from.Add(-holdingLookback), To: to},
		series: make(map[string]contracts.PriceSeries, len(sorted)),
		closes: make(map[string]map[time.Time]float64, len(sorted)),
	}
	for _, chunk := range chunks(sorted, l.chunkSize) {
		prices, err := l.data.Prices(ctx, chunk, seg.window)
		if err != nil {
			return nil, fmt.Errorf("holding prices: %w", err)
		}
		for ticker, s := range prices {
			closes := make(map[time.Time]float64, len(s.Points))
			for _, p := range s.Points {
				closes[p.Date] = p.Close
			}
			seg.series[ticker] = s
			seg.closes[ticker] = closes
		}
	}
	return seg, nil
}
