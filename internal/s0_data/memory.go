package s0_data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/factorband/internal/contracts"
)

// MemoryStore is an in-memory contracts.DataProvider used by tests and offline runs
type MemoryStore struct {
	mu           sync.RWMutex
	universes    map[time.Time][]contracts.UniverseEntry // 스냅샷 날짜 → 종목
	fundamentals map[string][]contracts.FundamentalSnapshot
	prices       map[string]contracts.PriceSeries
	marketCaps   map[string]map[time.Time]float64 // ticker → 월초 → 시가총액
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		universes:    make(map[time.Time][]contracts.UniverseEntry),
		fundamentals: make(map[string][]contracts.FundamentalSnapshot),
		prices:       make(map[string]contracts.PriceSeries),
		marketCaps:   make(map[string]map[time.Time]float64),
	}
}

var _ contracts.DataProvider = (*MemoryStore)(nil)

// PutUniverse registers the listing effective from date onwards
func (m *MemoryStore) PutUniverse(date time.Time, entries []contracts.UniverseEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.universes[date] = append([]contracts.UniverseEntry(nil), entries...)
}

// PutFundamentals stores snapshots; an existing (ticker, date) snapshot is never overwritten
func (m *MemoryStore) PutFundamentals(snapshots ...contracts.FundamentalSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snapshots {
		existing := m.fundamentals[s.Ticker]
		dup := false
		for _, e := range existing {
			if e.Date.Equal(s.Date) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		existing = append(existing, s)
		sort.Slice(existing, func(i, j int) bool { return existing[i].Date.Before(existing[j].Date) })
		m.fundamentals[s.Ticker] = existing
	}
}

// PutPrices stores a validated series, replacing any previous series for the ticker
func (m *MemoryStore) PutPrices(series contracts.PriceSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[series.Ticker] = series
	return nil
}

// PutMarketCap stores a monthly market cap snapshot
func (m *MemoryStore) PutMarketCap(ticker string, month time.Time, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marketCaps[ticker] == nil {
		m.marketCaps[ticker] = make(map[time.Time]float64)
	}
	m.marketCaps[ticker][MonthStart(month)] = value
}

// SaveSeries merges series into the stored one; dates already stored take the new close
func (m *MemoryStore) SaveSeries(_ context.Context, series contracts.PriceSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate := make(map[time.Time]float64)
	for _, p := range m.prices[series.Ticker].Points {
		byDate[p.Date] = p.Close
	}
	for _, p := range series.Points {
		byDate[p.Date] = p.Close
	}
	merged := contracts.PriceSeries{Ticker: series.Ticker}
	for d, c := range byDate {
		merged.Points = append(merged.Points, contracts.PricePoint{Date: d, Close: c})
	}
	sort.Slice(merged.Points, func(i, j int) bool { return merged.Points[i].Date.Before(merged.Points[j].Date) })
	m.prices[series.Ticker] = merged
	return nil
}

// SaveBatch stores snapshots with PutFundamentals semantics
func (m *MemoryStore) SaveBatch(_ context.Context, snapshots []contracts.FundamentalSnapshot) error {
	m.PutFundamentals(snapshots...)
	return nil
}

// SaveMarketCap stores value under the month containing date
func (m *MemoryStore) SaveMarketCap(_ context.Context, ticker string, date time.Time, value float64) error {
	m.PutMarketCap(ticker, date, value)
	return nil
}

// Universe returns the latest listing registered on or before date
func (m *MemoryStore) Universe(_ context.Context, date time.Time) ([]contracts.UniverseEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best time.Time
	found := false
	for d := range m.universes {
		if d.After(date) {
			continue
		}
		if !found || d.After(best) {
			best = d
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return append([]contracts.UniverseEntry(nil), m.universes[best]...), nil
}

// Fundamentals returns the latest snapshot dated on or before asOf per ticker, sorted by ticker
func (m *MemoryStore) Fundamentals(_ context.Context, asOf time.Time, tickers []string) ([]contracts.FundamentalSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(tickers) == 0 {
		for t := range m.fundamentals {
			tickers = append(tickers, t)
		}
	}
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)

	var out []contracts.FundamentalSnapshot
	for _, t := range sorted {
		history := m.fundamentals[t]
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Date.After(asOf) {
				out = append(out, history[i])
				break
			}
		}
	}
	return out, nil
}

// Prices returns series clipped to window; tickers without data are omitted
func (m *MemoryStore) Prices(_ context.Context, tickers []string, window contracts.DateRange) (map[string]contracts.PriceSeries, error) {
	if window.To.Before(window.From) {
		return nil, fmt.Errorf("invalid window %s..%s", window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]contracts.PriceSeries, len(tickers))
	for _, t := range tickers {
		s, ok := m.prices[t]
		if !ok {
			continue
		}
		var points []contracts.PricePoint
		for _, p := range s.Points {
			if window.Contains(p.Date) {
				points = append(points, p)
			}
		}
		if len(points) > 0 {
			out[t] = contracts.PriceSeries{Ticker: t, Points: points}
		}
	}
	return out, nil
}

// TradingDates returns the union of all stored price dates inside window
func (m *MemoryStore) TradingDates(_ context.Context, window contracts.DateRange) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, s := range m.prices {
		for _, p := range s.Points {
			if window.Contains(p.Date) && !seen[p.Date] {
				seen[p.Date] = true
				dates = append(dates, p.Date)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// MarketCap returns the snapshot for the month containing month
func (m *MemoryStore) MarketCap(_ context.Context, ticker string, month time.Time) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.marketCaps[ticker][MonthStart(month)]
	return v, ok, nil
}
