package s0_data

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorband/internal/contracts"
)

// SeedWriter is the write side shared by Repository and MemoryStore
type SeedWriter interface {
	SaveSeries(ctx context.Context, series contracts.PriceSeries) error
	SaveBatch(ctx context.Context, snapshots []contracts.FundamentalSnapshot) error
	SaveMarketCap(ctx context.Context, ticker string, date time.Time, value float64) error
}

// InstrumentWriter stores listings; only the database keeps listed/delisted ranges
type InstrumentWriter interface {
	SaveInstrument(ctx context.Context, e contracts.UniverseEntry, listed time.Time, delisted *time.Time) error
}

var (
	_ SeedWriter       = (*Repository)(nil)
	_ SeedWriter       = (*MemoryStore)(nil)
	_ InstrumentWriter = (*Repository)(nil)
)

// Seed is a YAML bundle of point-in-time data for offline loads
type Seed struct {
	Instruments  []SeedInstrument  `yaml:"instruments"`
	Prices       []SeedSeries      `yaml:"prices"`
	Fundamentals []SeedFundamental `yaml:"fundamentals"`
	MarketCaps   []SeedMarketCap   `yaml:"market_caps"`
}

// SeedInstrument is one listing
type SeedInstrument struct {
	Ticker   string     `yaml:"ticker"`
	Name     string     `yaml:"name"`
	Sector   string     `yaml:"sector"`
	Type     string     `yaml:"type"`
	Market   string     `yaml:"market"`
	Currency string     `yaml:"currency"`
	Listed   time.Time  `yaml:"listed"`
	Delisted *time.Time `yaml:"delisted"`
}

// SeedSeries is one ticker's closes
type SeedSeries struct {
	Ticker string      `yaml:"ticker"`
	Closes []SeedClose `yaml:"closes"`
}

// SeedClose is one close observation
type SeedClose struct {
	Date  time.Time `yaml:"date"`
	Close float64   `yaml:"close"`
}

// SeedFundamental mirrors contracts.FundamentalSnapshot; omitted fields stay nil
type SeedFundamental struct {
	Ticker        string    `yaml:"ticker"`
	Date          time.Time `yaml:"date"`
	PE            *float64  `yaml:"pe"`
	PB            *float64  `yaml:"pb"`
	PS            *float64  `yaml:"ps"`
	PFCF          *float64  `yaml:"pfcf"`
	EVEBITDA      *float64  `yaml:"ev_ebitda"`
	ROE           *float64  `yaml:"roe"`
	ROA           *float64  `yaml:"roa"`
	ROIC          *float64  `yaml:"roic"`
	FCFROE        *float64  `yaml:"fcfroe"`
	DividendYield *float64  `yaml:"dividend_yield"`
	PayoutRatio   *float64  `yaml:"payout_ratio"`
	Return1M      *float64  `yaml:"return_1m"`
	Return3M      *float64  `yaml:"return_3m"`
	Return6M      *float64  `yaml:"return_6m"`
	Return12M     *float64  `yaml:"return_12m"`
}

// SeedMarketCap is one market cap observation
type SeedMarketCap struct {
	Ticker string    `yaml:"ticker"`
	Date   time.Time `yaml:"date"`
	Value  float64   `yaml:"value"`
}

// SeedStats counts what Import wrote
type SeedStats struct {
	Instruments  int
	Series       int
	Points       int
	Fundamentals int
	MarketCaps   int
}

// LoadSeed reads and parses a seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &seed, nil
}

// Series converts the seed closes into contracts series, points sorted by date
func (s *Seed) Series() []contracts.PriceSeries {
	out := make([]contracts.PriceSeries, 0, len(s.Prices))
	for _, p := range s.Prices {
		series := contracts.PriceSeries{Ticker: p.Ticker}
		for _, c := range p.Closes {
			series.Points = append(series.Points, contracts.PricePoint{Date: c.Date, Close: c.Close})
		}
		sort.SliceStable(series.Points, func(i, j int) bool {
			return series.Points[i].Date.Before(series.Points[j].Date)
		})
		out = append(out, series)
	}
	return out
}

// Snapshots converts the seed fundamentals into contracts snapshots
func (s *Seed) Snapshots() []contracts.FundamentalSnapshot {
	out := make([]contracts.FundamentalSnapshot, 0, len(s.Fundamentals))
	for _, f := range s.Fundamentals {
		out = append(out, contracts.FundamentalSnapshot{
			Ticker: f.Ticker, Date: f.Date,
			PE: f.PE, PB: f.PB, PS: f.PS, PFCF: f.PFCF, EVEBITDA: f.EVEBITDA,
			ROE: f.ROE, ROA: f.ROA, ROIC: f.ROIC, FCFROE: f.FCFROE,
			DividendYield: f.DividendYield, PayoutRatio: f.PayoutRatio,
			Return1M: f.Return1M, Return3M: f.Return3M, Return6M: f.Return6M, Return12M: f.Return12M,
		})
	}
	return out
}

// Import writes the seed through w: instruments, prices, fundamentals, then market caps.
// Duplicate dates in a series are rejected before anything is written for that ticker.
// Instruments need a writer that also implements InstrumentWriter.
func Import(ctx context.Context, w SeedWriter, seed *Seed) (SeedStats, error) {
	var stats SeedStats

	if len(seed.Instruments) > 0 {
		iw, ok := w.(InstrumentWriter)
		if !ok {
			return stats, fmt.Errorf("seed instruments: writer %T cannot store listings", w)
		}
		for _, in := range seed.Instruments {
			if in.Ticker == "" {
				return stats, fmt.Errorf("seed instruments: missing ticker")
			}
			if in.Market == "" || in.Listed.IsZero() {
				return stats, fmt.Errorf("seed instrument %s: market and listed date required", in.Ticker)
			}
			entry := contracts.UniverseEntry{
				Ticker:   in.Ticker,
				Name:     in.Name,
				Sector:   in.Sector,
				Type:     contracts.InstrumentType(in.Type),
				Market:   in.Market,
				Currency: in.Currency,
			}
			if entry.Type == "" {
				entry.Type = contracts.InstrumentCommon
			}
			if entry.Currency == "" {
				entry.Currency = "KRW"
			}
			if err := iw.SaveInstrument(ctx, entry, in.Listed, in.Delisted); err != nil {
				return stats, fmt.Errorf("seed instrument %s: %w", in.Ticker, err)
			}
			stats.Instruments++
		}
	}

	for _, series := range seed.Series() {
		if series.Ticker == "" {
			return stats, fmt.Errorf("seed prices: missing ticker")
		}
		if err := w.SaveSeries(ctx, series); err != nil {
			return stats, fmt.Errorf("seed prices %s: %w", series.Ticker, err)
		}
		stats.Series++
		stats.Points += series.Len()
	}

	snapshots := seed.Snapshots()
	for _, f := range snapshots {
		if f.Ticker == "" || f.Date.IsZero() {
			return stats, fmt.Errorf("seed fundamentals: ticker and date required")
		}
	}
	if err := w.SaveBatch(ctx, snapshots); err != nil {
		return stats, fmt.Errorf("seed fundamentals: %w", err)
	}
	stats.Fundamentals = len(snapshots)

	for _, mc := range seed.MarketCaps {
		if mc.Value <= 0 {
			return stats, fmt.Errorf("seed market cap %s: value must be positive", mc.Ticker)
		}
		if err := w.SaveMarketCap(ctx, mc.Ticker, mc.Date, mc.Value); err != nil {
			return stats, fmt.Errorf("seed market cap %s: %w", mc.Ticker, err)
		}
		stats.MarketCaps++
	}

	return stats, nil
}
