package contracts

import (
	"context"
	"time"
)

// UniverseReader supplies listed instruments for a calculation date (S0)
// ⭐ SSOT: S0 유니버스 조회 인터페이스
type UniverseReader interface {
	Universe(ctx context.Context, date time.Time) ([]UniverseEntry, error)
}

// FundamentalsReader supplies point-in-time fundamentals (S0).
// An empty tickers slice means every ticker known on asOf.
// ⭐ SSOT: S0 재무 데이터 조회 인터페이스
type FundamentalsReader interface {
	Fundamentals(ctx context.Context, asOf time.Time, tickers []string) ([]FundamentalSnapshot, error)
}

// PriceReader supplies close series per ticker (S0)
// ⭐ SSOT: S0 가격 조회 인터페이스
type PriceReader interface {
	Prices(ctx context.Context, tickers []string, window DateRange) (map[string]PriceSeries, error)
}

// MarketCapReader supplies historical market capitalization keyed by ticker and month.
// ok=false means no snapshot exists for that month.
type MarketCapReader interface {
	MarketCap(ctx context.Context, ticker string, month time.Time) (value float64, ok bool, err error)
}

// DataProvider bundles every reader the engine consumes
type DataProvider interface {
	UniverseReader
	FundamentalsReader
	PriceReader
	MarketCapReader
}

// BandingStateStore persists the only cross-period state (S4)
// ⭐ SSOT: 밴딩 상태 저장소 인터페이스 (보유 종목 단위 upsert)
type BandingStateStore interface {
	Load(ctx context.Context, strategy string) (*BandingState, error)
	UpsertHolding(ctx context.Context, strategy string, h *Holding) error
}
