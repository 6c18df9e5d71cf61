package s0_data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStore_UniverseAsOf(t *testing.T) {
	store := NewMemoryStore()
	store.PutUniverse(day(2023, 1, 1), []contracts.UniverseEntry{{Ticker: "A"}})
	store.PutUniverse(day(2023, 6, 1), []contracts.UniverseEntry{{Ticker: "A"}, {Ticker: "B"}})

	ctx := context.Background()

	entries, err := store.Universe(ctx, day(2022, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = store.Universe(ctx, day(2023, 3, 15))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = store.Universe(ctx, day(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemoryStore_FundamentalsPointInTime(t *testing.T) {
	store := NewMemoryStore()
	store.PutFundamentals(
		contracts.FundamentalSnapshot{Ticker: "A", Date: day(2023, 3, 31), PE: contracts.Float(10)},
		contracts.FundamentalSnapshot{Ticker: "A", Date: day(2023, 6, 30), PE: contracts.Float(12)},
		contracts.FundamentalSnapshot{Ticker: "B", Date: day(2023, 9, 30), PE: contracts.Float(20)},
	)
	// 동일 (ticker, date) 재기록 무시
	store.PutFundamentals(contracts.FundamentalSnapshot{Ticker: "A", Date: day(2023, 3, 31), PE: contracts.Float(99)})

	ctx := context.Background()

	snaps, err := store.Fundamentals(ctx, day(2023, 5, 1), nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "A", snaps[0].Ticker)
	assert.InDelta(t, 10.0, *snaps[0].PE, 1e-9)

	snaps, err = store.Fundamentals(ctx, day(2023, 12, 31), []string{"B", "A"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "A", snaps[0].Ticker)
	assert.InDelta(t, 12.0, *snaps[0].PE, 1e-9)
	assert.Equal(t, "B", snaps[1].Ticker)
}

func TestMemoryStore_Prices(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.PutPrices(contracts.PriceSeries{
		Ticker: "A",
		Points: []contracts.PricePoint{
			{Date: day(2023, 1, 2), Close: 100},
			{Date: day(2023, 1, 3), Close: 101},
			{Date: day(2023, 1, 4), Close: 102},
		},
	}))

	err := store.PutPrices(contracts.PriceSeries{
		Ticker: "BAD",
		Points: []contracts.PricePoint{
			{Date: day(2023, 1, 3), Close: 1},
			{Date: day(2023, 1, 3), Close: 2},
		},
	})
	assert.Error(t, err, "duplicate date must be rejected")

	ctx := context.Background()
	got, err := store.Prices(ctx, []string{"A", "MISSING"}, contracts.DateRange{From: day(2023, 1, 3), To: day(2023, 1, 31)})
	require.NoError(t, err)
	require.Contains(t, got, "A")
	assert.NotContains(t, got, "MISSING")
	assert.Equal(t, 2, got["A"].Len())

	dates, err := store.TradingDates(ctx, contracts.DateRange{From: day(2023, 1, 1), To: day(2023, 1, 3)})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2023, 1, 2), day(2023, 1, 3)}, dates)
}

func TestMemoryStore_MarketCap(t *testing.T) {
	store := NewMemoryStore()
	store.PutMarketCap("A", day(2023, 4, 28), 5e9)

	v, ok, err := store.MarketCap(context.Background(), "A", day(2023, 4, 3))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 5e9, v, 1)

	_, ok, err = store.MarketCap(context.Background(), "A", day(2023, 5, 3))
	require.NoError(t, err)
	assert.False(t, ok)
}
