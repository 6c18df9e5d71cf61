package banding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/s0_data"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

type fixedRankings struct {
	byStrategy map[string][]string
}

func (f *fixedRankings) ComputeRanking(_ context.Context, strategy string, date time.Time) (*contracts.RankingResult, error) {
	ranked, ok := f.byStrategy[strategy]
	if !ok {
		return nil, errors.New("no ranking")
	}
	r := rankingOf(date, ranked)
	r.Strategy = strategy
	return r, nil
}

func priceStore(t *testing.T, date time.Time, prices map[string]float64) *s0_data.MemoryStore {
	t.Helper()
	store := s0_data.NewMemoryStore()
	for ticker, p := range prices {
		require.NoError(t, store.PutPrices(contracts.PriceSeries{
			Ticker: ticker,
			Points: []contracts.PricePoint{
				{Date: date.AddDate(0, 0, -3), Close: p * 0.9},
				{Date: date.AddDate(0, 0, -1), Close: p},
			},
		}))
	}
	return store
}

func newTestService(t *testing.T, rankings map[string][]string, prices map[string]float64, date time.Time) (*Service, *MemoryStore) {
	t.Helper()
	cfg := strategyconfig.Default("kr_momentum", contracts.CategoryMomentum)
	cfg.PositionCount = 2
	registry, err := strategyconfig.NewRegistry(cfg, strategyconfig.Default("kr_value", contracts.CategoryValue))
	require.NoError(t, err)

	states := NewMemoryStore()
	svc := NewService(&fixedRankings{byStrategy: rankings}, registry, priceStore(t, date, prices), states, logger.NewNop())
	return svc, states
}

func TestService_ComputeBanding_PersistsAcrossCalls(t *testing.T) {
	ctx := context.Background()
	date := day(2024, 4, 1)
	svc, states := newTestService(t,
		map[string][]string{"kr_momentum": {"A", "B", "C"}},
		map[string]float64{"A": 100, "B": 50, "C": 25},
		date,
	)

	first, err := svc.ComputeBanding(ctx, Request{Strategy: "kr_momentum", Date: date, NewCash: 1000})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tickers(first.Buy))
	assert.Empty(t, first.Hold)
	assert.Equal(t, first.Date, date)

	state, err := states.Load(ctx, "kr_momentum")
	require.NoError(t, err)
	assert.Len(t, state.Active(), 2)

	next := date.AddDate(0, 3, 0)
	second, err := svc.ComputeBanding(ctx, Request{
		Strategy:  "kr_momentum",
		Date:      next,
		Positions: []contracts.Position{{Ticker: "A", Shares: 5}, {Ticker: "B", Shares: 10}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, tickers(second.Hold))
	assert.Empty(t, second.Buy)
	assert.Empty(t, second.Sell)

	state, err = states.Load(ctx, "kr_momentum")
	require.NoError(t, err)
	require.Len(t, state.Holdings, 2, "holdings are upserted, never duplicated")
	for _, h := range state.Holdings {
		assert.Equal(t, date, h.EntryDate)
		assert.Equal(t, next, h.LastUpdated)
	}
}

func TestService_ComputeBanding_AdoptsUntrackedPositions(t *testing.T) {
	ctx := context.Background()
	date := day(2024, 4, 1)
	svc, states := newTestService(t,
		map[string][]string{"kr_momentum": {"A", "B", "C"}},
		map[string]float64{"A": 100, "B": 50, "C": 25, "OLD": 10},
		date,
	)

	result, err := svc.ComputeBanding(ctx, Request{
		Strategy:  "kr_momentum",
		Date:      date,
		Positions: []contracts.Position{{Ticker: "B", Shares: 4}, {Ticker: "OLD", Shares: 7}},
		NewCash:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, tickers(result.Hold))
	require.Len(t, result.Sell, 1)
	assert.Equal(t, "OLD", result.Sell[0].Ticker)
	assert.Equal(t, contracts.ReasonNotInUniverse, result.Sell[0].Reason)
	assert.Equal(t, []string{"A"}, tickers(result.Buy))

	var oldTrade contracts.TradeSize
	for _, tr := range result.Trades {
		if tr.Ticker == "OLD" {
			oldTrade = tr
		}
	}
	assert.Equal(t, -7.0, oldTrade.ShareDelta)

	state, err := states.Load(ctx, "kr_momentum")
	require.NoError(t, err)
	assert.True(t, state.RecentlyExited("OLD"))
}

func TestService_ComputeBanding_SerializesSameStrategy(t *testing.T) {
	ctx := context.Background()
	date := day(2024, 4, 1)
	svc, states := newTestService(t,
		map[string][]string{"kr_momentum": {"A", "B", "C"}},
		map[string]float64{"A": 100, "B": 50, "C": 25},
		date,
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ComputeBanding(ctx, Request{Strategy: "kr_momentum", Date: date})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := states.Load(ctx, "kr_momentum")
	require.NoError(t, err)
	assert.Len(t, state.Active(), 2, "concurrent recalculations never double-buy")
}

func TestService_ComputeAll(t *testing.T) {
	date := day(2024, 4, 1)
	svc, _ := newTestService(t,
		map[string][]string{"kr_momentum": {"A", "B"}, "kr_value": {"C"}},
		map[string]float64{"A": 100, "B": 50, "C": 25},
		date,
	)

	results, err := svc.ComputeAll(context.Background(), []Request{
		{Strategy: "kr_momentum", Date: date, NewCash: 1000},
		{Strategy: "kr_value", Date: date, NewCash: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tickers(results["kr_momentum"].Buy))
	assert.Equal(t, []string{"C"}, tickers(results["kr_value"].Buy))
}

func TestService_UnknownStrategy(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, day(2024, 4, 1))
	_, err := svc.ComputeBanding(context.Background(), Request{Strategy: "missing", Date: day(2024, 4, 1)})
	assert.True(t, errors.Is(err, contracts.ErrUnknownStrategy))
}
