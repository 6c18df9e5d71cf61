package s2_signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/pkg/logger"
)

func series(ticker string, n int, start, dailyGrowth float64) contracts.PriceSeries {
	s := contracts.PriceSeries{Ticker: ticker, Points: make([]contracts.PricePoint, n)}
	d := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		s.Points[i] = contracts.PricePoint{Date: d.AddDate(0, 0, i), Close: price}
		price *= 1 + dailyGrowth
	}
	return s
}

func defaultMomentum() *MomentumCalculator {
	return NewMomentumCalculator([]int{63, 126, 252}, []float64{0.33, 0.33, 0.34}, logger.NewNop())
}

func TestTrailingReturn(t *testing.T) {
	s := contracts.PriceSeries{Ticker: "A", Points: []contracts.PricePoint{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 110},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 120},
	}}

	r, ok := TrailingReturn(s, 3)
	require.True(t, ok)
	assert.InDelta(t, 0.20, r, 1e-12)

	r, ok = TrailingReturn(s, 2)
	require.True(t, ok)
	assert.InDelta(t, 120.0/110-1, r, 1e-12)

	_, ok = TrailingReturn(s, 4)
	assert.False(t, ok, "short history must be undefined, not zero")
}

func TestSuppliedReturn(t *testing.T) {
	snap := &contracts.FundamentalSnapshot{Return3M: contracts.Float(12.5)}

	r, ok := SuppliedReturn(snap, 63)
	require.True(t, ok)
	assert.InDelta(t, 0.125, r, 1e-12)

	_, ok = SuppliedReturn(snap, 252)
	assert.False(t, ok)

	_, ok = SuppliedReturn(nil, 63)
	assert.False(t, ok)
}

func TestMomentumCalculator_RawSign(t *testing.T) {
	c := defaultMomentum()

	returns := map[string][]*float64{
		"RISE":  c.PeriodReturns(series("RISE", 300, 100, 0.002), nil),
		"FALL":  c.PeriodReturns(series("FALL", 300, 100, -0.002), nil),
		"FLAT":  c.PeriodReturns(series("FLAT", 300, 100, 0), nil),
		"SHORT": c.PeriodReturns(series("SHORT", 40, 100, 0.01), nil),
	}
	scores := c.Score(returns)

	require.Contains(t, scores, "RISE")
	require.Contains(t, scores, "FALL")
	require.Contains(t, scores, "FLAT")
	assert.Greater(t, scores["RISE"].Raw, 0.0)
	assert.Less(t, scores["FALL"].Raw, 0.0)
	assert.InDelta(t, 0.0, scores["FLAT"].Raw, 1e-12)
	assert.NotContains(t, scores, "SHORT", "no lookback covered")

	// 정렬 기준인 합성 점수도 같은 순서
	assert.Greater(t, scores["RISE"].Composite, scores["FLAT"].Composite)
	assert.Greater(t, scores["FLAT"].Composite, scores["FALL"].Composite)
}

func TestMomentumCalculator_Score(t *testing.T) {
	c := defaultMomentum()

	returns := map[string][]*float64{
		"A": c.PeriodReturns(series("A", 260, 100, 0.01), nil),
		"B": c.PeriodReturns(series("B", 260, 100, 0), nil),
		"C": c.PeriodReturns(series("C", 130, 100, 0.005), nil), // 12M 이력 부족
		"D": c.PeriodReturns(series("D", 30, 100, 0.01), nil),   // 전 기간 부족
	}

	scores := c.Score(returns)

	require.Contains(t, scores, "A")
	require.Contains(t, scores, "B")
	require.Contains(t, scores, "C")
	assert.NotContains(t, scores, "D", "no defined period means no score")

	assert.Nil(t, scores["C"].Returns[2])
	assert.Nil(t, scores["C"].ZScores[2])
	assert.Greater(t, scores["A"].Composite, scores["B"].Composite)
	assert.Greater(t, scores["A"].Raw, 0.0)
	assert.InDelta(t, 0.0, scores["B"].Raw, 1e-12)

	// 12M 기간은 A, B 두 종목만 정의 → 표준화 값은 ±1/√2
	require.NotNil(t, scores["A"].ZScores[2])
	assert.InDelta(t, 1/math.Sqrt2, *scores["A"].ZScores[2], 1e-9)
	assert.InDelta(t, -1/math.Sqrt2, *scores["B"].ZScores[2], 1e-9)
}

func TestMomentumCalculator_SingleInstrument(t *testing.T) {
	c := defaultMomentum()
	scores := c.Score(map[string][]*float64{
		"A": c.PeriodReturns(series("A", 260, 100, 0.01), nil),
	})

	require.Contains(t, scores, "A")
	// 표준편차 정의 불가 → z 기여 0
	assert.Equal(t, 0.0, scores["A"].Composite)
	assert.Greater(t, scores["A"].Raw, 0.0)
}

func TestMomentumCalculator_Confirmation(t *testing.T) {
	c := defaultMomentum()

	neg := func(v float64) *float64 { return &v }
	scores := c.Score(map[string][]*float64{
		"REVERSAL": {neg(-0.05), neg(-0.02), neg(0.30)},
		"TREND":    {neg(0.05), neg(0.10), neg(0.30)},
		"MIXED":    {neg(-0.05), neg(0.02), neg(0.10)},
		"PARTIAL":  {neg(-0.05), nil, neg(0.10)},
	})

	assert.False(t, scores["REVERSAL"].Confirmed)
	assert.True(t, scores["TREND"].Confirmed)
	assert.True(t, scores["MIXED"].Confirmed)
	assert.True(t, scores["PARTIAL"].Confirmed)
}

func TestMomentumCalculator_SuppliedFallback(t *testing.T) {
	c := defaultMomentum()
	snap := &contracts.FundamentalSnapshot{Return12M: contracts.Float(40)}

	r := c.PeriodReturns(series("A", 130, 100, 0), snap)
	require.NotNil(t, r[0])
	require.NotNil(t, r[1])
	require.NotNil(t, r[2])
	assert.InDelta(t, 0.0, *r[0], 1e-12, "price history wins when long enough")
	assert.InDelta(t, 0.40, *r[2], 1e-12)
}
