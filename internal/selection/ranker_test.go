package selection

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/s2_signals"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func universeOf(tickers ...string) *contracts.Universe {
	u := &contracts.Universe{Date: day(2024, 3, 29), Excluded: map[string]string{}}
	for _, t := range tickers {
		u.Entries = append(u.Entries, contracts.UniverseEntry{Ticker: t})
	}
	return u
}

func signalSet(category contracts.Category) *s2_signals.SignalSet {
	return &s2_signals.SignalSet{
		Category:   category,
		Primary:    map[string]float64{},
		Momentum:   map[string]s2_signals.MomentumScore{},
		Quality:    map[string]s2_signals.QualityScore{},
		Ineligible: map[string]string{},
	}
}

func tickersOf(entries []contracts.RankedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Ticker
	}
	return out
}

func TestRanker_Momentum(t *testing.T) {
	cfg := strategyconfig.Default("kr_momentum", contracts.CategoryMomentum)
	cfg.PositionCount = 2
	ranker := NewRanker(logger.NewNop())

	set := signalSet(contracts.CategoryMomentum)
	for ticker, composite := range map[string]float64{"A": 1.0, "B": 0.5, "C": 0.5, "D": 2.0} {
		set.Momentum[ticker] = s2_signals.MomentumScore{Ticker: ticker, Composite: composite, Confirmed: ticker != "D"}
		set.Quality[ticker] = s2_signals.QualityScore{Ticker: ticker, Indicator: 4, Evaluable: 4}
	}

	result := ranker.Rank(&cfg, universeOf("A", "B", "C", "D"), set, s2_signals.NewQualityGate(logger.NewNop()))

	require.Nil(t, result.Error)
	// D 는 추세 확인 실패, B/C 동점은 ticker 순
	assert.Equal(t, []string{"A", "B", "C"}, tickersOf(result.FullRanking))
	assert.Equal(t, []string{"A", "B"}, result.Tickers())
	for i, e := range result.FullRanking {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, QualityProxyFlag, result.Metadata["quality_proxy"])
	require.NotNil(t, result.Entries[0].Scores.QualityIndicator)
	assert.Equal(t, 4, *result.Entries[0].Scores.QualityIndicator)
	assert.Equal(t, []string{"A", "B", "C", "D"}, result.Universe)
}

func TestRanker_QualityGate(t *testing.T) {
	cfg := strategyconfig.Default("kr_momentum", contracts.CategoryMomentum)
	ranker := NewRanker(logger.NewNop())
	gate := s2_signals.NewQualityGate(logger.NewNop())

	t.Run("filters failing names", func(t *testing.T) {
		set := signalSet(contracts.CategoryMomentum)
		set.Momentum["A"] = s2_signals.MomentumScore{Ticker: "A", Composite: 1, Confirmed: true}
		set.Momentum["B"] = s2_signals.MomentumScore{Ticker: "B", Composite: 2, Confirmed: true}
		set.Quality["A"] = s2_signals.QualityScore{Ticker: "A", Indicator: 3, Evaluable: 4}
		set.Quality["B"] = s2_signals.QualityScore{Ticker: "B", Indicator: 1, Evaluable: 4}

		result := ranker.Rank(&cfg, universeOf("A", "B"), set, gate)
		assert.Equal(t, []string{"A"}, result.Tickers())
	})

	t.Run("bypassed when nothing passes", func(t *testing.T) {
		set := signalSet(contracts.CategoryMomentum)
		set.Momentum["A"] = s2_signals.MomentumScore{Ticker: "A", Composite: 1, Confirmed: true}
		set.Quality["A"] = s2_signals.QualityScore{Ticker: "A", Indicator: 0, Evaluable: 4}

		result := ranker.Rank(&cfg, universeOf("A"), set, gate)
		assert.Equal(t, []string{"A"}, result.Tickers())

		codes := map[contracts.ReasonCode]bool{}
		for _, w := range result.Warnings {
			codes[w.Code] = true
		}
		assert.True(t, codes[contracts.ReasonQualityGateBypassed])
		assert.True(t, codes[contracts.ReasonQualityProxy])
	})
}

func TestRanker_TrendingTwoStage(t *testing.T) {
	cfg := strategyconfig.Default("kr_value", contracts.CategoryValue)
	cfg.Trending.MomentumKeepMin = 2
	ranker := NewRanker(logger.NewNop())

	set := signalSet(contracts.CategoryValue)
	var tickers []string
	for i := 0; i < 10; i++ {
		ticker := fmt.Sprintf("T%02d", i)
		tickers = append(tickers, ticker)
		set.Primary[ticker] = 1 - float64(i)*0.1
		set.Momentum[ticker] = s2_signals.MomentumScore{Ticker: ticker, Composite: float64(i), Confirmed: true}
	}

	result := ranker.Rank(&cfg, universeOf(tickers...), set, s2_signals.NewQualityGate(logger.NewNop()))
	require.Nil(t, result.Error)

	// 1단계: ceil(10 × 0.40) = 4 종목 유지 (T00~T03)
	// 2단계: 모멘텀 순 재정렬, keep = max(2, ceil(4 × 0.25)) = 2
	assert.Equal(t, []string{"T03", "T02", "T01", "T00"}, tickersOf(result.FullRanking))
	assert.Equal(t, []string{"T03", "T02"}, result.Tickers())
	assert.Equal(t, "4", result.Metadata["primary_retained"])
	assert.Equal(t, "2", result.Metadata["momentum_keep"])

	require.NotNil(t, result.Entries[0].Scores.Primary)
	assert.InDelta(t, 0.7, *result.Entries[0].Scores.Primary, 1e-12)
	assert.NotContains(t, result.Tickers(), "T09", "high momentum alone does not pass stage one")
}

func TestRanker_TrendingMomentumTieFallsBackToPrimary(t *testing.T) {
	cfg := strategyconfig.Default("kr_value", contracts.CategoryValue)
	cfg.Trending.PrimaryRetainPct = 1
	ranker := NewRanker(logger.NewNop())

	set := signalSet(contracts.CategoryValue)
	set.Primary["A"] = 0.2
	set.Primary["Z"] = 0.9
	set.Momentum["A"] = s2_signals.MomentumScore{Ticker: "A", Confirmed: true}
	set.Momentum["Z"] = s2_signals.MomentumScore{Ticker: "Z", Confirmed: true}

	result := ranker.Rank(&cfg, universeOf("A", "Z"), set, s2_signals.NewQualityGate(logger.NewNop()))
	assert.Equal(t, []string{"Z", "A"}, result.Tickers())
}

func TestRanker_EmptyAndUnscored(t *testing.T) {
	ranker := NewRanker(logger.NewNop())
	gate := s2_signals.NewQualityGate(logger.NewNop())

	tests := []struct {
		name     string
		category contracts.Category
		universe *contracts.Universe
		code     contracts.ReasonCode
	}{
		{"empty universe", contracts.CategoryMomentum, universeOf(), contracts.ReasonEmptyUniverse},
		{"no momentum history", contracts.CategoryMomentum, universeOf("A"), contracts.ReasonInsufficientHistory},
		{"no fundamentals", contracts.CategoryValue, universeOf("A"), contracts.ReasonInsufficientFundamentals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := strategyconfig.Default("s", tt.category)
			result := ranker.Rank(&cfg, tt.universe, signalSet(tt.category), gate)

			require.NotNil(t, result.Error)
			assert.Equal(t, tt.code, result.Error.Code)
			assert.Equal(t, tt.universe.Date, result.Error.Date)
			assert.True(t, result.IsEmpty())
		})
	}
}
