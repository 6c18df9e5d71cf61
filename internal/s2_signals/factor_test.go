package s2_signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

func snap(ticker string, mutate func(*contracts.FundamentalSnapshot)) *contracts.FundamentalSnapshot {
	s := &contracts.FundamentalSnapshot{Ticker: ticker}
	mutate(s)
	return s
}

func TestFactorScorer_ValueByPE(t *testing.T) {
	scorer := NewFactorScorer(logger.NewNop())

	snaps := map[string]*contracts.FundamentalSnapshot{}
	for ticker, pe := range map[string]float64{"E": 30, "B": 15, "A": 10, "D": 25, "C": 20} {
		pe := pe
		snaps[ticker] = snap(ticker, func(s *contracts.FundamentalSnapshot) {
			s.PE = &pe
			s.PB = contracts.Float(1.0)
		})
	}

	scores := scorer.Score(snaps, ValueMetrics)
	require.Len(t, scores, 5)

	// PB 동점 → 모두 평균 순위 3 → 0.5, PE 는 1.0/0.75/0.5/0.25/0
	assert.InDelta(t, (1.0+0.5)/2, scores["A"], 1e-12)
	assert.InDelta(t, (0.0+0.5)/2, scores["E"], 1e-12)
	assert.Greater(t, scores["A"], scores["B"])
	assert.Greater(t, scores["B"], scores["C"])
}

func TestFactorScorer_MissingAndNonPositive(t *testing.T) {
	scorer := NewFactorScorer(logger.NewNop())

	snaps := map[string]*contracts.FundamentalSnapshot{
		"LOSS":  snap("LOSS", func(s *contracts.FundamentalSnapshot) { s.PE = contracts.Float(-5) }),
		"EMPTY": snap("EMPTY", func(s *contracts.FundamentalSnapshot) {}),
		"OK":    snap("OK", func(s *contracts.FundamentalSnapshot) { s.PE = contracts.Float(8) }),
		"NIL":   nil,
	}

	scores := scorer.Score(snaps, ValueMetrics)
	assert.Equal(t, map[string]float64{"OK": 1}, scores)
}

func TestFactorScorer_Dividend(t *testing.T) {
	scorer := NewFactorScorer(logger.NewNop())

	snaps := map[string]*contracts.FundamentalSnapshot{
		"HI": snap("HI", func(s *contracts.FundamentalSnapshot) {
			s.DividendYield = contracts.Float(0.06)
			s.PayoutRatio = contracts.Float(0.3)
		}),
		"LO": snap("LO", func(s *contracts.FundamentalSnapshot) {
			s.DividendYield = contracts.Float(0.02)
			s.PayoutRatio = contracts.Float(0.6)
		}),
	}

	scores := scorer.Score(snaps, DividendMetrics)
	assert.InDelta(t, 1.0, scores["HI"], 1e-12)
	assert.InDelta(t, 0.0, scores["LO"], 1e-12)
}

func TestPercentiles_Ties(t *testing.T) {
	got := percentiles([]observation{
		{"A", 3}, {"B", 2}, {"C", 2}, {"D", 1},
	})
	assert.InDelta(t, 1.0, got["A"], 1e-12)
	assert.InDelta(t, 0.5, got["B"], 1e-12)
	assert.InDelta(t, 0.5, got["C"], 1e-12)
	assert.InDelta(t, 0.0, got["D"], 1e-12)
}

func TestEligible(t *testing.T) {
	ceiling := 0.8
	floor := 0.10
	th := strategyconfig.Thresholds{PayoutRatioMax: &ceiling, ROEMin: &floor, ROICMin: &floor}

	tests := []struct {
		name     string
		category contracts.Category
		snap     *contracts.FundamentalSnapshot
		ok       bool
		reason   string
	}{
		{"dividend ok", contracts.CategoryDividend, snap("X", func(s *contracts.FundamentalSnapshot) {
			s.DividendYield = contracts.Float(0.03)
			s.PayoutRatio = contracts.Float(0.5)
		}), true, ""},
		{"dividend no yield", contracts.CategoryDividend, snap("X", func(s *contracts.FundamentalSnapshot) {}), false, IneligibleNoDividend},
		{"dividend zero yield", contracts.CategoryDividend, snap("X", func(s *contracts.FundamentalSnapshot) {
			s.DividendYield = contracts.Float(0)
		}), false, IneligibleNoDividend},
		{"dividend payout above ceiling", contracts.CategoryDividend, snap("X", func(s *contracts.FundamentalSnapshot) {
			s.DividendYield = contracts.Float(0.03)
			s.PayoutRatio = contracts.Float(1.2)
		}), false, IneligiblePayoutCeil},
		{"dividend payout unknown", contracts.CategoryDividend, snap("X", func(s *contracts.FundamentalSnapshot) {
			s.DividendYield = contracts.Float(0.03)
		}), true, ""},
		{"quality roe floor", contracts.CategoryQuality, snap("X", func(s *contracts.FundamentalSnapshot) {
			s.ROE = contracts.Float(0.05)
		}), false, IneligibleROEFloor},
		{"quality roic floor", contracts.CategoryQuality, snap("X", func(s *contracts.FundamentalSnapshot) {
			s.ROE = contracts.Float(0.15)
			s.ROIC = contracts.Float(0.02)
		}), false, IneligibleROICFloor},
		{"quality missing fields", contracts.CategoryQuality, snap("X", func(s *contracts.FundamentalSnapshot) {}), true, ""},
		{"value no thresholds", contracts.CategoryValue, nil, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Eligible(tt.category, th, tt.snap)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
