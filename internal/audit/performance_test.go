package audit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/pkg/logger"
)

func curveOf(start time.Time, values ...float64) []contracts.EquityPoint {
	curve := make([]contracts.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = contracts.EquityPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return curve
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := NewAnalyzer(TradingDaysPerYear, 0, logger.NewNop())
	curve := curveOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 110, 99, 120, 114)
	returns := Values(PeriodicReturns(curve))

	m := a.Analyze(curve, returns)

	assert.InDelta(t, 0.14, m.TotalReturn, 1e-12)
	// 고점 110 → 99 가 최대 낙폭
	assert.InDelta(t, -0.10, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.Equal(t, 4, m.Periods)
	assert.Greater(t, m.Volatility, 0.0)
	assert.Greater(t, m.Sortino, 0.0)
	assert.False(t, math.IsNaN(m.Sharpe))
	assert.Greater(t, m.CAGR, 0.0)
}

func TestAnalyzer_SharpeMatchesDefinition(t *testing.T) {
	a := NewAnalyzer(12, 0.012, logger.NewNop())
	returns := []float64{0.02, -0.01, 0.03, 0.01}

	m := a.Analyze(nil, returns)

	rf := 0.012 / 12
	excess := []float64{0.02 - rf, -0.01 - rf, 0.03 - rf, 0.01 - rf}
	mean := (excess[0] + excess[1] + excess[2] + excess[3]) / 4
	var ss float64
	for _, e := range excess {
		ss += (e - mean) * (e - mean)
	}
	std := math.Sqrt(ss / 3)
	assert.InDelta(t, mean/std*math.Sqrt(12), m.Sharpe, 1e-12)
	assert.Equal(t, 0.0, m.Sortino, "a single negative period has no downside deviation")
}

func TestAnalyzer_Degenerate(t *testing.T) {
	a := NewAnalyzer(0, 0, logger.NewNop())

	tests := []struct {
		name    string
		curve   []contracts.EquityPoint
		returns []float64
	}{
		{"empty", nil, nil},
		{"single point", curveOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100), nil},
		{"flat", curveOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 100, 100), []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := a.Analyze(tt.curve, tt.returns)
			assert.Equal(t, 0.0, m.TotalReturn)
			assert.Equal(t, 0.0, m.CAGR)
			assert.Equal(t, 0.0, m.Sharpe)
			assert.Equal(t, 0.0, m.Sortino)
			assert.Equal(t, 0.0, m.Volatility)
			assert.Equal(t, 0.0, m.MaxDrawdown)
			assert.Equal(t, 0.0, m.WinRate)
			assert.Equal(t, 0.0, m.VaR95)
		})
	}
}

func TestMonthlyReturns(t *testing.T) {
	curve := []contracts.EquityPoint{
		{Date: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 110},
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Value: 121},
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Value: 133.1},
	}

	got := MonthlyReturns(curve)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.10, got[0].Return, 1e-12)
	assert.InDelta(t, 0.10, got[1].Return, 1e-12)
	assert.InDelta(t, 0.10, got[2].Return, 1e-12)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got[1].Date)
}
