package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoricalVaR(t *testing.T) {
	returns := []float64{
		0.01, -0.05, 0.02, -0.03, 0.01, 0.00, 0.02, -0.01, 0.01, 0.03,
		0.01, 0.02, -0.02, 0.01, 0.00, 0.01, 0.02, 0.01, -0.01, 0.01,
	}

	v, es := HistoricalVaR(returns, 0.95)
	// idx = floor(0.05 * 20) = 1 → sorted[1] = -0.03
	assert.InDelta(t, 0.03, v, 1e-12)
	assert.InDelta(t, 0.04, es, 1e-12)
	assert.GreaterOrEqual(t, es, v, "expected shortfall is never below VaR")

	// 입력 순서 보존
	assert.Equal(t, 0.01, returns[0])
	assert.Equal(t, -0.05, returns[1])
}

func TestHistoricalVaR_Degenerate(t *testing.T) {
	tests := []struct {
		name       string
		returns    []float64
		confidence float64
	}{
		{"empty", nil, 0.95},
		{"all gains", []float64{0.01, 0.02, 0.03}, 0.95},
		{"invalid confidence", []float64{-0.1, 0.1}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, es := HistoricalVaR(tt.returns, tt.confidence)
			assert.Zero(t, v)
			assert.Zero(t, es)
		})
	}
}
