package audit

import (
	"math"
	"sort"
)

// HistoricalVaR returns Value at Risk and Expected Shortfall of per-period returns
// by historical simulation. Losses are reported as positive numbers; 0 means no loss
// in the tail.
// confidence: 신뢰수준 (예: 0.95 → 하위 5% 백분위수)
func HistoricalVaR(returns []float64, confidence float64) (valueAtRisk, expectedShortfall float64) {
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return 0, 0
	}

	// 오름차순: 손실이 앞에
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	if sorted[idx] < 0 {
		valueAtRisk = -sorted[idx]
	}

	// tail = sorted[0..idx]
	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	if tail := sum / float64(idx+1); tail < 0 {
		expectedShortfall = -tail
	}
	return valueAtRisk, expectedShortfall
}
