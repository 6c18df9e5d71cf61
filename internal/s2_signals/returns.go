package s2_signals

import (
	"sort"

	"github.com/wonny/factorband/internal/contracts"
)

// TrailingReturn is last close / close n observations back - 1.
// Needs at least n observations and a positive base price.
func TrailingReturn(series contracts.PriceSeries, n int) (float64, bool) {
	if n <= 0 || len(series.Points) < n {
		return 0, false
	}
	base := series.Points[len(series.Points)-n].Close
	last := series.Points[len(series.Points)-1].Close
	if base <= 0 {
		return 0, false
	}
	return last/base - 1, true
}

// SuppliedReturn maps a lookback to the source-supplied trailing percentage
func SuppliedReturn(snap *contracts.FundamentalSnapshot, n int) (float64, bool) {
	if snap == nil {
		return 0, false
	}
	var pct *float64
	switch {
	case n <= 21:
		pct = snap.Return1M
	case n <= 63:
		pct = snap.Return3M
	case n <= 126:
		pct = snap.Return6M
	default:
		pct = snap.Return12M
	}
	if pct == nil {
		return 0, false
	}
	return *pct / 100, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
