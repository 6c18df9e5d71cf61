package s2_signals

import (
	"sort"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// Metric is one raw fundamental field feeding the primary-factor score
type Metric struct {
	Name           string
	Value          func(*contracts.FundamentalSnapshot) *float64
	HigherIsBetter bool
	PositiveOnly   bool // 0 이하는 결측 취급 (적자 배수 등)
}

// ValueMetrics 밸류에이션 배수 (낮을수록 우수)
var ValueMetrics = []Metric{
	{Name: "pe", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.PE }, PositiveOnly: true},
	{Name: "pb", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.PB }, PositiveOnly: true},
	{Name: "ps", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.PS }, PositiveOnly: true},
	{Name: "pfcf", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.PFCF }, PositiveOnly: true},
	{Name: "ev_ebitda", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.EVEBITDA }, PositiveOnly: true},
}

// DividendMetrics 배당수익률 (높을수록), 배당성향 (낮을수록)
var DividendMetrics = []Metric{
	{Name: "dividend_yield", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.DividendYield }, HigherIsBetter: true, PositiveOnly: true},
	{Name: "payout_ratio", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.PayoutRatio }},
}

// QualityMetrics 수익성 (높을수록 우수)
var QualityMetrics = []Metric{
	{Name: "roe", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.ROE }, HigherIsBetter: true},
	{Name: "roa", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.ROA }, HigherIsBetter: true},
	{Name: "roic", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.ROIC }, HigherIsBetter: true},
	{Name: "fcfroe", Value: func(f *contracts.FundamentalSnapshot) *float64 { return f.FCFROE }, HigherIsBetter: true},
}

// MetricsFor returns the primary-factor metrics of a trending category
func MetricsFor(category contracts.Category) []Metric {
	switch category {
	case contracts.CategoryValue:
		return ValueMetrics
	case contracts.CategoryDividend:
		return DividendMetrics
	case contracts.CategoryQuality:
		return QualityMetrics
	}
	return nil
}

// Eligibility reasons
const (
	IneligibleNoDividend   = "no_dividend"
	IneligiblePayoutCeil   = "payout_above_ceiling"
	IneligibleROEFloor     = "roe_below_floor"
	IneligibleROICFloor    = "roic_below_floor"
	IneligibleFundamentals = "insufficient_fundamentals"
)

// Eligible applies category thresholds. Floors and ceilings reject only when the field is present.
func Eligible(category contracts.Category, th strategyconfig.Thresholds, snap *contracts.FundamentalSnapshot) (bool, string) {
	switch category {
	case contracts.CategoryDividend:
		if snap == nil || snap.DividendYield == nil || *snap.DividendYield <= 0 {
			return false, IneligibleNoDividend
		}
		if th.PayoutRatioMax != nil && snap.PayoutRatio != nil && *snap.PayoutRatio > *th.PayoutRatioMax {
			return false, IneligiblePayoutCeil
		}
	case contracts.CategoryQuality:
		if snap == nil {
			return true, ""
		}
		if th.ROEMin != nil && snap.ROE != nil && *snap.ROE < *th.ROEMin {
			return false, IneligibleROEFloor
		}
		if th.ROICMin != nil && snap.ROIC != nil && *snap.ROIC < *th.ROICMin {
			return false, IneligibleROICFloor
		}
	}
	return true, ""
}

// FactorScorer converts raw metrics to averaged cross-sectional percentile ranks
// ⭐ SSOT: 1차 팩터 점수 계산은 여기서만
type FactorScorer struct {
	logger *logger.Logger
}

// NewFactorScorer creates a new factor scorer
func NewFactorScorer(log *logger.Logger) *FactorScorer {
	return &FactorScorer{logger: log}
}

// Score returns the primary-factor score in [0, 1] (1 = best) per ticker.
// Missing metrics are excluded from a ticker's average; a ticker with none is omitted.
func (s *FactorScorer) Score(snaps map[string]*contracts.FundamentalSnapshot, metrics []Metric) map[string]float64 {
	tickers := sortedKeys(snaps)
	sums := make(map[string]float64, len(tickers))
	counts := make(map[string]int, len(tickers))

	for _, m := range metrics {
		var obs []observation
		for _, t := range tickers {
			snap := snaps[t]
			if snap == nil {
				continue
			}
			v := m.Value(snap)
			if v == nil || (m.PositiveOnly && *v <= 0) {
				continue
			}
			goodness := *v
			if !m.HigherIsBetter {
				goodness = -goodness
			}
			obs = append(obs, observation{ticker: t, value: goodness})
		}

		for t, pct := range percentiles(obs) {
			sums[t] += pct
			counts[t]++
		}
	}

	scores := make(map[string]float64, len(counts))
	for t, n := range counts {
		scores[t] = sums[t] / float64(n)
	}

	s.logger.WithFields(map[string]interface{}{
		"input":   len(tickers),
		"scored":  len(scores),
		"metrics": len(metrics),
	}).Debug("Calculated primary factor scores")

	return scores
}

type observation struct {
	ticker string
	value  float64 // 클수록 우수
}

// percentiles assigns fractional (average) ranks, best = 1, and maps them to 1-(rank-1)/(n-1)
func percentiles(obs []observation) map[string]float64 {
	out := make(map[string]float64, len(obs))
	n := len(obs)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[obs[0].ticker] = 1
		return out
	}

	sorted := append([]observation(nil), obs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].value > sorted[j].value })

	for i := 0; i < n; {
		j := i
		for j+1 < n && sorted[j+1].value == sorted[i].value {
			j++
		}
		// 동점 구간 [i, j] 평균 순위 (1-based)
		rank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[sorted[k].ticker] = 1 - (rank-1)/float64(n-1)
		}
		i = j + 1
	}
	return out
}
