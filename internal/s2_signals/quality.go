package s2_signals

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/pkg/logger"
)

// MaxQualityIndicator is the upper bound of the reduced F-score proxy
const MaxQualityIndicator = 4

// QualityScore is the 0~4 indicator with the number of criteria that could be evaluated
type QualityScore struct {
	Ticker    string
	Indicator int // 충족 조건 수 (0~4)
	Evaluable int // 데이터가 있어 평가 가능한 조건 수 (0~4)
}

// QualityGate computes the reduced Piotroski-style indicator
// ⭐ SSOT: 퀄리티 게이트 (4점 근사 F-score) 는 여기서만
type QualityGate struct {
	logger *logger.Logger
}

// NewQualityGate creates a new quality gate
func NewQualityGate(log *logger.Logger) *QualityGate {
	return &QualityGate{logger: log}
}

// Indicators scores every snapshot against the cross-sectional ROA median
func (g *QualityGate) Indicators(snaps map[string]*contracts.FundamentalSnapshot) map[string]QualityScore {
	tickers := sortedKeys(snaps)

	var roas []float64
	for _, t := range tickers {
		if s := snaps[t]; s != nil && s.ROA != nil {
			roas = append(roas, *s.ROA)
		}
	}
	median, hasMedian := 0.0, len(roas) > 0
	if hasMedian {
		sort.Float64s(roas)
		// 짝수 개일 때 하위 중앙값 (경험적 분위수)
		median = stat.Quantile(0.5, stat.Empirical, roas, nil)
	}

	out := make(map[string]QualityScore, len(tickers))
	for _, t := range tickers {
		s := snaps[t]
		q := QualityScore{Ticker: t}
		if s == nil {
			out[t] = q
			continue
		}

		// 1. ROA > 0
		if s.ROA != nil {
			q.Evaluable++
			if *s.ROA > 0 {
				q.Indicator++
			}
		}
		// 2. FCFROE > 0
		if s.FCFROE != nil {
			q.Evaluable++
			if *s.FCFROE > 0 {
				q.Indicator++
			}
		}
		// 3. ROA > 횡단면 중앙값
		if s.ROA != nil && hasMedian {
			q.Evaluable++
			if *s.ROA > median {
				q.Indicator++
			}
		}
		// 4. FCFROE > ROE (현금 창출 > 회계 이익)
		if s.FCFROE != nil && s.ROE != nil {
			q.Evaluable++
			if *s.FCFROE > *s.ROE {
				q.Indicator++
			}
		}
		out[t] = q
	}
	return out
}

// Passes checks a score against cutoff. nil cutoff = strict majority of evaluable criteria.
func Passes(q QualityScore, cutoff *int) bool {
	if q.Evaluable == 0 {
		return false
	}
	if cutoff != nil {
		return q.Indicator >= *cutoff
	}
	return q.Indicator*2 > q.Evaluable
}

// Apply keeps tickers that pass the gate. When nothing passes the gate is bypassed and every ticker is kept.
func (g *QualityGate) Apply(tickers []string, scores map[string]QualityScore, cutoff *int) ([]string, bool) {
	kept := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if Passes(scores[t], cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 && len(tickers) > 0 {
		g.logger.WithFields(map[string]interface{}{
			"candidates": len(tickers),
		}).Warn("Quality gate eliminated every candidate, bypassing")
		return append([]string(nil), tickers...), true
	}

	g.logger.WithFields(map[string]interface{}{
		"candidates": len(tickers),
		"passed":     len(kept),
	}).Debug("Quality gate applied")
	return kept, false
}
