package s2_signals

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/pkg/logger"
)

// MomentumScore is the cross-sectional momentum sub-score of one instrument
type MomentumScore struct {
	Ticker    string
	Returns   []*float64 // 기간별 단순 수익률, nil = 이력 부족
	ZScores   []*float64 // 기간별 표준화 값, nil = 정의 안 됨
	Composite float64    // 가중 z 합성 (정렬 기준)
	Raw       float64    // 가중 단순 수익률 (정의된 기간만)
	Confirmed bool       // 추세 확인 규칙 통과 여부
}

// MomentumCalculator calculates momentum signals
// ⭐ SSOT: 모멘텀 시그널 계산은 여기서만
type MomentumCalculator struct {
	lookbacks []int
	weights   []float64
	logger    *logger.Logger
}

// NewMomentumCalculator creates a new momentum calculator.
// lookbacks are trading observations (63/126/252 for 3/6/12 months).
func NewMomentumCalculator(lookbacks []int, weights []float64, log *logger.Logger) *MomentumCalculator {
	return &MomentumCalculator{
		lookbacks: lookbacks,
		weights:   weights,
		logger:    log,
	}
}

// PeriodReturns computes one trailing return per lookback.
// 가격 이력이 부족한 기간만 소스 제공 수익률(%)로 보충
func (c *MomentumCalculator) PeriodReturns(series contracts.PriceSeries, snap *contracts.FundamentalSnapshot) []*float64 {
	returns := make([]*float64, len(c.lookbacks))
	for i, n := range c.lookbacks {
		if r, ok := TrailingReturn(series, n); ok {
			returns[i] = &r
			continue
		}
		if r, ok := SuppliedReturn(snap, n); ok {
			returns[i] = &r
		}
	}
	return returns
}

// Score standardizes each period across the cross-section and combines them.
// Instruments with every period undefined receive no score.
func (c *MomentumCalculator) Score(returns map[string][]*float64) map[string]MomentumScore {
	tickers := sortedKeys(returns)
	scores := make(map[string]MomentumScore, len(tickers))

	// 기간별 횡단면 평균/표준편차
	means := make([]float64, len(c.lookbacks))
	stds := make([]float64, len(c.lookbacks))
	for i := range c.lookbacks {
		var xs []float64
		for _, t := range tickers {
			if r := returns[t]; i < len(r) && r[i] != nil {
				xs = append(xs, *r[i])
			}
		}
		means[i], stds[i] = math.NaN(), math.NaN()
		if len(xs) >= 2 {
			means[i], stds[i] = stat.MeanStdDev(xs, nil)
		}
	}

	for _, t := range tickers {
		r := returns[t]
		s := MomentumScore{
			Ticker:  t,
			Returns: r,
			ZScores: make([]*float64, len(c.lookbacks)),
		}

		defined := 0
		for i, w := range c.weights {
			if i >= len(r) || r[i] == nil {
				continue
			}
			defined++
			s.Raw += w * *r[i]

			// 정의되지 않은 z 는 해당 구성요소만 0 기여
			if std := stds[i]; !math.IsNaN(std) && std > 0 {
				z := (*r[i] - means[i]) / std
				s.ZScores[i] = &z
				s.Composite += w * z
			}
		}
		if defined == 0 {
			c.logger.WithFields(map[string]interface{}{
				"ticker": t,
			}).Debug("Momentum undefined: insufficient history")
			continue
		}

		s.Confirmed = c.confirmed(r)
		scores[t] = s
	}

	c.logger.WithFields(map[string]interface{}{
		"input":  len(tickers),
		"scored": len(scores),
	}).Debug("Calculated momentum scores")

	return scores
}

// confirmed rejects names whose two shortest horizons are both negative
func (c *MomentumCalculator) confirmed(r []*float64) bool {
	if len(r) < 2 || r[0] == nil || r[1] == nil {
		return true
	}
	return !(*r[0] < 0 && *r[1] < 0)
}
