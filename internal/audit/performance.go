package audit

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/pkg/logger"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// Analyzer implements S6: Performance analysis.
// Pure function of an equity curve plus a periodic return series.
// ⭐ SSOT: S6 성과 분석 로직은 여기서만
type Analyzer struct {
	periodsPerYear float64
	riskFree       float64 // 연 무위험 수익률
	logger         *logger.Logger
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(periodsPerYear, riskFreeRate float64, log *logger.Logger) *Analyzer {
	if periodsPerYear <= 0 {
		periodsPerYear = TradingDaysPerYear
	}
	return &Analyzer{
		periodsPerYear: periodsPerYear,
		riskFree:       riskFreeRate,
		logger:         log.WithField("stage", contracts.StageAudit.String()),
	}
}

// Analyze reduces curve and returns to PerformanceMetrics.
// Degenerate inputs (fewer than 2 points, zero deviation) yield zero instead of NaN/Inf.
func (a *Analyzer) Analyze(curve []contracts.EquityPoint, returns []float64) contracts.PerformanceMetrics {
	m := contracts.PerformanceMetrics{Periods: len(returns)}

	// 수익률
	m.TotalReturn = a.totalReturn(curve)
	m.CAGR = a.cagr(curve)
	m.MaxDrawdown = a.maxDrawdown(curve)

	// 리스크 지표
	if len(returns) >= 2 {
		excess := make([]float64, len(returns))
		perPeriodRF := a.riskFree / a.periodsPerYear
		for i, r := range returns {
			excess[i] = r - perPeriodRF
		}
		mean, std := stat.MeanStdDev(excess, nil)
		annual := math.Sqrt(a.periodsPerYear)

		m.Volatility = stat.StdDev(returns, nil) * annual
		if std > 0 {
			m.Sharpe = mean / std * annual
		}
		if downside := a.downsideDeviation(returns); downside > 0 {
			m.Sortino = mean / downside * annual
		}
	}

	// 트레이딩 지표
	m.WinRate = a.winRate(returns)
	m.VaR95, m.CVaR95 = HistoricalVaR(returns, 0.95)

	a.logger.WithFields(map[string]interface{}{
		"periods":      m.Periods,
		"total_return": m.TotalReturn,
		"cagr":         m.CAGR,
		"sharpe":       m.Sharpe,
		"max_drawdown": m.MaxDrawdown,
	}).Debug("Performance analysis completed")

	return m
}

// totalReturn calculates final/initial - 1
func (a *Analyzer) totalReturn(curve []contracts.EquityPoint) float64 {
	if len(curve) < 2 || curve[0].Value <= 0 {
		return 0
	}
	return curve[len(curve)-1].Value/curve[0].Value - 1
}

// cagr compounds over elapsed calendar years
func (a *Analyzer) cagr(curve []contracts.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	first, last := curve[0], curve[len(curve)-1]
	years := last.Date.Sub(first.Date).Hours() / 24 / 365.25
	if years <= 0 || first.Value <= 0 || last.Value <= 0 {
		return 0
	}
	return math.Pow(last.Value/first.Value, 1/years) - 1
}

// maxDrawdown scans left to right; the peak only ever increases
func (a *Analyzer) maxDrawdown(curve []contracts.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Value
	maxDD := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (p.Value - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// downsideDeviation is the standard deviation of negative periodic returns
func (a *Analyzer) downsideDeviation(returns []float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) < 2 {
		return 0
	}
	return stat.StdDev(negative, nil)
}

// winRate is the fraction of periods with a positive return
func (a *Analyzer) winRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// PeriodicReturns converts an equity curve into simple returns between consecutive points
func PeriodicReturns(curve []contracts.EquityPoint) []contracts.PeriodReturn {
	if len(curve) < 2 {
		return nil
	}
	out := make([]contracts.PeriodReturn, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		r := 0.0
		if prev := curve[i-1].Value; prev > 0 {
			r = curve[i].Value/prev - 1
		}
		out = append(out, contracts.PeriodReturn{Date: curve[i].Date, Return: r})
	}
	return out
}

// MonthlyReturns compounds the curve into calendar-month returns.
// The first month is measured from the first point of the curve.
func MonthlyReturns(curve []contracts.EquityPoint) []contracts.PeriodReturn {
	if len(curve) < 2 {
		return nil
	}
	var out []contracts.PeriodReturn
	base := curve[0].Value
	for i := 1; i < len(curve); i++ {
		p := curve[i]
		lastOfMonth := i == len(curve)-1 ||
			curve[i+1].Date.Month() != p.Date.Month() ||
			curve[i+1].Date.Year() != p.Date.Year()
		if !lastOfMonth {
			continue
		}
		r := 0.0
		if base > 0 {
			r = p.Value/base - 1
		}
		out = append(out, contracts.PeriodReturn{Date: p.Date, Return: r})
		base = p.Value
	}
	return out
}

// Values extracts the return series
func Values(returns []contracts.PeriodReturn) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r.Return
	}
	return out
}
