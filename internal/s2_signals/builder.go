package s2_signals

import (
	"fmt"
	"time"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// SignalSet holds every per-ticker signal for one strategy/date passed from S2 to S3
// ⭐ SSOT: S2 → S3 시그널 전달
type SignalSet struct {
	Date     time.Time
	Category contracts.Category

	Primary    map[string]float64       // 1차 팩터 점수 (trending 전략만)
	Momentum   map[string]MomentumScore // 모멘텀 서브 스코어
	Quality    map[string]QualityScore  // 퀄리티 지표
	Ineligible map[string]string        // 임계값 탈락 사유

	Warnings []contracts.Warning
}

// Builder orchestrates all signal calculators to generate SignalSet
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	momentum *MomentumCalculator
	factor   *FactorScorer
	quality  *QualityGate
	logger   *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(momentum *MomentumCalculator, factor *FactorScorer, quality *QualityGate, log *logger.Logger) *Builder {
	return &Builder{
		momentum: momentum,
		factor:   factor,
		quality:  quality,
		logger:   log.WithField("stage", contracts.StageSignals.String()),
	}
}

// NewBuilderFor wires calculators from a strategy config
func NewBuilderFor(cfg *strategyconfig.StrategyConfig, log *logger.Logger) *Builder {
	return NewBuilder(
		NewMomentumCalculator(cfg.Momentum.LookbacksDays, cfg.Momentum.Weights, log),
		NewFactorScorer(log),
		NewQualityGate(log),
		log,
	)
}

// Momentum exposes the momentum calculator
func (b *Builder) Momentum() *MomentumCalculator {
	return b.momentum
}

// QualityGate exposes the quality gate
func (b *Builder) QualityGate() *QualityGate {
	return b.quality
}

// Build generates the SignalSet for every admitted ticker.
// returns holds precomputed period returns per ticker (see MomentumCalculator.PeriodReturns).
func (b *Builder) Build(
	cfg *strategyconfig.StrategyConfig,
	universe *contracts.Universe,
	fundamentals map[string]*contracts.FundamentalSnapshot,
	returns map[string][]*float64,
) *SignalSet {
	set := &SignalSet{
		Date:       universe.Date,
		Category:   cfg.Category,
		Primary:    make(map[string]float64),
		Ineligible: make(map[string]string),
	}

	tickers := universe.Tickers()

	b.logger.WithFields(map[string]interface{}{
		"strategy": cfg.Name,
		"date":     universe.Date.Format("2006-01-02"),
		"tickers":  len(tickers),
	}).Debug("Starting signal generation")

	// 1. 모멘텀: 유니버스 전체 횡단면 표준화
	admittedReturns := make(map[string][]*float64, len(tickers))
	for _, t := range tickers {
		if r, ok := returns[t]; ok {
			admittedReturns[t] = r
		}
	}
	set.Momentum = b.momentum.Score(admittedReturns)
	for _, t := range tickers {
		if _, ok := set.Momentum[t]; !ok {
			set.Warnings = append(set.Warnings, contracts.Warning{
				Code:    contracts.ReasonInsufficientHistory,
				Ticker:  t,
				Message: "not enough price history for any momentum period",
			})
		}
	}

	// 2. 퀄리티 지표
	admittedSnaps := make(map[string]*contracts.FundamentalSnapshot, len(tickers))
	for _, t := range tickers {
		admittedSnaps[t] = fundamentals[t]
	}
	set.Quality = b.quality.Indicators(admittedSnaps)

	// 3. 1차 팩터 (trending 전략만)
	if cfg.Category.IsTrending() {
		eligible := make(map[string]*contracts.FundamentalSnapshot, len(tickers))
		for _, t := range tickers {
			snap := fundamentals[t]
			if ok, reason := Eligible(cfg.Category, cfg.Thresholds, snap); !ok {
				set.Ineligible[t] = reason
				continue
			}
			eligible[t] = snap
		}

		set.Primary = b.factor.Score(eligible, MetricsFor(cfg.Category))
		for _, t := range tickers {
			if _, scored := set.Primary[t]; scored {
				continue
			}
			if _, excluded := set.Ineligible[t]; excluded {
				continue
			}
			set.Ineligible[t] = IneligibleFundamentals
			set.Warnings = append(set.Warnings, contracts.Warning{
				Code:    contracts.ReasonInsufficientFundamentals,
				Ticker:  t,
				Message: fmt.Sprintf("no %s metric available", cfg.Category),
			})
		}
	}

	b.logger.WithFields(map[string]interface{}{
		"strategy":   cfg.Name,
		"momentum":   len(set.Momentum),
		"primary":    len(set.Primary),
		"ineligible": len(set.Ineligible),
	}).Debug("Signal generation completed")

	return set
}
