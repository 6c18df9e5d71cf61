package strategyconfig

import (
	"time"

	"github.com/wonny/factorband/internal/contracts"
)

// File는 전략 설정 YAML 파일의 최상위 구조
type File struct {
	Strategies []StrategyConfig `yaml:"strategies" json:"strategies"`
}

// StrategyConfig는 하나의 이름 있는 전략 설정
// ⭐ SSOT: 전략별 파라미터 (카테고리, 리밸런싱 일정, 임계값, 백테스트 비용)
type StrategyConfig struct {
	Name          string             `yaml:"name" json:"name"`
	Category      contracts.Category `yaml:"category" json:"category"`
	Schedule      Schedule           `yaml:"schedule" json:"schedule"`
	PositionCount int                `yaml:"position_count" json:"position_count"`
	Weighting     string             `yaml:"weighting" json:"weighting"` // equal only
	Thresholds    Thresholds         `yaml:"thresholds" json:"thresholds"`
	Banding       Banding            `yaml:"banding" json:"banding"`
	Universe      Universe           `yaml:"universe" json:"universe"`
	Momentum      Momentum           `yaml:"momentum" json:"momentum"`
	Trending      Trending           `yaml:"trending" json:"trending"`
	Backtest      Backtest           `yaml:"backtest" json:"backtest"`
}

// Schedule kinds
const (
	ScheduleQuarterly = "quarterly"
	ScheduleAnnual    = "annual"
)

// WeightingEqual is the only supported weighting method
const WeightingEqual = "equal"

// Schedule 리밸런싱 일정
type Schedule struct {
	Kind   string `yaml:"kind" json:"kind"`     // quarterly | annual
	Months []int  `yaml:"months" json:"months"` // 1~12
}

// IsRebalanceMonth checks whether m is a scheduled month
func (s Schedule) IsRebalanceMonth(m time.Month) bool {
	for _, month := range s.Months {
		if time.Month(month) == m {
			return true
		}
	}
	return false
}

// Thresholds 카테고리별 임계값. nil = 적용 안 함
type Thresholds struct {
	QualityGateCutoff *int     `yaml:"quality_gate_cutoff" json:"quality_gate_cutoff,omitempty"` // nil = 과반수
	PayoutRatioMax    *float64 `yaml:"payout_ratio_max" json:"payout_ratio_max,omitempty"`
	ROEMin            *float64 `yaml:"roe_min" json:"roe_min,omitempty"`
	ROICMin           *float64 `yaml:"roic_min" json:"roic_min,omitempty"`
}

// Banding 밴딩 (히스테리시스) 임계값
type Banding struct {
	BuyThreshold  int `yaml:"buy_threshold" json:"buy_threshold"`
	SellThreshold int `yaml:"sell_threshold" json:"sell_threshold"`
}

// Universe S1 필터 설정
type Universe struct {
	MinMarketCap float64 `yaml:"min_market_cap" json:"min_market_cap"`
}

// Momentum 모멘텀 서브 스코어 설정 (거래일 기준)
type Momentum struct {
	LookbacksDays []int     `yaml:"lookbacks_days" json:"lookbacks_days"`
	Weights       []float64 `yaml:"weights" json:"weights"` // 합 = 1.0
}

// Trending 2단계 선정 비율
type Trending struct {
	PrimaryRetainPct float64 `yaml:"primary_retain_pct" json:"primary_retain_pct"` // 1단계 상위 비율
	MomentumKeepPct  float64 `yaml:"momentum_keep_pct" json:"momentum_keep_pct"`   // 2단계 유지 비율
	MomentumKeepMin  int     `yaml:"momentum_keep_min" json:"momentum_keep_min"`   // 2단계 최소 종목 수
}

// Backtest 시뮬레이션 비용 및 자본
type Backtest struct {
	InitialCapital   float64 `yaml:"initial_capital" json:"initial_capital"`
	TradingCostRate  float64 `yaml:"trading_cost_rate" json:"trading_cost_rate"`
	SlippageRate     float64 `yaml:"slippage_rate" json:"slippage_rate"`
	FractionalShares bool    `yaml:"fractional_shares" json:"fractional_shares"`
	RiskFreeRate     float64 `yaml:"risk_free_rate" json:"risk_free_rate"` // 연율
}

// CostRate returns the combined per-turnover cost rate
func (b Backtest) CostRate() float64 {
	return b.TradingCostRate + b.SlippageRate
}

// Default values
const (
	DefaultPositionCount   = 10
	DefaultBuyThreshold    = 10
	DefaultSellThreshold   = 20
	DefaultMinMarketCap    = 2_000_000_000
	DefaultTradingCostRate = 0.0015
	DefaultSlippageRate    = 0.001
	DefaultInitialCapital  = 1_000_000
)

// defaultMonths 카테고리별 기본 리밸런싱 월
var defaultMonths = map[contracts.Category][]int{
	contracts.CategoryMomentum: {3, 6, 9, 12},
	contracts.CategoryValue:    {1},
	contracts.CategoryDividend: {2},
	contracts.CategoryQuality:  {3},
}

// ApplyDefaults fills zero-valued fields from per-category defaults
func ApplyDefaults(cfg *StrategyConfig) {
	if cfg.Schedule.Kind == "" {
		if cfg.Category == contracts.CategoryMomentum {
			cfg.Schedule.Kind = ScheduleQuarterly
		} else {
			cfg.Schedule.Kind = ScheduleAnnual
		}
	}
	if len(cfg.Schedule.Months) == 0 {
		if months, ok := defaultMonths[cfg.Category]; ok {
			cfg.Schedule.Months = append([]int(nil), months...)
		}
	}
	if cfg.PositionCount == 0 {
		cfg.PositionCount = DefaultPositionCount
	}
	if cfg.Weighting == "" {
		cfg.Weighting = WeightingEqual
	}
	if cfg.Banding.BuyThreshold == 0 {
		cfg.Banding.BuyThreshold = DefaultBuyThreshold
	}
	if cfg.Banding.SellThreshold == 0 {
		cfg.Banding.SellThreshold = DefaultSellThreshold
	}
	if cfg.Universe.MinMarketCap == 0 {
		cfg.Universe.MinMarketCap = DefaultMinMarketCap
	}
	if len(cfg.Momentum.LookbacksDays) == 0 {
		cfg.Momentum.LookbacksDays = []int{63, 126, 252}
		cfg.Momentum.Weights = []float64{0.33, 0.33, 0.34}
	}
	if cfg.Trending.PrimaryRetainPct == 0 {
		cfg.Trending.PrimaryRetainPct = 0.40
	}
	if cfg.Trending.MomentumKeepPct == 0 {
		cfg.Trending.MomentumKeepPct = 0.25
	}
	if cfg.Trending.MomentumKeepMin == 0 {
		cfg.Trending.MomentumKeepMin = 10
	}
	if cfg.Backtest.InitialCapital == 0 {
		cfg.Backtest.InitialCapital = DefaultInitialCapital
	}
	if cfg.Backtest.TradingCostRate == 0 {
		cfg.Backtest.TradingCostRate = DefaultTradingCostRate
	}
	if cfg.Backtest.SlippageRate == 0 {
		cfg.Backtest.SlippageRate = DefaultSlippageRate
	}
}

// Default returns a fully defaulted config for a category
func Default(name string, category contracts.Category) StrategyConfig {
	cfg := StrategyConfig{Name: name, Category: category}
	ApplyDefaults(&cfg)
	return cfg
}
