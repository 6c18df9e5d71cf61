package strategyconfig

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/factorband/internal/contracts"
)

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

func invalid(field, message string) error {
	return &contracts.ConfigurationError{Field: field, Message: message}
}

// Validate checks all required constraints
// 실패 시 *contracts.ConfigurationError 반환 (계산 시작 전 중단)
func Validate(cfg *StrategyConfig) error {
	if cfg.Name == "" {
		return invalid("name", "required")
	}
	if !cfg.Category.IsValid() {
		return invalid("category", fmt.Sprintf("unknown category %q", cfg.Category))
	}

	// === Schedule ===
	if len(cfg.Schedule.Months) == 0 {
		return invalid("schedule.months", "required")
	}
	seen := make(map[int]bool, len(cfg.Schedule.Months))
	for i, m := range cfg.Schedule.Months {
		if m < 1 || m > 12 {
			return invalid(fmt.Sprintf("schedule.months[%d]", i), "must be in [1, 12]")
		}
		if seen[m] {
			return invalid(fmt.Sprintf("schedule.months[%d]", i), "duplicate month")
		}
		seen[m] = true
	}
	switch cfg.Schedule.Kind {
	case ScheduleQuarterly:
		if len(cfg.Schedule.Months) != 4 {
			return invalid("schedule.months", "quarterly schedule needs exactly 4 months")
		}
	case ScheduleAnnual:
		if len(cfg.Schedule.Months) != 1 {
			return invalid("schedule.months", "annual schedule needs exactly 1 month")
		}
	default:
		return invalid("schedule.kind", "must be quarterly or annual")
	}

	// === Portfolio ===
	if cfg.PositionCount <= 0 {
		return invalid("position_count", "must be > 0")
	}
	if cfg.Weighting != WeightingEqual {
		return invalid("weighting", "only equal weighting is supported")
	}

	// === Banding ===
	if cfg.Banding.BuyThreshold <= 0 {
		return invalid("banding.buy_threshold", "must be > 0")
	}
	if cfg.Banding.BuyThreshold > cfg.Banding.SellThreshold {
		return invalid("banding", "buy_threshold must be <= sell_threshold")
	}

	// === Thresholds ===
	if c := cfg.Thresholds.QualityGateCutoff; c != nil && (*c < 0 || *c > 4) {
		return invalid("thresholds.quality_gate_cutoff", "must be in [0, 4]")
	}
	if p := cfg.Thresholds.PayoutRatioMax; p != nil && *p <= 0 {
		return invalid("thresholds.payout_ratio_max", "must be > 0")
	}

	// === Universe ===
	if cfg.Universe.MinMarketCap < 0 {
		return invalid("universe.min_market_cap", "must be >= 0")
	}

	// === Momentum ===
	if len(cfg.Momentum.LookbacksDays) != len(cfg.Momentum.Weights) {
		return invalid("momentum", "lookbacks_days length must match weights length")
	}
	for i, d := range cfg.Momentum.LookbacksDays {
		if d <= 0 {
			return invalid(fmt.Sprintf("momentum.lookbacks_days[%d]", i), "must be > 0")
		}
	}
	if err := validateWeightsSum(cfg.Momentum.Weights, 1.0, 1e-6); err != nil {
		return invalid("momentum.weights", err.Error())
	}

	// === Trending ===
	if err := validatePctRange(cfg.Trending.PrimaryRetainPct, "trending.primary_retain_pct"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.Trending.MomentumKeepPct, "trending.momentum_keep_pct"); err != nil {
		return err
	}
	if cfg.Trending.MomentumKeepMin < 0 {
		return invalid("trending.momentum_keep_min", "must be >= 0")
	}

	// === Backtest ===
	if cfg.Backtest.InitialCapital <= 0 {
		return invalid("backtest.initial_capital", "must be > 0")
	}
	if cfg.Backtest.TradingCostRate < 0 {
		return invalid("backtest.trading_cost_rate", "must be >= 0")
	}
	if cfg.Backtest.SlippageRate < 0 {
		return invalid("backtest.slippage_rate", "must be >= 0")
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *StrategyConfig) []Warning {
	var warnings []Warning

	// 매수/매도 임계값이 같으면 밴딩 효과 없음
	if cfg.Banding.BuyThreshold == cfg.Banding.SellThreshold {
		warnings = append(warnings, Warning{
			Code:    "NO_HYSTERESIS",
			Message: "buy_threshold == sell_threshold: 경계 종목 반복 매매 가능",
		})
	}

	// 매수 임계값 < 보유 종목 수: 빈 슬롯이 남을 수 있음
	if cfg.Banding.BuyThreshold < cfg.PositionCount {
		warnings = append(warnings, Warning{
			Code:    "UNDERFILLED_SLOTS",
			Message: "buy_threshold < position_count: 포트폴리오가 다 채워지지 않을 수 있음",
		})
	}

	// 과도한 비용 가정
	if cfg.Backtest.CostRate() > 0.01 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_COST",
			Message: "거래비용 + 슬리피지 > 1%: 리밸런싱 비용 과대",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}

// validatePctRange는 비율 값이 (0, 1] 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct <= 0 || pct > 1 {
		return invalid(field, "must be in range (0, 1]")
	}
	return nil
}
