package banding

import (
	"sort"
	"time"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// Engine implements S4: hold/sell/buy transitions with buy/sell rank hysteresis
// ⭐ SSOT: S4 밴딩 로직은 여기서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new banding engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Decide evaluates every active holding against ranking and fills vacated slots.
// state is read only; use Apply to record the outcome.
func (e *Engine) Decide(
	cfg *strategyconfig.StrategyConfig,
	ranking *contracts.RankingResult,
	state *contracts.BandingState,
) *contracts.BandingResult {
	result := &contracts.BandingResult{
		Strategy: cfg.Name,
		Date:     ranking.Date,
		Hold:     []contracts.BandingDecision{},
		Sell:     []contracts.BandingDecision{},
		Buy:      []contracts.BandingDecision{},
	}
	result.Warnings = append(result.Warnings, ranking.Warnings...)

	// 유니버스 단위 실패는 해당 날짜 계산 중단 (상태 변경 없음)
	if ranking.Error != nil {
		result.Error = ranking.Error
		e.logger.WithFields(map[string]interface{}{
			"strategy": cfg.Name,
			"date":     ranking.Date.Format("2006-01-02"),
			"reason":   string(ranking.Error.Code),
		}).Warn("Banding skipped")
		return result
	}

	active := state.Active()
	sort.Slice(active, func(i, j int) bool { return active[i].Ticker < active[j].Ticker })

	// 1. 보유 종목: 매도 임계값 이내면 유지
	held := make(map[string]bool, len(active))
	for _, h := range active {
		d := contracts.BandingDecision{Ticker: h.Ticker, PreviousRank: h.CurrentRank}
		rank, ranked := ranking.RankOf(h.Ticker)
		switch {
		case !ranking.InUniverse(h.Ticker):
			d.Action, d.Reason = contracts.ActionSell, contracts.ReasonNotInUniverse
		case !ranked || rank > cfg.Banding.SellThreshold:
			d.Rank = rank
			d.Action, d.Reason = contracts.ActionSell, contracts.ReasonBelowThreshold
		default:
			d.Rank = rank
			d.Action = contracts.ActionHold
			held[h.Ticker] = true
		}
		if d.Action == contracts.ActionSell {
			result.Sell = append(result.Sell, d)
		} else {
			result.Hold = append(result.Hold, d)
		}
	}

	// 포지션 수 축소 시 순위가 낮은 보유 종목부터 매도
	if len(result.Hold) > cfg.PositionCount {
		sort.SliceStable(result.Hold, func(i, j int) bool { return result.Hold[i].Rank < result.Hold[j].Rank })
		for _, d := range result.Hold[cfg.PositionCount:] {
			d.Action, d.Reason = contracts.ActionSell, contracts.ReasonBelowThreshold
			result.Sell = append(result.Sell, d)
			delete(held, d.Ticker)
		}
		result.Hold = result.Hold[:cfg.PositionCount]
	}

	// 2. 빈 슬롯: 매수 임계값 이내 미보유 종목을 순위 순으로 편입
	slots := cfg.PositionCount - len(result.Hold)
	for _, entry := range ranking.FullRanking {
		if slots == 0 || entry.Rank > cfg.Banding.BuyThreshold {
			break
		}
		if held[entry.Ticker] {
			continue
		}
		result.Buy = append(result.Buy, contracts.BandingDecision{
			Ticker: entry.Ticker,
			Action: contracts.ActionBuy,
			Rank:   entry.Rank,
		})
		slots--
	}

	e.logger.WithFields(map[string]interface{}{
		"strategy": cfg.Name,
		"date":     ranking.Date.Format("2006-01-02"),
		"hold":     len(result.Hold),
		"sell":     len(result.Sell),
		"buy":      len(result.Buy),
	}).Info("Banding completed")

	return result
}

// Apply records decisions into state in place and returns the holdings that changed
func Apply(state *contracts.BandingState, result *contracts.BandingResult, date time.Time) []*contracts.Holding {
	if result.Error != nil {
		return nil
	}
	changed := make([]*contracts.Holding, 0, len(result.Hold)+len(result.Sell)+len(result.Buy))

	for _, d := range result.Hold {
		if h, ok := state.ActiveTicker(d.Ticker); ok {
			h.CurrentRank = d.Rank
			h.LastUpdated = date
			changed = append(changed, h)
		}
	}

	for _, d := range result.Sell {
		if h, ok := state.ActiveTicker(d.Ticker); ok {
			exitRank := d.Rank
			exitDate := date
			h.Active = false
			h.CurrentRank = d.Rank
			h.LastUpdated = date
			h.ExitRank = &exitRank
			h.ExitDate = &exitDate
			changed = append(changed, h)
		}
	}

	for _, d := range result.Buy {
		h := &contracts.Holding{
			Ticker:      d.Ticker,
			EntryRank:   d.Rank,
			EntryDate:   date,
			CurrentRank: d.Rank,
			LastUpdated: date,
			Active:      true,
		}
		state.Holdings = append(state.Holdings, h)
		changed = append(changed, h)
	}

	return changed
}
