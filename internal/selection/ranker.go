package selection

import (
	"math"
	"sort"
	"strconv"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/s2_signals"
	"github.com/wonny/factorband/internal/strategyconfig"
	"github.com/wonny/factorband/pkg/logger"
)

// QualityProxyFlag marks results gated by the reduced 0~4 indicator
const QualityProxyFlag = "reduced_fscore_0_4"

// Ranker implements S3: ordering scored instruments and truncating to position count
// ⭐ SSOT: S3 랭킹 로직은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{logger: log}
}

type candidate struct {
	ticker string
	score  float64
	tie    float64 // 2차 정렬 키 (trending: 1차 팩터 점수)
}

// sortCandidates orders by score descending, then tie descending, then ticker ascending
func sortCandidates(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].score != cs[j].score {
			return cs[i].score > cs[j].score
		}
		if cs[i].tie != cs[j].tie {
			return cs[i].tie > cs[j].tie
		}
		return cs[i].ticker < cs[j].ticker
	})
}

// Rank builds the RankingResult for one strategy/date from a SignalSet
func (r *Ranker) Rank(
	cfg *strategyconfig.StrategyConfig,
	universe *contracts.Universe,
	set *s2_signals.SignalSet,
	gate *s2_signals.QualityGate,
) *contracts.RankingResult {
	result := &contracts.RankingResult{
		Strategy: cfg.Name,
		Category: cfg.Category,
		Date:     universe.Date,
		Universe: universe.Tickers(),
		Metadata: map[string]string{},
	}
	result.Warnings = append(result.Warnings, set.Warnings...)

	if universe.Count() == 0 {
		result.Error = &contracts.ResultError{
			Code:    contracts.ReasonEmptyUniverse,
			Date:    universe.Date,
			Message: "no instrument passed the universe filter",
		}
		return r.finish(result, 0)
	}

	var ordered []candidate
	limit := cfg.PositionCount
	if cfg.Category.IsTrending() {
		var keep int
		ordered, keep = r.trending(cfg, result, set)
		if keep < limit {
			limit = keep
		}
	} else {
		ordered = r.momentum(cfg, result, set, gate)
	}

	result.FullRanking = make([]contracts.RankedEntry, len(ordered))
	for i, c := range ordered {
		result.FullRanking[i] = contracts.RankedEntry{
			Ticker: c.ticker,
			Rank:   i + 1,
			Score:  c.score,
			Scores: scoreDetail(c.ticker, set),
		}
	}

	if result.Error == nil && len(result.FullRanking) == 0 {
		code := contracts.ReasonInsufficientHistory
		if cfg.Category.IsTrending() && len(set.Primary) == 0 {
			code = contracts.ReasonInsufficientFundamentals
		}
		result.Error = &contracts.ResultError{
			Code:    code,
			Date:    universe.Date,
			Message: "no admitted instrument could be scored",
		}
	}

	return r.finish(result, limit)
}

// momentum ranks by composite momentum, gated by the quality indicator
func (r *Ranker) momentum(
	cfg *strategyconfig.StrategyConfig,
	result *contracts.RankingResult,
	set *s2_signals.SignalSet,
	gate *s2_signals.QualityGate,
) []candidate {
	var tickers []string
	for _, t := range result.Universe {
		m, ok := set.Momentum[t]
		if !ok {
			continue
		}
		if !m.Confirmed {
			r.logger.WithFields(map[string]interface{}{
				"strategy": cfg.Name,
				"ticker":   t,
			}).Debug("Excluded by momentum confirmation rule")
			continue
		}
		tickers = append(tickers, t)
	}

	result.Metadata["quality_proxy"] = QualityProxyFlag
	result.AddWarning(contracts.ReasonQualityProxy, "", "quality gate uses a reduced 4-point indicator")
	kept, bypassed := gate.Apply(tickers, set.Quality, cfg.Thresholds.QualityGateCutoff)
	if bypassed {
		result.AddWarning(contracts.ReasonQualityGateBypassed, "", "quality gate eliminated every candidate; gate bypassed for this date")
	}

	cs := make([]candidate, 0, len(kept))
	for _, t := range kept {
		cs = append(cs, candidate{ticker: t, score: set.Momentum[t].Composite})
	}
	sortCandidates(cs)
	return cs
}

// trending applies the two-stage primary factor → momentum selection.
// It returns the momentum-ordered retained subset and how many of it may be selected.
func (r *Ranker) trending(
	cfg *strategyconfig.StrategyConfig,
	result *contracts.RankingResult,
	set *s2_signals.SignalSet,
) ([]candidate, int) {
	// 1단계: 1차 팩터 상위 비율 유지
	primary := make([]candidate, 0, len(set.Primary))
	for _, t := range result.Universe {
		if score, ok := set.Primary[t]; ok {
			primary = append(primary, candidate{ticker: t, score: score})
		}
	}
	sortCandidates(primary)
	retain := int(math.Ceil(float64(len(primary)) * cfg.Trending.PrimaryRetainPct))
	if retain > len(primary) {
		retain = len(primary)
	}
	retained := primary[:retain]

	// 2단계: 유지 종목을 모멘텀으로 재정렬
	stage2 := make([]candidate, 0, len(retained))
	for _, c := range retained {
		m, ok := set.Momentum[c.ticker]
		if !ok || !m.Confirmed {
			continue
		}
		stage2 = append(stage2, candidate{ticker: c.ticker, score: m.Composite, tie: c.score})
	}
	sortCandidates(stage2)

	keep := int(math.Ceil(float64(len(retained)) * cfg.Trending.MomentumKeepPct))
	if keep < cfg.Trending.MomentumKeepMin {
		keep = cfg.Trending.MomentumKeepMin
	}
	result.Metadata["primary_scored"] = strconv.Itoa(len(primary))
	result.Metadata["primary_retained"] = strconv.Itoa(retain)
	result.Metadata["momentum_keep"] = strconv.Itoa(keep)

	// 선정 대상은 keep 이내, 전체 순위는 밴딩용으로 유지
	return stage2, keep
}

// finish truncates entries to limit and logs the summary
func (r *Ranker) finish(result *contracts.RankingResult, limit int) *contracts.RankingResult {
	if limit > len(result.FullRanking) {
		limit = len(result.FullRanking)
	}
	result.Entries = append([]contracts.RankedEntry(nil), result.FullRanking[:limit]...)

	fields := map[string]interface{}{
		"strategy": result.Strategy,
		"date":     result.Date.Format("2006-01-02"),
		"universe": len(result.Universe),
		"ranked":   len(result.FullRanking),
		"selected": len(result.Entries),
	}
	if len(result.Entries) > 0 {
		fields["top_ticker"] = result.Entries[0].Ticker
	}
	if result.Error != nil {
		fields["error"] = string(result.Error.Code)
	}
	r.logger.WithFields(fields).Info("Ranking completed")
	return result
}

func scoreDetail(ticker string, set *s2_signals.SignalSet) contracts.ScoreDetail {
	var d contracts.ScoreDetail
	if p, ok := set.Primary[ticker]; ok {
		d.Primary = contracts.Float(p)
	}
	if m, ok := set.Momentum[ticker]; ok {
		d.MomentumComposite = contracts.Float(m.Composite)
		d.MomentumRaw = contracts.Float(m.Raw)
	}
	if q, ok := set.Quality[ticker]; ok && q.Evaluable > 0 {
		v := q.Indicator
		d.QualityIndicator = &v
	}
	return d
}
