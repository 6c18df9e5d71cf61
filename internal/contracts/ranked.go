package contracts

import "time"

// RankedEntry is one instrument's position in a strategy ranking
type RankedEntry struct {
	Ticker string      `json:"ticker"`
	Rank   int         `json:"rank"`  // 1-based ranking
	Score  float64     `json:"score"` // 정렬 기준 점수 (높을수록 우수)
	Scores ScoreDetail `json:"scores"`
}

// ScoreDetail contains the breakdown behind a ranking score.
// nil fields were not computed or not available for the instrument.
type ScoreDetail struct {
	Primary           *float64 `json:"primary,omitempty"`            // 팩터 순위 평균 (0~1)
	MomentumComposite *float64 `json:"momentum_composite,omitempty"` // 횡단면 표준화 합성
	MomentumRaw       *float64 `json:"momentum_raw,omitempty"`       // 가중 단순 수익률
	QualityIndicator  *int     `json:"quality_indicator,omitempty"`  // 0~4
}

// RankingResult represents a strategy ranking for one calculation date passed from S3 to S4
// ⭐ SSOT: S3 → S4 랭킹 결과 전달
type RankingResult struct {
	Strategy string    `json:"strategy"`
	Category Category  `json:"category"`
	Date     time.Time `json:"date"`

	// Entries is the top position_count, ranks 1..k
	Entries []RankedEntry `json:"entries"`

	// FullRanking orders every instrument that survived gating; banding reads ranks from here
	FullRanking []RankedEntry `json:"full_ranking"`

	// Universe lists every admitted ticker, ranked or not
	Universe []string `json:"universe"`

	Warnings []Warning         `json:"warnings,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Error    *ResultError      `json:"error,omitempty"`
}

// IsEmpty reports whether no instrument was ranked
func (r *RankingResult) IsEmpty() bool {
	return len(r.Entries) == 0
}

// Tickers returns the selected tickers in rank order
func (r *RankingResult) Tickers() []string {
	tickers := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		tickers[i] = e.Ticker
	}
	return tickers
}

// RankOf returns the ticker's rank in the full ranking
func (r *RankingResult) RankOf(ticker string) (int, bool) {
	for _, e := range r.FullRanking {
		if e.Ticker == ticker {
			return e.Rank, true
		}
	}
	return 0, false
}

// InUniverse checks whether the ticker was admitted on this date
func (r *RankingResult) InUniverse(ticker string) bool {
	for _, t := range r.Universe {
		if t == ticker {
			return true
		}
	}
	return false
}

// AddWarning appends a warning to the result
func (r *RankingResult) AddWarning(code ReasonCode, ticker, message string) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Ticker: ticker, Message: message})
}
