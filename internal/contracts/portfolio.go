package contracts

import "time"

// Action represents the banding decision for one ticker
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Holding is one row of a strategy's banding memory
// ⭐ SSOT: 밴딩 상태 레코드 (재시작 시 복구해야 하는 유일한 상태)
type Holding struct {
	Ticker      string     `json:"ticker"`
	EntryRank   int        `json:"entry_rank"`
	EntryDate   time.Time  `json:"entry_date"`
	CurrentRank int        `json:"current_rank"` // 0 = 현재 랭킹에 없음
	LastUpdated time.Time  `json:"last_updated"`
	Active      bool       `json:"active"`
	ExitRank    *int       `json:"exit_rank,omitempty"`
	ExitDate    *time.Time `json:"exit_date,omitempty"`
}

// BandingState is the per-strategy set of holdings, mutated in place each recalculation
type BandingState struct {
	Strategy string     `json:"strategy"`
	Holdings []*Holding `json:"holdings"`
}

// Active returns active holdings in stored order
func (s *BandingState) Active() []*Holding {
	active := make([]*Holding, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		if h.Active {
			active = append(active, h)
		}
	}
	return active
}

// ActiveTicker finds the active holding for ticker
func (s *BandingState) ActiveTicker(ticker string) (*Holding, bool) {
	for _, h := range s.Holdings {
		if h.Active && h.Ticker == ticker {
			return h, true
		}
	}
	return nil, false
}

// RecentlyExited reports whether ticker has a closed holding and no active one
func (s *BandingState) RecentlyExited(ticker string) bool {
	if _, ok := s.ActiveTicker(ticker); ok {
		return false
	}
	for _, h := range s.Holdings {
		if h.Ticker == ticker && !h.Active {
			return true
		}
	}
	return false
}

// Position is a caller-supplied current holding with share count
type Position struct {
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
}

// BandingDecision is one ticker's transition
type BandingDecision struct {
	Ticker       string     `json:"ticker"`
	Action       Action     `json:"action"`
	Rank         int        `json:"rank"` // 0 = 랭킹 없음
	Reason       ReasonCode `json:"reason,omitempty"`
	PreviousRank int        `json:"previous_rank,omitempty"`
}

// TradeSize is the share-level sizing for one instrument
type TradeSize struct {
	Ticker         string  `json:"ticker"`
	Action         Action  `json:"action"`
	Price          float64 `json:"price"`
	CurrentShares  float64 `json:"current_shares"`
	ShareDelta     float64 `json:"share_delta"` // +매수 / -매도 / 0 유지
	TargetWeight   float64 `json:"target_weight"`
	RealizedWeight float64 `json:"realized_weight"`
	Deviation      float64 `json:"deviation"` // realized - target
}

// BandingResult is the output of compute_banding
// ⭐ SSOT: S4 밴딩 결과 전달
type BandingResult struct {
	Strategy     string            `json:"strategy"`
	Date         time.Time         `json:"date"`
	Hold         []BandingDecision `json:"hold"`
	Sell         []BandingDecision `json:"sell"`
	Buy          []BandingDecision `json:"buy"`
	Trades       []TradeSize       `json:"trades"`
	ResidualCash float64           `json:"residual_cash"`
	Warnings     []Warning         `json:"warnings,omitempty"`
	Error        *ResultError      `json:"error,omitempty"`
}

// HeldAfter returns the number of positions held after applying the decisions
func (r *BandingResult) HeldAfter() int {
	return len(r.Hold) + len(r.Buy)
}
