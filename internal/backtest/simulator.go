package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/pkg/logger"
)

// Simulator holds the simulated portfolio between rebalances
// ⭐ SSOT: 백테스팅 시뮬레이션은 여기서만
type Simulator struct {
	costRate   float64 // 거래비용 + 슬리피지
	fractional bool
	logger     *logger.Logger

	// Current state
	cash      float64
	positions map[string]*Position
	trades    []contracts.Trade

	// Statistics
	totalCost float64
	filled    map[string]bool // forward-fill 경고는 종목당 1회
}

// Position represents a simulated holding
type Position struct {
	Ticker    string
	Shares    float64
	LastPrice float64
	LastDate  time.Time
}

// NewSimulator creates a new portfolio simulator
func NewSimulator(costRate float64, fractional bool, log *logger.Logger) *Simulator {
	return &Simulator{
		costRate:   costRate,
		fractional: fractional,
		logger:     log,
		positions:  make(map[string]*Position),
		filled:     make(map[string]bool),
	}
}

// Initialize resets the simulator with initial capital
func (s *Simulator) Initialize(capital float64) {
	s.cash = capital
	s.positions = make(map[string]*Position)
	s.trades = nil
	s.totalCost = 0
	s.filled = make(map[string]bool)
}

// Holdings returns the held tickers in ascending order
func (s *Simulator) Holdings() []string {
	out := make([]string, 0, len(s.positions))
	for t := range s.positions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Mark revalues positions at date's closes.
// A missing close keeps the last known price and raises one forward_filled warning per ticker.
func (s *Simulator) Mark(date time.Time, seg *Segment) []contracts.Warning {
	var warnings []contracts.Warning
	for _, t := range s.Holdings() {
		pos := s.positions[t]
		if px, ok := seg.Close(t, date); ok {
			pos.LastPrice = px
			pos.LastDate = date
			continue
		}
		if !pos.LastDate.Before(date) || s.filled[t] {
			continue
		}
		s.filled[t] = true
		warnings = append(warnings, contracts.Warning{
			Code:    contracts.ReasonForwardFilled,
			Ticker:  t,
			Message: "price gap filled with last known close from " + pos.LastDate.Format("2006-01-02"),
		})
	}
	return warnings
}

// Equity returns cash plus positions at their last marked price.
// Positions are summed in ticker order so repeated runs agree bit for bit.
func (s *Simulator) Equity() float64 {
	total := s.cash
	for _, t := range s.Holdings() {
		pos := s.positions[t]
		total += pos.Shares * pos.LastPrice
	}
	return total
}

// Cash returns uninvested cash
func (s *Simulator) Cash() float64 {
	return s.cash
}

// TotalCost returns transaction cost charged so far
func (s *Simulator) TotalCost() float64 {
	return s.totalCost
}

// Trades returns realized simulated fills in execution order
func (s *Simulator) Trades() []contracts.Trade {
	return s.trades
}

// Rebalance moves the portfolio to equal weights over prices' tickers.
// Cost = turnover × value × cost rate, charged before reallocation. Turnover compares
// equal-weight targets, so price drift since the last rebalance is not charged.
func (s *Simulator) Rebalance(date time.Time, prices map[string]float64) contracts.RebalanceRecord {
	selected := make([]string, 0, len(prices))
	for t := range prices {
		selected = append(selected, t)
	}
	sort.Strings(selected)

	value := s.Equity()
	record := contracts.RebalanceRecord{Date: date, Selected: selected, ValueFrom: value}
	if value <= 0 || len(selected) == 0 {
		record.ValueTo = value
		return record
	}

	turnover := Turnover(s.Holdings(), selected)

	cost := turnover * value * s.costRate
	post := value - cost
	perName := post / float64(len(selected))

	next := make(map[string]*Position, len(selected))
	invested := 0.0
	for _, t := range selected {
		px := prices[t]
		shares := perName / px
		if !s.fractional {
			shares = math.Floor(shares)
		}
		next[t] = &Position{Ticker: t, Shares: shares, LastPrice: px, LastDate: date}
		invested += shares * px
	}

	// 매도 먼저, 그 다음 매수 (종목 오름차순)
	for _, t := range s.Holdings() {
		pos := s.positions[t]
		delta := -pos.Shares
		if n, ok := next[t]; ok {
			delta = n.Shares - pos.Shares
		}
		if delta < 0 {
			s.record(date, t, contracts.ActionSell, -delta, pos.LastPrice)
		}
	}
	for _, t := range selected {
		delta := next[t].Shares
		if pos, ok := s.positions[t]; ok {
			delta -= pos.Shares
		}
		if delta > 0 {
			s.record(date, t, contracts.ActionBuy, delta, prices[t])
		}
	}

	s.positions = next
	s.cash = post - invested
	s.totalCost += cost

	record.Turnover = turnover
	record.Cost = cost
	record.ValueTo = post

	s.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"selected": len(selected),
		"turnover": turnover,
		"cost":     cost,
		"cash":     s.cash,
	}).Debug("Rebalanced")

	return record
}

// Turnover is Σ|w_new − w_old| between the old and new equal-weight targets.
// Moving from cash (no old selection) is a turnover of 1; keeping the same names is 0.
func Turnover(old, selected []string) float64 {
	w := make(map[string]float64, len(old)+len(selected))
	for _, t := range old {
		w[t] -= 1 / float64(len(old))
	}
	for _, t := range selected {
		w[t] += 1 / float64(len(selected))
	}

	names := make([]string, 0, len(w))
	for t := range w {
		names = append(names, t)
	}
	sort.Strings(names)

	turnover := 0.0
	for _, t := range names {
		turnover += math.Abs(w[t])
	}
	return turnover
}

func (s *Simulator) record(date time.Time, ticker string, action contracts.Action, shares, price float64) {
	s.trades = append(s.trades, contracts.Trade{
		Date:   date,
		Ticker: ticker,
		Action: action,
		Shares: shares,
		Price:  price,
		Value:  shares * price,
	})
}
