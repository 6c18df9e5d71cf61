package contracts

import "time"

// PerformanceMetrics represents the return/risk reduction of an equity curve
// ⭐ SSOT: S6 성과 분석 결과
type PerformanceMetrics struct {
	TotalReturn float64 `json:"total_return"` // final/initial - 1
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"max_drawdown"` // -1.0 ~ 0.0
	Volatility  float64 `json:"volatility"`   // 연환산
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	WinRate     float64 `json:"win_rate"` // 양수 수익률 기간 비율
	VaR95       float64 `json:"var_95"`   // 과거 시뮬레이션, 손실을 양수로
	CVaR95      float64 `json:"cvar_95"`  // VaR 이하 tail 평균 손실
	Periods     int     `json:"periods"`
}

// IsHealthy checks if the strategy has healthy risk metrics
func (m *PerformanceMetrics) IsHealthy() bool {
	return m.Sharpe > 1.0 && m.MaxDrawdown > -0.30 && m.WinRate > 0.50
}

// EquityPoint is one value of the simulated portfolio
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PeriodReturn is a simple return over one period ending at Date
type PeriodReturn struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// Trade is a realized simulated fill
type Trade struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Action Action    `json:"action"`
	Shares float64   `json:"shares"`
	Price  float64   `json:"price"`
	Value  float64   `json:"value"`
}

// RebalanceRecord documents one rebalance in a backtest
type RebalanceRecord struct {
	Date      time.Time `json:"date"`
	Selected  []string  `json:"selected"`
	Turnover  float64   `json:"turnover"`
	Cost      float64   `json:"cost"`
	ValueFrom float64   `json:"value_from"` // 비용 차감 전
	ValueTo   float64   `json:"value_to"`   // 비용 차감 후
}

// DateError reports a date whose computation was aborted
type DateError struct {
	Date    time.Time  `json:"date"`
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

// BacktestRun is the write-once record of one simulation
// ⭐ SSOT: S5 백테스트 결과
type BacktestRun struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	ConfigHash string    `json:"config_hash"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`

	InitialCapital float64 `json:"initial_capital"`
	FinalValue     float64 `json:"final_value"`

	EquityCurve     []EquityPoint     `json:"equity_curve"`
	DailyReturns    []PeriodReturn    `json:"daily_returns"`
	MonthlyReturns  []PeriodReturn    `json:"monthly_returns"`
	Trades          []Trade           `json:"trades"`
	Rebalances      []RebalanceRecord `json:"rebalances"`
	TransactionCost float64           `json:"transaction_cost"`

	Metrics    PerformanceMetrics `json:"metrics"`
	Warnings   []Warning          `json:"warnings,omitempty"`
	DateErrors []DateError        `json:"date_errors,omitempty"`
}
