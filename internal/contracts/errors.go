package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ReasonCode identifies why a result is partial, empty, or annotated
type ReasonCode string

const (
	ReasonInsufficientHistory      ReasonCode = "insufficient_history"
	ReasonInsufficientFundamentals ReasonCode = "insufficient_fundamentals"
	ReasonEmptyUniverse            ReasonCode = "empty_universe"
	ReasonNoTradingDates           ReasonCode = "no_trading_dates"
	ReasonNotInUniverse            ReasonCode = "not_in_universe"
	ReasonBelowThreshold           ReasonCode = "below_threshold"
	ReasonLookAheadBias            ReasonCode = "look_ahead_bias"
	ReasonSurvivorshipBias         ReasonCode = "survivorship_bias"
	ReasonForwardFilled            ReasonCode = "forward_filled"
	ReasonQualityGateBypassed      ReasonCode = "quality_gate_bypassed"
	ReasonQualityProxy             ReasonCode = "quality_proxy"
	ReasonMissingPrice             ReasonCode = "missing_price"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrNoTradingDates  = errors.New("no trading dates in range")
	ErrEmptyUniverse   = errors.New("universe empty at every rebalance date")
)

// ConfigurationError fails a computation before it starts
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// InsufficientDataError aborts a whole computation that has nothing to work with
type InsufficientDataError struct {
	Reason ReasonCode
	Date   time.Time
	Detail string
	Err    error
}

func (e *InsufficientDataError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("insufficient data (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("insufficient data (%s) on %s: %s", e.Reason, e.Date.Format("2006-01-02"), e.Detail)
}

func (e *InsufficientDataError) Unwrap() error {
	return e.Err
}

// ResultError is the explicit error payload attached to a partial or empty result
type ResultError struct {
	Code    ReasonCode `json:"code"`
	Date    time.Time  `json:"date"`
	Message string     `json:"message"`
}

// Warning annotates a result that is complete but carries a caveat
type Warning struct {
	Code    ReasonCode `json:"code"`
	Ticker  string     `json:"ticker,omitempty"`
	Message string     `json:"message"`
}
