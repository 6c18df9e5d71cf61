package contracts

import (
	"fmt"
	"time"
)

// FundamentalSnapshot holds point-in-time factor inputs for one ticker on one date.
// Every metric is optional: nil means unknown, never zero.
// ⭐ SSOT: 재무 스냅샷 (ticker, date) 단위로 불변
type FundamentalSnapshot struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`

	// 밸류에이션 배수
	PE       *float64 `json:"pe,omitempty"`
	PB       *float64 `json:"pb,omitempty"`
	PS       *float64 `json:"ps,omitempty"`
	PFCF     *float64 `json:"pfcf,omitempty"`
	EVEBITDA *float64 `json:"ev_ebitda,omitempty"`

	// 수익성
	ROE    *float64 `json:"roe,omitempty"`
	ROA    *float64 `json:"roa,omitempty"`
	ROIC   *float64 `json:"roic,omitempty"`
	FCFROE *float64 `json:"fcfroe,omitempty"` // free cash flow to equity

	// 배당
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	PayoutRatio   *float64 `json:"payout_ratio,omitempty"`

	// 소스가 제공하는 누적 수익률 (%)
	Return1M  *float64 `json:"return_1m,omitempty"`
	Return3M  *float64 `json:"return_3m,omitempty"`
	Return6M  *float64 `json:"return_6m,omitempty"`
	Return12M *float64 `json:"return_12m,omitempty"`
}

// PricePoint is one closing price observation
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a time-ordered close series for one ticker
// ⭐ SSOT: 가격 시계열 (날짜 엄격 증가)
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Validate checks that dates are strictly increasing
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("price series %s: date %s not after %s",
				s.Ticker,
				s.Points[i].Date.Format("2006-01-02"),
				s.Points[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Until returns the prefix of the series dated on or before date.
// The returned series shares the underlying array.
func (s PriceSeries) Until(date time.Time) PriceSeries {
	n := len(s.Points)
	for n > 0 && s.Points[n-1].Date.After(date) {
		n--
	}
	return PriceSeries{Ticker: s.Ticker, Points: s.Points[:n]}
}

// CloseOnOrBefore returns the last close dated on or before date
func (s PriceSeries) CloseOnOrBefore(date time.Time) (PricePoint, bool) {
	prefix := s.Until(date)
	if len(prefix.Points) == 0 {
		return PricePoint{}, false
	}
	return prefix.Points[len(prefix.Points)-1], true
}

// Last returns the most recent observation
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// DateRange is an inclusive calendar range
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains checks if date falls inside the range
func (r DateRange) Contains(date time.Time) bool {
	return !date.Before(r.From) && !date.After(r.To)
}
