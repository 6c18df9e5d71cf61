package contracts

import (
	"sort"
	"time"
)

// Category is the factor family a strategy belongs to
type Category string

const (
	CategoryMomentum Category = "momentum"
	CategoryValue    Category = "value"
	CategoryDividend Category = "dividend"
	CategoryQuality  Category = "quality"
)

// IsValid checks if the category is one of the four supported families
func (c Category) IsValid() bool {
	switch c {
	case CategoryMomentum, CategoryValue, CategoryDividend, CategoryQuality:
		return true
	}
	return false
}

// IsMomentumFamily reports whether the strategy is scored by momentum alone.
// 금융 섹터/지주회사 제외 규칙은 이 계열에만 적용
func (c Category) IsMomentumFamily() bool {
	return c == CategoryMomentum
}

// IsTrending reports whether the strategy uses the two-stage factor + momentum selection
func (c Category) IsTrending() bool {
	return c == CategoryValue || c == CategoryDividend || c == CategoryQuality
}

// InstrumentType classifies a listed security
type InstrumentType string

const (
	InstrumentCommon            InstrumentType = "common"
	InstrumentPreference        InstrumentType = "preference"
	InstrumentCertificate       InstrumentType = "certificate"
	InstrumentDepositaryReceipt InstrumentType = "depositary_receipt"
	InstrumentETF               InstrumentType = "etf"
)

// IsOrdinaryShare reports whether the type represents ordinary equity
func (t InstrumentType) IsOrdinaryShare() bool {
	return t == InstrumentCommon || t == InstrumentDepositaryReceipt
}

// UniverseEntry is one listed instrument as supplied by the data collaborator
// ⭐ SSOT: 유니버스 종목 레코드 (엔진은 읽기 전용)
type UniverseEntry struct {
	Ticker    string         `json:"ticker"`
	Name      string         `json:"name"`
	MarketCap *float64       `json:"market_cap,omitempty"` // 통화 정규화된 시가총액, nil = 알 수 없음
	Sector    string         `json:"sector"`
	Type      InstrumentType `json:"type"`
	Market    string         `json:"market"`
	Currency  string         `json:"currency"`
}

// Universe represents the admitted instruments for one date passed from S1 to S2
// ⭐ SSOT: S1 → S2 투자 가능 종목 전달
type Universe struct {
	Date     time.Time         `json:"date"`
	Entries  []UniverseEntry   `json:"entries"`  // 통과 종목 (ticker 오름차순)
	Excluded map[string]string `json:"excluded"` // 제외 종목: 사유
}

// Tickers returns the admitted tickers in ascending order
func (u *Universe) Tickers() []string {
	tickers := make([]string, 0, len(u.Entries))
	for _, e := range u.Entries {
		tickers = append(tickers, e.Ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// Contains checks if a ticker is in the universe
func (u *Universe) Contains(ticker string) bool {
	for _, e := range u.Entries {
		if e.Ticker == ticker {
			return true
		}
	}
	return false
}

// IsExcluded checks if a ticker is excluded with reason
func (u *Universe) IsExcluded(ticker string) (bool, string) {
	reason, exists := u.Excluded[ticker]
	return exists, reason
}

// Count returns the number of admitted instruments
func (u *Universe) Count() int {
	return len(u.Entries)
}

// Float returns a pointer to v, used to build optional fields
func Float(v float64) *float64 {
	return &v
}
