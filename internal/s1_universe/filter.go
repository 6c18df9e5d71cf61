package s1_universe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wonny/factorband/internal/contracts"
)

// 지주회사/투자회사/SPAC 판별 패턴 (종목명 또는 티커)
var holdingPattern = regexp.MustCompile(`(?i)(holdings?\b|holding co|지주|홀딩스|investment (co|corp|trust|company)|투자회사|\bcapital\b|스팩|\bSPAC\b|제\d+호$)`)

// DefaultFinancialSectorKeywords 금융 섹터 판별 키워드 (소문자 부분 일치)
var DefaultFinancialSectorKeywords = []string{
	"bank", "insur", "financ", "asset manage", "capital market", "holding",
	"은행", "보험", "증권", "금융", "지주", "자산운용",
}

// Exclusion reasons
const (
	ExcludeInstrumentType   = "instrument_type"
	ExcludeMarketCapUnknown = "market_cap_unknown"
	ExcludeMarketCapFloor   = "market_cap_below_floor"
	ExcludeFinancialSector  = "financial_sector"
	ExcludeHoldingVehicle   = "holding_vehicle"
)

// Config holds universe filter criteria
type Config struct {
	MinMarketCap     float64  `yaml:"min_market_cap"`    // 통화 정규화 기준
	FinancialSectors []string `yaml:"financial_sectors"` // nil = DefaultFinancialSectorKeywords
}

// Filter admits only eligible instruments
// ⭐ SSOT: S1 유니버스 필터 (순수 함수, 부작용 없음)
type Filter struct {
	config Config
}

// NewFilter creates a new universe Filter
func NewFilter(config Config) *Filter {
	if config.FinancialSectors == nil {
		config.FinancialSectors = DefaultFinancialSectorKeywords
	}
	return &Filter{config: config}
}

// Apply returns the admissible subset of entries for date.
// Empty input yields an empty universe, never an error.
func (f *Filter) Apply(date time.Time, category contracts.Category, entries []contracts.UniverseEntry) *contracts.Universe {
	universe := &contracts.Universe{
		Date:     date,
		Entries:  make([]contracts.UniverseEntry, 0, len(entries)),
		Excluded: make(map[string]string),
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Ticker] {
			continue // 첫 레코드만 사용
		}
		seen[e.Ticker] = true

		if reason := f.checkExclusion(e, category); reason != "" {
			universe.Excluded[e.Ticker] = reason
			continue
		}
		universe.Entries = append(universe.Entries, e)
	}

	sort.Slice(universe.Entries, func(i, j int) bool {
		return universe.Entries[i].Ticker < universe.Entries[j].Ticker
	})
	return universe
}

// checkExclusion checks if an instrument should be excluded and returns the reason
func (f *Filter) checkExclusion(e contracts.UniverseEntry, category contracts.Category) string {
	// 우선순위 순서로 체크

	// 1. 보통주/DR 외 제외 (우선주, 증서, ETF)
	if !e.Type.IsOrdinaryShare() {
		return fmt.Sprintf("%s (%s)", ExcludeInstrumentType, e.Type)
	}

	// 2. 시가총액 미달 (알 수 없음 포함)
	if e.MarketCap == nil {
		return ExcludeMarketCapUnknown
	}
	if *e.MarketCap < f.config.MinMarketCap {
		return ExcludeMarketCapFloor
	}

	// 3. 모멘텀 계열 전용: 금융 섹터, 지주/투자회사
	if category.IsMomentumFamily() {
		if f.isFinancialSector(e.Sector) {
			return fmt.Sprintf("%s (%s)", ExcludeFinancialSector, e.Sector)
		}
		if IsHoldingVehicle(e.Ticker, e.Name) {
			return ExcludeHoldingVehicle
		}
	}

	return "" // 통과
}

func (f *Filter) isFinancialSector(sector string) bool {
	s := strings.ToLower(sector)
	if s == "" {
		return false
	}
	for _, kw := range f.config.FinancialSectors {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// IsHoldingVehicle checks if the identifier or legal name indicates a holding or investment vehicle
func IsHoldingVehicle(ticker, name string) bool {
	return holdingPattern.MatchString(name) || holdingPattern.MatchString(ticker)
}
