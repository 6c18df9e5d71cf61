package s1_universe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
)

func entry(ticker, name, sector string, typ contracts.InstrumentType, cap *float64) contracts.UniverseEntry {
	return contracts.UniverseEntry{
		Ticker:    ticker,
		Name:      name,
		MarketCap: cap,
		Sector:    sector,
		Type:      typ,
		Market:    "KOSPI",
		Currency:  "KRW",
	}
}

func TestFilter_Apply(t *testing.T) {
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	big := contracts.Float(5e9)
	small := contracts.Float(1e9)

	entries := []contracts.UniverseEntry{
		entry("ZZZ", "Zeta Motors", "Automobiles", contracts.InstrumentCommon, big),
		entry("AAA", "Alpha Semis", "Semiconductors", contracts.InstrumentCommon, big),
		entry("DRX", "Delta ADR", "Software", contracts.InstrumentDepositaryReceipt, big),
		entry("PRF", "Alpha Semis Pref", "Semiconductors", contracts.InstrumentPreference, big),
		entry("CRT", "Gold Certificate", "Materials", contracts.InstrumentCertificate, big),
		entry("ETF", "Index ETF", "", contracts.InstrumentETF, big),
		entry("SML", "Tiny Co", "Software", contracts.InstrumentCommon, small),
		entry("UNK", "Unknown Cap", "Software", contracts.InstrumentCommon, nil),
		entry("BNK", "First Bank", "Banks", contracts.InstrumentCommon, big),
		entry("HLD", "Omega Holdings", "Industrials", contracts.InstrumentCommon, big),
		entry("SPC", "미래에셋스팩5호", "Industrials", contracts.InstrumentCommon, big),
		entry("AAA", "Alpha Semis dup", "Semiconductors", contracts.InstrumentCommon, big),
	}

	f := NewFilter(Config{MinMarketCap: 2e9})

	t.Run("momentum excludes financials and holding vehicles", func(t *testing.T) {
		u := f.Apply(date, contracts.CategoryMomentum, entries)

		assert.Equal(t, date, u.Date)
		assert.Equal(t, []string{"AAA", "DRX", "ZZZ"}, u.Tickers())
		assert.Equal(t, "AAA", u.Entries[0].Ticker, "entries sorted by ticker")

		expected := map[string]string{
			"PRF": ExcludeInstrumentType,
			"CRT": ExcludeInstrumentType,
			"ETF": ExcludeInstrumentType,
			"SML": ExcludeMarketCapFloor,
			"UNK": ExcludeMarketCapUnknown,
			"BNK": ExcludeFinancialSector,
			"HLD": ExcludeHoldingVehicle,
			"SPC": ExcludeHoldingVehicle,
		}
		for ticker, prefix := range expected {
			excluded, reason := u.IsExcluded(ticker)
			require.True(t, excluded, ticker)
			assert.True(t, strings.HasPrefix(reason, prefix), "%s: %s", ticker, reason)
		}
	})

	t.Run("value keeps financials", func(t *testing.T) {
		u := f.Apply(date, contracts.CategoryValue, entries)
		assert.Equal(t, []string{"AAA", "BNK", "DRX", "HLD", "SPC", "ZZZ"}, u.Tickers())
	})

	t.Run("empty input", func(t *testing.T) {
		u := f.Apply(date, contracts.CategoryMomentum, nil)
		require.NotNil(t, u)
		assert.Equal(t, 0, u.Count())
		assert.Empty(t, u.Excluded)
	})

	t.Run("pure function", func(t *testing.T) {
		a := f.Apply(date, contracts.CategoryMomentum, entries)
		b := f.Apply(date, contracts.CategoryMomentum, entries)
		assert.Equal(t, a, b)
	})
}

func TestIsHoldingVehicle(t *testing.T) {
	tests := []struct {
		ticker string
		name   string
		want   bool
	}{
		{"003550", "LG", false},
		{"HOLD", "SK Holdings", true},
		{"X1", "삼성물산", false},
		{"X2", "한진칼지주", true},
		{"X3", "Aerospace Dynamics", false},
		{"X4", "Blue SPAC Corp", true},
		{"X5", "Korea Investment Corp", true},
		{"X6", "하나금융제12호", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHoldingVehicle(tt.ticker, tt.name))
		})
	}
}
