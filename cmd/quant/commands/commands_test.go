package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
)

func TestParsePositions(t *testing.T) {
	positions, err := parsePositions([]string{"B=10", " A = 2.5 "})
	require.NoError(t, err)
	assert.Equal(t, []contracts.Position{{Ticker: "A", Shares: 2.5}, {Ticker: "B", Shares: 10}}, positions)

	tests := []struct {
		name  string
		input []string
	}{
		{"missing separator", []string{"A10"}},
		{"empty ticker", []string{"=10"}},
		{"not a number", []string{"A=ten"}},
		{"negative", []string{"A=-1"}},
		{"duplicate", []string{"A=1", "A=2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePositions(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), d)

	today, err := parseDate("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, today.Location())
	assert.Zero(t, today.Hour())

	_, err = parseDate("29/03/2024")
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567.8, "1,234,568"},
		{-1500000, "-1,500,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}
	assert.Equal(t, "+14.00%", formatPct(0.14))
	assert.Equal(t, "-10.00%", formatPct(-0.1))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"rank", "band", "backtest", "scheduler", "config", "db", "universe"} {
		assert.True(t, names[want], want)
	}

	show, _, err := rootCmd.Find([]string{"rank", "show", "kr_momentum"})
	require.NoError(t, err)
	assert.Equal(t, "show", show.Name())

	rank, _, err := rootCmd.Find([]string{"rank", "kr_momentum"})
	require.NoError(t, err)
	assert.Equal(t, "rank", rank.Name(), "strategy argument is not mistaken for a subcommand")

	seed, _, err := rootCmd.Find([]string{"db", "seed", "seed.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "seed", seed.Name())
}

type fakeLatestStore struct {
	date time.Time
	ok   bool
	err  error
}

func (f fakeLatestStore) LatestRankingDate(context.Context, string) (time.Time, bool, error) {
	return f.date, f.ok, f.err
}

func TestStoredRankingDate(t *testing.T) {
	ctx := context.Background()
	latest := time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC)

	d, err := storedRankingDate(ctx, fakeLatestStore{date: latest, ok: true}, "kr_value", "")
	require.NoError(t, err)
	assert.Equal(t, latest, d)

	d, err = storedRankingDate(ctx, fakeLatestStore{date: latest, ok: true}, "kr_value", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d, "--date wins over the stored date")

	_, err = storedRankingDate(ctx, fakeLatestStore{}, "kr_value", "")
	assert.ErrorContains(t, err, "no stored ranking for kr_value")

	_, err = storedRankingDate(ctx, fakeLatestStore{err: errors.New("down")}, "kr_value", "")
	assert.Error(t, err)
}

func TestExclusionSummary(t *testing.T) {
	got := exclusionSummary(map[string]string{
		"A": "min_market_cap",
		"B": "instrument_type",
		"C": "min_market_cap",
		"D": "financial_sector",
		"E": "instrument_type",
		"F": "min_market_cap",
	})
	assert.Equal(t, []reasonCount{
		{Reason: "min_market_cap", Count: 3},
		{Reason: "instrument_type", Count: 2},
		{Reason: "financial_sector", Count: 1},
	}, got)
	assert.Empty(t, exclusionSummary(nil))
}

func TestHealthLabel(t *testing.T) {
	healthy := contracts.PerformanceMetrics{Sharpe: 1.4, MaxDrawdown: -0.12, WinRate: 0.55}
	assert.Contains(t, healthLabel(&healthy), "OK")

	deep := healthy
	deep.MaxDrawdown = -0.35
	assert.Contains(t, healthLabel(&deep), "CHECK")

	lowSharpe := healthy
	lowSharpe.Sharpe = 0.8
	assert.Contains(t, healthLabel(&lowSharpe), "CHECK")
}
