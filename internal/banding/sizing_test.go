package banding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/internal/contracts"
)

func decisions() *contracts.BandingResult {
	return &contracts.BandingResult{
		Hold: []contracts.BandingDecision{{Ticker: "X", Action: contracts.ActionHold, Rank: 4}},
		Sell: []contracts.BandingDecision{{Ticker: "Y", Action: contracts.ActionSell, Rank: 25, Reason: contracts.ReasonBelowThreshold}},
		Buy: []contracts.BandingDecision{
			{Ticker: "A", Action: contracts.ActionBuy, Rank: 1},
			{Ticker: "B", Action: contracts.ActionBuy, Rank: 2},
		},
	}
}

func TestSizeTrades_WholeShares(t *testing.T) {
	result := decisions()
	SizeTrades(result, SizingInput{
		PositionCount: 3,
		NewCash:       1000,
		Positions:     []contracts.Position{{Ticker: "X", Shares: 10}, {Ticker: "Y", Shares: 5}},
		Prices:        map[string]float64{"X": 100, "Y": 20, "A": 30, "B": 70},
	})

	require.Len(t, result.Trades, 4)
	byTicker := map[string]contracts.TradeSize{}
	for _, tr := range result.Trades {
		byTicker[tr.Ticker] = tr
	}
	assert.Equal(t, []string{"Y", "X", "A", "B"}, []string{
		result.Trades[0].Ticker, result.Trades[1].Ticker, result.Trades[2].Ticker, result.Trades[3].Ticker,
	})

	assert.Equal(t, -5.0, byTicker["Y"].ShareDelta)
	assert.Equal(t, 0.0, byTicker["Y"].TargetWeight)
	assert.Equal(t, 0.0, byTicker["X"].ShareDelta)

	// 500 / 30 = 16주, 500 / 70 = 7주, 잔여 30 → 최저 비중 A 에 1주 추가
	assert.Equal(t, 17.0, byTicker["A"].ShareDelta)
	assert.Equal(t, 7.0, byTicker["B"].ShareDelta)
	assert.InDelta(t, 0.0, result.ResidualCash, 1e-9)

	// 총액 = 1000 + 510 + 490 = 2000
	assert.InDelta(t, 0.5, byTicker["X"].RealizedWeight, 1e-12)
	assert.InDelta(t, 0.255, byTicker["A"].RealizedWeight, 1e-12)
	assert.InDelta(t, 0.245, byTicker["B"].RealizedWeight, 1e-12)
	for _, tk := range []string{"X", "A", "B"} {
		tr := byTicker[tk]
		assert.InDelta(t, 1.0/3, tr.TargetWeight, 1e-12)
		assert.InDelta(t, tr.RealizedWeight-tr.TargetWeight, tr.Deviation, 1e-12)
	}
}

func TestSizeTrades_Fractional(t *testing.T) {
	result := decisions()
	SizeTrades(result, SizingInput{
		PositionCount: 3,
		NewCash:       1000,
		Prices:        map[string]float64{"X": 100, "Y": 20, "A": 30, "B": 70},
		Fractional:    true,
	})

	byTicker := map[string]contracts.TradeSize{}
	for _, tr := range result.Trades {
		byTicker[tr.Ticker] = tr
	}
	assert.InDelta(t, 16.666666, byTicker["A"].ShareDelta, 1e-9)
	assert.InDelta(t, 7.142857, byTicker["B"].ShareDelta, 1e-9)
	assert.GreaterOrEqual(t, result.ResidualCash, 0.0)
	assert.Less(t, result.ResidualCash, 0.001)
}

func TestSizeTrades_MissingPrice(t *testing.T) {
	result := decisions()
	SizeTrades(result, SizingInput{
		PositionCount: 3,
		NewCash:       600,
		Positions:     []contracts.Position{{Ticker: "X", Shares: 10}},
		Prices:        map[string]float64{"X": 100, "A": 30},
	})

	var buys []string
	for _, tr := range result.Trades {
		if tr.Action == contracts.ActionBuy {
			buys = append(buys, tr.Ticker)
			// 600 / 2 후보 = 300 → 10주, B 몫 300 은 집행하지 않음
			assert.Equal(t, 10.0, tr.ShareDelta)
		}
	}
	assert.Equal(t, []string{"A"}, buys)
	assert.InDelta(t, 300, result.ResidualCash, 1e-9, "unpriced candidate's slot stays in cash")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, contracts.ReasonMissingPrice, result.Warnings[0].Code)
	assert.Equal(t, "B", result.Warnings[0].Ticker)
}

func TestSizeTrades_MissingPriceKeepsRoundingLeftover(t *testing.T) {
	result := decisions()
	SizeTrades(result, SizingInput{
		PositionCount: 3,
		NewCash:       700,
		Positions:     []contracts.Position{{Ticker: "X", Shares: 10}},
		Prices:        map[string]float64{"X": 100, "A": 30},
	})

	var a contracts.TradeSize
	for _, tr := range result.Trades {
		if tr.Ticker == "A" {
			a = tr
		}
	}
	// 350 / 30 = 11주 (330), 남은 20 은 1주도 못 사고 B 몫 350 은 그대로
	assert.Equal(t, 11.0, a.ShareDelta)
	assert.InDelta(t, 370, result.ResidualCash, 1e-9)
}

func TestSizeTrades_NoCash(t *testing.T) {
	result := decisions()
	SizeTrades(result, SizingInput{
		PositionCount: 3,
		Positions:     []contracts.Position{{Ticker: "X", Shares: 10}},
		Prices:        map[string]float64{"X": 100, "A": 30, "B": 70},
	})

	for _, tr := range result.Trades {
		if tr.Action == contracts.ActionBuy {
			assert.Equal(t, 0.0, tr.ShareDelta)
		}
	}
	assert.Equal(t, 0.0, result.ResidualCash)
}
