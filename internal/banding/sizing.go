package banding

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/factorband/internal/contracts"
)

// fractionalPlaces bounds fractional share precision
const fractionalPlaces = 6

// SizingInput holds everything trade sizing needs besides the decisions
type SizingInput struct {
	PositionCount int
	NewCash       float64              // 신규 투입 현금 (매도 대금과 무관)
	Positions     []contracts.Position // 현재 보유 수량
	Prices        map[string]float64   // 기준일 종가
	Fractional    bool
}

type sized struct {
	ticker  string
	action  contracts.Action
	price   decimal.Decimal
	current decimal.Decimal
	delta   decimal.Decimal
}

func (s *sized) value() decimal.Decimal {
	return s.current.Add(s.delta).Mul(s.price)
}

// SizeTrades converts decisions into equal-weight share deltas and fills
// result.Trades and result.ResidualCash.
// New cash is split evenly over every BUY candidate. A candidate without a price keeps
// its slot as residual cash. Whole-share rounding leftovers are spent one share at a time
// on the most underweight position until nothing is affordable.
func SizeTrades(result *contracts.BandingResult, in SizingInput) {
	current := make(map[string]decimal.Decimal, len(in.Positions))
	for _, p := range in.Positions {
		current[p.Ticker] = decimal.NewFromFloat(p.Shares)
	}
	price := func(ticker string) (decimal.Decimal, bool) {
		p, ok := in.Prices[ticker]
		if !ok || p <= 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(p), true
	}

	var sells, keeps []*sized
	for _, d := range result.Sell {
		p, _ := price(d.Ticker)
		sells = append(sells, &sized{
			ticker:  d.Ticker,
			action:  contracts.ActionSell,
			price:   p,
			current: current[d.Ticker],
			delta:   current[d.Ticker].Neg(),
		})
	}
	for _, d := range result.Hold {
		p, ok := price(d.Ticker)
		if !ok {
			result.Warnings = append(result.Warnings, contracts.Warning{
				Code: contracts.ReasonMissingPrice, Ticker: d.Ticker, Message: "held position valued at zero",
			})
		}
		keeps = append(keeps, &sized{ticker: d.Ticker, action: contracts.ActionHold, price: p, current: current[d.Ticker]})
	}

	var buys []*sized
	for _, d := range result.Buy {
		p, ok := price(d.Ticker)
		if !ok {
			result.Warnings = append(result.Warnings, contracts.Warning{
				Code: contracts.ReasonMissingPrice, Ticker: d.Ticker, Message: "buy candidate cannot be sized",
			})
			continue
		}
		buys = append(buys, &sized{ticker: d.Ticker, action: contracts.ActionBuy, price: p, current: current[d.Ticker]})
	}

	// 1. 신규 현금 균등 배분 (가격 없는 후보 몫은 잔여 현금으로 남김)
	cash := decimal.NewFromFloat(in.NewCash)
	reserved := decimal.Zero
	if len(buys) > 0 && cash.IsPositive() {
		alloc := cash.Div(decimal.NewFromInt(int64(len(result.Buy))))
		reserved = alloc.Mul(decimal.NewFromInt(int64(len(result.Buy) - len(buys))))
		for _, b := range buys {
			qty := alloc.Div(b.price)
			if in.Fractional {
				qty = qty.Truncate(fractionalPlaces)
			} else {
				qty = qty.Floor()
			}
			b.delta = qty
			cash = cash.Sub(qty.Mul(b.price))
		}
	}
	keeps = append(keeps, buys...)

	// 2. 잔여 현금: 가장 저비중 종목부터 1주씩
	if !in.Fractional {
		for {
			var pick *sized
			for _, k := range keeps {
				if k.price.IsZero() || k.price.GreaterThan(cash.Sub(reserved)) {
					continue
				}
				if pick == nil || k.value().LessThan(pick.value()) ||
					(k.value().Equal(pick.value()) && k.ticker < pick.ticker) {
					pick = k
				}
			}
			if pick == nil {
				break
			}
			pick.delta = pick.delta.Add(decimal.NewFromInt(1))
			cash = cash.Sub(pick.price)
		}
	}

	// 3. 목표/실현 비중
	total := cash
	for _, k := range keeps {
		total = total.Add(k.value())
	}
	target := 0.0
	if in.PositionCount > 0 {
		target = 1 / float64(in.PositionCount)
	}

	result.Trades = make([]contracts.TradeSize, 0, len(sells)+len(keeps))
	for _, s := range sells {
		result.Trades = append(result.Trades, tradeSize(s, 0, decimal.Zero))
	}
	for _, k := range keeps {
		realized := decimal.Zero
		if total.IsPositive() {
			realized = k.value().Div(total)
		}
		result.Trades = append(result.Trades, tradeSize(k, target, realized))
	}
	result.ResidualCash = cash.InexactFloat64()
}

func tradeSize(s *sized, target float64, realized decimal.Decimal) contracts.TradeSize {
	r := realized.InexactFloat64()
	return contracts.TradeSize{
		Ticker:         s.ticker,
		Action:         s.action,
		Price:          s.price.InexactFloat64(),
		CurrentShares:  s.current.InexactFloat64(),
		ShareDelta:     s.delta.InexactFloat64(),
		TargetWeight:   target,
		RealizedWeight: r,
		Deviation:      r - target,
	}
}
