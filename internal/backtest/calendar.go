package backtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/strategyconfig"
)

// TradingCalendar supplies the ordered trading-date index
type TradingCalendar interface {
	TradingDates(ctx context.Context, window contracts.DateRange) ([]time.Time, error)
}

// CronSpec renders a rebalance schedule as a standard cron expression (day 1 of each scheduled month)
func CronSpec(s strategyconfig.Schedule) string {
	months := append([]int(nil), s.Months...)
	sort.Ints(months)
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = strconv.Itoa(m)
	}
	return fmt.Sprintf("0 0 1 %s *", strings.Join(parts, ","))
}

// ScheduledDates returns the calendar dates the schedule fires on within window
func ScheduledDates(s strategyconfig.Schedule, window contracts.DateRange) ([]time.Time, error) {
	sched, err := cron.ParseStandard(CronSpec(s))
	if err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}

	var dates []time.Time
	// Next 는 기준 시각 이후만 반환하므로 1초 앞에서 시작
	for t := sched.Next(window.From.Add(-time.Second)); !t.After(window.To); t = sched.Next(t) {
		dates = append(dates, t)
	}
	return dates, nil
}

// RebalanceDates maps scheduled dates forward onto trading dates.
// The first trading date always rebalances; duplicates collapse.
func RebalanceDates(tradingDates []time.Time, scheduled []time.Time) []time.Time {
	if len(tradingDates) == 0 {
		return nil
	}

	out := []time.Time{tradingDates[0]}
	for _, s := range scheduled {
		idx := sort.Search(len(tradingDates), func(i int) bool {
			return !tradingDates[i].Before(s)
		})
		if idx == len(tradingDates) {
			break
		}
		d := tradingDates[idx]
		if d.After(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}

// tradingDates loads and orders the index, failing when the window has none
func tradingDates(ctx context.Context, cal TradingCalendar, window contracts.DateRange) ([]time.Time, error) {
	dates, err := cal.TradingDates(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("trading dates: %w", err)
	}
	if len(dates) == 0 {
		return nil, &contracts.InsufficientDataError{
			Reason: contracts.ReasonNoTradingDates,
			Detail: fmt.Sprintf("%s..%s", window.From.Format("2006-01-02"), window.To.Format("2006-01-02")),
			Err:    contracts.ErrNoTradingDates,
		}
	}
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted, nil
}
