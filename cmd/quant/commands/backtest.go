package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorband/internal/backtest"
	"github.com/wonny/factorband/internal/contracts"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행 및 조회",
	Long: `과거 데이터를 사용하여 전략을 시뮬레이션합니다.

백테스트는 다음을 산출합니다:
- 일별 자산 곡선과 월별 수익률
- 리밸런싱별 회전율 및 거래비용
- 성과 지표 (CAGR, Sharpe, Sortino, MDD, 승률)

동일한 전략 설정과 기간이면 항상 같은 run ID 와 결과가 나옵니다.

Example:
  go run ./cmd/quant backtest run kr_momentum --from 2018-01-01 --to 2023-12-31
  go run ./cmd/quant backtest list kr_momentum
  go run ./cmd/quant backtest show <run-id>`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run [strategy]",
		Short: "백테스트 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runBacktest,
	}

	backtestListCmd = &cobra.Command{
		Use:   "list [strategy]",
		Short: "저장된 백테스트 목록",
		Args:  cobra.ExactArgs(1),
		RunE:  listBacktests,
	}

	backtestShowCmd = &cobra.Command{
		Use:   "show [run-id]",
		Short: "저장된 백테스트 결과 출력",
		Args:  cobra.ExactArgs(1),
		RunE:  showBacktest,
	}

	// Flags
	backtestFrom  string
	backtestTo    string
	backtestTail  int
	backtestLimit int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestListCmd)
	backtestCmd.AddCommand(backtestShowCmd)

	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD, 필수)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	backtestRunCmd.Flags().IntVar(&backtestTail, "tail", 10, "출력할 자산 곡선 마지막 일수")
	backtestShowCmd.Flags().IntVar(&backtestTail, "tail", 10, "출력할 자산 곡선 마지막 일수")
	backtestListCmd.Flags().IntVar(&backtestLimit, "limit", 20, "최대 출력 수")

	_ = backtestRunCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	start, err := parseDate(backtestFrom)
	if err != nil {
		return err
	}
	end, err := parseDate(backtestTo)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("--to %s is before --from %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	began := time.Now()
	run, err := a.backtest.RunBacktest(cmd.Context(), args[0], start, end)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestRun(run, backtestTail)
	PrintKeyValue("Duration", fmt.Sprintf("%.2fs", time.Since(began).Seconds()), 12)
	return nil
}

func listBacktests(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.runs.ListRuns(cmd.Context(), args[0], backtestLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		PrintWarning("no stored runs for " + args[0])
		return nil
	}

	widths := []int{36, 10, 10, 9, 7, 8}
	PrintTableHeader([]string{"Run ID", "From", "To", "Return", "Sharpe", "MDD"}, widths)
	for _, r := range runs {
		PrintTableRow([]string{
			r.ID,
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			formatPct(r.TotalReturn),
			fmt.Sprintf("%.2f", r.Sharpe),
			formatPct(r.MaxDrawdown),
		}, widths)
	}
	return nil
}

func showBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runs.GetRun(cmd.Context(), args[0])
	if errors.Is(err, backtest.ErrRunNotFound) {
		return fmt.Errorf("run %s not found", args[0])
	}
	if err != nil {
		return err
	}

	printBacktestRun(run, backtestTail)
	return nil
}

// healthLabel summarizes PerformanceMetrics.IsHealthy for the report
func healthLabel(m *contracts.PerformanceMetrics) string {
	if m.IsHealthy() {
		return "OK (Sharpe > 1, MDD > -30%, win rate > 50%)"
	}
	return "CHECK (Sharpe > 1, MDD > -30%, win rate > 50% 미충족)"
}

func printBacktestRun(run *contracts.BacktestRun, tail int) {
	m := run.Metrics

	PrintHeader("Backtest", [][2]string{
		{"Run ID", run.ID},
		{"Strategy", run.Strategy},
		{"Period", run.StartDate.Format("2006-01-02") + " ~ " + run.EndDate.Format("2006-01-02")},
		{"Config", shortHash(run.ConfigHash)},
	})

	// Performance
	fmt.Println("💰 Performance")
	PrintKeyValue("Initial", formatNumber(run.InitialCapital), 12)
	PrintKeyValue("Final", formatNumber(run.FinalValue), 12)
	PrintKeyValue("Total return", formatPct(m.TotalReturn), 12)
	PrintKeyValue("CAGR", formatPct(m.CAGR), 12)
	PrintKeyValue("Volatility", fmt.Sprintf("%.2f%%", m.Volatility*100), 12)
	fmt.Println()

	// Risk Metrics
	fmt.Println("📉 Risk Metrics")
	PrintKeyValue("Sharpe", fmt.Sprintf("%.2f", m.Sharpe), 12)
	PrintKeyValue("Sortino", fmt.Sprintf("%.2f", m.Sortino), 12)
	PrintKeyValue("Max DD", formatPct(m.MaxDrawdown), 12)
	PrintKeyValue("VaR 95%", fmt.Sprintf("%.2f%% (CVaR %.2f%%)", m.VaR95*100, m.CVaR95*100), 12)
	PrintKeyValue("Win rate", fmt.Sprintf("%.1f%% of %d days", m.WinRate*100, m.Periods), 12)
	PrintKeyValue("Health", healthLabel(&m), 12)
	fmt.Println()

	// Trading
	fmt.Println("💹 Trading")
	PrintKeyValue("Rebalances", strconv.Itoa(len(run.Rebalances)), 12)
	PrintKeyValue("Trades", strconv.Itoa(len(run.Trades)), 12)
	PrintKeyValue("Total cost", formatNumber(run.TransactionCost), 12)
	if len(run.DateErrors) > 0 {
		PrintKeyValue("Date errors", strconv.Itoa(len(run.DateErrors)), 12)
	}
	fmt.Println()

	if len(run.Rebalances) > 0 {
		widths := []int{10, 8, 9, 12}
		PrintTableHeader([]string{"Date", "Names", "Turnover", "Cost"}, widths)
		for _, r := range run.Rebalances {
			PrintTableRow([]string{
				r.Date.Format("2006-01-02"),
				strconv.Itoa(len(r.Selected)),
				fmt.Sprintf("%.3f", r.Turnover),
				formatNumber(r.Cost),
			}, widths)
		}
		fmt.Println()
	}

	// Equity Curve (last N points)
	if tail > 0 && len(run.EquityCurve) > 0 {
		fmt.Printf("📈 Equity Curve (Last %d Days)\n", tail)
		startIdx := len(run.EquityCurve) - tail
		if startIdx < 0 {
			startIdx = 0
		}
		for _, point := range run.EquityCurve[startIdx:] {
			fmt.Printf("   %s: %s (%s)\n",
				point.Date.Format("2006-01-02"),
				formatNumber(point.Value),
				formatPct(point.Value/run.InitialCapital-1))
		}
	}

	for _, de := range run.DateErrors {
		PrintWarning(fmt.Sprintf("%s [%s] %s", de.Date.Format("2006-01-02"), de.Code, de.Message))
	}
	PrintWarnings(run.Warnings, 10)
	fmt.Println()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
