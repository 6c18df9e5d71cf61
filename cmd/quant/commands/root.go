package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "factorband - 팩터 랭킹, 밴딩, 백테스트 엔진",
	Long: `factorband Unified CLI

전략 설정(YAML)에 따라 종목을 선별하고 순위를 매기며,
밴딩(히스테리시스)으로 보유/매도/매수를 결정하고
과거 데이터로 전략을 시뮬레이션합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant config check
  go run ./cmd/quant db migrate
  go run ./cmd/quant rank kr_momentum --date 2024-03-29
  go run ./cmd/quant band kr_momentum --cash 1000000
  go run ./cmd/quant backtest run kr_value --from 2018-01-01 --to 2023-12-31
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategies", "", "strategy YAML (default is STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// parseDate parses YYYY-MM-DD; empty means today (UTC)
func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return d, nil
}
