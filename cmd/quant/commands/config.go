package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/factorband/internal/strategyconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 검증",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "환경변수와 전략 YAML 검증",
	Long: `환경 설정과 전략 YAML 을 읽어 검증합니다 (DB 연결 없음).

- 알 수 없는 필드, 잘못된 카테고리/일정/임계값은 즉시 실패
- 기본값이 채워진 최종 설정과 설정 해시를 출력
- 권장 사항 위반은 경고로 표시

Example:
  go run ./cmd/quant config check
  go run ./cmd/quant config check --strategies ./config/strategies.yaml`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, _, registry, err := loadSettings()
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("Configuration", [][2]string{
		{"Env", cfg.Env},
		{"Database", configured(cfg.HasDatabase())},
		{"Redis", configured(cfg.Redis.Enabled)},
		{"Strategies", cfg.Engine.StrategyFile},
	})

	warnings := 0
	for _, name := range registry.Names() {
		s, err := registry.Strategy(name)
		if err != nil {
			return err
		}
		hash, err := strategyconfig.Hash(s)
		if err != nil {
			return fmt.Errorf("hash %s: %w", name, err)
		}

		fmt.Printf("\n%s (%s)\n", s.Name, s.Category)
		PrintKeyValue("Schedule", fmt.Sprintf("%s %s", s.Schedule.Kind, joinInts(s.Schedule.Months)), 14)
		PrintKeyValue("Positions", strconv.Itoa(s.PositionCount), 14)
		PrintKeyValue("Banding", fmt.Sprintf("buy ≤ %d, sell > %d", s.Banding.BuyThreshold, s.Banding.SellThreshold), 14)
		PrintKeyValue("Min cap", formatNumber(s.Universe.MinMarketCap), 14)
		PrintKeyValue("Cost rate", fmt.Sprintf("%.4f", s.Backtest.CostRate()), 14)
		PrintKeyValue("Hash", shortHash(hash), 14)

		for _, w := range strategyconfig.Warn(s) {
			warnings++
			PrintWarning(fmt.Sprintf("%s: %s", w.Code, w.Message))
		}
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d strategies valid, %d warning(s)", len(registry.Names()), warnings))
	return nil
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
