package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorband/internal/contracts"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank [strategy]",
	Short: "전략별 종목 순위 산출",
	Long: `지정한 날짜 기준으로 전략의 순위를 계산하고 저장합니다.

strategy 를 생략하면 설정된 모든 전략을 계산합니다.
결과는 PostgreSQL 에 저장되고 Redis 가 활성화된 경우 캐시됩니다.

Example:
  go run ./cmd/quant rank kr_momentum --date 2024-03-29
  go run ./cmd/quant rank --top 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRank,
}

// rankShowCmd prints a stored ranking without recomputing it
var rankShowCmd = &cobra.Command{
	Use:   "show <strategy>",
	Short: "저장된 순위 조회",
	Long: `PostgreSQL 에 저장된 순위를 다시 계산하지 않고 출력합니다.

--date 를 생략하면 가장 최근에 저장된 날짜를 사용합니다.

Example:
  go run ./cmd/quant rank show kr_momentum
  go run ./cmd/quant rank show kr_value --date 2024-03-29 --top 30`,
	Args: cobra.ExactArgs(1),
	RunE: runRankShow,
}

var (
	rankDate     string
	rankTop      int
	rankShowDate string
	rankShowTop  int
)

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.AddCommand(rankShowCmd)

	rankCmd.Flags().StringVar(&rankDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	rankCmd.Flags().IntVar(&rankTop, "top", 0, "출력할 전체 순위 수 (0 = 선정 종목만)")

	rankShowCmd.Flags().StringVar(&rankShowDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 최근 저장일)")
	rankShowCmd.Flags().IntVar(&rankShowTop, "top", 0, "출력할 전체 순위 수 (0 = 선정 종목만)")
}

// latestRankingStore is the part of selection.Repository rank show needs
type latestRankingStore interface {
	LatestRankingDate(ctx context.Context, strategy string) (time.Time, bool, error)
}

// storedRankingDate returns the --date value, or the latest stored date when it is empty
func storedRankingDate(ctx context.Context, store latestRankingStore, strategy, flag string) (time.Time, error) {
	if flag != "" {
		return parseDate(flag)
	}
	date, ok, err := store.LatestRankingDate(ctx, strategy)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("no stored ranking for %s (run: quant rank %s)", strategy, strategy)
	}
	return date, nil
}

func runRankShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	strategy := args[0]
	if _, err := a.strategies.Strategy(strategy); err != nil {
		return err
	}

	date, err := storedRankingDate(cmd.Context(), a.rankStore, strategy, rankShowDate)
	if err != nil {
		return err
	}

	result, err := a.rankStore.GetRanking(cmd.Context(), strategy, date)
	if err != nil {
		return err
	}
	printRanking(result, rankShowTop)
	return nil
}

func runRank(cmd *cobra.Command, args []string) error {
	date, err := parseDate(rankDate)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		result, err := a.rankings.ComputeRanking(cmd.Context(), args[0], date)
		if err != nil {
			return fmt.Errorf("compute ranking: %w", err)
		}
		printRanking(result, rankTop)
		return nil
	}

	results, err := a.rankings.ComputeAll(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("compute rankings: %w", err)
	}
	for _, name := range a.strategies.Names() {
		if r, ok := results[name]; ok {
			printRanking(r, rankTop)
		}
	}
	return nil
}

func printRanking(r *contracts.RankingResult, top int) {
	PrintHeader("Ranking", [][2]string{
		{"Strategy", r.Strategy},
		{"Category", string(r.Category)},
		{"Date", r.Date.Format("2006-01-02")},
		{"Universe", strconv.Itoa(len(r.Universe))},
		{"Selected", strconv.Itoa(len(r.Entries))},
	})

	if r.Error != nil {
		PrintError(fmt.Sprintf("%s: %s", r.Error.Code, r.Error.Message))
		PrintWarnings(r.Warnings, 10)
		return
	}

	entries := r.Entries
	if top > len(entries) {
		entries = r.FullRanking
		if top < len(entries) {
			entries = entries[:top]
		}
	}

	widths := []int{5, 10, 9, 9, 9, 7}
	PrintTableHeader([]string{"Rank", "Ticker", "Score", "Primary", "Momentum", "Quality"}, widths)
	for _, e := range entries {
		quality := "-"
		if e.Scores.QualityIndicator != nil {
			quality = strconv.Itoa(*e.Scores.QualityIndicator)
		}
		PrintTableRow([]string{
			strconv.Itoa(e.Rank),
			e.Ticker,
			fmt.Sprintf("%.4f", e.Score),
			formatOptional(e.Scores.Primary),
			formatOptional(e.Scores.MomentumComposite),
			quality,
		}, widths)
	}

	if len(r.Metadata) > 0 {
		fmt.Println()
		keys := make([]string, 0, len(r.Metadata))
		for k := range r.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			PrintKeyValue(k, r.Metadata[k], 12)
		}
	}
	PrintWarnings(r.Warnings, 10)
}
