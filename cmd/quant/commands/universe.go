package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe <strategy>",
	Short: "최근 유니버스 스냅샷 조회",
	Long: `rank 실행 시 저장된 가장 최근 유니버스 스냅샷을 출력합니다.

통과 종목 수와 제외 사유별 종목 수를 보여줍니다.

Example:
  go run ./cmd/quant universe kr_momentum
  go run ./cmd/quant universe kr_value --tickers`,
	Args: cobra.ExactArgs(1),
	RunE: runUniverse,
}

var universeTickers bool

func init() {
	rootCmd.AddCommand(universeCmd)

	universeCmd.Flags().BoolVar(&universeTickers, "tickers", false, "통과 종목 전체 출력")
}

// reasonCount is the number of tickers excluded for one reason
type reasonCount struct {
	Reason string
	Count  int
}

// exclusionSummary groups excluded tickers by reason, most frequent first
func exclusionSummary(excluded map[string]string) []reasonCount {
	counts := make(map[string]int)
	for _, reason := range excluded {
		counts[reason]++
	}

	out := make([]reasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, reasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func runUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	strategy := args[0]
	if _, err := a.strategies.Strategy(strategy); err != nil {
		return err
	}

	u, err := a.universes.GetLatestUniverse(cmd.Context(), strategy)
	if err != nil {
		return fmt.Errorf("no stored universe for %s: %w", strategy, err)
	}

	PrintHeader("Universe", [][2]string{
		{"Strategy", strategy},
		{"Date", u.Date.Format("2006-01-02")},
		{"Eligible", strconv.Itoa(u.Count())},
		{"Excluded", strconv.Itoa(len(u.Excluded))},
	})

	if summary := exclusionSummary(u.Excluded); len(summary) > 0 {
		widths := []int{28, 7}
		PrintTableHeader([]string{"Reason", "Count"}, widths)
		for _, rc := range summary {
			PrintTableRow([]string{rc.Reason, strconv.Itoa(rc.Count)}, widths)
		}
		fmt.Println()
	}

	if universeTickers {
		fmt.Println(strings.Join(u.Tickers(), " "))
	}
	return nil
}
