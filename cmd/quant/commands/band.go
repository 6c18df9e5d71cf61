package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/factorband/internal/banding"
	"github.com/wonny/factorband/internal/contracts"
)

// bandCmd represents the band command
var bandCmd = &cobra.Command{
	Use:   "band [strategy]",
	Short: "밴딩: 보유/매도/매수 결정 및 수량 계산",
	Long: `최신 랭킹과 저장된 밴딩 상태로 보유/매도/매수를 결정합니다.

- 보유 종목은 순위가 sell_threshold 이내이면 유지
- 신규 종목은 순위가 buy_threshold 이내일 때만 편입
- 현재 보유 수량과 추가 현금으로 동일 비중 매매 수량 계산

Example:
  go run ./cmd/quant band kr_momentum --date 2024-03-29
  go run ./cmd/quant band kr_value --position 005930=120 --position 000660=40 --cash 5000000`,
	Args: cobra.ExactArgs(1),
	RunE: runBand,
}

var (
	bandDate      string
	bandPositions []string
	bandCash      float64
)

func init() {
	rootCmd.AddCommand(bandCmd)

	bandCmd.Flags().StringVar(&bandDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	bandCmd.Flags().StringArrayVar(&bandPositions, "position", nil, "현재 보유 수량 TICKER=SHARES (반복 가능)")
	bandCmd.Flags().Float64Var(&bandCash, "cash", 0, "추가 투입 현금")
}

func runBand(cmd *cobra.Command, args []string) error {
	date, err := parseDate(bandDate)
	if err != nil {
		return err
	}
	positions, err := parsePositions(bandPositions)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.banding.ComputeBanding(cmd.Context(), banding.Request{
		Strategy:  args[0],
		Date:      date,
		Positions: positions,
		NewCash:   bandCash,
	})
	if err != nil {
		return fmt.Errorf("compute banding: %w", err)
	}

	printBanding(result)
	return nil
}

// parsePositions parses TICKER=SHARES pairs; a ticker may appear once
func parsePositions(values []string) ([]contracts.Position, error) {
	seen := make(map[string]bool, len(values))
	positions := make([]contracts.Position, 0, len(values))
	for _, v := range values {
		ticker, shares, ok := strings.Cut(v, "=")
		ticker = strings.TrimSpace(ticker)
		if !ok || ticker == "" {
			return nil, fmt.Errorf("invalid position %q (want TICKER=SHARES)", v)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(shares), 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid shares in position %q", v)
		}
		if seen[ticker] {
			return nil, fmt.Errorf("duplicate position %q", ticker)
		}
		seen[ticker] = true
		positions = append(positions, contracts.Position{Ticker: ticker, Shares: n})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Ticker < positions[j].Ticker })
	return positions, nil
}

func printBanding(r *contracts.BandingResult) {
	PrintHeader("Banding", [][2]string{
		{"Strategy", r.Strategy},
		{"Date", r.Date.Format("2006-01-02")},
		{"Hold", strconv.Itoa(len(r.Hold))},
		{"Sell", strconv.Itoa(len(r.Sell))},
		{"Buy", strconv.Itoa(len(r.Buy))},
	})

	if r.Error != nil {
		PrintError(fmt.Sprintf("%s: %s", r.Error.Code, r.Error.Message))
		PrintWarnings(r.Warnings, 10)
		return
	}

	widths := []int{6, 10, 6, 9, 22}
	PrintTableHeader([]string{"Action", "Ticker", "Rank", "Previous", "Reason"}, widths)
	for _, group := range [][]contracts.BandingDecision{r.Hold, r.Sell, r.Buy} {
		for _, d := range group {
			rank, prev := "-", "-"
			if d.Rank > 0 {
				rank = strconv.Itoa(d.Rank)
			}
			if d.PreviousRank > 0 {
				prev = strconv.Itoa(d.PreviousRank)
			}
			PrintTableRow([]string{string(d.Action), d.Ticker, rank, prev, string(d.Reason)}, widths)
		}
	}

	if len(r.Trades) > 0 {
		fmt.Println()
		widths = []int{6, 10, 12, 12, 9, 9}
		PrintTableHeader([]string{"Action", "Ticker", "Price", "Delta", "Target", "Realized"}, widths)
		for _, t := range r.Trades {
			PrintTableRow([]string{
				string(t.Action),
				t.Ticker,
				formatNumber(t.Price),
				strconv.FormatFloat(t.ShareDelta, 'f', -1, 64),
				fmt.Sprintf("%.2f%%", t.TargetWeight*100),
				fmt.Sprintf("%.2f%%", t.RealizedWeight*100),
			}, widths)
		}
		fmt.Println()
		PrintKeyValue("Residual cash", formatNumber(r.ResidualCash), 13)
	}
	PrintWarnings(r.Warnings, 10)
}
