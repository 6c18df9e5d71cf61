package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/factorband/internal/s0_data"
	"github.com/wonny/factorband/pkg/config"
	"github.com/wonny/factorband/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "데이터베이스 관리",
	Long: `PostgreSQL 스키마 생성과 연결 상태를 확인합니다.

Example:
  go run ./cmd/quant db migrate
  go run ./cmd/quant db status
  go run ./cmd/quant db seed testdata/seed.yaml`,
}

var (
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "스키마 생성 (여러 번 실행해도 안전)",
		RunE:  runDBMigrate,
	}

	dbStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "연결 및 풀 상태 확인",
		RunE:  runDBStatus,
	}

	dbSeedCmd = &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "YAML 파일의 가격/재무/시가총액 적재 (upsert)",
		Args:  cobra.ExactArgs(1),
		RunE:  runDBSeed,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbSeedCmd)
}

func connect(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	db, err := connect(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cmd.Context()); err != nil {
		return err
	}
	PrintSuccess("Schema is up to date (data, selection, banding, backtest)")
	return nil
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	db, err := connect(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(cmd.Context())
	if err != nil {
		PrintError(status.Error)
		return err
	}

	PrintSuccess("Database is healthy")
	PrintKeyValue("Response", status.ResponseTime.String(), 12)
	PrintKeyValue("Total conns", fmt.Sprintf("%d / %d", status.Stats.TotalConns, status.Stats.MaxConns), 12)
	PrintKeyValue("Idle conns", fmt.Sprintf("%d", status.Stats.IdleConns), 12)
	return nil
}

func runDBSeed(cmd *cobra.Command, args []string) error {
	seed, err := s0_data.LoadSeed(args[0])
	if err != nil {
		return fmt.Errorf("load seed %s: %w", args[0], err)
	}

	db, err := connect(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := s0_data.Import(cmd.Context(), s0_data.NewRepository(db.Pool), seed)
	if err != nil {
		return err
	}

	PrintKeyValue("Series", fmt.Sprintf("%d (%d closes)", stats.Series, stats.Points), 13)
	PrintKeyValue("Fundamentals", fmt.Sprintf("%d", stats.Fundamentals), 13)
	PrintKeyValue("Market caps", fmt.Sprintf("%d", stats.MarketCaps), 13)
	PrintSuccess("Seed loaded")
	return nil
}
