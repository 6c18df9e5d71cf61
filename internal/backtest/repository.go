package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorband/internal/contracts"
)

// ErrRunNotFound is returned when no run matches the requested ID
var ErrRunNotFound = errors.New("backtest run not found")

// Repository handles backtest run persistence
// ⭐ SSOT: 백테스트 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new backtest repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RunSummary is one row of the run listing
type RunSummary struct {
	ID          string
	Strategy    string
	StartDate   time.Time
	EndDate     time.Time
	FinalValue  float64
	TotalReturn float64
	Sharpe      float64
	MaxDrawdown float64
	CreatedAt   time.Time
}

// SaveRun stores a run; the deterministic ID makes reruns overwrite in place
func (r *Repository) SaveRun(ctx context.Context, run *contracts.BacktestRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := `
		INSERT INTO backtest.runs (
			run_id, strategy, config_hash, start_date, end_date,
			initial_capital, final_value, total_return, sharpe, max_drawdown, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			final_value = EXCLUDED.final_value,
			total_return = EXCLUDED.total_return,
			sharpe = EXCLUDED.sharpe,
			max_drawdown = EXCLUDED.max_drawdown,
			payload = EXCLUDED.payload,
			created_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID, run.Strategy, run.ConfigHash, run.StartDate, run.EndDate,
		run.InitialCapital, run.FinalValue, run.Metrics.TotalReturn, run.Metrics.Sharpe, run.Metrics.MaxDrawdown,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun loads a stored run by ID
func (r *Repository) GetRun(ctx context.Context, id string) (*contracts.BacktestRun, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM backtest.runs WHERE run_id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	var run contracts.BacktestRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the latest runs of strategy, newest first
func (r *Repository) ListRuns(ctx context.Context, strategy string, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id::text, strategy, start_date, end_date, final_value, total_return, sharpe, max_drawdown, created_at
		FROM backtest.runs
		WHERE strategy = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.Strategy, &s.StartDate, &s.EndDate, &s.FinalValue,
			&s.TotalReturn, &s.Sharpe, &s.MaxDrawdown, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
