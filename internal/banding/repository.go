package banding

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorband/internal/contracts"
)

// Repository handles banding state persistence
// ⭐ SSOT: 밴딩 상태 저장/조회는 여기서만 (보유 종목 단위 upsert, 전체 재작성 금지)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new banding repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.BandingStateStore = (*Repository)(nil)

// Load retrieves every holding record of strategy, active and closed
func (r *Repository) Load(ctx context.Context, strategy string) (*contracts.BandingState, error) {
	query := `
		SELECT
			ticker, entry_rank, entry_date, current_rank, last_updated,
			active, exit_rank, exit_date
		FROM banding.holdings
		WHERE strategy = $1
		ORDER BY entry_date ASC, ticker ASC
	`

	rows, err := r.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	state := &contracts.BandingState{Strategy: strategy}
	for rows.Next() {
		var h contracts.Holding
		err := rows.Scan(
			&h.Ticker, &h.EntryRank, &h.EntryDate, &h.CurrentRank, &h.LastUpdated,
			&h.Active, &h.ExitRank, &h.ExitDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		state.Holdings = append(state.Holdings, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return state, nil
}

// UpsertHolding writes one holding record keyed by (strategy, ticker, entry_date)
func (r *Repository) UpsertHolding(ctx context.Context, strategy string, h *contracts.Holding) error {
	query := `
		INSERT INTO banding.holdings (
			strategy, ticker, entry_rank, entry_date, current_rank, last_updated,
			active, exit_rank, exit_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (strategy, ticker, entry_date) DO UPDATE SET
			current_rank = EXCLUDED.current_rank,
			last_updated = EXCLUDED.last_updated,
			active = EXCLUDED.active,
			exit_rank = EXCLUDED.exit_rank,
			exit_date = EXCLUDED.exit_date
	`

	_, err := r.pool.Exec(ctx, query,
		strategy, h.Ticker, h.EntryRank, h.EntryDate, h.CurrentRank, h.LastUpdated,
		h.Active, h.ExitRank, h.ExitDate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Ticker, err)
	}

	return nil
}
