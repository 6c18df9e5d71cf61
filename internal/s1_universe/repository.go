package s1_universe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorband/internal/contracts"
)

// Repository handles data persistence for S1
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveUniverse saves the admitted set and exclusion reasons for one strategy/date
func (r *Repository) SaveUniverse(ctx context.Context, strategy string, universe *contracts.Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO selection.universe_snapshots (
			strategy,
			snapshot_date,
			eligible_tickers,
			total_count,
			excluded,
			created_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (strategy, snapshot_date) DO UPDATE SET
			eligible_tickers = EXCLUDED.eligible_tickers,
			total_count = EXCLUDED.total_count,
			excluded = EXCLUDED.excluded,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		strategy,
		universe.Date,
		universe.Tickers(),
		universe.Count(),
		excludedJSON,
	)
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

// GetLatestUniverse retrieves the most recent snapshot for a strategy.
// Only tickers are restored; entry details stay with the data source.
func (r *Repository) GetLatestUniverse(ctx context.Context, strategy string) (*contracts.Universe, error) {
	query := `
		SELECT
			snapshot_date,
			eligible_tickers,
			excluded
		FROM selection.universe_snapshots
		WHERE strategy = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	universe := &contracts.Universe{
		Excluded: make(map[string]string),
	}

	var tickers []string
	var excludedJSON []byte
	err := r.db.QueryRow(ctx, query, strategy).Scan(
		&universe.Date,
		&tickers,
		&excludedJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest universe: %w", err)
	}

	for _, t := range tickers {
		universe.Entries = append(universe.Entries, contracts.UniverseEntry{Ticker: t})
	}
	if len(excludedJSON) > 0 {
		if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal excluded: %w", err)
		}
	}

	return universe, nil
}
