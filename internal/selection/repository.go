package selection

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

// Repository handles selection data persistence
// ⭐ SSOT: Selection 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRanking replaces the stored ranking of (strategy, date)
func (r *Repository) SaveRanking(ctx context.Context, result *contracts.RankingResult) error {
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	var errorJSON []byte
	if result.Error != nil {
		if errorJSON, err = json.Marshal(result.Error); err != nil {
			return fmt.Errorf("failed to marshal result error: %w", err)
		}
	}

	// Begin transaction
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO selection.ranking_runs (
			strategy, rank_date, category, universe, selected, warnings, metadata, result_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (strategy, rank_date) DO UPDATE SET
			category = EXCLUDED.category,
			universe = EXCLUDED.universe,
			selected = EXCLUDED.selected,
			warnings = EXCLUDED.warnings,
			metadata = EXCLUDED.metadata,
			result_error = EXCLUDED.result_error,
			created_at = NOW()
	`
	_, err = tx.Exec(ctx, runQuery,
		result.Strategy, result.Date, string(result.Category), result.Universe,
		len(result.Entries), warningsJSON, metadataJSON, errorJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save ranking run: %w", err)
	}

	// Delete existing results for the date
	_, err = tx.Exec(ctx, "DELETE FROM selection.rankings WHERE strategy = $1 AND rank_date = $2", result.Strategy, result.Date)
	if err != nil {
		return fmt.Errorf("failed to delete old results: %w", err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO selection.rankings (
			strategy, rank_date, ticker, rank, score,
			primary_score, momentum_composite, momentum_raw, quality_indicator
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, e := range result.FullRanking {
		batch.Queue(query,
			result.Strategy, result.Date, e.Ticker, e.Rank, e.Score,
			e.Scores.Primary, e.Scores.MomentumComposite, e.Scores.MomentumRaw, e.Scores.QualityIndicator,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert ranking rows: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRanking retrieves the stored ranking of (strategy, date)
func (r *Repository) GetRanking(ctx context.Context, strategy string, date time.Time) (*contracts.RankingResult, error) {
	runQuery := `
		SELECT category, universe, selected, warnings, metadata, result_error
		FROM selection.ranking_runs
		WHERE strategy = $1 AND rank_date = $2
	`

	result := &contracts.RankingResult{Strategy: strategy, Date: date}
	var (
		category                            string
		selected                            int
		warningsJSON, metadataJSON, errJSON []byte
	)
	err := r.pool.QueryRow(ctx, runQuery, strategy, date).Scan(
		&category, &result.Universe, &selected, &warningsJSON, &metadataJSON, &errJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no ranking found for %s on %s", strategy, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking run: %w", err)
	}
	result.Category = contracts.Category(category)

	if err := json.Unmarshal(warningsJSON, &result.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &result.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if len(errJSON) > 0 {
		result.Error = &contracts.ResultError{}
		if err := json.Unmarshal(errJSON, result.Error); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result error: %w", err)
		}
	}

	query := `
		SELECT ticker, rank, score, primary_score, momentum_composite, momentum_raw, quality_indicator
		FROM selection.rankings
		WHERE strategy = $1 AND rank_date = $2
		ORDER BY rank ASC
	`
	rows, err := r.pool.Query(ctx, query, strategy, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e contracts.RankedEntry
		err := rows.Scan(
			&e.Ticker, &e.Rank, &e.Score,
			&e.Scores.Primary, &e.Scores.MomentumComposite, &e.Scores.MomentumRaw, &e.Scores.QualityIndicator,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.FullRanking = append(result.FullRanking, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if selected > len(result.FullRanking) {
		selected = len(result.FullRanking)
	}
	result.Entries = append([]contracts.RankedEntry(nil), result.FullRanking[:selected]...)
	return result, nil
}

// LatestRankingDate returns the most recent stored date for strategy.
// ok=false when nothing has been stored yet.
func (r *Repository) LatestRankingDate(ctx context.Context, strategy string) (time.Time, bool, error) {
	var date *time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT MAX(rank_date) FROM selection.ranking_runs WHERE strategy = $1", strategy,
	).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest ranking date: %w", err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return *date, true, nil
}
