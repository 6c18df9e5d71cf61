package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorband/internal/contracts"
)

// FundamentalsRepository implements contracts.FundamentalsReader
// ⭐ SSOT: 재무 데이터 저장소는 여기서만
type FundamentalsRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalsRepository creates a new fundamentals repository
func NewFundamentalsRepository(pool *pgxpool.Pool) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool}
}

const fundamentalColumns = `
	ticker, snapshot_date,
	pe, pb, ps, pfcf, ev_ebitda,
	roe, roa, roic, fcfroe,
	dividend_yield, payout_ratio,
	return_1m, return_3m, return_6m, return_12m`

// Fundamentals returns the latest snapshot dated on or before asOf per ticker.
// NULL 컬럼은 nil 로 유지 (0 으로 대체하지 않음)
func (r *FundamentalsRepository) Fundamentals(ctx context.Context, asOf time.Time, tickers []string) ([]contracts.FundamentalSnapshot, error) {
	query := `
		SELECT DISTINCT ON (ticker) ` + fundamentalColumns + `
		FROM data.fundamentals
		WHERE snapshot_date <= $1
	`
	args := []interface{}{asOf}
	if len(tickers) > 0 {
		query += ` AND ticker = ANY($2)`
		args = append(args, tickers)
	}
	query += ` ORDER BY ticker, snapshot_date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}
	defer rows.Close()

	var snapshots []contracts.FundamentalSnapshot
	for rows.Next() {
		var f contracts.FundamentalSnapshot
		if err := rows.Scan(
			&f.Ticker, &f.Date,
			&f.PE, &f.PB, &f.PS, &f.PFCF, &f.EVEBITDA,
			&f.ROE, &f.ROA, &f.ROIC, &f.FCFROE,
			&f.DividendYield, &f.PayoutRatio,
			&f.Return1M, &f.Return3M, &f.Return6M, &f.Return12M,
		); err != nil {
			return nil, fmt.Errorf("scan fundamentals: %w", err)
		}
		snapshots = append(snapshots, f)
	}
	return snapshots, rows.Err()
}

// Save inserts a snapshot. Snapshots are immutable per (ticker, date): a second write is ignored.
func (r *FundamentalsRepository) Save(ctx context.Context, f *contracts.FundamentalSnapshot) error {
	query := `
		INSERT INTO data.fundamentals (` + fundamentalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (ticker, snapshot_date) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		f.Ticker, f.Date,
		f.PE, f.PB, f.PS, f.PFCF, f.EVEBITDA,
		f.ROE, f.ROA, f.ROIC, f.FCFROE,
		f.DividendYield, f.PayoutRatio,
		f.Return1M, f.Return3M, f.Return6M, f.Return12M,
	)
	if err != nil {
		return fmt.Errorf("insert fundamentals %s: %w", f.Ticker, err)
	}
	return nil
}

// SaveBatch saves multiple snapshots
func (r *FundamentalsRepository) SaveBatch(ctx context.Context, snapshots []contracts.FundamentalSnapshot) error {
	for i := range snapshots {
		if err := r.Save(ctx, &snapshots[i]); err != nil {
			return err
		}
	}
	return nil
}
