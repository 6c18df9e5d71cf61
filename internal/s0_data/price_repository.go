package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorband/internal/contracts"
)

// PriceRepository implements contracts.PriceReader
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Prices returns close series per ticker within window (inclusive)
func (r *PriceRepository) Prices(ctx context.Context, tickers []string, window contracts.DateRange) (map[string]contracts.PriceSeries, error) {
	result := make(map[string]contracts.PriceSeries, len(tickers))
	if len(tickers) == 0 {
		return result, nil
	}

	query := `
		SELECT ticker, trade_date, close_price
		FROM data.daily_prices
		WHERE ticker = ANY($1) AND trade_date BETWEEN $2 AND $3
		ORDER BY ticker, trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, tickers, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var p contracts.PricePoint
		if err := rows.Scan(&ticker, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("scan prices: %w", err)
		}
		s := result[ticker]
		s.Ticker = ticker
		s.Points = append(s.Points, p)
		result[ticker] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for ticker, s := range result {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("prices %s: %w", ticker, err)
		}
	}
	return result, nil
}

// TradingDates returns every date with at least one close inside window
func (r *PriceRepository) TradingDates(ctx context.Context, window contracts.DateRange) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM data.daily_prices
		WHERE trade_date BETWEEN $1 AND $2
		ORDER BY trade_date
	`

	rows, err := r.pool.Query(ctx, query, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("query trading dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// SaveSeries upserts a close series in one batch
func (r *PriceRepository) SaveSeries(ctx context.Context, series contracts.PriceSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO data.daily_prices (ticker, trade_date, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price
	`

	batch := &pgx.Batch{}
	for _, p := range series.Points {
		batch.Queue(query, series.Ticker, p.Date, p.Close)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range series.Points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert prices %s: %w", series.Ticker, err)
		}
	}
	return nil
}
