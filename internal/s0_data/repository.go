package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorband/internal/contracts"
)

// Repository bundles the pgx readers into one contracts.DataProvider
type Repository struct {
	*UniverseRepository
	*FundamentalsRepository
	*PriceRepository
	*MarketCapRepository

	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		UniverseRepository:     NewUniverseRepository(db),
		FundamentalsRepository: NewFundamentalsRepository(db),
		PriceRepository:        NewPriceRepository(db),
		MarketCapRepository:    NewMarketCapRepository(db),
		db:                     db,
	}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

var _ contracts.DataProvider = (*Repository)(nil)

// UniverseRepository reads listed instruments as of a date
// ⭐ SSOT: 상장 종목 조회는 여기서만
type UniverseRepository struct {
	pool *pgxpool.Pool
}

// NewUniverseRepository creates a new universe repository
func NewUniverseRepository(pool *pgxpool.Pool) *UniverseRepository {
	return &UniverseRepository{pool: pool}
}

// Universe returns instruments listed on date with the latest market cap known on date.
// 상장폐지 종목도 해당 날짜에 상장 중이었다면 포함 (생존 편향 방지)
func (r *UniverseRepository) Universe(ctx context.Context, date time.Time) ([]contracts.UniverseEntry, error) {
	query := `
		SELECT s.ticker, s.name, mc.market_cap, COALESCE(s.sector, ''),
		       s.instrument_type, s.market, s.currency
		FROM data.instruments s
		LEFT JOIN LATERAL (
			SELECT market_cap
			FROM data.market_caps m
			WHERE m.ticker = s.ticker AND m.trade_date <= $1
			ORDER BY m.trade_date DESC
			LIMIT 1
		) mc ON TRUE
		WHERE s.listed_date <= $1
		  AND (s.delisted_date IS NULL OR s.delisted_date > $1)
		ORDER BY s.ticker
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	var entries []contracts.UniverseEntry
	for rows.Next() {
		var e contracts.UniverseEntry
		var instType string
		if err := rows.Scan(&e.Ticker, &e.Name, &e.MarketCap, &e.Sector, &instType, &e.Market, &e.Currency); err != nil {
			return nil, fmt.Errorf("scan universe: %w", err)
		}
		e.Type = contracts.InstrumentType(instType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveInstrument upserts a listing. delisted nil keeps the instrument listed.
func (r *UniverseRepository) SaveInstrument(ctx context.Context, e contracts.UniverseEntry, listed time.Time, delisted *time.Time) error {
	query := `
		INSERT INTO data.instruments (ticker, name, sector, instrument_type, market, currency, listed_date, delisted_date)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (ticker) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			instrument_type = EXCLUDED.instrument_type,
			market = EXCLUDED.market,
			currency = EXCLUDED.currency,
			listed_date = EXCLUDED.listed_date,
			delisted_date = EXCLUDED.delisted_date
	`

	_, err := r.pool.Exec(ctx, query,
		e.Ticker, e.Name, e.Sector, string(e.Type), e.Market, e.Currency, listed, delisted,
	)
	if err != nil {
		return fmt.Errorf("upsert instrument %s: %w", e.Ticker, err)
	}
	return nil
}

// MarketCapRepository reads month-end market cap history
// ⭐ SSOT: 과거 시가총액 (ticker, month) 조회
type MarketCapRepository struct {
	pool *pgxpool.Pool
}

// NewMarketCapRepository creates a new market cap repository
func NewMarketCapRepository(pool *pgxpool.Pool) *MarketCapRepository {
	return &MarketCapRepository{pool: pool}
}

// MarketCap returns the snapshot for the calendar month containing month
func (r *MarketCapRepository) MarketCap(ctx context.Context, ticker string, month time.Time) (float64, bool, error) {
	query := `
		SELECT market_cap
		FROM data.market_caps
		WHERE ticker = $1
		  AND trade_date >= $2 AND trade_date < $3
		ORDER BY trade_date DESC
		LIMIT 1
	`

	start := MonthStart(month)
	var value float64
	err := r.pool.QueryRow(ctx, query, ticker, start, start.AddDate(0, 1, 0)).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query market cap %s: %w", ticker, err)
	}
	return value, true, nil
}

// SaveMarketCap upserts one market cap observation
func (r *MarketCapRepository) SaveMarketCap(ctx context.Context, ticker string, date time.Time, value float64) error {
	query := `
		INSERT INTO data.market_caps (ticker, trade_date, market_cap)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			market_cap = EXCLUDED.market_cap
	`

	if _, err := r.pool.Exec(ctx, query, ticker, date, value); err != nil {
		return fmt.Errorf("upsert market cap %s: %w", ticker, err)
	}
	return nil
}

// MonthStart truncates t to the first day of its month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
