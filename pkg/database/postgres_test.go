package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorband/pkg/config"
)

// openTestDB connects to DATABASE_URL or skips
func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNew(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, db.Ping(ctx))
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.NotZero(t, status.Stats.MaxConns)
	assert.NotZero(t, db.Stats().MaxConns)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	for _, table := range []string{
		"data.instruments", "data.market_caps", "data.fundamentals", "data.daily_prices",
		"selection.universe_snapshots", "selection.ranking_runs", "selection.rankings",
		"banding.holdings", "backtest.runs",
	} {
		var exists bool
		require.NoError(t, db.Pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists))
		assert.True(t, exists, table)
	}
}

func TestSchema_CoversEveryTable(t *testing.T) {
	schema := Schema()
	for _, table := range []string{
		"data.instruments", "data.market_caps", "data.fundamentals", "data.daily_prices",
		"selection.universe_snapshots", "selection.ranking_runs", "selection.rankings",
		"banding.holdings", "backtest.runs",
	} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" ("), table)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"invalid url", "invalid://url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Database: config.DatabaseConfig{
					URL:             tt.url,
					MaxConns:        25,
					MinConns:        5,
					MaxConnLifetime: time.Hour,
					MaxConnIdleTime: 30 * time.Minute,
				},
			}
			_, err := New(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestClose_Twice(t *testing.T) {
	db := openTestDB(t)
	db.Close()
	db.Close()
}
