// Package databasetest provides an in-memory SQLite database with the
// application schema applied, for repository and service tests.
package databasetest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/freightdesk/freightdesk/internal/database"
)

// schema mirrors db/migrations/sql in SQLite-compatible form.
var schema = []string{
	`CREATE TABLE freight_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number VARCHAR NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'new',
		client_name VARCHAR,
		origin VARCHAR,
		origin_address JSONB,
		destination_address JSONB,
		loading_contact JSONB,
		unloading_contact JSONB,
		delivery_date TIMESTAMP,
		documents TEXT,
		distance_km NUMERIC,
		cargo TEXT,
		mpk VARCHAR,
		notes TEXT,
		created_by VARCHAR,
		created_by_contact VARCHAR,
		responsible_name VARCHAR,
		responsible_contact VARCHAR,
		dispatch_response JSONB,
		consolidation_meta JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		responded_at TIMESTAMP,
		completed_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX idx_freight_orders_number ON freight_orders (number)`,
	`CREATE TABLE order_sequences (
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		last_value INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP,
		PRIMARY KEY (month, year)
	)`,
}

// New opens an isolated in-memory database and applies the schema. The
// connection pool is pinned to one connection so the memory database
// survives for the whole test.
func New(t *testing.T) *database.Connections {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, ddl := range schema {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	return &database.Connections{Writer: db, Reader: db}
}
