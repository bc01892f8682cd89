// Package sqldb opens the SQL backends of the label store: PostgreSQL through
// the pgx stdlib driver and SQLite through the pure-Go modernc driver.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

// Dialect selects placeholder syntax and column types.
type Dialect string

const (
	// Postgres is PostgreSQL via pgx.
	Postgres Dialect = "postgres"
	// SQLite is SQLite via modernc.org/sqlite.
	SQLite Dialect = "sqlite"
)

// Config holds SQL connection settings.
type Config struct {
	Dialect Dialect
	DSN     string
}

// DB is an opened SQL handle together with its dialect.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open connects, pings and migrates the accounts schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var driver string
	switch cfg.Dialect {
	case Postgres:
		driver = "pgx"
	case SQLite:
		driver = "sqlite"
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", cfg.Dialect)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required for %s", cfg.Dialect)
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}
	if cfg.Dialect == SQLite && isMemory(cfg.DSN) {
		// every new connection to :memory: is a fresh database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Dialect, err)
	}

	d := &DB{DB: sqlDB, dialect: cfg.Dialect}
	if err := d.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.Dialect, err)
	}
	return d, nil
}

// Dialect returns the backend dialect.
func (d *DB) Dialect() Dialect { return d.dialect }

// Rebind rewrites '?' placeholders to the dialect's native form.
func (d *DB) Rebind(query string) string {
	return Rebind(d.dialect, query)
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", d.dialect, err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (d *DB) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := d.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Rebind rewrites '?' placeholders to $1..$n for PostgreSQL and leaves SQLite untouched.
func Rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *DB) migrate(ctx context.Context) error {
	blob := "BLOB"
	if d.dialect == Postgres {
		blob = "BYTEA"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			account_id BIGINT NOT NULL,
			cluster_id BIGINT NOT NULL,
			label      INTEGER NOT NULL DEFAULT 0,
			embedding  ` + blob + `,
			PRIMARY KEY (account_id, cluster_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_cluster_label ON accounts (cluster_id, label)`,
	}
	for _, s := range stmts {
		if _, err := d.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func ensureDir(dsn string) error {
	if dsn == "" || isMemory(dsn) || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating db directory: %w", err)
	}
	return nil
}
