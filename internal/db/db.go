package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/studybud/backend/internal/config"
	"github.com/studybud/backend/migrations"
)

// Dialect names the SQL engine behind a DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB is the process-wide connection pool shared by every repository.
type DB struct {
	*sqlx.DB
	dialect Dialect
}

// Dialect reports which engine the pool is connected to.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Connect opens the primary PostgreSQL engine. When it cannot be reached and the
// fallback is enabled, the embedded SQLite database is opened once instead and
// brought up to date with the bundled migrations.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var primaryErr error
	if strings.TrimSpace(cfg.URL) != "" {
		db, err := OpenPostgres(ctx, cfg.URL, cfg.ConnectTimeout)
		if err == nil {
			return db, nil
		}
		primaryErr = err
		if !cfg.FallbackEnabled {
			return nil, err
		}
		logger.Warn("primary database unavailable, using embedded fallback", "error", err, "path", cfg.SQLitePath)
	} else if !cfg.FallbackEnabled {
		return nil, fmt.Errorf("connect database: no database url configured")
	}

	db, err := OpenSQLite(ctx, SQLiteDSN(cfg.SQLitePath))
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("open fallback database after %v: %w", primaryErr, err)
		}
		return nil, err
	}

	applied, err := Migrate(ctx, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate fallback database: %w", err)
	}
	for _, name := range applied {
		logger.Info("applied fallback migration", "migration", name)
	}

	return db, nil
}

// OpenPostgres connects to PostgreSQL through the pgx database/sql driver and verifies
// the connection within timeout. Failures are classified by ClassifyConnectError.
func OpenPostgres(ctx context.Context, url string, timeout time.Duration) (*DB, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	conn, err := sqlx.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, ClassifyConnectError(err)
	}

	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	return &DB{DB: conn, dialect: DialectPostgres}, nil
}

// OpenSQLite opens the embedded engine. SQLite allows a single writer, so the pool
// is limited to one connection.
func OpenSQLite(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &DB{DB: conn, dialect: DialectSQLite}, nil
}

// SQLiteDSN turns a file path into a DSN with the pragmas every connection needs.
// Values that already carry query parameters are returned unchanged.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		_ = os.MkdirAll(dir, 0o755)
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}

// WithTx runs fn inside a transaction, committing when it returns nil and rolling
// back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
