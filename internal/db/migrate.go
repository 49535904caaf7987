package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	migrationMaxRetries  = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// MigrationStatus reports whether a bundled migration has been applied.
type MigrationStatus struct {
	Name    string
	Applied bool
}

// Migrate applies every pending migration for the pool's dialect from fsys, which
// holds one directory per dialect. It returns the names it applied, in order.
func Migrate(ctx context.Context, d *DB, fsys fs.FS) ([]string, error) {
	names, err := migrationFiles(fsys, d.Dialect())
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(ctx, d)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, name := range names {
		if _, ok := applied[name]; ok {
			continue
		}

		contents, err := fs.ReadFile(fsys, path.Join(string(d.Dialect()), name))
		if err != nil {
			return done, fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := applyMigrationWithRetry(ctx, d, name, string(contents)); err != nil {
			return done, err
		}
		done = append(done, name)
	}

	return done, nil
}

// Status lists the bundled migrations for the pool's dialect and whether each is applied.
func Status(ctx context.Context, d *DB, fsys fs.FS) ([]MigrationStatus, error) {
	names, err := migrationFiles(fsys, d.Dialect())
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(ctx, d)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(names))
	for _, name := range names {
		_, ok := applied[name]
		statuses = append(statuses, MigrationStatus{Name: name, Applied: ok})
	}
	return statuses, nil
}

func migrationFiles(fsys fs.FS, dialect Dialect) ([]string, error) {
	entries, err := fs.ReadDir(fsys, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func appliedMigrations(ctx context.Context, d *DB) (map[string]struct{}, error) {
	ddl := `CREATE TABLE IF NOT EXISTS schema_migrations (
                version TEXT PRIMARY KEY,
                applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`
	if d.Dialect() == DialectSQLite {
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
                version TEXT PRIMARY KEY,
                applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`
	}
	if _, err := d.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	var versions []string
	if err := d.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}

	applied := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

// splitStatements breaks a migration into individual statements. Migrations must not
// contain semicolons inside string literals or trigger bodies.
func splitStatements(contents string) []string {
	var stmts []string
	for _, part := range strings.Split(contents, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func applyMigrationWithRetry(ctx context.Context, d *DB, name string, contents string) error {
	opts := &sql.TxOptions{}
	if d.Dialect() == DialectPostgres {
		opts.Isolation = sql.LevelSerializable
	}

	var attempt int
	for attempt = 0; attempt < migrationMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * migrationBaseBackoff
			if backoff > migrationMaxBackoff {
				backoff = migrationMaxBackoff
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			timer.Stop()
		}

		err := applyMigration(ctx, d, opts, name, contents)
		if err == nil {
			return nil
		}
		if shouldRetryMigration(err) && attempt < migrationMaxRetries-1 {
			continue
		}
		return err
	}

	return fmt.Errorf("apply migration %s: exceeded max retries (%d)", name, attempt)
}

func applyMigration(ctx context.Context, d *DB, opts *sql.TxOptions, name, contents string) error {
	tx, err := d.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin migration transaction for %s: %w", name, err)
	}

	if err := execMigration(ctx, tx, contents); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

func execMigration(ctx context.Context, tx *sqlx.Tx, contents string) error {
	for _, stmt := range splitStatements(contents) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func shouldRetryMigration(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := retryablePgErrorCodes[pgErr.Code]; ok {
			return true
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	return errors.Is(err, sql.ErrTxDone)
}
