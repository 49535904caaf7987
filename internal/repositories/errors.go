package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrLastAdmin indicates a write would leave the platform without an admin.
	ErrLastAdmin = errors.New("last admin user")
)

// translate maps driver errors from either engine onto the package sentinels.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := liteErr.Error()
		switch {
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%s: %w", op, ErrConflict)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
