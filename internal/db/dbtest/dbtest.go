// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/migrations"
)

// Open returns a migrated in-memory SQLite database that is closed when t finishes.
func Open(t testing.TB) *db.DB {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite"

	conn, err := db.OpenSQLite(ctx, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := db.Migrate(ctx, conn, migrations.FS); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}
