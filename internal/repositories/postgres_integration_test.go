//go:build integration

package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/migrations"
)

var testDB *db.DB

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := db.OpenPostgres(ctx, server.PGURL().String(), 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if _, err := db.Migrate(ctx, conn, migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		_ = conn.Close()
		server.Stop()
		os.Exit(1)
	}

	testDB = conn

	code := m.Run()

	_ = conn.Close()
	server.Stop()

	os.Exit(code)
}

func TestRepositoriesPostgres(t *testing.T) {
	runRepositorySuite(t, func(t *testing.T) *db.DB {
		resetDatabase(t)
		return testDB
	})
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	tables := []string{
		"history", "saved_videos", "user_progress", "enrollments", "books", "videos",
		"courses", "login_activity", "password_reset_tokens", "user_preferences", "sessions", "users",
	}
	for _, table := range tables {
		if _, err := testDB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}
