package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// EnsureDatabase creates the database named in url when it does not exist yet. It
// connects to the server's maintenance database to do so.
func EnsureDatabase(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	target, err := pgx.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	name := target.Database
	if name == "" || name == "postgres" {
		return nil
	}

	maintenance := target.Copy()
	maintenance.Database = "postgres"

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(connectCtx, maintenance)
	if err != nil {
		return ClassifyConnectError(err)
	}
	defer conn.Close(context.Background())

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("check database %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}
