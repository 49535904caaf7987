package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studybud/backend/internal/db"
)

// base carries what every repository needs: the shared pool and a clock.
type base struct {
	db  *db.DB
	now func() time.Time
}

func newBase(d *db.DB) base {
	return base{db: d, now: func() time.Time { return time.Now().UTC() }}
}

func (b base) get(ctx context.Context, q sqlx.QueryerContext, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q, dest, b.db.Rebind(query), args...)
}

func (b base) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return b.db.SelectContext(ctx, dest, b.db.Rebind(query), args...)
}

func (b base) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.db.ExecContext(ctx, b.db.Rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (b base) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := b.db.QueryRowxContext(ctx, b.db.Rebind(query), args...).Scan(&id)
	return id, err
}

func (b base) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := b.get(ctx, b.db, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
