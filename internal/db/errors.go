package db

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrHostUnreachable indicates the database server could not be reached at all.
	ErrHostUnreachable = errors.New("database host unreachable")
	// ErrAuthFailed indicates the server rejected the configured credentials.
	ErrAuthFailed = errors.New("database authentication failed")
)

// ClassifyConnectError maps a failed connection attempt onto ErrHostUnreachable or
// ErrAuthFailed when possible and wraps everything else as a generic connection error.
func ClassifyConnectError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01", "28000":
			return fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return fmt.Errorf("connect database: %w", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrHostUnreachable, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrHostUnreachable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrHostUnreachable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrHostUnreachable, err)
	}

	return fmt.Errorf("connect database: %w", err)
}
