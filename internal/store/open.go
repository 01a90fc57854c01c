package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// OpenOptions tunes connection setup.
type OpenOptions struct {
	ConnectTimeout  time.Duration // total time spent retrying the initial ping
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

var DefaultOpenOptions = OpenOptions{
	ConnectTimeout:  30 * time.Second,
	MaxOpenConns:    10,
	ConnMaxLifetime: 30 * time.Minute,
}

// Open connects to dsn, choosing the driver from its shape, and pings it with
// exponential backoff until ConnectTimeout elapses.
func Open(ctx context.Context, dsn string, opts OpenOptions) (*sql.DB, Dialect, error) {
	dialect := DialectFor(dsn)

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, dialect, fmt.Errorf("open %s: %w", dialect, err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if dialect == SQLite {
		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")
	}

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = opts.ConnectTimeout
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = DefaultOpenOptions.ConnectTimeout
	}
	notify := func(err error, next time.Duration) {
		log.Printf("store: ping %s failed, retrying in %s: %v", dialect, next.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("ping %s: %w: %w", dialect, ErrUnavailable, err)
	}

	return db, dialect, nil
}
