package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrUnavailable means the store could not be reached: refused or dropped
	// connections, bad credentials at connect time, or an open breaker.
	ErrUnavailable = errors.New("store unavailable")

	// ErrQuery covers everything else a query can fail with, such as schema
	// drift or malformed SQL.
	ErrQuery = errors.New("store query failed")
)

// QueryError carries the failing query name alongside the classified cause.
type QueryError struct {
	Query string
	Kind  error // ErrUnavailable or ErrQuery
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Query, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func classify(query string, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrQuery
	if isConnectivity(err) {
		kind = ErrUnavailable
	}
	return &QueryError{Query: query, Kind: kind, Err: err}
}

func isConnectivity(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectivityCode(pgErr.Code)
	}
	return false
}

// isConnectivityCode matches PostgreSQL SQLSTATE classes for connection
// exceptions (08), authorization failures (28) and server shutdown (57P01-03).
func isConnectivityCode(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "28"):
		return true
	case code == "57P01", code == "57P02", code == "57P03":
		return true
	}
	return false
}
