package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DefaultExcludedTypes are the attraction types that are not rides.
var DefaultExcludedTypes = []string{"Restaurant", "Show"}

type Store struct {
	db            *sql.DB
	loc           *time.Location
	dialect       Dialect
	excludedTypes []string
	breaker       *gobreaker.CircuitBreaker[any]
}

type Option func(*Store)

// WithDialect sets the placeholder dialect. The default is SQLite.
func WithDialect(d Dialect) Option {
	return func(s *Store) { s.dialect = d }
}

// WithExcludedTypes replaces the attraction type names filtered out of ride
// listings.
func WithExcludedTypes(types []string) Option {
	return func(s *Store) {
		s.excludedTypes = append([]string(nil), types...)
	}
}

// WithBreaker overrides the circuit breaker thresholds.
func WithBreaker(cfg BreakerSettings) Option {
	return func(s *Store) { s.breaker = newBreaker("store", cfg) }
}

// New wraps db. loc is the park time zone used for day-of-week and
// hour-of-day matching.
func New(db *sql.DB, loc *time.Location, opts ...Option) *Store {
	if loc == nil {
		loc = time.UTC
	}
	s := &Store{
		db:            db,
		loc:           loc,
		excludedTypes: DefaultExcludedTypes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = newBreaker("store", DefaultBreakerSettings)
	}
	return s
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) ExcludedTypes() []string {
	return append([]string(nil), s.excludedTypes...)
}

// Ping checks the database through the breaker.
func (s *Store) Ping(ctx context.Context) error {
	_, err := run(ctx, s, "ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.db.PingContext(ctx)
	})
	return err
}
