package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/lox/parkwait/internal/metrics"
)

// BreakerSettings controls when the store stops sending queries to an
// unreachable database.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive connectivity failures before opening
	Cooldown    time.Duration // time spent open before a trial query
}

var DefaultBreakerSettings = BreakerSettings{
	MaxFailures: 5,
	Cooldown:    30 * time.Second,
}

func newBreaker(name string, cfg BreakerSettings) *gobreaker.CircuitBreaker[any] {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerSettings.MaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerSettings.Cooldown
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Only connectivity failures count against the breaker; a cancelled
		// request or a bad query says nothing about database health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !isConnectivity(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("store: breaker %s %s -> %s", name, from, to)
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// run executes fn through the breaker and records query metrics. Errors come
// back classified as ErrUnavailable or ErrQuery.
func run[T any](ctx context.Context, s *Store, name string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := s.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	metrics.StoreQueryLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

	var zero T
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues(name, "error").Inc()
		return zero, classify(name, err)
	}
	metrics.StoreQueriesTotal.WithLabelValues(name, "ok").Inc()
	if v == nil {
		return zero, nil
	}
	return v.(T), nil
}
