package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the dispatcher circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// Interval clears failure counts while closed.
	Interval time.Duration
}

// BreakerDispatcher fails fast while the wrapped dispatcher is unhealthy.
type BreakerDispatcher struct {
	inner   Dispatcher
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerDispatcher wraps inner with a circuit breaker. Zero config
// values use the defaults.
func NewBreakerDispatcher(inner Dispatcher, cfg BreakerConfig) *BreakerDispatcher {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	logger := slog.Default().With("component", "notify.breaker")
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notify",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerDispatcher{inner: inner, breaker: cb}
}

// Dispatch routes the event through the circuit breaker.
func (d *BreakerDispatcher) Dispatch(ctx context.Context, event Event) error {
	_, err := d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.inner.Dispatch(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("notification dispatcher circuit open: %w", err)
	}
	return err
}

// State returns the current breaker state.
func (d *BreakerDispatcher) State() gobreaker.State {
	return d.breaker.State()
}

// Close closes the wrapped dispatcher.
func (d *BreakerDispatcher) Close() error {
	return d.inner.Close()
}
