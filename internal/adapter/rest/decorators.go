package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Sender is anything that can post a body to the service.
type Sender interface {
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// RateLimited spaces out requests to the service.
type RateLimited struct {
	next    Sender
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with the given burst.
func NewRateLimited(next Sender, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Send waits for a token before delegating.
func (r *RateLimited) Send(ctx context.Context, body []byte) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Send(ctx, body)
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("fetchclimate circuit breaker open")

// CircuitBreaker stops calling the service after repeated unreachable
// errors, so callers fail fast instead of sitting through the retry loop
// again. Status errors and successes both count as the service being up.
type CircuitBreaker struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// NewCircuitBreaker trips after failures consecutive unreachable errors and
// probes again after cooldown.
func NewCircuitBreaker(next Sender, failures uint32, cooldown time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failures == 0 {
		failures = 3
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fetchclimate",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, ErrServiceUnreachable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &CircuitBreaker{next: next, cb: cb}
}

// Send delegates unless the breaker is open.
func (c *CircuitBreaker) Send(ctx context.Context, body []byte) ([]byte, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Send(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// State reports the breaker state for readiness checks.
func (c *CircuitBreaker) State() gobreaker.State { return c.cb.State() }
