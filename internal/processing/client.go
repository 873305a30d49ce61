// Package processing runs batch requests against the FetchClimate service:
// cache lookup, send, poll while the service computes, then cache store.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fetchclimate-client/internal/adapter/rest"
	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/hash"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
	"github.com/couchcryptid/fetchclimate-client/internal/request"
	"github.com/couchcryptid/fetchclimate-client/internal/wire"
)

// DefaultTimeout bounds a single Process call including all polling.
const DefaultTimeout = 40 * time.Hour

// MinPollInterval is the shortest pause between polls of a pending
// computation, whatever wait the service hints.
const MinPollInterval = 100 * time.Millisecond

// ErrTimeout is returned when the service is still computing after the
// time budget. Retrying later resumes from the server-side work.
var ErrTimeout = errors.New("fetchclimate computation exceeded time budget")

// Transport posts a wire-encoded body and returns the service's answer.
type Transport interface {
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// Cache stores successful results by request hash.
type Cache interface {
	Get(hash string) (domain.Result, bool)
	Add(res domain.Result) error
	ClearAll() error
}

// Publisher forwards successful results downstream.
type Publisher interface {
	Publish(ctx context.Context, requestHash string, res domain.Result) error
}

// Client orchestrates the cache and transport for batch requests.
type Client struct {
	transport Transport
	cache     Cache
	publisher Publisher
	clock     clockwork.Clock
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	reachable atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock used for poll sleeps and the time budget.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithTimeout sets the overall budget for one Process call.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithPublisher forwards every successful result to p.
func WithPublisher(p Publisher) Option {
	return func(cl *Client) { cl.publisher = p }
}

// New creates a Client.
func New(t Transport, c Cache, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	cl := &Client{
		transport: t,
		cache:     c,
		clock:     clockwork.NewRealClock(),
		timeout:   DefaultTimeout,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(cl)
	}
	cl.reachable.Store(true)
	return cl
}

// CheckReadiness returns nil unless the last request found the service
// unreachable or the circuit open.
func (c *Client) CheckReadiness(_ context.Context) error {
	if !c.reachable.Load() {
		return rest.ErrServiceUnreachable
	}
	return nil
}

// ClearCache removes every cached result.
func (c *Client) ClearCache() error {
	return c.cache.ClearAll()
}

// Process returns the result for req, from the cache when an identical
// request was answered before. A service-side failure is returned as a
// failed Result with a nil error and is not cached.
func (c *Client) Process(ctx context.Context, req domain.BatchRequest) (domain.Result, error) {
	if err := domain.ValidateRequest(req); err != nil {
		return domain.Result{}, err
	}

	h := hash.Request(req)
	log := c.logger.With("request_id", uuid.NewString(), "request_hash", h)
	start := c.clock.Now()
	c.metrics.BatchCells.Observe(float64(req.Len()))
	defer func() { c.metrics.ProcessDuration.Observe(c.clock.Since(start).Seconds()) }()

	if res, ok := c.cache.Get(h); ok {
		log.Debug("cache hit", "cells", req.Len())
		c.metrics.ProcessCalls.WithLabelValues("cache_hit").Inc()
		res.Request = req
		c.publish(ctx, log, h, res)
		return res, nil
	}

	log.Info("sending batch", "parameter", req.Parameter.ID, "cells", req.Len())
	res, err := c.serverProcess(ctx, log, req, start)
	if err != nil {
		switch {
		case errors.Is(err, ErrTimeout):
			c.metrics.ProcessCalls.WithLabelValues("timeout").Inc()
		default:
			c.metrics.ProcessCalls.WithLabelValues("error").Inc()
		}
		c.reachable.Store(!errors.Is(err, rest.ErrServiceUnreachable) && !errors.Is(err, rest.ErrCircuitOpen))
		return domain.Result{}, err
	}
	c.reachable.Store(true)

	res.Request = req
	if !res.Succeeded() {
		log.Warn("service could not process batch", "message", res.Message)
		c.metrics.ProcessCalls.WithLabelValues("failed").Inc()
		return res, nil
	}
	if len(res.Values) != req.Len() {
		c.metrics.ProcessCalls.WithLabelValues("error").Inc()
		return domain.Result{}, fmt.Errorf("%w: %d values for %d cells", request.ErrResultShape, len(res.Values), req.Len())
	}

	if err := c.cache.Add(res); err != nil {
		log.Warn("cache write failed", "error", err)
	}
	c.metrics.ProcessCalls.WithLabelValues("success").Inc()
	log.Info("batch complete", "elapsed", c.clock.Since(start))
	c.publish(ctx, log, h, res)
	return res, nil
}

// serverProcess sends the request and polls until the service answers
// with a final result or the time budget runs out.
func (c *Client) serverProcess(ctx context.Context, log *slog.Logger, req domain.BatchRequest, start time.Time) (domain.Result, error) {
	full, err := wire.EncodeRequest(req)
	if err != nil {
		return domain.Result{}, fmt.Errorf("encode request: %w", err)
	}

	payload := full
	for poll := 0; ; poll++ {
		raw, err := c.transport.Send(ctx, payload)
		if err != nil {
			var statusErr *rest.StatusError
			if errors.As(err, &statusErr) {
				return domain.Result{Request: req, Status: domain.StatusFailed, Message: statusErr.Error()}, nil
			}
			return domain.Result{}, fmt.Errorf("send batch: %w", err)
		}

		resp, err := wire.DecodeResponse(raw)
		if err != nil {
			return domain.Result{}, fmt.Errorf("decode response: %w", err)
		}
		if res, ok := resp.Final(); ok {
			return res, nil
		}

		status, _ := resp.Pending()
		wait := max(status.ExpectedCalculationTime, MinPollInterval)
		if remaining := c.timeout - c.clock.Since(start); wait > remaining {
			wait = max(remaining, 0)
		}
		log.Info("computation pending",
			"poll", poll, "wait", wait, "resend_full_request", status.ResendFullRequest)
		c.metrics.PollWaits.Inc()
		c.metrics.PollWaitSeconds.Add(wait.Seconds())

		if err := sleep(ctx, c.clock, wait); err != nil {
			return domain.Result{}, err
		}
		if elapsed := c.clock.Since(start); elapsed >= c.timeout {
			return domain.Result{}, fmt.Errorf("%w: still pending after %s", ErrTimeout, elapsed)
		}

		if status.ResendFullRequest {
			payload = full
		} else {
			payload = wire.EncodeStatus(status)
		}
	}
}

func (c *Client) publish(ctx context.Context, log *slog.Logger, h string, res domain.Result) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, h, res); err != nil {
		log.Warn("publish result failed", "error", err)
	}
}

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
