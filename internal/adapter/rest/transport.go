// Package rest posts wire-encoded batches to the FetchClimate REST endpoint
// with digest authentication, retrying connection failures with
// exponential backoff.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/icholy/digest"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fetchclimate-client/internal/adapter/credentials"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
	"github.com/couchcryptid/fetchclimate-client/internal/wire"
)

// Defaults for the retry loop and per-attempt timeout.
const (
	DefaultRetryAttempts  = 7
	DefaultRetryDelay     = 2 * time.Second
	DefaultRequestTimeout = 4 * time.Hour

	maxRetryDelay = time.Hour
	maxErrorBody  = 512
)

// ErrServiceUnreachable is returned once every attempt has failed at the
// connection level.
var ErrServiceUnreachable = errors.New("fetchclimate service unreachable")

// StatusError is a non-2xx answer from the service. It is never retried.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Sprintf("fetchclimate service returned status %d: %s", e.Code, bytes.TrimSpace(body))
}

// Transport sends request bodies to the service.
type Transport struct {
	url            string
	creds          credentials.Source
	base           http.RoundTripper
	clock          clockwork.Clock
	attempts       int
	retryDelay     time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics

	mu      sync.Mutex
	clients map[credentials.Credentials]*http.Client
}

// Option configures a Transport.
type Option func(*Transport)

// WithRoundTripper replaces the underlying HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithClock sets the clock used for retry sleeps.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) { t.clock = c }
}

// WithRetry sets the total attempt budget and the first retry delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(t *Transport) {
		t.attempts = attempts
		t.retryDelay = delay
	}
}

// WithRequestTimeout bounds a single attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(t *Transport) { t.requestTimeout = d }
}

// New creates a Transport posting to url. A nil creds uses the anonymous login.
func New(url string, creds credentials.Source, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Transport {
	if creds == nil {
		creds = credentials.Anonymous
	}
	t := &Transport{
		url:            url,
		creds:          creds,
		base:           http.DefaultTransport,
		clock:          clockwork.NewRealClock(),
		attempts:       DefaultRetryAttempts,
		retryDelay:     DefaultRetryDelay,
		requestTimeout: DefaultRequestTimeout,
		logger:         logger,
		metrics:        metrics,
		clients:        make(map[credentials.Credentials]*http.Client),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.attempts < 1 {
		t.attempts = 1
	}
	return t
}

// clientFor returns an HTTP client bound to one login. The digest transport
// keeps the server challenge, so later requests authenticate up front.
func (t *Transport) clientFor(c credentials.Credentials) *http.Client {
	t.mu.Lock()
	defer t.mu.Unlock()

	if client, ok := t.clients[c]; ok {
		return client
	}
	client := &http.Client{
		Timeout: t.requestTimeout,
		Transport: &digest.Transport{
			Username:  c.Login,
			Password:  c.Password,
			Transport: t.base,
		},
	}
	t.clients[c] = client
	return client
}

func (t *Transport) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.retryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Send posts body and returns the response body of a 2xx answer.
// Connection failures are retried; the first attempt runs immediately and
// each retry waits twice as long as the previous one.
func (t *Transport) Send(ctx context.Context, body []byte) ([]byte, error) {
	creds, err := t.creds.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	client := t.clientFor(creds)
	b := t.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		if attempt > 1 {
			wait := b.NextBackOff()
			t.logger.Warn("fetchclimate request failed, retrying",
				"attempt", attempt, "max_attempts", t.attempts, "wait", wait, "error", lastErr)
			t.metrics.TransportRetries.Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.clock.After(wait):
			}
		}

		resp, err := t.post(ctx, client, body)
		if err == nil {
			return resp, nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrServiceUnreachable, t.attempts, lastErr)
}

func (t *Transport) post(ctx context.Context, client *http.Client, body []byte) ([]byte, error) {
	start := t.clock.Now()
	defer func() { t.metrics.TransportDuration.Observe(t.clock.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", wire.ContentType)

	resp, err := client.Do(req)
	if err != nil {
		t.metrics.TransportAttempts.WithLabelValues("connection_error").Inc()
		return nil, fmt.Errorf("post request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.TransportAttempts.WithLabelValues("connection_error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.metrics.TransportAttempts.WithLabelValues("http_error").Inc()
		return nil, &StatusError{Code: resp.StatusCode, Body: respBody}
	}
	t.metrics.TransportAttempts.WithLabelValues("success").Inc()
	return respBody, nil
}
