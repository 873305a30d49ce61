package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/fetchclimate-client/internal/adapter/credentials"
	kafkaadapter "github.com/couchcryptid/fetchclimate-client/internal/adapter/kafka"
	"github.com/couchcryptid/fetchclimate-client/internal/adapter/mapbox"
	"github.com/couchcryptid/fetchclimate-client/internal/adapter/rest"
	"github.com/couchcryptid/fetchclimate-client/internal/cache"
	"github.com/couchcryptid/fetchclimate-client/internal/config"
	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
	"github.com/couchcryptid/fetchclimate-client/internal/processing"
)

// Circuit breaker tuning for the service transport.
const (
	breakerFailures = 3
	breakerCooldown = time.Minute
)

// errPlacesDisabled is returned when --place is used without a Mapbox token.
var errPlacesDisabled = errors.New("place lookup needs MAPBOX_TOKEN")

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	cache   *cache.DiskCache
	client  *processing.Client
	places  domain.PlaceResolver
	closers []func() error
}

// newApp loads configuration and wires the processing client. serve
// publishes whenever Kafka is configured; other commands only with --publish.
func newApp(opts *rootOptions, metrics *observability.Metrics, serve bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)

	a := &app{cfg: cfg, logger: logger, metrics: metrics}

	a.cache, err = cache.NewDiskCache(cfg.CacheDir, cfg.CacheMemoryEntries, logger, metrics)
	if err != nil {
		return nil, err
	}

	clientOpts := []processing.Option{processing.WithTimeout(cfg.Timeout)}
	switch {
	case opts.publish && !cfg.PublishEnabled():
		return nil, errors.New("--publish needs KAFKA_BROKERS and KAFKA_RESULTS_TOPIC")
	case opts.publish || (serve && cfg.PublishEnabled()):
		pub := kafkaadapter.NewPublisher(cfg, logger, metrics)
		a.closers = append(a.closers, pub.Close)
		clientOpts = append(clientOpts, processing.WithPublisher(pub))
		logger.Info("publishing results", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaResultsTopic)
	}

	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		resolver, err := mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			return nil, err
		}
		a.places = resolver
		logger.Debug("mapbox place lookup enabled", "cache_size", cfg.MapboxCacheSize)
	}

	a.client = processing.New(newSender(cfg, logger, metrics), a.cache, logger, metrics, clientOpts...)
	return a, nil
}

// newSender builds the transport chain: digest-authenticated POSTs with
// retry, then optional rate limiting, then the circuit breaker.
func newSender(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) rest.Sender {
	creds := credentials.Static{Login: cfg.Login, Password: cfg.Password}
	var s rest.Sender = rest.New(cfg.ServiceURL, creds, logger, metrics,
		rest.WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
		rest.WithRequestTimeout(cfg.RequestTimeout),
	)
	if cfg.RateLimit > 0 {
		s = rest.NewRateLimited(s, cfg.RateLimit, 1)
	}
	if cfg.BreakerEnabled {
		s = rest.NewCircuitBreaker(s, breakerFailures, breakerCooldown, logger)
	}
	return s
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}
