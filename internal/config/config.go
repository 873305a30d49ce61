package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// DefaultServiceURL is the public FetchClimate REST endpoint.
const DefaultServiceURL = "http://fetchclimatesvc.cloudapp.net/fetch2"

// Config holds all client settings, populated from environment variables.
type Config struct {
	ServiceURL string `validate:"required,url"`
	Login      string `validate:"required"`
	Password   string

	CacheDir           string `validate:"required"`
	CacheMemoryEntries int    `validate:"gte=0"`

	Timeout        time.Duration `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	RetryAttempts  int           `validate:"gte=1,lte=20"`
	RetryDelay     time.Duration `validate:"gt=0"`
	RateLimit      float64       `validate:"gte=0"`
	BreakerEnabled bool

	HTTPAddr        string
	LogLevel        string `validate:"oneof=debug info warn warning error"`
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration

	// Optional Kafka publisher for fetched results.
	KafkaBrokers      []string
	KafkaResultsTopic string

	// Mapbox geocoding for place-name lookups.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// PublishEnabled reports whether results should be written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaResultsTopic != ""
}

var validate = validator.New()

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := parseDuration("FETCHCLIMATE_TIMEOUT", "40h")
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("FETCHCLIMATE_REQUEST_TIMEOUT", "4h")
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("FETCHCLIMATE_RETRY_DELAY", "2s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	retryAttempts, err := parseInt("FETCHCLIMATE_RETRY_ATTEMPTS", 7)
	if err != nil {
		return nil, err
	}
	memoryEntries, err := parseInt("FETCHCLIMATE_CACHE_MEMORY_ENTRIES", 256)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("FETCHCLIMATE_RATE_LIMIT", "0"), 64)
	if err != nil {
		return nil, errors.New("invalid FETCHCLIMATE_RATE_LIMIT")
	}

	breakerEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("FETCHCLIMATE_BREAKER_ENABLED", "true"))
	if err != nil {
		return nil, errors.New("invalid FETCHCLIMATE_BREAKER_ENABLED")
	}

	cacheDir := os.Getenv("FETCHCLIMATE_CACHE_DIR")
	if cacheDir == "" {
		if cacheDir, err = defaultCacheDir(); err != nil {
			return nil, err
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		ServiceURL: sharedcfg.EnvOrDefault("FETCHCLIMATE_URL", DefaultServiceURL),
		Login:      sharedcfg.EnvOrDefault("FETCHCLIMATE_LOGIN", "anonymous"),
		Password:   sharedcfg.EnvOrDefault("FETCHCLIMATE_PASSWORD", "anonymous"),

		CacheDir:           cacheDir,
		CacheMemoryEntries: memoryEntries,

		Timeout:        timeout,
		RequestTimeout: requestTimeout,
		RetryAttempts:  retryAttempts,
		RetryDelay:     retryDelay,
		RateLimit:      rateLimit,
		BreakerEnabled: breakerEnabled,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:      brokers,
		KafkaResultsTopic: sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "climate-results"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}

	return cfg, nil
}

// envNames maps struct fields to the variables that populate them.
var envNames = map[string]string{
	"ServiceURL":         "FETCHCLIMATE_URL",
	"Login":              "FETCHCLIMATE_LOGIN",
	"CacheDir":           "FETCHCLIMATE_CACHE_DIR",
	"CacheMemoryEntries": "FETCHCLIMATE_CACHE_MEMORY_ENTRIES",
	"Timeout":            "FETCHCLIMATE_TIMEOUT",
	"RequestTimeout":     "FETCHCLIMATE_REQUEST_TIMEOUT",
	"RetryAttempts":      "FETCHCLIMATE_RETRY_ATTEMPTS",
	"RetryDelay":         "FETCHCLIMATE_RETRY_DELAY",
	"RateLimit":          "FETCHCLIMATE_RATE_LIMIT",
	"LogLevel":           "LOG_LEVEL",
	"LogFormat":          "LOG_FORMAT",
}

// describe turns validator output into an error naming the env var.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := envNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	return fmt.Errorf("invalid %s: failed %q check", name, fe.Tag())
}

func defaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir (set FETCHCLIMATE_CACHE_DIR): %w", err)
	}
	return filepath.Join(dir, "fetchclimate"), nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
