package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultSourceURL is the IGP page listing reported earthquakes.
const DefaultSourceURL = "https://ultimosismo.igp.gob.pe/ultimo-sismo/sismos-reportados"

// DefaultUserAgent mimics a desktop browser; the source rejects obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceURL         string
	UserAgent         string
	FetchTimeout      time.Duration
	MaxRecords        int
	ScrapeInterval    time.Duration
	ScrapeRateLimit   time.Duration
	UpsertConcurrency int

	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	// Publishing is enabled only when KafkaTopic is set.
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s", false)
	if err != nil {
		return nil, err
	}
	scrapeInterval, err := parseDuration("SCRAPE_INTERVAL", "0s", true)
	if err != nil {
		return nil, err
	}
	rateLimit, err := parseDuration("SCRAPE_RATE_LIMIT", "30s", true)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	maxRecords, err := parseIntRange("MAX_RECORDS", 10, 1, 100)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseIntRange("UPSERT_CONCURRENCY", 1, 1, 16)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		SourceURL:         sharedcfg.EnvOrDefault("SOURCE_URL", DefaultSourceURL),
		UserAgent:         sharedcfg.EnvOrDefault("USER_AGENT", DefaultUserAgent),
		FetchTimeout:      fetchTimeout,
		MaxRecords:        maxRecords,
		ScrapeInterval:    scrapeInterval,
		ScrapeRateLimit:   rateLimit,
		UpsertConcurrency: concurrency,

		StoreDriver: sharedcfg.EnvOrDefault("STORE_DRIVER", DriverSQLite),
		SQLitePath:  sharedcfg.EnvOrDefault("SQLITE_PATH", "quakes.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	switch cfg.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want sqlite, postgres or memory", cfg.StoreDriver)
	}
	if cfg.KafkaTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_TOPIC is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// PublishEnabled reports whether saved records are also published to Kafka.
func (c *Config) PublishEnabled() bool {
	return c.KafkaTopic != ""
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", key, lo, hi)
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
