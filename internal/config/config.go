package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vanshika/sparqlconn/internal/graph"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Store   StoreConfig
	Ingest  IngestConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// StoreConfig describes connectivity to the triple store's REST API.
type StoreConfig struct {
	URI            string
	Host           string
	Port           int
	UseTLS         bool
	Database       string
	Username       string
	Password       string
	Auth           string // digest|basic|none
	MaxConnections int
	RequestTimeout time.Duration
	RateLimit      float64
	MaxRetries     int
}

// IngestConfig controls the bulk loader.
type IngestConfig struct {
	Workers       int
	DefaultGraph  string
	WatchDebounce time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"

	defaultStoreHost           = "localhost"
	defaultStorePort           = 8000
	defaultStoreAuth           = "digest"
	defaultStoreMaxConnections = 10
	defaultStoreTimeout        = 30 * time.Second
	defaultStoreMaxRetries     = 3

	defaultIngestWorkers  = 4
	defaultWatchDebounce  = 500 * time.Millisecond
	defaultDotenvFilename = ".env"
)

// Load reads configuration from environment variables, applying defaults.
// A .env file (or the file named by ENV_FILE) is read first; variables
// already set in the environment win.
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			MetricsEnabled:    parseBoolWithDefault("SERVER_METRICS_ENABLED", false),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Store: StoreConfig{
			URI:            os.Getenv("STORE_URI"),
			Host:           valueOrDefault("STORE_HOST", defaultStoreHost),
			UseTLS:         parseBoolWithDefault("STORE_TLS", false),
			Database:       os.Getenv("STORE_DATABASE"),
			Username:       os.Getenv("STORE_USERNAME"),
			Password:       os.Getenv("STORE_PASSWORD"),
			Auth:           strings.ToLower(valueOrDefault("STORE_AUTH", defaultStoreAuth)),
			MaxConnections: parseIntWithDefault("STORE_MAX_CONNECTIONS", defaultStoreMaxConnections),
			MaxRetries:     parseIntWithDefault("STORE_MAX_RETRIES", defaultStoreMaxRetries),
		},
		Ingest: IngestConfig{
			Workers:      parseIntWithDefault("INGEST_WORKERS", defaultIngestWorkers),
			DefaultGraph: os.Getenv("INGEST_DEFAULT_GRAPH"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	var err error
	if cfg.HTTP.Port, err = parsePort("SERVER_PORT", defaultPort); err != nil {
		return Config{}, err
	}
	if cfg.Store.Port, err = parsePort("STORE_PORT", defaultStorePort); err != nil {
		return Config{}, err
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"STORE_REQUEST_TIMEOUT", defaultStoreTimeout, &cfg.Store.RequestTimeout},
		{"INGEST_WATCH_DEBOUNCE", defaultWatchDebounce, &cfg.Ingest.WatchDebounce},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.key, d.fallback); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("STORE_RATE_LIMIT"); v != "" {
		rl, err := strconv.ParseFloat(v, 64)
		if err != nil || rl < 0 {
			return Config{}, fmt.Errorf("invalid STORE_RATE_LIMIT value %q", v)
		}
		cfg.Store.RateLimit = rl
	}

	switch graph.AuthScheme(cfg.Store.Auth) {
	case graph.AuthDigest, graph.AuthBasic, graph.AuthNone:
	default:
		return Config{}, fmt.Errorf("invalid STORE_AUTH value %q", cfg.Store.Auth)
	}

	return cfg, nil
}

// GraphOptions converts the store settings into transport options.
func (s StoreConfig) GraphOptions() graph.Options {
	return graph.Options{
		URI:            s.URI,
		Host:           s.Host,
		Port:           s.Port,
		UseTLS:         s.UseTLS,
		Database:       s.Database,
		Username:       s.Username,
		Password:       s.Password,
		AuthScheme:     graph.AuthScheme(s.Auth),
		MaxConnections: s.MaxConnections,
		RequestTimeout: s.RequestTimeout,
		RateLimit:      s.RateLimit,
		MaxRetries:     s.MaxRetries,
	}
}

func loadDotenv() error {
	file := valueOrDefault("ENV_FILE", defaultDotenvFilename)
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) && os.Getenv("ENV_FILE") == "" {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", file, err)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
