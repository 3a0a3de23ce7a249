package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage backend: "memory" or "sqlite".
	DBDriver string
	DBPath   string

	// Broker ingest of decoded observations (optional).
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaGroupID     string
	BatchSize        int

	// Elevation lookup configuration.
	ElevationURL       string
	ElevationEnabled   bool
	ElevationTimeout   time.Duration
	ElevationCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	elevationTimeout, err := parseDurationEnv("ELEVATION_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	batchSize, err := parseIntEnv("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntEnv("ELEVATION_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBDriver: envOrDefault("DB_DRIVER", "memory"),
		DBPath:   envOrDefault("DB_PATH", "coverage-map.db"),

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "decoded-observations"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "coverage-map"),
		BatchSize:        batchSize,

		ElevationURL:       envOrDefault("ELEVATION_URL", "https://api.open-elevation.com"),
		ElevationEnabled:   envOrDefault("ELEVATION_ENABLED", "true") == "true",
		ElevationTimeout:   elevationTimeout,
		ElevationCacheSize: cacheSize,
	}

	switch cfg.DBDriver {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want memory or sqlite)", cfg.DBDriver)
	}
	if cfg.DBDriver == "sqlite" && cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required when DB_DRIVER is sqlite")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if cfg.ElevationEnabled && cfg.ElevationURL == "" {
		return nil, errors.New("ELEVATION_URL is required when ELEVATION_ENABLED is true")
	}

	return cfg, nil
}

// LoggingLevel satisfies observability.LoggerConfig.
func (c *Config) LoggingLevel() string { return c.LogLevel }

// LoggingFormat satisfies observability.LoggerConfig.
func (c *Config) LoggingFormat() string { return c.LogFormat }

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
