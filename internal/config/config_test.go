package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, "coverage-map.db", cfg.DBPath)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "decoded-observations", cfg.KafkaSourceTopic)
	assert.Equal(t, "coverage-map", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)

	assert.True(t, cfg.ElevationEnabled)
	assert.Equal(t, "https://api.open-elevation.com", cfg.ElevationURL)
	assert.Equal(t, 5*time.Second, cfg.ElevationTimeout)
	assert.Equal(t, 1000, cfg.ElevationCacheSize)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/data/coverage.db")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")
	t.Setenv("KAFKA_SOURCE_TOPIC", "observations")
	t.Setenv("BATCH_SIZE", "200")
	t.Setenv("ELEVATION_TIMEOUT", "2s")
	t.Setenv("ELEVATION_CACHE_SIZE", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/data/coverage.db", cfg.DBPath)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "observations", cfg.KafkaSourceTopic)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.ElevationTimeout)
	assert.Equal(t, 64, cfg.ElevationCacheSize)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown db driver", key: "DB_DRIVER", value: "postgres"},
		{name: "bad shutdown timeout", key: "SHUTDOWN_TIMEOUT", value: "soon"},
		{name: "negative shutdown timeout", key: "SHUTDOWN_TIMEOUT", value: "-1s"},
		{name: "bad batch size", key: "BATCH_SIZE", value: "many"},
		{name: "zero batch size", key: "BATCH_SIZE", value: "0"},
		{name: "bad cache size", key: "ELEVATION_CACHE_SIZE", value: "-5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoggerConfigSurface(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogFormat: "text"}
	assert.Equal(t, "warn", cfg.LoggingLevel())
	assert.Equal(t, "text", cfg.LoggingFormat())
}
