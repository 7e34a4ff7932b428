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

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-incident-reports", cfg.KafkaSourceTopic)
	assert.Equal(t, "incident-tracker", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "incidents.db", cfg.DBPath)
	assert.True(t, cfg.GeocodeEnabled)
	assert.Equal(t, "cz", cfg.GeocodeCountry)
	assert.Equal(t, 5*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, time.Second, cfg.GeocodeMinInterval)
	assert.Equal(t, 4320, cfg.MaxDurationMin)
	assert.Equal(t, 80, cfg.BackfillDurationLimit)
	assert.Equal(t, 8, cfg.BackfillGeocodeLimit)
	assert.Equal(t, 5*time.Minute, cfg.BackfillInterval)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DB_PATH", "/var/lib/tracker/incidents.db")
	t.Setenv("GEOCODE_ENABLED", "false")
	t.Setenv("GEOCODE_COUNTRY", "sk")
	t.Setenv("GEOCODE_MIN_INTERVAL", "2s")
	t.Setenv("MAX_EVENT_DURATION_MIN", "1440")
	t.Setenv("BACKFILL_DURATION_LIMIT", "40")
	t.Setenv("BACKFILL_GEOCODE_LIMIT", "4")
	t.Setenv("BACKFILL_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/tracker/incidents.db", cfg.DBPath)
	assert.False(t, cfg.GeocodeEnabled)
	assert.Equal(t, "sk", cfg.GeocodeCountry)
	assert.Equal(t, 2*time.Second, cfg.GeocodeMinInterval)
	assert.Equal(t, 1440, cfg.MaxDurationMin)
	assert.Equal(t, 40, cfg.BackfillDurationLimit)
	assert.Equal(t, 4, cfg.BackfillGeocodeLimit)
	assert.Equal(t, time.Minute, cfg.BackfillInterval)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"GEOCODE_TIMEOUT", "-5s"},
		{"GEOCODE_MIN_INTERVAL", "0s"},
		{"MAX_EVENT_DURATION_MIN", "zero"},
		{"MAX_EVENT_DURATION_MIN", "-1"},
		{"BACKFILL_DURATION_LIMIT", "0"},
		{"BACKFILL_GEOCODE_LIMIT", "-8"},
		{"BACKFILL_INTERVAL", "never"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, parseBrokers("a:1,,  b:2 ,"))
	assert.Empty(t, parseBrokers("  ,  "))
}
