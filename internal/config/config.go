// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/incident-tracker/internal/backfill"
	"github.com/couchcryptid/incident-tracker/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	DBPath string

	// Geocoding configuration.
	GeocodeEnabled     bool
	GeocodeBaseURL     string
	GeocodeCountry     string
	GeocodeTimeout     time.Duration
	GeocodeMinInterval time.Duration

	// Reconciliation and backfill tuning.
	MaxDurationMin        int
	BackfillDurationLimit int
	BackfillGeocodeLimit  int
	BackfillInterval      time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parsePositiveDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	geocodeMinInterval, err := parsePositiveDuration("GEOCODE_MIN_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	maxDuration, err := parsePositiveInt("MAX_EVENT_DURATION_MIN", domain.DefaultMaxDurationMin)
	if err != nil {
		return nil, err
	}
	durationLimit, err := parsePositiveInt("BACKFILL_DURATION_LIMIT", backfill.DefaultDurationLimit)
	if err != nil {
		return nil, err
	}
	geocodeLimit, err := parsePositiveInt("BACKFILL_GEOCODE_LIMIT", backfill.DefaultGeocodeLimit)
	if err != nil {
		return nil, err
	}
	backfillInterval, err := parsePositiveDuration("BACKFILL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "raw-incident-reports"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "incident-tracker"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		DBPath: envOrDefault("DB_PATH", "incidents.db"),

		GeocodeEnabled:     envOrDefault("GEOCODE_ENABLED", "true") == "true",
		GeocodeBaseURL:     envOrDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodeCountry:     envOrDefault("GEOCODE_COUNTRY", "cz"),
		GeocodeTimeout:     geocodeTimeout,
		GeocodeMinInterval: geocodeMinInterval,

		MaxDurationMin:        maxDuration,
		BackfillDurationLimit: durationLimit,
		BackfillGeocodeLimit:  geocodeLimit,
		BackfillInterval:      backfillInterval,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.GeocodeEnabled && cfg.GeocodeBaseURL == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but GEOCODE_BASE_URL is empty")
	}

	return cfg, nil
}

// envOrDefault returns the environment value for key, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
