package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Analytics engine configuration.
	AntecedentPeriodHours int
	AntecedentDelayHours  int
	WetThresholdIn        float64
	MinSeriesHours        int
	MaxSeriesHours        int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	period, err := parsePositiveInt("ANTECEDENT_PERIOD_HOURS", 48)
	if err != nil {
		return nil, err
	}
	delay, err := parseNonNegativeInt("ANTECEDENT_DELAY_HOURS", 0)
	if err != nil {
		return nil, err
	}
	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}
	minHours, err := parsePositiveInt("MIN_SERIES_HOURS", 72)
	if err != nil {
		return nil, err
	}
	maxHours, err := parsePositiveInt("MAX_SERIES_HOURS", 720)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "hourly-gauge-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "precip-event-summaries"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "precip-analytics"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		AntecedentPeriodHours: period,
		AntecedentDelayHours:  delay,
		WetThresholdIn:        threshold,
		MinSeriesHours:        minHours,
		MaxSeriesHours:        maxHours,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MaxSeriesHours < cfg.MinSeriesHours {
		return nil, fmt.Errorf("MAX_SERIES_HOURS (%d) must be >= MIN_SERIES_HOURS (%d)",
			cfg.MaxSeriesHours, cfg.MinSeriesHours)
	}
	if cfg.MinSeriesHours < cfg.AntecedentPeriodHours+cfg.AntecedentDelayHours {
		return nil, fmt.Errorf("MIN_SERIES_HOURS (%d) must cover the antecedent window (period %d + delay %d)",
			cfg.MinSeriesHours, cfg.AntecedentPeriodHours, cfg.AntecedentDelayHours)
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseThreshold() (float64, error) {
	s := os.Getenv("WET_THRESHOLD_IN")
	if s == "" {
		return 0.1, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid WET_THRESHOLD_IN: %q", s)
	}
	return v, nil
}
