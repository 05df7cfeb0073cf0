package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultFeedURL is the AuroraWatch UK summary activity document.
const DefaultFeedURL = "https://aurorawatch-api.lancs.ac.uk/0.2.5/status/project/awn/sum-activity.xml"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Notification backends.
const (
	NotifyNATS  = "nats"
	NotifyKafka = "kafka"
	NotifyLog   = "log"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL      string
	PollInterval time.Duration

	FetchTimeout  time.Duration
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	RetryBackoff  time.Duration

	StoreBackend     string
	StoreTable       string
	StoreKeyMode     string
	DatabaseURL      string
	RedisAddr        string
	RedisDB          int
	WriteConcurrency int

	NotifyBackend string
	NotifyTopic   string
	NATSURL       string

	KafkaBrokers     []string
	KafkaRecordTopic string

	HTTPAddr           string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	storeTimeout, err := parsePositiveDuration("STORE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	notifyTimeout, err := parsePositiveDuration("NOTIFY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	retryBackoff, err := parsePositiveDuration("RETRY_BACKOFF", "500ms")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FeedURL:       sharedcfg.EnvOrDefault("FEED_URL", DefaultFeedURL),
		PollInterval:  pollInterval,
		FetchTimeout:  fetchTimeout,
		StoreTimeout:  storeTimeout,
		NotifyTimeout: notifyTimeout,
		RetryBackoff:  retryBackoff,

		StoreBackend: sharedcfg.EnvOrDefault("STORE_BACKEND", StorePostgres),
		StoreTable:   sharedcfg.EnvOrDefault("STORE_TABLE", "aurora-warn-uk"),
		StoreKeyMode: sharedcfg.EnvOrDefault("STORE_KEY_MODE", "composite"),
		DatabaseURL:  sharedcfg.EnvOrDefault("DATABASE_URL", "postgres://localhost:5432/aurora?sslmode=disable"),
		RedisAddr:    sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),

		NotifyBackend: sharedcfg.EnvOrDefault("NOTIFY_BACKEND", NotifyNATS),
		NotifyTopic:   sharedcfg.EnvOrDefault("NOTIFY_TOPIC", "aurora.alerts.green"),
		NATSURL:       sharedcfg.EnvOrDefault("NATS_URL", "nats://localhost:4222"),

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRecordTopic: os.Getenv("KAFKA_RECORD_TOPIC"),

		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: parseList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
	}

	if cfg.RedisDB, err = parseInt("REDIS_DB", 0, 0, 15); err != nil {
		return nil, err
	}
	if cfg.WriteConcurrency, err = parseInt("WRITE_CONCURRENCY", 8, 1, 64); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FeedURL == "" {
		return errors.New("FEED_URL is required")
	}
	if c.StoreTable == "" {
		return errors.New("STORE_TABLE is required")
	}
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND %q is not one of postgres, redis, memory", c.StoreBackend)
	}
	switch c.StoreKeyMode {
	case "composite", "status":
	default:
		return fmt.Errorf("STORE_KEY_MODE %q is not one of composite, status", c.StoreKeyMode)
	}
	switch c.NotifyBackend {
	case NotifyNATS, NotifyLog:
	case NotifyKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka notifier")
		}
	default:
		return fmt.Errorf("NOTIFY_BACKEND %q is not one of nats, kafka, log", c.NotifyBackend)
	}
	if c.NotifyTopic == "" {
		return errors.New("NOTIFY_TOPIC is required")
	}
	if c.KafkaRecordTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_RECORD_TOPIC is set")
	}
	return nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseInt(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
