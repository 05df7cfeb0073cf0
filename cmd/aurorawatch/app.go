package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/aurora-watch-service/internal/adapter/feed"
	kafkaadapter "github.com/couchcryptid/aurora-watch-service/internal/adapter/kafka"
	"github.com/couchcryptid/aurora-watch-service/internal/adapter/lognotify"
	"github.com/couchcryptid/aurora-watch-service/internal/adapter/memory"
	natsadapter "github.com/couchcryptid/aurora-watch-service/internal/adapter/nats"
	pgadapter "github.com/couchcryptid/aurora-watch-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/aurora-watch-service/internal/adapter/redis"
	"github.com/couchcryptid/aurora-watch-service/internal/alert"
	"github.com/couchcryptid/aurora-watch-service/internal/config"
	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/ingest"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	"github.com/couchcryptid/aurora-watch-service/internal/pipeline"
	"github.com/couchcryptid/aurora-watch-service/internal/query"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
	"github.com/couchcryptid/aurora-watch-service/internal/window"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

type recordStore interface {
	ingest.Writer
	window.Scanner
	Ping(ctx context.Context) error
	Close() error
}

// app holds every long-lived client. It is built once per command and
// closed on exit.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	store     recordStore
	window    *window.Engine
	evaluator *alert.Evaluator
	poller    *pipeline.Poller
	query     *query.Service

	closers []func() error

	// checks are extra readiness probes of long-lived connections.
	checks []func(ctx context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics}

	mode, err := domain.ParseKeyMode(cfg.StoreKeyMode)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	storePolicy := retry.Policy{Timeout: cfg.StoreTimeout, Backoff: cfg.RetryBackoff}
	notifyPolicy := retry.Policy{Timeout: cfg.NotifyTimeout, Backoff: cfg.RetryBackoff}
	fetchPolicy := retry.Policy{Timeout: cfg.FetchTimeout, Backoff: cfg.RetryBackoff}

	if a.store, err = openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	notifier, err := a.openNotifier()
	if err != nil {
		a.close()
		return nil, err
	}

	var sink pipeline.RecordSink
	if cfg.KafkaRecordTopic != "" {
		w := kafkaadapter.NewRecordWriter(cfg.KafkaBrokers, cfg.KafkaRecordTopic, mode, logger)
		a.closers = append(a.closers, w.Close)
		sink = w
		logger.Info("record changelog enabled", "topic", cfg.KafkaRecordTopic)
	}

	a.window = window.New(a.store, clock, storePolicy, logger, metrics)
	a.evaluator = alert.New(a.window, notifier, cfg.NotifyTopic, notifyPolicy, logger, metrics)
	a.poller = pipeline.New(
		feed.NewClient(cfg.FeedURL, fetchPolicy, logger),
		ingest.New(a.store, mode, storePolicy, cfg.WriteConcurrency, logger, metrics),
		sink,
		a.evaluator,
		clock,
		cfg.PollInterval,
		logger,
		metrics,
	)
	if a.query, err = query.New(a.window, logger, metrics); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (recordStore, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		s, err := pgadapter.NewStore(ctx, cfg.DatabaseURL, cfg.StoreTable)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		s := redisadapter.NewStore(client, cfg.StoreTable, logger)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return s, nil
	case config.StoreMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *app) openNotifier() (alert.Notifier, error) {
	switch a.cfg.NotifyBackend {
	case config.NotifyNATS:
		n, err := natsadapter.Connect(a.cfg.NATSURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, n.Close)
		a.checks = append(a.checks, n.Ping)
		return n, nil
	case config.NotifyKafka:
		n := kafkaadapter.NewNotifier(a.cfg.KafkaBrokers)
		a.closers = append(a.closers, n.Close)
		return n, nil
	case config.NotifyLog:
		return lognotify.New(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", a.cfg.NotifyBackend)
	}
}

// CheckReadiness requires a completed poll cycle, a reachable store and a
// connected notifier where the backend keeps a connection.
func (a *app) CheckReadiness(ctx context.Context) error {
	if err := a.poller.CheckReadiness(ctx); err != nil {
		return err
	}
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	for _, check := range a.checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("notifier unreachable: %w", err)
		}
	}
	return nil
}

// close releases clients in reverse order of creation.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// loadApp reads configuration and builds the app with a registered metric set.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, err
	}
	logger := observability.NewLogger(cfg)
	a, err := newApp(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return nil, err
	}
	return a, nil
}
