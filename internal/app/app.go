// Package app wires the service together: config, logging, postgres,
// kafka clients, the outbox relay, the users.created consumer and the
// HTTP API.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/iancoleman/strcase"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	tally "github.com/uber-go/tally/v4"

	"orderflow/config"
	"orderflow/internal/httpapi"
	"orderflow/internal/kafka"
	"orderflow/internal/metrics"
	"orderflow/internal/order"
	"orderflow/internal/outbox"
	"orderflow/internal/postgres"
	"orderflow/internal/usercache"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := newLogger(cfg.Log.Level)

	// Postgres
	poolCfg, err := pgxpool.ParseConfig(cfg.PG.URL)
	if err != nil {
		l.Fatal().Err(err).Msg("parsing postgres url")
	}
	poolCfg.MaxConns = int32(cfg.PG.PoolMax)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		l.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer pool.Close()

	db := postgres.New(pool)
	orderRepo := postgres.NewOrderRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Known users cache, fed by the users.created stream.
	knownUsers := usercache.New()

	// Kafka
	producer, err := kafka.NewProducer(cfg.Kafka.BootstrapServers)
	if err != nil {
		l.Fatal().Err(err).Msg("building kafka producer")
	}
	defer producer.Close()

	consumer, err := kafka.NewConsumer(cfg.Kafka.BootstrapServers, cfg.Kafka.GroupID, cfg.Kafka.UsersTopic)
	if err != nil {
		l.Fatal().Err(err).Msg("building kafka consumer")
	}

	// Metrics
	scope, scopeCloser := tally.NewRootScope(tally.ScopeOptions{Prefix: "orderflow"}, time.Second)
	defer scopeCloser.Close()
	topicMetric := strcase.ToSnake(cfg.Kafka.OrdersTopic)

	// Outbox relay
	relay := outbox.NewRelay(
		outbox.Settings{
			PollInterval: cfg.Outbox.PollInterval,
			BatchSize:    cfg.Outbox.BatchSize,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
		},
		outboxRepo,
		kafka.NewEmitter(producer, l.With().Str("component", "emitter").Logger()),
		l.With().Str("component", "relay").Logger(),
		outbox.WithCounters(
			&metrics.TallyCounter{Counter: scope.Counter(topicMetric + "_published")},
			&metrics.TallyCounter{Counter: scope.Counter(topicMetric + "_errors")},
		),
	)

	// Users consumer
	userConsumer := kafka.NewUserConsumer(consumer, knownUsers, l.With().Str("component", "consumer").Logger())

	// Order service and HTTP API
	orderService := order.NewService(orderRepo, outboxRepo, db, knownUsers, cfg.Kafka.OrdersTopic, l.With().Str("component", "orders").Logger())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpapi.NewRouter(app, orderService, l.With().Str("component", "http").Logger())

	// Start components
	if err := relay.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("starting outbox relay")
	}
	if err := userConsumer.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("starting user consumer")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(fmt.Sprintf(":%s", cfg.HTTP.Port))
	}()
	l.Info().Str("port", cfg.HTTP.Port).Msg("service started")

	// Waiting signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-serverErr:
		l.Error().Err(err).Msg("http server failed")
	}

	// Shutdown
	if err := app.ShutdownWithTimeout(cfg.App.ShutdownTimeout); err != nil {
		l.Error().Err(err).Msg("shutting down http server")
	}

	relayCtx, relayCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer relayCancel()
	if err := relay.Shutdown(relayCtx); err != nil {
		l.Error().Err(err).Msg("shutting down outbox relay")
	}

	consumerCtx, consumerCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer consumerCancel()
	if err := userConsumer.Shutdown(consumerCtx); err != nil {
		l.Error().Err(err).Msg("shutting down user consumer")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
