package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	adapterhttp "cdclag/src/adapters/http"
	"cdclag/src/adapters/kafka/consumers"
	"cdclag/src/domain"
	"cdclag/src/helper/env"
	"cdclag/src/infra/kafka"
	"cdclag/src/infra/metrics"
	"cdclag/src/services/metering"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting CDC Lag Exporter with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newRegistry,
			newCollector,
			newDetector,
			newAggregator,
			newProcessor,
			newKafkaClient,
			newMetricsConsumer,
			newMetricsServer,
		),

		// Invocations
		fx.Invoke(startConsumer, startMetricsServer),
	)

	// Start the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start exporter application: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down exporter...")

	// Stop the application
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Exporter shutdown complete")
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func newCollector(registry *prometheus.Registry) (*metrics.Collector, error) {
	collector := metrics.NewCollector(registry)
	if err := collector.Register(); err != nil {
		return nil, fmt.Errorf("failed to register collectors: %w", err)
	}
	return collector, nil
}

func newDetector() *metering.Detector {
	return metering.NewDetector(
		metering.TopicRule{
			Match:    env.GetString("OUTBOXX_TOPIC_MATCH", "outboxx"),
			Solution: domain.SolutionOutboxx,
		},
		metering.TopicRule{
			Match:    env.GetString("DEBEZIUM_TOPIC_MATCH", "debezium"),
			Solution: domain.SolutionDebezium,
		},
	)
}

func newAggregator(collector *metrics.Collector) *metering.Aggregator {
	return metering.NewAggregator(collector)
}

func newProcessor(logger *slog.Logger, detector *metering.Detector, aggregator *metering.Aggregator) *metering.Processor {
	return metering.NewProcessor(logger, detector, aggregator)
}

func newKafkaClient(logger *slog.Logger) (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")

	// A unique group id per start forces the earliest offset, so every run
	// re-reads the full benchmark history.
	groupPrefix := env.GetString("KAFKA_GROUP_PREFIX", "cdc-metrics-exporter")
	groupID := fmt.Sprintf("%s-%s", groupPrefix, uuid.New().String())

	return kafka.NewKafkaClient(logger, brokers, groupID)
}

func newMetricsConsumer(
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	processor *metering.Processor,
	aggregator *metering.Aggregator,
) *consumers.MetricsConsumer {
	topics := strings.Split(env.GetString("KAFKA_TOPICS", "outboxx.bench_events,debezium.public.bench_events"), ",")
	reportEvery := time.Duration(env.GetInt("STATS_REPORT_SECONDS", 10)) * time.Second

	return consumers.NewMetricsConsumer(logger, kafkaClient, processor, aggregator, topics, reportEvery)
}

func newMetricsServer(logger *slog.Logger, registry *prometheus.Registry) *adapterhttp.Server {
	port := env.GetInt("METRICS_PORT", 8000)
	return adapterhttp.NewServer(logger, port, registry)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	metricsConsumer *consumers.MetricsConsumer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting CDC metrics consumer")

			// Start consumer in background
			go func() {
				if err := metricsConsumer.Start(context.Background()); err != nil {
					logger.Error("CDC metrics consumer failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down CDC metrics consumer...")
			if err := metricsConsumer.Close(); err != nil {
				logger.Error("Failed to close CDC metrics consumer", "error", err)
				return err
			}
			logger.Info("CDC metrics consumer shut down gracefully")
			return nil
		},
	})
}

func startMetricsServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	server *adapterhttp.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := server.Start(); err != nil {
					logger.Error("Metrics server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
