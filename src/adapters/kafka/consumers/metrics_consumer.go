package consumers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"cdclag/src/domain"
	"cdclag/src/infra/kafka"
	"cdclag/src/services/metering"
)

// MetricsConsumer feeds every Kafka message from the CDC topics into the
// metering pipeline and logs a per-solution stats report on an interval.
type MetricsConsumer struct {
	logger       *slog.Logger
	kafkaClient  *kafka.KafkaClient
	processor    *metering.Processor
	aggregator   *metering.Aggregator
	topics       []string
	reportEvery  time.Duration
	messageCount atomic.Uint64
	laggedCount  atomic.Uint64
}

func NewMetricsConsumer(
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	processor *metering.Processor,
	aggregator *metering.Aggregator,
	topics []string,
	reportEvery time.Duration,
) *MetricsConsumer {
	return &MetricsConsumer{
		logger:      logger,
		kafkaClient: kafkaClient,
		processor:   processor,
		aggregator:  aggregator,
		topics:      topics,
		reportEvery: reportEvery,
	}
}

// Start consumes until the context is cancelled. The periodic report runs on
// its own ticker so quiet topics still produce a heartbeat.
func (c *MetricsConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting CDC metrics consumer", "topics", c.topics)

	go c.reportLoop(ctx)

	handler := func(msg kafka.Message) error {
		c.handleMessage(msg)
		return nil
	}

	return c.kafkaClient.Consumer(ctx, handler, c.topics...)
}

func (c *MetricsConsumer) handleMessage(msg kafka.Message) {
	raw := domain.RawMessage{
		Topic:           msg.Topic,
		Payload:         msg.Value,
		BrokerTimestamp: msg.Timestamp,
	}

	if c.processor.Process(raw) {
		c.laggedCount.Add(1)
	}
	c.messageCount.Add(1)
}

func (c *MetricsConsumer) reportLoop(ctx context.Context) {
	if c.reportEvery <= 0 {
		return
	}

	ticker := time.NewTicker(c.reportEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.report()
		case <-ctx.Done():
			return
		}
	}
}

func (c *MetricsConsumer) report() {
	snapshot := c.aggregator.Snapshot()

	for solution, stats := range snapshot {
		operations := make(map[string]uint64, len(stats.Operations))
		for op, count := range stats.Operations {
			operations[string(op)] = count
		}

		c.logger.Info("CDC solution stats",
			"cdc_solution", solution,
			"messages_total", stats.MessagesTotal,
			"operations", operations,
			"lag_count", stats.LagCount,
			"avg_lag_seconds", stats.AvgLag(),
			"last_lag_seconds", stats.LastLag)
	}

	c.logger.Info("Consumer totals",
		"messages", c.messageCount.Load(),
		"lag_observations", c.laggedCount.Load())
}

// Close logs the final stats and shuts down the Kafka client.
func (c *MetricsConsumer) Close() error {
	c.logger.Info("Closing CDC metrics consumer")
	c.report()
	return c.kafkaClient.Close()
}
