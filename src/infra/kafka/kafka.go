package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// KafkaClient wraps a sarama consumer group and sync producer. The consumer
// side feeds the metrics pipeline; the producer side is used by the load
// generator.
type KafkaClient struct {
	logger   *slog.Logger
	consumer sarama.ConsumerGroup
	producer sarama.SyncProducer
	brokers  []string
}

// Message carries one Kafka record with the metadata the pipeline needs:
// the topic (solution detection) and the broker-assigned timestamp (lag
// computation). Timestamp is zero when the broker did not provide one.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Timestamp time.Time
}

// Handler processes one consumed message. Handler errors are message-local:
// the consume loop logs and moves on, it never stops or retries.
type Handler func(message Message) error

func NewKafkaClient(logger *slog.Logger, brokers string, groupID string) (*KafkaClient, error) {
	brokerList := strings.Split(brokers, ",")

	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0

	// Each exporter run uses a fresh group id and starts from the oldest
	// offset, so the whole benchmark history (including the Debezium
	// snapshot) is re-read. Offsets are never committed.
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = false
	config.Consumer.Group.Session.Timeout = 30 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 10 * time.Second
	config.Consumer.MaxWaitTime = 100 * time.Millisecond

	// Producer config, used by the load generator.
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 50 * time.Millisecond

	consumer, err := sarama.NewConsumerGroup(brokerList, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	logger.Info("Kafka client initialized", "brokers", brokerList, "group_id", groupID)

	return &KafkaClient{
		logger:   logger,
		consumer: consumer,
		producer: producer,
		brokers:  brokerList,
	}, nil
}

// Consumer joins the consumer group for the given topics and delivers every
// message to the handler until the context is cancelled.
func (k *KafkaClient) Consumer(ctx context.Context, handler Handler, topics ...string) error {
	groupHandler := &consumerGroupHandler{
		logger:  k.logger,
		handler: handler,
	}

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("Kafka consumer context cancelled")
			return nil
		default:
			if err := k.consumer.Consume(ctx, topics, groupHandler); err != nil {
				k.logger.Error("Error consuming from topics", "topics", topics, "error", err)
				time.Sleep(5 * time.Second) // Retry delay
				continue
			}
		}
	}
}

// Producer sends a batch of messages to a topic.
func (k *KafkaClient) Producer(messages []Message, topic string) error {
	if len(messages) == 0 {
		return nil
	}

	kafkaMessages := make([]*sarama.ProducerMessage, len(messages))
	for i, msg := range messages {
		kafkaMessages[i] = &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(msg.Key),
			Value: sarama.ByteEncoder(msg.Value),
		}
	}

	if err := k.producer.SendMessages(kafkaMessages); err != nil {
		return fmt.Errorf("failed to send batch of %d messages to topic %s: %w", len(messages), topic, err)
	}

	k.logger.Debug("Batch sent", "count", len(messages), "topic", topic)
	return nil
}

func (k *KafkaClient) Close() error {
	var errs []error

	if err := k.consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}

	if err := k.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing kafka client: %v", errs)
	}

	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	logger  *slog.Logger
	handler Handler
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup", "claims", session.Claims())
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	h.logger.Info("Starting consumer for partition",
		"topic", claim.Topic(),
		"partition", claim.Partition())

	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			msg := Message{
				Topic:     message.Topic,
				Key:       string(message.Key),
				Value:     message.Value,
				Timestamp: message.Timestamp,
			}

			if err := h.handler(msg); err != nil {
				// A failed message is skipped, never retried.
				h.logger.Error("Handler error",
					"topic", message.Topic,
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
