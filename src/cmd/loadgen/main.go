package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"

	"cdclag/src/infra/kafka"
	"cdclag/src/services/metering"
)

// OutboxxEvent is the Outboxx envelope: canonical operation string plus the
// row under a data sub-document, with the event timestamp nested inside it.
type OutboxxEvent struct {
	Op   string         `json:"op"`
	Data map[string]any `json:"data"`
	Meta map[string]any `json:"meta"`
}

// Debezium events arrive flattened (ExtractNewRecordState transform): row
// columns at the top level next to the __op code and source timestamp.
type DebeziumEvent map[string]any

var operations = []string{"INSERT", "UPDATE", "DELETE"}

var debeziumCodes = map[string]string{
	"INSERT": "c",
	"UPDATE": "u",
	"DELETE": "d",
}

func main() {
	rand.Seed(time.Now().UnixNano())

	// Command line flags
	totalMessages := flag.Int("count", 1000, "Total number of event pairs to generate. Use -1 for infinite.")
	batchSize := flag.Int("batch-size", 100, "Number of events per batch and topic")
	brokers := flag.String("brokers", "", "Kafka brokers (comma-separated) (required)")
	outboxxTopic := flag.String("outboxx-topic", "outboxx.bench_events", "Topic for Outboxx-shaped events")
	debeziumTopic := flag.String("debezium-topic", "debezium.public.bench_events", "Topic for Debezium-shaped events")
	delayMs := flag.Int("delay-ms", 100, "Delay in milliseconds between batches")
	flag.Parse()

	if *brokers == "" {
		log.Fatal("The 'brokers' flag is required")
	}

	isInfinite := *totalMessages == -1
	if isInfinite {
		log.Printf("Starting CDC loadgen in INFINITE mode with batches of %d", *batchSize)
	} else {
		log.Printf("Starting CDC loadgen with %d event pairs in batches of %d", *totalMessages, *batchSize)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	kafkaClient, err := kafka.NewKafkaClient(logger, *brokers, "cdc-loadgen")
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}
	defer kafkaClient.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping...")
		cancel()
	}()

	pairsSent := 0
	startTime := time.Now()

	for isInfinite || pairsSent < *totalMessages {
		select {
		case <-ctx.Done():
			log.Println("Shutdown requested, stopping event generation")
			return
		default:
		}

		currentBatchSize := *batchSize
		if !isInfinite {
			if remaining := *totalMessages - pairsSent; remaining < currentBatchSize {
				currentBatchSize = remaining
			}
		}

		outboxxBatch, debeziumBatch := generateBatch(currentBatchSize, pairsSent)

		if err := kafkaClient.Producer(outboxxBatch, *outboxxTopic); err != nil {
			log.Printf("Failed to send Outboxx batch: %v", err)
		}
		if err := kafkaClient.Producer(debeziumBatch, *debeziumTopic); err != nil {
			log.Printf("Failed to send Debezium batch: %v", err)
		}

		pairsSent += currentBatchSize

		if pairsSent%1000 == 0 && pairsSent > 0 {
			elapsed := time.Since(startTime)
			log.Printf("Sent %d event pairs (%.0f pairs/s)", pairsSent, float64(pairsSent)/elapsed.Seconds())
		}

		if *delayMs > 0 {
			time.Sleep(time.Duration(*delayMs) * time.Millisecond)
		}
	}

	log.Printf("Done: %d event pairs in %v", pairsSent, time.Since(startTime))
}

// generateBatch builds the same logical row changes in both payload shapes,
// so both pipelines see comparable traffic.
func generateBatch(size, offset int) (outboxx, debezium []kafka.Message) {
	outboxx = make([]kafka.Message, 0, size)
	debezium = make([]kafka.Message, 0, size)

	for i := 0; i < size; i++ {
		id := offset + i + 1
		op := operations[rand.Intn(len(operations))]
		now := time.Now().UTC()

		row := map[string]any{
			"id":      id,
			"name":    faker.Name(),
			"email":   faker.Email(),
			"payload": faker.Sentence(),
		}

		outboxxEvent := OutboxxEvent{
			Op: op,
			Data: cloneWith(row, map[string]any{
				"event_timestamp": now.Format(metering.TimestampLayout),
			}),
			Meta: map[string]any{
				"table":  "bench_events",
				"source": "outboxx",
			},
		}

		debeziumEvent := cloneWith(row, map[string]any{
			"__op":            debeziumCodes[op],
			"__source_ts_ms":  now.UnixMilli(),
			"event_timestamp": now.UnixMicro(),
		})

		outboxxBytes, err := json.Marshal(outboxxEvent)
		if err != nil {
			log.Printf("Failed to marshal Outboxx event: %v", err)
			continue
		}
		debeziumBytes, err := json.Marshal(DebeziumEvent(debeziumEvent))
		if err != nil {
			log.Printf("Failed to marshal Debezium event: %v", err)
			continue
		}

		key := fmt.Sprintf("%d", id)
		outboxx = append(outboxx, kafka.Message{Key: key, Value: outboxxBytes})
		debezium = append(debezium, kafka.Message{Key: key, Value: debeziumBytes})
	}

	return outboxx, debezium
}

func cloneWith(row, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(row)+len(extra))
	for k, v := range row {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
