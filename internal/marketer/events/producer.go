package events

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const DefaultOutcomeTopic = "task_publish_outcomes"

// Producer emits publish-outcome events to Kafka. A nil *Producer is valid
// and drops everything, so callers do not need to guard for the
// Kafka-disabled case.
type Producer struct {
	writer *kafka.Writer
}

// NewProducerFromEnv returns a Producer when KAFKA_BROKERS is set, nil
// otherwise. PUBLISH_OUTCOME_TOPIC overrides the topic name.
func NewProducerFromEnv() *Producer {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		log.Println("KAFKA_BROKERS not set; publish outcome events disabled.")
		return nil
	}
	topic := os.Getenv("PUBLISH_OUTCOME_TOPIC")
	if topic == "" {
		topic = DefaultOutcomeTopic
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      strings.Split(kafkaBrokers, ","),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	log.Printf("Publish outcome producer configured for topic: %s", topic)
	return &Producer{writer: writer}
}

// Emit sends one outcome event, filling in EventID and OccurredAt. Failures
// are logged and swallowed: events are observability, not state.
func (p *Producer) Emit(ctx context.Context, outcome PublishOutcome) {
	if p == nil || p.writer == nil {
		return
	}
	outcome.EventID = uuid.NewString()
	if outcome.OccurredAt.IsZero() {
		outcome.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		log.Printf("Events: marshal outcome for task ID %d failed: %v", outcome.TaskID, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(outcome.TaskID), 10)),
		Value: payload,
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		log.Printf("Events: send outcome for task ID %d failed: %v", outcome.TaskID, err)
		return
	}
	log.Printf("Events: emitted %s for task ID %d", outcome.Type, outcome.TaskID)
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
