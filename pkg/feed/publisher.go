// Package feed publishes every mutation applied to a storage engine as an
// ordered stream of events.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event describes one applied mutation. Ordinals start at 1 and increase by
// one per mutation.
type Event struct {
	Ordinal   uint64    `json:"ordinal"`
	Key       int64     `json:"key"`
	Value     []byte    `json:"value,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to a logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Debug("map mutation",
		"ordinal", ev.Ordinal,
		"key", ev.Key,
		"deleted", ev.Deleted,
		"size", len(ev.Value))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON to a Kafka topic, keyed by map key.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", ev.Ordinal, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.Key, 10)),
		Value: value,
		Time:  ev.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("publish event %d: %w", ev.Ordinal, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
