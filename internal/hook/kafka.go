package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"firestige.xyz/pcapture/internal/config"
)

// MessageWriter is the subset of *kafka.Writer used by the Kafka hook.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes a JSON session summary to a topic.
type Kafka struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafka creates a Kafka hook from configuration.
func NewKafka(cfg config.KafkaHookConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		WriteTimeout: cfg.Timeout,
		MaxAttempts:  3,
		Async:        false, // Synchronous for error handling
	})
	return NewKafkaWithWriter(writer, cfg.Timeout), nil
}

// NewKafkaWithWriter creates a Kafka hook around an existing writer.
func NewKafkaWithWriter(w MessageWriter, timeout time.Duration) *Kafka {
	return &Kafka{writer: w, timeout: timeout}
}

// Name implements Hook.
func (k *Kafka) Name() string { return "kafka" }

// Run publishes one message keyed by device name.
func (k *Kafka) Run(ctx context.Context, r Result) error {
	value, err := json.Marshal(newSummary(r))
	if err != nil {
		return fmt.Errorf("serialize summary failed: %w", err)
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(r.Device),
		Value: value,
		Time:  r.Stats.EndTime,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(r.Status)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
