package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/shipledger/vehicle-billing-ledger/internal/config"
)

type InvoiceEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new invoice event producer and ensures topic exists
func NewInvoiceEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*InvoiceEventProducer, error) {
	if cfg.InvoiceEventsTopic == "" {
		return nil, fmt.Errorf("kafka invoice events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for invoice event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.InvoiceEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure invoice events topic %s exists: %w", cfg.InvoiceEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.InvoiceEventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false, // Outbox relay must observe write errors before marking processed
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write invoice event messages", "topic", cfg.InvoiceEventsTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote invoice event messages", "topic", cfg.InvoiceEventsTopic, "count", len(messages))
			}
		},
	}

	return &InvoiceEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.InvoiceEventsTopic,
	}, nil
}

func (p *InvoiceEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for invoice event producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via invoice event producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via invoice event producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via invoice event producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *InvoiceEventProducer) Close() error {
	p.logger.Info("Closing invoice event Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close invoice event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
