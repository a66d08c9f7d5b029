// Package bus wraps segmentio/kafka-go producers and consumers for the
// five pipeline topics, following the same transactional-outbox message
// shapes as before but backed by Kafka instead of a local SQLite queue.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
)

// Producer publishes to one or more topics, keyed
// ("key=note_id" for the pipeline topics, random UUID for the DLQ).
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(bootstrapServers string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(bootstrapServers),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Close flushes in-flight messages, bounded by the 5s shutdown budget
// sets for the producer flush.
func (p *Producer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.writer.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload []byte, headers ...kafka.Header) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
		Time:    time.Now(),
	})
}

// IndexerPublisher adapts Producer to internal/indexer.Publisher.
type IndexerPublisher struct {
	producer *Producer
	topic    string
}

func NewIndexerPublisher(producer *Producer, topics config.Topics) *IndexerPublisher {
	return &IndexerPublisher{producer: producer, topic: topics.TxRaw}
}

func (p *IndexerPublisher) PublishRaw(ctx context.Context, key, correlationID string, payload []byte) error {
	return p.producer.publish(ctx, p.topic, key, payload, kafka.Header{Key: "correlation_id", Value: []byte(correlationID)})
}

// ValidatorSink adapts Producer to internal/validator.Sink.
type ValidatorSink struct {
	producer  *Producer
	topics    config.Topics
}

func NewValidatorSink(producer *Producer, topics config.Topics) *ValidatorSink {
	return &ValidatorSink{producer: producer, topics: topics}
}

func (s *ValidatorSink) PublishValid(ctx context.Context, noteID string, payload []byte) error {
	return s.producer.publish(ctx, s.topics.TxValid, noteID, payload)
}

func (s *ValidatorSink) PublishDLQ(ctx context.Context, randomKey string, payload []byte) error {
	return s.producer.publish(ctx, s.topics.DLQ, randomKey, payload)
}

// LedgerBus adapts Producer to internal/ledger.Bus.
type LedgerBus struct {
	producer *Producer
	topics   config.Topics
}

func NewLedgerBus(producer *Producer, topics config.Topics) *LedgerBus {
	return &LedgerBus{producer: producer, topics: topics}
}

func (b *LedgerBus) PublishLedgerEntries(ctx context.Context, key string, payload []byte) error {
	return b.producer.publish(ctx, b.topics.LedgerEntries, key, payload)
}

func (b *LedgerBus) PublishOutbox(ctx context.Context, key string, payload []byte) error {
	return b.producer.publish(ctx, b.topics.Outbox, key, payload)
}

// Consumer reads from a single topic with auto-commit disabled: offsets
// are committed synchronously only after the corresponding durable write
// has succeeded.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(bootstrapServers, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{bootstrapServers},
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run pulls messages one at a time and calls handle; the offset commits
// only after handle returns nil, matching the synchronous-commit
// discipline every consuming stage in this pipeline follows.
func (c *Consumer) Run(ctx context.Context, handle func(context.Context, []byte) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := handle(ctx, msg.Value); err != nil {
			return fmt.Errorf("handle message at offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}
