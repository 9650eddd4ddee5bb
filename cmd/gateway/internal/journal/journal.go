// Package journal appends every broadcast snapshot to a Kafka topic so other
// consumers can replay the price stream.
package journal

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const messageKey = "snapshot"

type KafkaJournal struct {
	writer Writer
	logger *zap.Logger
}

func NewKafkaJournal(logger *zap.Logger, writer Writer) *KafkaJournal {
	return &KafkaJournal{writer: writer, logger: logger}
}

// NewWriter builds the async writer used in production.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
	}
}

// Publish writes snap as one JSON message keyed "snapshot".
func (j *KafkaJournal) Publish(ctx context.Context, snap models.PriceSnapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	err = j.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageKey),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("journal snapshot %d: %w", snap.TS, err)
	}
	j.logger.Debug("Snapshot journaled", zap.Int64("ts", snap.TS))
	return nil
}

func (j *KafkaJournal) Close() error {
	return j.writer.Close()
}
