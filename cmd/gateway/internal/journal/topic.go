package journal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	topicPartitions = 1
	readyAttempts   = 5
	readyBackoff    = 200 * time.Millisecond
)

var ErrTopicNotReady = errors.New("journal topic not ready")

type TopicCreator struct {
	logger  *zap.Logger
	dialer  KafkaDialer
	sleeper Sleeper
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, sleeper Sleeper) *TopicCreator {
	return &TopicCreator{
		logger:  logger,
		dialer:  dialer,
		sleeper: sleeper,
	}
}

// Create asks the controller for topic and waits until its partitions are
// visible. A topic that already exists is not an error.
func (tc *TopicCreator) Create(ctx context.Context, brokers []string, topic string) error {
	var conn KafkaConn
	var err error
	for _, addr := range brokers {
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
	}
	if conn == nil {
		return fmt.Errorf("dial brokers: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", controllerAddr, err)
	}
	defer controllerConn.Close()

	// Snapshots share one key, so a single partition keeps them ordered
	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     topicPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		tc.logger.Info("Topic creation finished (might already exist)", zap.String("topic", topic), zap.Error(err))
	}

	return tc.waitForTopic(conn, topic)
}

func (tc *TopicCreator) waitForTopic(conn KafkaConn, topic string) error {
	for i := 0; i < readyAttempts; i++ {
		partitions, err := conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Journal topic ready", zap.String("topic", topic), zap.Int("partitions", len(partitions)))
			return nil
		}
		tc.sleeper.Sleep(readyBackoff)
	}
	return fmt.Errorf("%w: %s", ErrTopicNotReady, topic)
}
