package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// createKafkaTopicIfNotExists makes sure the billing event topic exists
// before a producer starts writing to it. Partition reads are retried because
// brokers answer transient errors while still electing leaders after startup.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	log.Info("Checking if Kafka topic exists", "topic", topicName)

	var (
		partitions []kafka.Partition
		readErr    error
	)
	for attempt := 1; attempt <= partitionReadAttempts; attempt++ {
		partitions, readErr = conn.ReadPartitions(topicName)
		if readErr == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topicName, "attempt", attempt, "error", readErr)
		time.Sleep(partitionReadBackoff)
	}

	if len(partitions) > 0 {
		if readErr != nil {
			log.Warn("Kafka topic exists but the final partition read failed", "topic", topicName, "error", readErr)
		} else {
			log.Info("Kafka topic already exists", "topic", topicName)
		}
		return nil
	}

	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	log.Info("Kafka topic not found, creating it", "topic", topicName, "partitions", numPartitions, "replication_factor", replicationFactor)
	err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}

	log.Info("Successfully created Kafka topic", "topic", topicName)
	return nil
}
