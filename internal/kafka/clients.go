package kafka

import (
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// NewProducer builds the shared producer used by the outbox emitter.
func NewProducer(bootstrapServers string) (*kafka.Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  bootstrapServers,
		"linger.ms":          500,
		"batch.size":         100 * 1024,
		"compression.type":   "lz4",
		"acks":               -1,
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("building kafka producer: %w", err)
	}
	return p, nil
}

// NewConsumer builds a consumer subscribed to a single topic. Offsets
// are committed automatically by the client.
func NewConsumer(bootstrapServers, groupID, topic string) (*kafka.Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  bootstrapServers,
		"group.id":           groupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("building kafka consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return c, nil
}
