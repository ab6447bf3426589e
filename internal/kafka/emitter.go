// Package kafka holds the broker-facing side of the service: the outbox
// emitter, the users.created consumer and the construction of the
// underlying confluent clients.
package kafka

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/rs/zerolog"

	"orderflow/internal/outbox"
)

// kafkaProducer abstracts the confluent producer for testability.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// Emitter delivers outbox records to Kafka. The payload bytes are sent
// verbatim and the partition key is the record id, so redeliveries of the
// same record land on the same partition.
type Emitter struct {
	producer kafkaProducer
	logger   zerolog.Logger
}

var _ outbox.Emitter = (*Emitter)(nil)

func NewEmitter(p kafkaProducer, logger zerolog.Logger) *Emitter {
	if p == nil || reflect.ValueOf(p).Kind() == reflect.Ptr && reflect.ValueOf(p).IsNil() {
		panic("producer is mandatory")
	}
	return &Emitter{
		producer: p,
		logger:   logger,
	}
}

func (e *Emitter) Emit(rec *outbox.Record, dc chan *outbox.DeliveryReport) error {
	internal := make(chan kafka.Event)
	go func() {
		for ev := range internal {
			switch m := ev.(type) {
			case *kafka.Message:
				dc <- &outbox.DeliveryReport{
					Record: rec,
					Error:  m.TopicPartition.Error,
					Details: fmt.Sprintf("delivered message to topic %s [%d] at offset %v",
						*m.TopicPartition.Topic, m.TopicPartition.Partition, m.TopicPartition.Offset),
				}
			default:
				e.logger.Debug().Str("event", ev.String()).Msg("ignored producer event")
			}
			// the channel serves exactly one Produce call, so the first
			// report closes it.
			close(internal)
		}
	}()

	topic := rec.Topic
	return e.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(rec.ID.String()),
		Value:          rec.Payload,
		Headers: []kafka.Header{
			{Key: "id", Value: []byte(rec.ID.String())},
			{Key: "createdAt", Value: []byte(strconv.FormatInt(rec.CreatedAt.UnixMilli(), 10))},
		},
	}, internal)
}
