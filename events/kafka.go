package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/pufid/pufnode/types"
	"go.vocdoni.io/dvote/log"
)

// KafkaSink is a Sink that publishes the events to a Kafka topic, keyed by
// deviceID so per-device ordering is preserved across partitions
type KafkaSink struct {
	w *kafka.Writer
}

// NewKafkaSink returns a KafkaSink publishing to the given brokers and topic
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaSink{w: w}
}

// Emit implements the Sink interface. Publishing is best effort: a broker
// error is logged, never propagated into the registry state machine.
func (s *KafkaSink) Emit(e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		log.Error(err)
		return
	}
	msg := kafka.Message{
		Key:   types.BigIntToBytes(e.DeviceID),
		Value: value,
	}
	if err := s.w.WriteMessages(context.Background(), msg); err != nil {
		log.Error(err)
	}
}

// Close closes the underlying Kafka writer
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
