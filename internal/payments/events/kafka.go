package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// KafkaPublisher sends events to one topic keyed by payment reference.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaProducer dials brokers, retrying while the cluster starts.
func NewKafkaProducer(brokers []string, attempts int, wait time.Duration, logger *slog.Logger) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		var producer sarama.SyncProducer
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			return producer, nil
		}
		if logger != nil {
			logger.Warn("waiting for kafka", "attempt", i, "of", attempts, "err", err)
		}
		if i < attempts {
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("kafka producer: %w", err)
}

// NewKafkaPublisher wraps producer.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = "payments.events"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.Reference),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(e.Type)},
		},
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", e.Type, err)
	}
	k.logger.Debug("published payment event", "type", e.Type, "reference", e.Reference, "partition", partition, "offset", offset)
	return nil
}

// Close flushes and closes the producer.
func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
