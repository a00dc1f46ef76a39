package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes each batch as one JSON message keyed by identity, so that
// all batches of one uploader land on the same partition in order.
type Kafka struct {
	producer Producer
	topic    string
}

// NewKafka constructs a Kafka forwarder.
func NewKafka(producer Producer, topic string) (*Kafka, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &Kafka{producer: producer, topic: topic}, nil
}

// Forward publishes batch and waits for the broker acknowledgement.
func (k *Kafka) Forward(ctx context.Context, batch model.Batch) error {
	value, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(batch.Identity),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "filePath", Value: []byte(batch.FilePath)},
		},
	}
	if err := k.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", k.topic, err)
	}
	return nil
}

// NewKafkaClient dials the brokers with settings suited to publishing batches.
func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}
