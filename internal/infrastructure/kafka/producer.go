package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/marketplace-catalog/internal/search"
)

// Producer publishes index-update intents. Messages are keyed by product id,
// so every intent of one product lands on the same partition and the
// synchronizer sees them in publish order.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, intent search.Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(intent.ProductID, 10)),
		Value: data,
		Time:  intent.OccurredAt,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
