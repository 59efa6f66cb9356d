// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderCompleted is emitted once per confirmed checkout.
type OrderCompleted struct {
	OrderID string    `json:"order_id"`
	UserID  string    `json:"user_id"`
	Total   float64   `json:"total"`
	Method  string    `json:"payment_method,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher emits order events.
type Publisher interface {
	PublishOrderCompleted(ctx context.Context, e OrderCompleted) error
}

// Nop discards all events.
type Nop struct{}

// PublishOrderCompleted implements Publisher.
func (Nop) PublishOrderCompleted(context.Context, OrderCompleted) error { return nil }

// Kafka publishes order events to a Kafka topic, keyed by order id.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a publisher for the given brokers (comma separated) and
// topic.
func NewKafka(brokersCSV, topic string) *Kafka {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

// PublishOrderCompleted implements Publisher.
func (k *Kafka) PublishOrderCompleted(ctx context.Context, e OrderCompleted) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
