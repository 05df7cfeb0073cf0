package kafka

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Notifier publishes alert digests to a Kafka topic. The topic is chosen per
// call, so one Notifier serves any number of topics.
type Notifier struct {
	writer *kafkago.Writer
}

func NewNotifier(brokers []string) *Notifier {
	return &Notifier{writer: &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes one message and returns its generated id.
func (n *Notifier) Publish(ctx context.Context, topic, subject, body string) (string, error) {
	id := uuid.NewString()
	if err := n.writer.WriteMessages(ctx, notificationMessage(id, topic, subject, body)); err != nil {
		return "", fmt.Errorf("write notification to %s: %w", topic, err)
	}
	return id, nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

func notificationMessage(id, topic, subject, body string) kafkago.Message {
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(id),
		Value: []byte(body),
		Headers: []kafkago.Header{
			{Key: "message_id", Value: []byte(id)},
			{Key: "subject", Value: []byte(subject)},
		},
	}
}
