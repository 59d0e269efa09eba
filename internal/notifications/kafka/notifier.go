package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
)

// Notification is the payload published for each user-facing message. The
// delivery collaborator (push, SMS, email) consumes the topic.
type Notification struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes notifications to a Kafka topic. Delivery past the broker
// is not this process's concern.
type Notifier struct {
	writer *kafka.Writer
}

// NewNotifier builds a notifier writing to the given brokers and topic.
func NewNotifier(brokers []string, topic string) *Notifier {
	return &Notifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (n *Notifier) Notify(ctx context.Context, accountOwnerID, title, message string) error {
	event := Notification{
		ID:        uuid.New().String(),
		OwnerID:   accountOwnerID,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Keyed by owner so one user's notifications stay ordered.
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(accountOwnerID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}

var _ interfaces.Notifier = (*Notifier)(nil)
