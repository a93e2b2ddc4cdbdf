package services

import (
	"context"
	"encoding/json"

	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/segmentio/kafka-go"
)

//go:generate mockgen -source=notifier.go -destination=notifier_mock.go -package=services

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// KafkaNotifier delivers user notifications to a Kafka topic keyed by user id.
type KafkaNotifier struct {
	writer KafkaWriter
}

// NewKafkaNotifier creates a new KafkaNotifier. A nil writer disables delivery.
func NewKafkaNotifier(writer KafkaWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer}
}

// Notify publishes one notification. Delivery is best effort.
func (n *KafkaNotifier) Notify(ctx context.Context, userID, eventType string, payload map[string]any) error {
	if n.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping notification", "user_id", userID, "event_type", eventType)
		return nil
	}

	data, err := json.Marshal(models.Notification{UserID: userID, EventType: eventType, Payload: payload})
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: data,
	})
}

// Notifier delivers a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, eventType string, payload map[string]any) error // Sends one notification
}

// NotificationDispatcher notifies the counterpart of whoever caused an event.
type NotificationDispatcher struct {
	notifier Notifier
}

// NewNotificationDispatcher creates a new NotificationDispatcher.
func NewNotificationDispatcher(notifier Notifier) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: notifier}
}

// Handle sends the notification for ev. Failures are logged and never returned.
func (d *NotificationDispatcher) Handle(ctx context.Context, ev models.TransitionEvent) error {
	if ev.Kind == models.EventKindProximity {
		return nil
	}

	tx := ev.Transaction
	recipient := tx.Counterpart(ev.ActorID)
	eventType := "transaction." + string(ev.Kind)
	payload := map[string]any{
		"transaction_id":    tx.ID,
		"item_name":         tx.ItemName,
		"status":            tx.Status,
		"previous_status":   ev.PreviousStatus,
		"final_total_price": tx.FinalTotalPrice().String(),
		"occurred_at":       ev.OccurredAt,
	}

	if err := d.notifier.Notify(ctx, recipient, eventType, payload); err != nil {
		logger.Log.Errorw("failed to deliver notification",
			"user_id", recipient, "event_type", eventType, "transaction_id", tx.ID, "error", err)
		return nil
	}

	logger.Log.Infow("notification delivered", "user_id", recipient, "event_type", eventType, "transaction_id", tx.ID)
	return nil
}
