package services

import (
	"context"
	"encoding/json"

	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/segmentio/kafka-go"
)

// changeRecord is the change feed payload. The verification code never leaves the engine
// on this topic.
type changeRecord struct {
	Kind           models.EventKind        `json:"kind"`
	PreviousStatus models.Status           `json:"previous_status,omitempty"`
	ActorID        string                  `json:"actor_id"`
	OccurredAt     int64                   `json:"occurred_at"`
	Proximity      *models.ProximityResult `json:"proximity,omitempty"`
	Transaction    models.Transaction      `json:"transaction"`
}

// ChangeFeedPublisher pushes every transaction change to a Kafka topic keyed by transaction id.
type ChangeFeedPublisher struct {
	writer KafkaWriter
}

// NewChangeFeedPublisher creates a new ChangeFeedPublisher. A nil writer disables publishing.
func NewChangeFeedPublisher(writer KafkaWriter) *ChangeFeedPublisher {
	return &ChangeFeedPublisher{writer: writer}
}

// Handle publishes ev to the change feed.
func (p *ChangeFeedPublisher) Handle(ctx context.Context, ev models.TransitionEvent) error {
	if p.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "transaction_id", ev.Transaction.ID)
		return nil
	}

	snapshot := ev.Transaction
	snapshot.VerificationCode = ""
	snapshot.HoldRef = ""

	data, err := json.Marshal(changeRecord{
		Kind:           ev.Kind,
		PreviousStatus: ev.PreviousStatus,
		ActorID:        ev.ActorID,
		OccurredAt:     ev.OccurredAt.UnixMilli(),
		Proximity:      ev.Proximity,
		Transaction:    snapshot,
	})
	if err != nil {
		logger.Log.Errorw("Failed to marshal transaction for Kafka", "transaction_id", ev.Transaction.ID, "error", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(ev.Transaction.ID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish transaction to Kafka", "transaction_id", ev.Transaction.ID, "error", err)
		return err
	}

	logger.Log.Infow("Transaction published to Kafka", "transaction_id", ev.Transaction.ID, "status", ev.Transaction.Status)
	return nil
}
