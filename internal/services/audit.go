package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

//go:generate mockgen -source=audit.go -destination=audit_mock.go -package=services

// MessageWriter appends to the per-transaction audit log.
type MessageWriter interface {
	Append(ctx context.Context, msg models.AuditMessage) error // Appends one message
}

// AuditSubscriber writes a human-readable system message for every domain event.
type AuditSubscriber struct {
	messages MessageWriter
}

// NewAuditSubscriber creates a new AuditSubscriber.
func NewAuditSubscriber(messages MessageWriter) *AuditSubscriber {
	return &AuditSubscriber{messages: messages}
}

// Handle appends the audit record for ev.
func (s *AuditSubscriber) Handle(ctx context.Context, ev models.TransitionEvent) error {
	text, msgType := describe(ev)
	if text == "" {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	msg := models.AuditMessage{
		ID:            id.String(),
		TransactionID: ev.Transaction.ID,
		Sender:        models.MessageSenderSystem,
		Type:          msgType,
		Text:          text,
		Timestamp:     ev.OccurredAt,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		logger.Log.Errorw("failed to append audit message", "transaction_id", ev.Transaction.ID, "kind", ev.Kind, "error", err)
		return err
	}
	return nil
}

func describe(ev models.TransitionEvent) (string, string) {
	tx := ev.Transaction
	total := tx.FinalTotalPrice().StringFixed(2)

	switch ev.Kind {
	case models.EventKindRequested:
		return fmt.Sprintf("%s requested %d x %s at %s each. Total: %s.",
			displayName(tx.BuyerName, "Buyer"), tx.RequestedQuantity, tx.ItemName, tx.UnitPrice.StringFixed(2), total), models.MessageTypeStatus
	case models.EventKindAccepted:
		if q := tx.EffectiveQuantity(); q < tx.RequestedQuantity {
			return fmt.Sprintf("Seller accepted %d of %d requested units. Total to pay: %s.", q, tx.RequestedQuantity, total), models.MessageTypeStatus
		}
		return fmt.Sprintf("Seller accepted the request for %d units. Total to pay: %s.", tx.RequestedQuantity, total), models.MessageTypeStatus
	case models.EventKindRejected:
		return "Seller rejected the request. Reserved stock was returned.", models.MessageTypeStatus
	case models.EventKindPaid:
		return fmt.Sprintf("Payment of %s is held in escrow. Show the pickup code to the seller at handover.", total), models.MessageTypeStatus
	case models.EventKindWithdrawn:
		return fmt.Sprintf("Buyer withdrew the payment. %s was refunded.", total), models.MessageTypeStatus
	case models.EventKindCompleted:
		return fmt.Sprintf("Pickup code verified. %s was released to the seller.", total), models.MessageTypeStatus
	case models.EventKindMeetupSet:
		if tx.MeetupDetails == nil {
			return "", ""
		}
		return fmt.Sprintf("Meetup point set: %s (%.6f, %.6f).",
			tx.MeetupDetails.Address, tx.MeetupDetails.Latitude, tx.MeetupDetails.Longitude), models.MessageTypeSystem
	case models.EventKindProximity:
		if ev.Proximity == nil {
			return "", ""
		}
		verdict := "within range"
		if !ev.Proximity.Within {
			verdict = "out of range"
		}
		return fmt.Sprintf("Proximity check: parties are %.2f km apart (threshold %.2f km), %s.",
			ev.Proximity.DistanceKm, ev.Proximity.ThresholdKm, verdict), models.MessageTypeSystem
	}
	return "", ""
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
