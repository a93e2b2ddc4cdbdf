package models

import "time"

// Audit message sender and types.
const (
	MessageSenderSystem = "system"
	MessageTypeSystem   = "system"
	MessageTypeStatus   = "status"
)

// AuditMessage is one record of the append-only per-transaction chat/audit log.
type AuditMessage struct {
	ID            string    `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	Sender        string    `json:"sender" db:"sender"`
	Type          string    `json:"type" db:"type"`
	Text          string    `json:"text" db:"text"`
	Timestamp     time.Time `json:"timestamp" db:"created_at"`
}
