package repositories

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

// MessageRepository is the append-only per-transaction audit/chat log.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append adds a message to the log of its transaction.
func (r *MessageRepository) Append(ctx context.Context, msg models.AuditMessage) error {
	const query = `
		INSERT INTO transaction_messages (id, transaction_id, sender, type, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	args := []any{msg.ID, msg.TransactionID, msg.Sender, msg.Type, msg.Text, msg.Timestamp}
	_, err := r.db.ExecContext(ctx, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)
	return err
}

// ListByTransaction returns the log of a transaction in append order.
func (r *MessageRepository) ListByTransaction(ctx context.Context, transactionID string) ([]models.AuditMessage, error) {
	const query = `
		SELECT id, transaction_id, sender, type, text, created_at
		FROM transaction_messages
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`

	var msgs []models.AuditMessage
	err := r.db.SelectContext(ctx, &msgs, query, transactionID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{transactionID},
		"result", len(msgs),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return msgs, nil
}
