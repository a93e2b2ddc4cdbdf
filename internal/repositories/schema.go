package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
)

// migrations are applied in order; every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id          TEXT PRIMARY KEY,
		seller_id   TEXT NOT NULL,
		seller_name TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL,
		image_ref   TEXT NOT NULL DEFAULT '',
		quantity    INTEGER NOT NULL CHECK (quantity >= 0),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                 TEXT PRIMARY KEY,
		item_id            TEXT NOT NULL,
		item_name          TEXT NOT NULL,
		item_image_ref     TEXT NOT NULL DEFAULT '',
		buyer_id           TEXT NOT NULL,
		buyer_name         TEXT NOT NULL DEFAULT '',
		seller_id          TEXT NOT NULL,
		seller_name        TEXT NOT NULL DEFAULT '',
		unit_price         NUMERIC(20,4) NOT NULL CHECK (unit_price > 0),
		requested_quantity INTEGER NOT NULL CHECK (requested_quantity > 0),
		approved_quantity  INTEGER CHECK (approved_quantity > 0),
		final_total_price  NUMERIC(24,4) NOT NULL,
		status             TEXT NOT NULL,
		verification_code  TEXT NOT NULL,
		hold_ref           TEXT NOT NULL DEFAULT '',
		meetup_latitude    DOUBLE PRECISION,
		meetup_longitude   DOUBLE PRECISION,
		meetup_address     TEXT,
		version            BIGINT NOT NULL DEFAULT 1,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		completed_at       TIMESTAMPTZ,
		cancelled_at       TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS transactions_buyer_idx ON transactions (buyer_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS transactions_seller_idx ON transactions (seller_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS transaction_messages (
		id             TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		sender         TEXT NOT NULL,
		type           TEXT NOT NULL,
		text           TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS transaction_messages_tx_idx ON transaction_messages (transaction_id, created_at);`,
}

// Migrate creates the ledger schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	logger.Log.Infow("ledger schema migrated", "migrations", len(migrations))
	return nil
}
