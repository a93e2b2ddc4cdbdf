package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

// ItemRepository owns the live available quantity of catalog items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// GetByID returns an item by id.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	const query = `
		SELECT id, seller_id, seller_name, name, image_ref, quantity
		FROM items
		WHERE id = $1
	`

	var item models.Item
	err := r.db.GetContext(ctx, &item, query, id)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{id},
		"result", item,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Save inserts or replaces an item as published by the seller's catalog.
func (r *ItemRepository) Save(ctx context.Context, item models.Item) error {
	const query = `
		INSERT INTO items (id, seller_id, seller_name, name, image_ref, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET seller_id = EXCLUDED.seller_id,
		    seller_name = EXCLUDED.seller_name,
		    name = EXCLUDED.name,
		    image_ref = EXCLUDED.image_ref,
		    quantity = EXCLUDED.quantity,
		    updated_at = NOW()
	`

	args := []any{item.ID, item.SellerID, item.SellerName, item.Name, item.ImageRef, item.Quantity}
	_, err := r.db.ExecContext(ctx, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)
	return err
}

// Reserve atomically decrements the available quantity by qty.
// The decrement only happens when enough stock exists at the instant of the write,
// so concurrent reservations can never drive the quantity negative.
func (r *ItemRepository) Reserve(ctx context.Context, itemID, sellerID string, qty int) (int, error) {
	const query = `
		UPDATE items
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE id = $2 AND seller_id = $3 AND quantity >= $1
		RETURNING quantity
	`

	var remaining int
	err := r.db.GetContext(ctx, &remaining, query, qty, itemID, sellerID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{qty, itemID, sellerID},
		"result", remaining,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, r.reserveFailure(ctx, itemID, sellerID)
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// reserveFailure tells a missing item apart from an out-of-stock one after a failed reservation.
func (r *ItemRepository) reserveFailure(ctx context.Context, itemID, sellerID string) error {
	const query = `SELECT 1 FROM items WHERE id = $1 AND seller_id = $2`

	var exists int
	err := r.db.GetContext(ctx, &exists, query, itemID, sellerID)

	logger.Log.Infow(
		"query", query,
		"args", []any{itemID, sellerID},
		"result", exists,
		"error", err,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return err
	default:
		return ErrInsufficientStock
	}
}

// Release atomically returns qty units to the available quantity.
func (r *ItemRepository) Release(ctx context.Context, itemID, sellerID string, qty int) (int, error) {
	const query = `
		UPDATE items
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2 AND seller_id = $3
		RETURNING quantity
	`

	var remaining int
	err := r.db.GetContext(ctx, &remaining, query, qty, itemID, sellerID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{qty, itemID, sellerID},
		"result", remaining,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
