package services

import (
	"context"

	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
)

//go:generate mockgen -source=inventory.go -destination=inventory_mock.go -package=services

// StockStore performs atomic conditional stock updates.
type StockStore interface {
	Reserve(ctx context.Context, itemID, sellerID string, qty int) (int, error) // Decrements stock if enough units remain, returns the new quantity
	Release(ctx context.Context, itemID, sellerID string, qty int) (int, error) // Increments stock, returns the new quantity
}

// InventoryService reserves and releases item stock.
type InventoryService struct {
	store StockStore
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(store StockStore) *InventoryService {
	return &InventoryService{store: store}
}

// Reserve takes qty units of the item out of stock, or fails without side effects.
func (s *InventoryService) Reserve(ctx context.Context, itemID, sellerID string, qty int) error {
	if qty <= 0 || itemID == "" || sellerID == "" {
		return ErrInvalidRequest
	}

	left, err := s.store.Reserve(ctx, itemID, sellerID, qty)
	if err != nil {
		logger.Log.Errorw("failed to reserve stock", "item_id", itemID, "quantity", qty, "error", err)
		return translate(err)
	}

	logger.Log.Infow("stock reserved", "item_id", itemID, "quantity", qty, "left", left)
	return nil
}

// Release puts qty units back into stock. Releasing zero units is a no-op.
func (s *InventoryService) Release(ctx context.Context, itemID, sellerID string, qty int) error {
	if qty == 0 {
		return nil
	}
	if qty < 0 {
		return ErrInvalidRequest
	}

	left, err := s.store.Release(ctx, itemID, sellerID, qty)
	if err != nil {
		logger.Log.Errorw("failed to release stock", "item_id", itemID, "quantity", qty, "error", err)
		return translate(err)
	}

	logger.Log.Infow("stock released", "item_id", itemID, "quantity", qty, "left", left)
	return nil
}
