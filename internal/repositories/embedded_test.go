package repositories

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *EmbeddedLedger {
	l, err := OpenEmbeddedLedger("")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestEmbeddedLedger_ReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	require.NoError(t, l.SaveItem(ctx, models.Item{ID: "item-1", SellerID: "seller-1", Name: "Lamp", Quantity: 10}))

	var (
		wg       sync.WaitGroup
		reserved atomic.Int64
		failed   atomic.Int64
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Reserve(ctx, "item-1", "seller-1", 1); err != nil {
				assert.ErrorIs(t, err, ErrInsufficientStock)
				failed.Add(1)
				return
			}
			reserved.Add(1)
		}()
	}
	wg.Wait()

	item, err := l.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), reserved.Load())
	assert.Equal(t, int64(15), failed.Load())
	assert.Equal(t, 0, item.Quantity)
}

func TestEmbeddedLedger_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	require.NoError(t, l.SaveItem(ctx, models.Item{ID: "item-1", SellerID: "seller-1", Quantity: 5}))

	left, err := l.Reserve(ctx, "item-1", "seller-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	_, err = l.Reserve(ctx, "item-1", "seller-1", 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = l.Reserve(ctx, "item-1", "someone-else", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Reserve(ctx, "missing", "seller-1", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	left, err = l.Release(ctx, "item-1", "seller-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, left)
}

func TestEmbeddedLedger_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	tx := &models.Transaction{
		ID:                "tx-1",
		BuyerID:           "buyer-1",
		SellerID:          "seller-1",
		RequestedQuantity: 1,
		Status:            models.StatusSellerAccepted,
		CreatedAt:         time.Now(),
	}
	require.NoError(t, l.Create(ctx, tx))
	assert.Equal(t, int64(1), tx.Version)

	first := *tx
	second := *tx

	first.Status = models.StatusPaid
	require.NoError(t, l.CompareAndSwap(ctx, &first, models.StatusSellerAccepted))
	assert.Equal(t, int64(2), first.Version)

	second.Status = models.StatusPaid
	assert.ErrorIs(t, l.CompareAndSwap(ctx, &second, models.StatusSellerAccepted), ErrConflict)

	stored, err := l.GetByID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)
	assert.Equal(t, int64(2), stored.Version)

	_, err = l.GetByID(ctx, "tx-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmbeddedLedger_ListByParty(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	base := time.Now()

	for i, id := range []string{"tx-a", "tx-b", "tx-c"} {
		buyer := "buyer-1"
		if id == "tx-c" {
			buyer = "buyer-2"
		}
		require.NoError(t, l.Create(ctx, &models.Transaction{
			ID: id, BuyerID: buyer, SellerID: "seller-1",
			Status: models.StatusPendingSellerAcceptance, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	buyerTxs, err := l.ListByParty(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, buyerTxs, 2)
	assert.Equal(t, "tx-b", buyerTxs[0].ID)
	assert.Equal(t, "tx-a", buyerTxs[1].ID)

	sellerTxs, err := l.ListByParty(ctx, "seller-1")
	require.NoError(t, err)
	assert.Len(t, sellerTxs, 3)
}

func TestEmbeddedLedger_UnknownStatusOnRead(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	require.NoError(t, l.Create(ctx, &models.Transaction{
		ID: "tx-x", BuyerID: "buyer-1", SellerID: "seller-1", Status: models.Status("SHIPPED"), CreatedAt: time.Now(),
	}))

	_, err := l.GetByID(ctx, "tx-x")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = l.ListByParty(ctx, "buyer-1")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestEmbeddedLedger_Messages(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	base := time.Now()

	texts := []string{"requested", "accepted", "paid"}
	for i, text := range texts {
		require.NoError(t, l.Append(ctx, models.AuditMessage{
			ID: text, TransactionID: "tx-1", Sender: models.MessageSenderSystem,
			Type: models.MessageTypeStatus, Text: text, Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	require.NoError(t, l.Append(ctx, models.AuditMessage{ID: "other", TransactionID: "tx-2", Text: "other", Timestamp: base}))

	msgs, err := l.ListByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, text := range texts {
		assert.Equal(t, text, msgs[i].Text)
	}
}
