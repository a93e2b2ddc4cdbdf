package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

const maxConflictRetries = 128

// EmbeddedLedger is a single-node ledger store on top of badger. It serves the same
// contracts as the Postgres repositories; conditional writes rely on badger's
// optimistic transactions, which reject a commit whose reads were changed concurrently.
type EmbeddedLedger struct {
	db *badger.DB
}

// OpenEmbeddedLedger opens a badger database at path, or an in-memory one when path is empty.
func OpenEmbeddedLedger(path string) (*EmbeddedLedger, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &EmbeddedLedger{db: db}, nil
}

// Close closes the underlying database.
func (l *EmbeddedLedger) Close() error {
	return l.db.Close()
}

func itemKey(id string) []byte { return []byte("item/" + id) }

func txKey(id string) []byte { return []byte("tx/" + id) }

func partyKey(userID, txID string) []byte { return []byte("party/" + userID + "/" + txID) }

func partyPrefix(userID string) []byte { return []byte("party/" + userID + "/") }

func msgPrefix(txID string) []byte { return []byte("msg/" + txID + "/") }

func msgKey(msg models.AuditMessage) []byte {
	return []byte(fmt.Sprintf("msg/%s/%020d/%s", msg.TransactionID, msg.Timestamp.UnixNano(), msg.ID))
}

// update runs fn in a read-write transaction, retrying when badger reports a conflict.
func (l *EmbeddedLedger) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		err := l.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= maxConflictRetries {
			return ErrConflict
		}
		backoff := time.Duration(attempt+1) * 50 * time.Microsecond
		if backoff > 5*time.Millisecond {
			backoff = 5 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// GetItem returns an item by id.
func (l *EmbeddedLedger) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := l.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, itemKey(id), &item)
	})
	logger.Log.Debugw("embedded get item", "item_id", id, "error", err)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem inserts or replaces an item.
func (l *EmbeddedLedger) SaveItem(ctx context.Context, item models.Item) error {
	return l.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, itemKey(item.ID), item)
	})
}

// Reserve decrements the available quantity when at least qty units remain.
func (l *EmbeddedLedger) Reserve(ctx context.Context, itemID, sellerID string, qty int) (int, error) {
	var remaining int
	err := l.update(ctx, func(txn *badger.Txn) error {
		var item models.Item
		if err := getJSON(txn, itemKey(itemID), &item); err != nil {
			return err
		}
		if item.SellerID != sellerID {
			return ErrNotFound
		}
		if item.Quantity < qty {
			return ErrInsufficientStock
		}
		item.Quantity -= qty
		remaining = item.Quantity
		return setJSON(txn, itemKey(itemID), item)
	})
	logger.Log.Debugw("embedded reserve", "item_id", itemID, "qty", qty, "result", remaining, "error", err)
	return remaining, err
}

// Release returns qty units to the available quantity.
func (l *EmbeddedLedger) Release(ctx context.Context, itemID, sellerID string, qty int) (int, error) {
	var remaining int
	err := l.update(ctx, func(txn *badger.Txn) error {
		var item models.Item
		if err := getJSON(txn, itemKey(itemID), &item); err != nil {
			return err
		}
		if item.SellerID != sellerID {
			return ErrNotFound
		}
		item.Quantity += qty
		remaining = item.Quantity
		return setJSON(txn, itemKey(itemID), item)
	})
	logger.Log.Debugw("embedded release", "item_id", itemID, "qty", qty, "result", remaining, "error", err)
	return remaining, err
}

// Create stores a new transaction and indexes it for both parties.
func (l *EmbeddedLedger) Create(ctx context.Context, tx *models.Transaction) error {
	stored := *tx
	stored.Version = 1
	err := l.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(txKey(tx.ID)); err == nil {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setJSON(txn, txKey(tx.ID), stored); err != nil {
			return err
		}
		if err := txn.Set(partyKey(tx.BuyerID, tx.ID), nil); err != nil {
			return err
		}
		return txn.Set(partyKey(tx.SellerID, tx.ID), nil)
	})
	logger.Log.Debugw("embedded create transaction", "transaction_id", tx.ID, "error", err)
	if err != nil {
		return err
	}
	tx.Version = 1
	return nil
}

// GetByID returns a transaction by id.
func (l *EmbeddedLedger) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := l.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, txKey(id), &tx)
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListByParty returns transactions where userID is a party, newest first.
func (l *EmbeddedLedger) ListByParty(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := l.db.View(func(txn *badger.Txn) error {
		prefix := partyPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			var tx models.Transaction
			if err := getJSON(txn, txKey(id), &tx); err != nil {
				return err
			}
			if err := checkStatus(&tx); err != nil {
				return err
			}
			txs = append(txs, tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

// CompareAndSwap replaces the stored transaction only if it still has the expected
// status and version.
func (l *EmbeddedLedger) CompareAndSwap(ctx context.Context, tx *models.Transaction, expected models.Status) error {
	next := *tx
	next.Version = tx.Version + 1
	err := l.update(ctx, func(txn *badger.Txn) error {
		var current models.Transaction
		if err := getJSON(txn, txKey(tx.ID), &current); err != nil {
			return err
		}
		if current.Status != expected || current.Version != tx.Version {
			return ErrConflict
		}
		return setJSON(txn, txKey(tx.ID), next)
	})
	logger.Log.Debugw("embedded compare and swap", "transaction_id", tx.ID, "expected", expected, "status", tx.Status, "error", err)
	if err != nil {
		return err
	}
	tx.Version = next.Version
	return nil
}

// Append adds a message to the log of its transaction.
func (l *EmbeddedLedger) Append(ctx context.Context, msg models.AuditMessage) error {
	return l.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, msgKey(msg), msg)
	})
}

// ListByTransaction returns the log of a transaction in append order.
func (l *EmbeddedLedger) ListByTransaction(ctx context.Context, transactionID string) ([]models.AuditMessage, error) {
	var msgs []models.AuditMessage
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = msgPrefix(transactionID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var msg models.AuditMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		return nil
	})
	return msgs, err
}

// badgerLogger routes badger's internal logging into the service logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...any)   { logger.Log.Errorf(f, v...) }
func (badgerLogger) Warningf(f string, v ...any) { logger.Log.Warnf(f, v...) }
func (badgerLogger) Infof(f string, v ...any)    { logger.Log.Debugf(f, v...) }
func (badgerLogger) Debugf(f string, v ...any)   { logger.Log.Debugf(f, v...) }

// EmbeddedItems adapts EmbeddedLedger to the item repository method set.
type EmbeddedItems struct{ *EmbeddedLedger }

// GetByID returns an item by id.
func (e EmbeddedItems) GetByID(ctx context.Context, id string) (*models.Item, error) {
	return e.GetItem(ctx, id)
}

// Save inserts or replaces an item.
func (e EmbeddedItems) Save(ctx context.Context, item models.Item) error {
	return e.SaveItem(ctx, item)
}
