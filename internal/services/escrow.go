package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/verification"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=escrow.go -destination=escrow_mock.go -package=services

// TransactionStore persists transactions with conditional writes.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error                               // Inserts a new transaction
	GetByID(ctx context.Context, id string) (*models.Transaction, error)                    // Loads one transaction
	ListByParty(ctx context.Context, userID string) ([]models.Transaction, error)           // Lists transactions of a buyer or seller
	CompareAndSwap(ctx context.Context, tx *models.Transaction, expected models.Status) error // Writes tx if status and version are unchanged
}

// ItemReader loads catalog items.
type ItemReader interface {
	GetByID(ctx context.Context, id string) (*models.Item, error) // Loads one item
}

// Inventory reserves and releases stock.
type Inventory interface {
	Reserve(ctx context.Context, itemID, sellerID string, qty int) error // Takes units out of stock
	Release(ctx context.Context, itemID, sellerID string, qty int) error // Puts units back
}

// MessageReader reads the per-transaction audit log.
type MessageReader interface {
	ListByTransaction(ctx context.Context, transactionID string) ([]models.AuditMessage, error) // Lists messages oldest first
}

// Locker serializes operations on one transaction.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error) // Blocks until the lock is held, returns the unlock function
}

// PaymentGateway holds, captures and refunds escrowed funds.
type PaymentGateway interface {
	AuthorizeAndHold(ctx context.Context, amount decimal.Decimal, payerRef string) (string, error) // Returns the hold reference
	CaptureHeld(ctx context.Context, holdRef string) (models.PaymentConfirmation, error)           // Releases held funds to the seller
	RefundHeld(ctx context.Context, holdRef string) (models.PaymentConfirmation, error)            // Returns held funds to the buyer
}

// CodeVerifier checks a submitted pickup code against the stored one.
type CodeVerifier interface {
	Validate(ctx context.Context, txID, submitted string) (bool, error) // Reports whether submitted matches
}

// EventPublisher receives domain events after they have been persisted.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.TransitionEvent) error // Enqueues the event for subscribers
}

// PurchaseRequest is the buyer's input to RequestPurchase.
type PurchaseRequest struct {
	ItemID    string
	SellerID  string
	BuyerID   string
	BuyerName string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Decision is the seller's answer to a purchase request.
type Decision struct {
	Accept           bool
	ApprovedQuantity int
}

const publishTimeout = 5 * time.Second

// Bounds of the stored columns: unit_price NUMERIC(20,4), final_total_price NUMERIC(24,4)
// and INTEGER quantities.
const (
	maxPriceScale = 4
	maxQuantity   = math.MaxInt32
)

var (
	maxUnitPrice  = decimal.New(1, 16)
	maxTotalPrice = decimal.New(1, 20)
)

// EscrowOption configures an EscrowService.
type EscrowOption func(*EscrowService)

// WithPaymentTimeout bounds every payment gateway call.
func WithPaymentTimeout(d time.Duration) EscrowOption {
	return func(s *EscrowService) {
		if d > 0 {
			s.paymentTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EscrowOption {
	return func(s *EscrowService) {
		s.now = now
	}
}

// WithCodeGenerator overrides the pickup code generator.
func WithCodeGenerator(g verification.Generator) EscrowOption {
	return func(s *EscrowService) {
		s.codes = g
	}
}

// WithCodeVerifier overrides the pickup code check used by RedeemCode.
func WithCodeVerifier(v CodeVerifier) EscrowOption {
	return func(s *EscrowService) {
		s.verifier = v
	}
}

// EscrowService drives transactions through the negotiation state machine.
type EscrowService struct {
	txs       TransactionStore
	items     ItemReader
	inventory Inventory
	messages  MessageReader
	locker    Locker
	gateway   PaymentGateway
	publisher EventPublisher

	codes          verification.Generator
	verifier       CodeVerifier
	paymentTimeout time.Duration
	now            func() time.Time
}

// NewEscrowService creates a new EscrowService.
func NewEscrowService(
	txs TransactionStore,
	items ItemReader,
	inventory Inventory,
	messages MessageReader,
	locker Locker,
	gateway PaymentGateway,
	publisher EventPublisher,
	opts ...EscrowOption,
) *EscrowService {
	s := &EscrowService{
		txs:            txs,
		items:          items,
		inventory:      inventory,
		messages:       messages,
		locker:         locker,
		gateway:        gateway,
		publisher:      publisher,
		codes:          verification.GeneratorFunc(verification.Generate),
		verifier:       verification.NewService(txs),
		paymentTimeout: 10 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestPurchase reserves stock and opens a transaction awaiting the seller.
func (s *EscrowService) RequestPurchase(ctx context.Context, req PurchaseRequest) (*models.Transaction, error) {
	if req.Quantity <= 0 || req.Quantity > maxQuantity ||
		!req.UnitPrice.IsPositive() || !req.UnitPrice.Equal(req.UnitPrice.Truncate(maxPriceScale)) ||
		req.UnitPrice.GreaterThanOrEqual(maxUnitPrice) ||
		req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))).GreaterThanOrEqual(maxTotalPrice) ||
		req.ItemID == "" || req.SellerID == "" || req.BuyerID == "" || req.BuyerID == req.SellerID {
		return nil, ErrInvalidRequest
	}

	item, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		logger.Log.Errorw("failed to load item", "item_id", req.ItemID, "error", err)
		return nil, translate(err)
	}
	if item.SellerID != req.SellerID {
		return nil, ErrNotFound
	}

	code, err := s.codes.Generate()
	if err != nil {
		logger.Log.Errorw("failed to generate verification code", "error", err)
		return nil, err
	}

	if err := s.inventory.Reserve(ctx, item.ID, item.SellerID, req.Quantity); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tx := &models.Transaction{
		ID:                uuid.NewString(),
		ItemID:            item.ID,
		ItemName:          item.Name,
		ItemImageRef:      item.ImageRef,
		BuyerID:           req.BuyerID,
		BuyerName:         req.BuyerName,
		SellerID:          item.SellerID,
		SellerName:        item.SellerName,
		UnitPrice:         req.UnitPrice,
		RequestedQuantity: req.Quantity,
		Status:            models.StatusPendingSellerAcceptance,
		VerificationCode:  code,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.txs.Create(ctx, tx); err != nil {
		logger.Log.Errorw("failed to create transaction", "item_id", item.ID, "buyer_id", req.BuyerID, "error", err)
		// The reservation must be returned even if the caller has gone away.
		if relErr := s.inventory.Release(context.WithoutCancel(ctx), item.ID, item.SellerID, req.Quantity); relErr != nil {
			logger.Log.Errorw("failed to compensate reservation", "item_id", item.ID, "quantity", req.Quantity, "error", relErr)
		}
		return nil, translate(err)
	}

	s.publish(ctx, models.EventKindRequested, tx, "", req.BuyerID)
	return tx, nil
}

// RespondToRequest applies the seller's decision and returns unused stock.
func (s *EscrowService) RespondToRequest(ctx context.Context, txID, sellerID string, d Decision) (*models.Transaction, error) {
	return s.mutate(ctx, txID, sellerID, func(tx *models.Transaction) (models.EventKind, error) {
		if tx.SellerID != sellerID {
			return "", ErrNotAuthorized
		}

		event, kind := models.EventReject, models.EventKindRejected
		if d.Accept {
			event, kind = models.EventAccept, models.EventKindAccepted
		}
		next, err := models.Transition(tx.Status, event)
		if err != nil {
			return "", ErrInvalidTransition
		}

		release := tx.RequestedQuantity
		if d.Accept {
			if d.ApprovedQuantity < 1 || d.ApprovedQuantity > tx.RequestedQuantity {
				return "", ErrInvalidRequest
			}
			approved := d.ApprovedQuantity
			tx.ApprovedQuantity = &approved
			release = tx.RequestedQuantity - approved
		} else {
			tx.CancelledAt = s.timestamp(tx)
		}

		prev := tx.Status
		tx.Status = next
		if err := s.save(ctx, tx, prev); err != nil {
			return "", err
		}

		if err := s.inventory.Release(context.WithoutCancel(ctx), tx.ItemID, tx.SellerID, release); err != nil {
			logger.Log.Errorw("failed to release stock after seller response",
				"transaction_id", tx.ID, "quantity", release, "error", err)
		}
		return kind, nil
	})
}

// SubmitPayment holds the final price in escrow.
func (s *EscrowService) SubmitPayment(ctx context.Context, txID, buyerID, paymentMethodRef string) (*models.Transaction, error) {
	if strings.TrimSpace(paymentMethodRef) == "" {
		return nil, ErrInvalidRequest
	}

	return s.mutate(ctx, txID, buyerID, func(tx *models.Transaction) (models.EventKind, error) {
		if tx.BuyerID != buyerID {
			return "", ErrNotAuthorized
		}
		next, err := models.Transition(tx.Status, models.EventPay)
		if err != nil {
			return "", ErrInvalidTransition
		}

		gctx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		holdRef, err := s.gateway.AuthorizeAndHold(gctx, tx.FinalTotalPrice(), paymentMethodRef)
		cancel()
		if err != nil {
			logger.Log.Errorw("payment authorization failed", "transaction_id", tx.ID, "error", err)
			return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}

		prev := tx.Status
		tx.Status = next
		tx.HoldRef = holdRef
		if err := s.save(ctx, tx, prev); err != nil {
			s.voidHold(ctx, tx.ID, holdRef)
			return "", err
		}
		return models.EventKindPaid, nil
	})
}

// WithdrawPayment refunds the held funds. Stock is not restored.
func (s *EscrowService) WithdrawPayment(ctx context.Context, txID, buyerID string) (*models.Transaction, error) {
	return s.mutate(ctx, txID, buyerID, func(tx *models.Transaction) (models.EventKind, error) {
		if tx.BuyerID != buyerID {
			return "", ErrNotAuthorized
		}
		next, err := models.Transition(tx.Status, models.EventWithdraw)
		if err != nil {
			return "", ErrInvalidTransition
		}

		gctx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		conf, err := s.gateway.RefundHeld(gctx, tx.HoldRef)
		cancel()
		if err != nil {
			logger.Log.Errorw("payment refund failed", "transaction_id", tx.ID, "error", err)
			return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		logger.Log.Infow("payment refunded", "transaction_id", tx.ID, "reference", conf.Reference, "amount", conf.Amount)

		prev := tx.Status
		tx.Status = next
		tx.CancelledAt = s.timestamp(tx)
		if err := s.save(ctx, tx, prev); err != nil {
			logger.Log.Errorw("refund issued but status write failed", "transaction_id", tx.ID, "hold_ref", tx.HoldRef, "error", err)
			return "", err
		}
		return models.EventKindWithdrawn, nil
	})
}

// RedeemCode verifies the buyer's pickup code and releases the funds to the seller.
func (s *EscrowService) RedeemCode(ctx context.Context, txID, sellerID, code string) (*models.Transaction, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidRequest
	}

	return s.mutate(ctx, txID, sellerID, func(tx *models.Transaction) (models.EventKind, error) {
		if tx.SellerID != sellerID {
			return "", ErrNotAuthorized
		}
		next, err := models.Transition(tx.Status, models.EventRedeem)
		if err != nil {
			return "", ErrInvalidTransition
		}
		ok, err := s.verifier.Validate(ctx, tx.ID, code)
		if err != nil {
			logger.Log.Errorw("failed to validate verification code", "transaction_id", tx.ID, "error", err)
			return "", translate(err)
		}
		if !ok {
			logger.Log.Warnw("verification code mismatch", "transaction_id", tx.ID)
			return "", ErrInvalidCode
		}

		gctx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		conf, err := s.gateway.CaptureHeld(gctx, tx.HoldRef)
		cancel()
		if err != nil {
			logger.Log.Errorw("payment capture failed", "transaction_id", tx.ID, "error", err)
			return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		logger.Log.Infow("payment captured", "transaction_id", tx.ID, "reference", conf.Reference, "amount", conf.Amount)

		prev := tx.Status
		tx.Status = next
		tx.CompletedAt = s.timestamp(tx)
		if err := s.save(ctx, tx, prev); err != nil {
			logger.Log.Errorw("capture issued but status write failed", "transaction_id", tx.ID, "hold_ref", tx.HoldRef, "error", err)
			return "", err
		}
		return models.EventKindCompleted, nil
	})
}

// SetMeetupDetails records the pickup location. Allowed once the seller has accepted and
// until the transaction is settled.
func (s *EscrowService) SetMeetupDetails(ctx context.Context, txID, sellerID string, m models.MeetupDetails) (*models.Transaction, error) {
	m.Address = strings.TrimSpace(m.Address)
	if !(models.Coordinates{Latitude: m.Latitude, Longitude: m.Longitude}).Valid() || m.Address == "" {
		return nil, ErrInvalidRequest
	}

	return s.mutate(ctx, txID, sellerID, func(tx *models.Transaction) (models.EventKind, error) {
		if tx.SellerID != sellerID {
			return "", ErrNotAuthorized
		}
		if tx.Status != models.StatusSellerAccepted && tx.Status != models.StatusPaid {
			return "", ErrInvalidTransition
		}

		details := m
		tx.MeetupDetails = &details
		if err := s.save(ctx, tx, tx.Status); err != nil {
			return "", err
		}
		return models.EventKindMeetupSet, nil
	})
}

// GetTransaction returns a transaction the caller is a party to.
func (s *EscrowService) GetTransaction(ctx context.Context, txID, userID string) (*models.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, txID)
	if err != nil {
		logger.Log.Errorw("failed to load transaction", "transaction_id", txID, "error", err)
		return nil, translate(err)
	}
	if !tx.IsParty(userID) {
		return nil, ErrNotAuthorized
	}
	return tx, nil
}

// ListTransactions returns every transaction where userID is buyer or seller, newest first.
func (s *EscrowService) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	txs, err := s.txs.ListByParty(ctx, userID)
	if err != nil {
		logger.Log.Errorw("failed to list transactions", "user_id", userID, "error", err)
		return nil, translate(err)
	}
	return txs, nil
}

// ListMessages returns the audit log of a transaction the caller is a party to.
func (s *EscrowService) ListMessages(ctx context.Context, txID, userID string) ([]models.AuditMessage, error) {
	if _, err := s.GetTransaction(ctx, txID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTransaction(ctx, txID)
	if err != nil {
		logger.Log.Errorw("failed to list messages", "transaction_id", txID, "error", err)
		return nil, translate(err)
	}
	return msgs, nil
}

// mutate runs apply on a freshly loaded transaction while holding its lock. apply performs
// checks and side effects, persists through save, and reports the event to publish.
func (s *EscrowService) mutate(
	ctx context.Context,
	txID, actorID string,
	apply func(tx *models.Transaction) (models.EventKind, error),
) (*models.Transaction, error) {
	unlock, err := s.locker.Lock(ctx, txID)
	if err != nil {
		logger.Log.Errorw("failed to lock transaction", "transaction_id", txID, "error", err)
		return nil, translate(err)
	}
	defer unlock()

	tx, err := s.txs.GetByID(ctx, txID)
	if err != nil {
		logger.Log.Errorw("failed to load transaction", "transaction_id", txID, "error", err)
		return nil, translate(err)
	}
	if !tx.IsParty(actorID) {
		return nil, ErrNotAuthorized
	}
	if tx.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}
	prev := tx.Status

	kind, err := apply(tx)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kind, tx, prev, actorID)
	return tx, nil
}

// save stamps tx and writes it if nobody else changed it since it was loaded.
func (s *EscrowService) save(ctx context.Context, tx *models.Transaction, expected models.Status) error {
	tx.UpdatedAt = *s.timestamp(tx)
	if err := s.txs.CompareAndSwap(ctx, tx, expected); err != nil {
		logger.Log.Errorw("failed to update transaction",
			"transaction_id", tx.ID, "expected", expected, "status", tx.Status, "error", err)
		return translate(err)
	}
	logger.Log.Infow("transaction updated", "transaction_id", tx.ID, "from", expected, "to", tx.Status, "version", tx.Version)
	return nil
}

// timestamp returns now, never earlier than the last update of tx.
func (s *EscrowService) timestamp(tx *models.Transaction) *time.Time {
	now := s.now().UTC()
	if now.Before(tx.UpdatedAt) {
		now = tx.UpdatedAt
	}
	return &now
}

// voidHold refunds a hold whose status write was lost.
func (s *EscrowService) voidHold(ctx context.Context, txID, holdRef string) {
	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.paymentTimeout)
	defer cancel()
	if _, err := s.gateway.RefundHeld(gctx, holdRef); err != nil {
		logger.Log.Errorw("failed to void orphaned hold", "transaction_id", txID, "hold_ref", holdRef, "error", err)
	}
}

func (s *EscrowService) publish(ctx context.Context, kind models.EventKind, tx *models.Transaction, prev models.Status, actorID string) {
	if s.publisher == nil {
		return
	}
	ev := models.TransitionEvent{
		Kind:           kind,
		Transaction:    *tx,
		PreviousStatus: prev,
		ActorID:        actorID,
		OccurredAt:     tx.UpdatedAt,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, ev); err != nil {
		logger.Log.Errorw("failed to publish event", "transaction_id", tx.ID, "kind", kind, "error", err)
	}
}
