package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/repositories"
	"github.com/sbilibin2017/gw-escrow-market/internal/verification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type escrowMocks struct {
	txs       *MockTransactionStore
	items     *MockItemReader
	inventory *MockInventory
	messages  *MockMessageReader
	locker    *MockLocker
	gateway   *MockPaymentGateway
	verifier  *MockCodeVerifier
	publisher *MockEventPublisher
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockedEscrow(t *testing.T) (*EscrowService, *escrowMocks) {
	ctrl := gomock.NewController(t)
	m := &escrowMocks{
		txs:       NewMockTransactionStore(ctrl),
		items:     NewMockItemReader(ctrl),
		inventory: NewMockInventory(ctrl),
		messages:  NewMockMessageReader(ctrl),
		locker:    NewMockLocker(ctrl),
		gateway:   NewMockPaymentGateway(ctrl),
		verifier:  NewMockCodeVerifier(ctrl),
		publisher: NewMockEventPublisher(ctrl),
	}
	svc := NewEscrowService(m.txs, m.items, m.inventory, m.messages, m.locker, m.gateway, m.publisher,
		WithClock(func() time.Time { return fixedNow }),
		WithCodeGenerator(verification.GeneratorFunc(func() (string, error) { return "KODE-AB12CD", nil })),
		WithPaymentTimeout(time.Second),
		WithCodeVerifier(m.verifier),
	)
	return svc, m
}

func (m *escrowMocks) expectLocked(tx *models.Transaction) {
	m.locker.EXPECT().Lock(gomock.Any(), tx.ID).Return(func() {}, nil)
	m.txs.EXPECT().GetByID(gomock.Any(), tx.ID).Return(tx, nil)
}

func storedTransaction(status models.Status) *models.Transaction {
	approved := 2
	return &models.Transaction{
		ID:                "tx-1",
		ItemID:            "item-1",
		BuyerID:           "buyer",
		SellerID:          "seller",
		UnitPrice:         decimal.NewFromInt(10),
		RequestedQuantity: 3,
		ApprovedQuantity:  &approved,
		Status:            status,
		VerificationCode:  "KODE-AB12CD",
		HoldRef:           "hold-1",
		Version:           3,
		CreatedAt:         fixedNow.Add(-time.Hour),
		UpdatedAt:         fixedNow.Add(-time.Minute),
	}
}

func TestEscrowService_RequestPurchase_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  PurchaseRequest
	}{
		{"zero quantity", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}},
		{"negative quantity", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: -1, UnitPrice: decimal.NewFromInt(1)}},
		{"zero price", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 1, UnitPrice: decimal.Zero}},
		{"negative price", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 1, UnitPrice: decimal.NewFromInt(-5)}},
		{"buying from yourself", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "s", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		{"missing item", PurchaseRequest{SellerID: "s", BuyerID: "b", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		{"price below one ten-thousandth", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 1, UnitPrice: decimal.RequireFromString("0.00001")}},
		{"price with five decimals", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 1, UnitPrice: decimal.RequireFromString("10.12345")}},
		{"price too large", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 1, UnitPrice: decimal.New(1, 16)}},
		{"total too large", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: 100000, UnitPrice: decimal.New(1, 15)}},
		{"quantity above int32", PurchaseRequest{ItemID: "i", SellerID: "s", BuyerID: "b", Quantity: math.MaxInt32 + 1, UnitPrice: decimal.NewFromInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newMockedEscrow(t)
			_, err := svc.RequestPurchase(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestEscrowService_RequestPurchase_Success(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()

	m.items.EXPECT().GetByID(ctx, "item-1").Return(&models.Item{ID: "item-1", SellerID: "seller", SellerName: "Sari", Name: "Lamp"}, nil)
	m.inventory.EXPECT().Reserve(ctx, "item-1", "seller", 3).Return(nil)
	m.txs.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev models.TransitionEvent) error {
			assert.Equal(t, models.EventKindRequested, ev.Kind)
			assert.Equal(t, "buyer", ev.ActorID)
			return nil
		})

	tx, err := svc.RequestPurchase(ctx, PurchaseRequest{
		ItemID: "item-1", SellerID: "seller", BuyerID: "buyer", BuyerName: "Budi",
		Quantity: 3, UnitPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingSellerAcceptance, tx.Status)
	assert.Equal(t, "KODE-AB12CD", tx.VerificationCode)
	assert.Equal(t, "Lamp", tx.ItemName)
	assert.Equal(t, fixedNow, tx.CreatedAt)
	assert.NotEmpty(t, tx.ID)
}

func TestEscrowService_RequestPurchase_OutOfStock(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()

	m.items.EXPECT().GetByID(ctx, "item-1").Return(&models.Item{ID: "item-1", SellerID: "seller"}, nil)
	m.inventory.EXPECT().Reserve(ctx, "item-1", "seller", 3).Return(ErrOutOfStock)

	_, err := svc.RequestPurchase(ctx, PurchaseRequest{
		ItemID: "item-1", SellerID: "seller", BuyerID: "buyer", Quantity: 3, UnitPrice: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestEscrowService_RequestPurchase_WrongSeller(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()

	m.items.EXPECT().GetByID(ctx, "item-1").Return(&models.Item{ID: "item-1", SellerID: "someone-else"}, nil)

	_, err := svc.RequestPurchase(ctx, PurchaseRequest{
		ItemID: "item-1", SellerID: "seller", BuyerID: "buyer", Quantity: 1, UnitPrice: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEscrowService_RequestPurchase_CompensatesFailedInsert(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()

	m.items.EXPECT().GetByID(ctx, "item-1").Return(&models.Item{ID: "item-1", SellerID: "seller"}, nil)
	gomock.InOrder(
		m.inventory.EXPECT().Reserve(ctx, "item-1", "seller", 3).Return(nil),
		m.txs.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("db down")),
		m.inventory.EXPECT().Release(gomock.Any(), "item-1", "seller", 3).Return(nil),
	)

	_, err := svc.RequestPurchase(ctx, PurchaseRequest{
		ItemID: "item-1", SellerID: "seller", BuyerID: "buyer", Quantity: 3, UnitPrice: decimal.NewFromInt(10),
	})
	assert.EqualError(t, err, "db down")
}

func TestEscrowService_RequestPurchase_PriceScale(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()

	m.items.EXPECT().GetByID(ctx, "item-1").Return(&models.Item{ID: "item-1", SellerID: "seller"}, nil)
	m.inventory.EXPECT().Reserve(ctx, "item-1", "seller", 1).Return(nil)
	m.txs.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	// trailing zeros do not count as extra precision
	tx, err := svc.RequestPurchase(ctx, PurchaseRequest{
		ItemID: "item-1", SellerID: "seller", BuyerID: "buyer", Quantity: 1,
		UnitPrice: decimal.RequireFromString("12.345600"),
	})
	require.NoError(t, err)
	assert.True(t, tx.UnitPrice.Equal(decimal.RequireFromString("12.3456")))
}

func TestEscrowService_RequestPurchase_ReleasesWhenCallerCancels(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.items.EXPECT().GetByID(ctx, "item-1").Return(&models.Item{ID: "item-1", SellerID: "seller"}, nil)
	gomock.InOrder(
		m.inventory.EXPECT().Reserve(ctx, "item-1", "seller", 3).DoAndReturn(
			func(context.Context, string, string, int) error {
				cancel()
				return nil
			}),
		m.txs.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ *models.Transaction) error {
				return ctx.Err()
			}),
		m.inventory.EXPECT().Release(gomock.Any(), "item-1", "seller", 3).DoAndReturn(
			func(ctx context.Context, _, _ string, _ int) error {
				assert.NoError(t, ctx.Err())
				return ctx.Err()
			}),
	)

	_, err := svc.RequestPurchase(ctx, PurchaseRequest{
		ItemID: "item-1", SellerID: "seller", BuyerID: "buyer", Quantity: 3, UnitPrice: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEscrowService_RespondToRequest_RejectReleasesEverything(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()
	tx := storedTransaction(models.StatusPendingSellerAcceptance)
	tx.ApprovedQuantity = nil

	m.expectLocked(tx)
	m.txs.EXPECT().CompareAndSwap(ctx, tx, models.StatusPendingSellerAcceptance).Return(nil)
	m.inventory.EXPECT().Release(gomock.Any(), "item-1", "seller", 3).Return(nil)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	got, err := svc.RespondToRequest(ctx, "tx-1", "seller", Decision{Accept: false})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSellerRejected, got.Status)
	assert.Equal(t, fixedNow, got.UpdatedAt)
	require.NotNil(t, got.CancelledAt)
}

func TestEscrowService_RespondToRequest_ReleasesWhenCallerCancels(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tx := storedTransaction(models.StatusPendingSellerAcceptance)
	tx.ApprovedQuantity = nil

	m.expectLocked(tx)
	m.txs.EXPECT().CompareAndSwap(ctx, tx, models.StatusPendingSellerAcceptance).DoAndReturn(
		func(context.Context, *models.Transaction, models.Status) error {
			cancel()
			return nil
		})
	m.inventory.EXPECT().Release(gomock.Any(), "item-1", "seller", 1).DoAndReturn(
		func(ctx context.Context, _, _ string, _ int) error {
			assert.NoError(t, ctx.Err())
			return nil
		})
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	got, err := svc.RespondToRequest(ctx, "tx-1", "seller", Decision{Accept: true, ApprovedQuantity: 2})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSellerAccepted, got.Status)
}

func TestEscrowService_TerminalStatusIsFinal(t *testing.T) {
	ctx := context.Background()
	meetup := models.MeetupDetails{Latitude: -6.2, Longitude: 106.8, Address: "Jl. Sudirman 1"}

	tests := []struct {
		name   string
		status models.Status
		call   func(svc *EscrowService) (*models.Transaction, error)
	}{
		{"respond after reject", models.StatusSellerRejected, func(svc *EscrowService) (*models.Transaction, error) {
			return svc.RespondToRequest(ctx, "tx-1", "seller", Decision{Accept: true, ApprovedQuantity: 1})
		}},
		{"meetup after completion", models.StatusCompleted, func(svc *EscrowService) (*models.Transaction, error) {
			return svc.SetMeetupDetails(ctx, "tx-1", "seller", meetup)
		}},
		{"pay after withdrawal", models.StatusWithdrawn, func(svc *EscrowService) (*models.Transaction, error) {
			return svc.SubmitPayment(ctx, "tx-1", "buyer", "card-1")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockedEscrow(t)
			m.expectLocked(storedTransaction(tt.status))

			_, err := tt.call(svc)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestEscrowService_StrangerOnTerminalTransaction(t *testing.T) {
	svc, m := newMockedEscrow(t)
	m.expectLocked(storedTransaction(models.StatusCompleted))

	_, err := svc.RedeemCode(context.Background(), "tx-1", "stranger", "KODE-AB12CD")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestEscrowService_RespondToRequest_WrongStatus(t *testing.T) {
	svc, m := newMockedEscrow(t)
	tx := storedTransaction(models.StatusPaid)

	m.expectLocked(tx)

	_, err := svc.RespondToRequest(context.Background(), "tx-1", "seller", Decision{Accept: true, ApprovedQuantity: 1})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEscrowService_SubmitPayment_GatewayFailure(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()
	tx := storedTransaction(models.StatusSellerAccepted)
	tx.HoldRef = ""

	m.expectLocked(tx)
	m.gateway.EXPECT().
		AuthorizeAndHold(gomock.Any(), gomock.Any(), "card-1").
		DoAndReturn(func(_ context.Context, amount decimal.Decimal, _ string) (string, error) {
			assert.True(t, amount.Equal(decimal.NewFromInt(20)))
			return "", context.DeadlineExceeded
		})

	_, err := svc.SubmitPayment(ctx, "tx-1", "buyer", "card-1")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, models.StatusSellerAccepted, tx.Status)
}

func TestEscrowService_SubmitPayment_LostWriteVoidsHold(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()
	tx := storedTransaction(models.StatusSellerAccepted)
	tx.HoldRef = ""

	m.expectLocked(tx)
	m.gateway.EXPECT().AuthorizeAndHold(gomock.Any(), gomock.Any(), "card-1").Return("hold-9", nil)
	m.txs.EXPECT().CompareAndSwap(ctx, tx, models.StatusSellerAccepted).Return(repositories.ErrConflict)
	m.gateway.EXPECT().RefundHeld(gomock.Any(), "hold-9").Return(models.PaymentConfirmation{}, nil)

	_, err := svc.SubmitPayment(ctx, "tx-1", "buyer", "card-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEscrowService_SubmitPayment_EmptyMethod(t *testing.T) {
	svc, _ := newMockedEscrow(t)

	_, err := svc.SubmitPayment(context.Background(), "tx-1", "buyer", " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEscrowService_LockTimeout(t *testing.T) {
	svc, m := newMockedEscrow(t)

	m.locker.EXPECT().Lock(gomock.Any(), "tx-1").Return(nil, repositories.ErrLockTimeout)

	_, err := svc.WithdrawPayment(context.Background(), "tx-1", "buyer")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestEscrowService_LockWaitCancelled(t *testing.T) {
	svc, m := newMockedEscrow(t)

	m.locker.EXPECT().Lock(gomock.Any(), "tx-1").
		Return(nil, fmt.Errorf("%w: %w", repositories.ErrLockTimeout, context.Canceled))

	_, err := svc.SubmitPayment(context.Background(), "tx-1", "buyer", "card-1")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestEscrowService_UnknownTransaction(t *testing.T) {
	svc, m := newMockedEscrow(t)

	m.locker.EXPECT().Lock(gomock.Any(), "tx-404").Return(func() {}, nil)
	m.txs.EXPECT().GetByID(gomock.Any(), "tx-404").Return(nil, repositories.ErrNotFound)

	_, err := svc.RedeemCode(context.Background(), "tx-404", "seller", "KODE-AB12CD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEscrowService_RedeemCode_CompletedIsTerminal(t *testing.T) {
	svc, m := newMockedEscrow(t)
	tx := storedTransaction(models.StatusCompleted)

	m.expectLocked(tx)

	_, err := svc.RedeemCode(context.Background(), "tx-1", "seller", "KODE-AB12CD")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEscrowService_RedeemCode_CaptureFailure(t *testing.T) {
	svc, m := newMockedEscrow(t)
	tx := storedTransaction(models.StatusPaid)

	m.expectLocked(tx)
	m.verifier.EXPECT().Validate(gomock.Any(), "tx-1", "kode-ab12cd").Return(true, nil)
	m.gateway.EXPECT().CaptureHeld(gomock.Any(), "hold-1").Return(models.PaymentConfirmation{}, errors.New("gateway unavailable"))

	_, err := svc.RedeemCode(context.Background(), "tx-1", "seller", "kode-ab12cd")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, models.StatusPaid, tx.Status)
}

func TestEscrowService_RedeemCode_Verification(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		err     error
		wantErr error
	}{
		{name: "mismatch", ok: false, wantErr: ErrInvalidCode},
		{name: "transaction gone", err: repositories.ErrNotFound, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockedEscrow(t)
			tx := storedTransaction(models.StatusPaid)

			m.expectLocked(tx)
			m.verifier.EXPECT().Validate(gomock.Any(), "tx-1", "KODE-000000").Return(tt.ok, tt.err)

			_, err := svc.RedeemCode(context.Background(), "tx-1", "seller", "KODE-000000")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, models.StatusPaid, tx.Status)
		})
	}
}

func TestEscrowService_WithdrawPayment_NotBuyer(t *testing.T) {
	svc, m := newMockedEscrow(t)
	tx := storedTransaction(models.StatusPaid)

	m.expectLocked(tx)

	_, err := svc.WithdrawPayment(context.Background(), "tx-1", "seller")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestEscrowService_TimestampsNeverGoBackwards(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()
	tx := storedTransaction(models.StatusPaid)
	tx.UpdatedAt = fixedNow.Add(time.Hour)

	m.expectLocked(tx)
	m.gateway.EXPECT().RefundHeld(gomock.Any(), "hold-1").Return(models.PaymentConfirmation{Status: "refunded"}, nil)
	m.txs.EXPECT().CompareAndSwap(ctx, tx, models.StatusPaid).Return(nil)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("bus closed"))

	got, err := svc.WithdrawPayment(ctx, "tx-1", "buyer")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), got.UpdatedAt)
	assert.Equal(t, models.StatusWithdrawn, got.Status)
}

func TestEscrowService_ListMessages(t *testing.T) {
	svc, m := newMockedEscrow(t)
	ctx := context.Background()
	tx := storedTransaction(models.StatusPaid)

	m.txs.EXPECT().GetByID(ctx, "tx-1").Return(tx, nil).Times(2)
	m.messages.EXPECT().ListByTransaction(ctx, "tx-1").Return([]models.AuditMessage{{ID: "m1"}}, nil)

	msgs, err := svc.ListMessages(ctx, "tx-1", "buyer")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = svc.ListMessages(ctx, "tx-1", "stranger")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
