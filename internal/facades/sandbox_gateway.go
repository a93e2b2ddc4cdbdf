package facades

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrPaymentDeclined is returned when the payer's method is refused.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrUnknownHold is returned for hold references the gateway never issued.
	ErrUnknownHold = errors.New("unknown hold")
	// ErrHoldSettled is returned when a hold was already captured or refunded.
	ErrHoldSettled = errors.New("hold already settled")
)

// Settlement statuses.
const (
	SettlementCaptured = "captured"
	SettlementRefunded = "refunded"
)

// declinePrefix marks payer references the sandbox always refuses.
const declinePrefix = "decline"

type hold struct {
	amount  decimal.Decimal
	settled string
}

// SandboxGateway is an in-memory payment gateway for local runs and tests.
type SandboxGateway struct {
	mu    sync.Mutex
	holds map[string]*hold
	now   func() time.Time
}

// NewSandboxGateway creates an empty SandboxGateway.
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		holds: make(map[string]*hold),
		now:   time.Now,
	}
}

// AuthorizeAndHold holds amount unless payerRef starts with "decline".
func (g *SandboxGateway) AuthorizeAndHold(ctx context.Context, amount decimal.Decimal, payerRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !amount.IsPositive() || strings.HasPrefix(strings.ToLower(payerRef), declinePrefix) {
		logger.Log.Warnw("sandbox payment declined", "amount", amount, "payer_ref", payerRef)
		return "", ErrPaymentDeclined
	}

	ref := "hold_" + uuid.NewString()

	g.mu.Lock()
	g.holds[ref] = &hold{amount: amount}
	g.mu.Unlock()

	logger.Log.Infow("sandbox payment held", "hold_ref", ref, "amount", amount)
	return ref, nil
}

// CaptureHeld settles the hold in favour of the seller.
func (g *SandboxGateway) CaptureHeld(ctx context.Context, holdRef string) (models.PaymentConfirmation, error) {
	return g.settle(ctx, holdRef, SettlementCaptured)
}

// RefundHeld settles the hold in favour of the buyer.
func (g *SandboxGateway) RefundHeld(ctx context.Context, holdRef string) (models.PaymentConfirmation, error) {
	return g.settle(ctx, holdRef, SettlementRefunded)
}

// Settled returns how a hold was settled, or "" while it is still open.
func (g *SandboxGateway) Settled(holdRef string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.holds[holdRef]; ok {
		return h.settled
	}
	return ""
}

func (g *SandboxGateway) settle(ctx context.Context, holdRef, outcome string) (models.PaymentConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return models.PaymentConfirmation{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.holds[holdRef]
	if !ok {
		return models.PaymentConfirmation{}, ErrUnknownHold
	}
	if h.settled != "" {
		return models.PaymentConfirmation{}, ErrHoldSettled
	}
	h.settled = outcome

	logger.Log.Infow("sandbox hold settled", "hold_ref", holdRef, "status", outcome, "amount", h.amount)
	return models.PaymentConfirmation{
		Reference:   outcome[:3] + "_" + uuid.NewString(),
		HoldRef:     holdRef,
		Amount:      h.amount,
		Status:      outcome,
		ProcessedAt: g.now().UTC(),
	}, nil
}

// SandboxServer serves a SandboxGateway as escrow.v1.PaymentGateway.
type SandboxServer struct {
	gw *SandboxGateway
}

// NewSandboxServer wraps gw for RegisterPaymentGatewayServer.
func NewSandboxServer(gw *SandboxGateway) *SandboxServer {
	return &SandboxServer{gw: gw}
}

// AuthorizeAndHold implements PaymentGatewayServer.
func (s *SandboxServer) AuthorizeAndHold(ctx context.Context, in *AuthorizeRequest) (*AuthorizeResponse, error) {
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount %q", in.Amount)
	}
	ref, err := s.gw.AuthorizeAndHold(ctx, amount, in.PayerRef)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AuthorizeResponse{HoldRef: ref}, nil
}

// CaptureHeld implements PaymentGatewayServer.
func (s *SandboxServer) CaptureHeld(ctx context.Context, in *HoldRequest) (*SettlementResponse, error) {
	conf, err := s.gw.CaptureHeld(ctx, in.HoldRef)
	if err != nil {
		return nil, toStatus(err)
	}
	return toSettlement(conf), nil
}

// RefundHeld implements PaymentGatewayServer.
func (s *SandboxServer) RefundHeld(ctx context.Context, in *HoldRequest) (*SettlementResponse, error) {
	conf, err := s.gw.RefundHeld(ctx, in.HoldRef)
	if err != nil {
		return nil, toStatus(err)
	}
	return toSettlement(conf), nil
}

func toSettlement(conf models.PaymentConfirmation) *SettlementResponse {
	return &SettlementResponse{
		Reference:   conf.Reference,
		HoldRef:     conf.HoldRef,
		Amount:      conf.Amount.String(),
		Status:      conf.Status,
		ProcessedAt: conf.ProcessedAt,
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrPaymentDeclined):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrUnknownHold):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrHoldSettled):
		return status.Error(codes.AlreadyExists, err.Error())
	}
	return status.FromContextError(err).Err()
}
