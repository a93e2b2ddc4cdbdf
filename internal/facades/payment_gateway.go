package facades

import (
	"context"
	"fmt"

	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/status"
)

// PaymentGatewayGRPCFacade implements the escrow payment gateway using gRPC.
type PaymentGatewayGRPCFacade struct {
	client PaymentGatewayClient
}

// NewPaymentGatewayGRPCFacade creates a new facade with a gRPC client.
func NewPaymentGatewayGRPCFacade(client PaymentGatewayClient) *PaymentGatewayGRPCFacade {
	return &PaymentGatewayGRPCFacade{client: client}
}

// AuthorizeAndHold places a hold of amount on the payer's method and returns the hold reference.
func (f *PaymentGatewayGRPCFacade) AuthorizeAndHold(ctx context.Context, amount decimal.Decimal, payerRef string) (string, error) {
	resp, err := f.client.AuthorizeAndHold(ctx, &AuthorizeRequest{
		Amount:   amount.String(),
		PayerRef: payerRef,
	})
	if err != nil {
		logger.Log.Errorw("failed to authorize payment via gRPC", "amount", amount, "code", status.Code(err), "error", err)
		return "", fmt.Errorf("authorize and hold: %w", err)
	}
	if resp.HoldRef == "" {
		return "", fmt.Errorf("authorize and hold: empty hold reference")
	}
	return resp.HoldRef, nil
}

// CaptureHeld releases the held funds to the seller.
func (f *PaymentGatewayGRPCFacade) CaptureHeld(ctx context.Context, holdRef string) (models.PaymentConfirmation, error) {
	resp, err := f.client.CaptureHeld(ctx, &HoldRequest{HoldRef: holdRef})
	if err != nil {
		logger.Log.Errorw("failed to capture payment via gRPC", "hold_ref", holdRef, "code", status.Code(err), "error", err)
		return models.PaymentConfirmation{}, fmt.Errorf("capture held: %w", err)
	}
	return toConfirmation(resp)
}

// RefundHeld returns the held funds to the buyer.
func (f *PaymentGatewayGRPCFacade) RefundHeld(ctx context.Context, holdRef string) (models.PaymentConfirmation, error) {
	resp, err := f.client.RefundHeld(ctx, &HoldRequest{HoldRef: holdRef})
	if err != nil {
		logger.Log.Errorw("failed to refund payment via gRPC", "hold_ref", holdRef, "code", status.Code(err), "error", err)
		return models.PaymentConfirmation{}, fmt.Errorf("refund held: %w", err)
	}
	return toConfirmation(resp)
}

func toConfirmation(resp *SettlementResponse) (models.PaymentConfirmation, error) {
	amount, err := decimal.NewFromString(resp.Amount)
	if err != nil {
		return models.PaymentConfirmation{}, fmt.Errorf("parse settled amount %q: %w", resp.Amount, err)
	}
	return models.PaymentConfirmation{
		Reference:   resp.Reference,
		HoldRef:     resp.HoldRef,
		Amount:      amount,
		Status:      resp.Status,
		ProcessedAt: resp.ProcessedAt,
	}, nil
}
