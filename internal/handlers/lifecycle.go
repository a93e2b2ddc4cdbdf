package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/services"
)

//go:generate mockgen -source=lifecycle.go -destination=lifecycle_mock.go -package=handlers

// RequestResponder applies the seller's decision.
type RequestResponder interface {
	RespondToRequest(ctx context.Context, txID, sellerID string, d services.Decision) (*models.Transaction, error)
}

// PaymentSubmitter holds the buyer's payment in escrow.
type PaymentSubmitter interface {
	SubmitPayment(ctx context.Context, txID, buyerID, paymentMethodRef string) (*models.Transaction, error)
}

// PaymentWithdrawer refunds the buyer's held payment.
type PaymentWithdrawer interface {
	WithdrawPayment(ctx context.Context, txID, buyerID string) (*models.Transaction, error)
}

// CodeRedeemer completes a transaction with the buyer's pickup code.
type CodeRedeemer interface {
	RedeemCode(ctx context.Context, txID, sellerID, code string) (*models.Transaction, error)
}

// MeetupSetter records the pickup location.
type MeetupSetter interface {
	SetMeetupDetails(ctx context.Context, txID, sellerID string, details models.MeetupDetails) (*models.Transaction, error)
}

// Seller decisions.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// RespondRequest represents the seller's answer
// swagger:model RespondRequest
type RespondRequest struct {
	// accept or reject
	// required: true
	// default: accept
	Decision string `json:"decision"`

	// Units the seller agrees to sell, 1..requested. Required to accept.
	// default: 1
	ApprovedQuantity int `json:"approved_quantity"`
}

// PaymentRequest represents the buyer's payment submission
// swagger:model PaymentRequest
type PaymentRequest struct {
	// Reference of the buyer's payment method at the gateway
	// required: true
	// default: card-4242
	PaymentMethodRef string `json:"payment_method_ref"`
}

// RedeemRequest represents the seller's code entry
// swagger:model RedeemRequest
type RedeemRequest struct {
	// Pickup code shown by the buyer
	// required: true
	// default: KODE-AB12CD
	Code string `json:"code"`
}

// MeetupRequest represents the pickup location
// swagger:model MeetupRequest
type MeetupRequest struct {
	// required: true
	Latitude float64 `json:"latitude"`
	// required: true
	Longitude float64 `json:"longitude"`
	// required: true
	Address string `json:"address"`
}

// NewRespondHandler returns an HTTP handler for the seller's decision on a request.
// @Summary Accept or reject a purchase request
// @Description Seller only. Accepting may approve fewer units than requested; the difference goes back to stock. Rejecting returns all reserved units.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body handlers.RespondRequest true "Decision"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 403 {object} handlers.ErrorResponse "Not the seller"
// @Failure 404 {object} handlers.ErrorResponse "Not found"
// @Failure 409 {object} handlers.ErrorResponse "Invalid transition"
// @Router /transactions/{id}/respond [post]
// @Security BearerAuth
func NewRespondHandler(svc RequestResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		var req RespondRequest
		if !decode(w, r, &req) {
			return
		}

		var d services.Decision
		switch strings.ToLower(req.Decision) {
		case DecisionAccept:
			d = services.Decision{Accept: true, ApprovedQuantity: req.ApprovedQuantity}
		case DecisionReject:
			d = services.Decision{Accept: false}
		default:
			writeError(w, http.StatusBadRequest, "Decision must be accept or reject")
			return
		}

		tx, err := svc.RespondToRequest(r.Context(), id, claims.UserID, d)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx.RedactedFor(claims.UserID))
	}
}

// NewSubmitPaymentHandler returns an HTTP handler that pays into escrow.
// @Summary Pay into escrow
// @Description Buyer only. Holds the final total price at the payment gateway.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body handlers.PaymentRequest true "Payment"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 402 {object} handlers.ErrorResponse "Payment failed"
// @Failure 403 {object} handlers.ErrorResponse "Not the buyer"
// @Failure 409 {object} handlers.ErrorResponse "Invalid transition"
// @Router /transactions/{id}/payment [post]
// @Security BearerAuth
func NewSubmitPaymentHandler(svc PaymentSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		var req PaymentRequest
		if !decode(w, r, &req) {
			return
		}

		tx, err := svc.SubmitPayment(r.Context(), id, claims.UserID, req.PaymentMethodRef)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx.RedactedFor(claims.UserID))
	}
}

// NewWithdrawPaymentHandler returns an HTTP handler that withdraws a held payment.
// @Summary Withdraw payment
// @Description Buyer only. Refunds the held funds. Stock is not restored.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 402 {object} handlers.ErrorResponse "Refund failed"
// @Failure 403 {object} handlers.ErrorResponse "Not the buyer"
// @Failure 409 {object} handlers.ErrorResponse "Invalid transition"
// @Router /transactions/{id}/withdraw [post]
// @Security BearerAuth
func NewWithdrawPaymentHandler(svc PaymentWithdrawer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		tx, err := svc.WithdrawPayment(r.Context(), id, claims.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx.RedactedFor(claims.UserID))
	}
}

// NewRedeemCodeHandler returns an HTTP handler for pickup code redemption.
// @Summary Redeem pickup code
// @Description Seller only. A matching code releases the held funds and completes the transaction.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body handlers.RedeemRequest true "Code"
// @Success 200 {object} models.Transaction
// @Failure 403 {object} handlers.ErrorResponse "Not the seller"
// @Failure 409 {object} handlers.ErrorResponse "Invalid transition"
// @Failure 422 {object} handlers.ErrorResponse "Invalid code"
// @Router /transactions/{id}/redeem [post]
// @Security BearerAuth
func NewRedeemCodeHandler(svc CodeRedeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		var req RedeemRequest
		if !decode(w, r, &req) {
			return
		}

		tx, err := svc.RedeemCode(r.Context(), id, claims.UserID, req.Code)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx.RedactedFor(claims.UserID))
	}
}

// NewSetMeetupHandler returns an HTTP handler that sets the pickup location.
// @Summary Set meetup details
// @Description Seller only, after acceptance and before settlement.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body handlers.MeetupRequest true "Meetup"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 403 {object} handlers.ErrorResponse "Not the seller"
// @Failure 409 {object} handlers.ErrorResponse "Invalid transition"
// @Router /transactions/{id}/meetup [put]
// @Security BearerAuth
func NewSetMeetupHandler(svc MeetupSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		var req MeetupRequest
		if !decode(w, r, &req) {
			return
		}

		tx, err := svc.SetMeetupDetails(r.Context(), id, claims.UserID, models.MeetupDetails{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Address:   req.Address,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx.RedactedFor(claims.UserID))
	}
}

// LifecycleHandlers groups the state-changing handlers.
type LifecycleHandlers struct {
	Respond  http.HandlerFunc
	Pay      http.HandlerFunc
	Withdraw http.HandlerFunc
	Redeem   http.HandlerFunc
	Meetup   http.HandlerFunc
}

// RegisterLifecycleHandlers registers the state-changing routes
func RegisterLifecycleHandlers(r chi.Router, h LifecycleHandlers) {
	r.Post("/transactions/{id}/respond", h.Respond)
	r.Post("/transactions/{id}/payment", h.Pay)
	r.Post("/transactions/{id}/withdraw", h.Withdraw)
	r.Post("/transactions/{id}/redeem", h.Redeem)
	r.Put("/transactions/{id}/meetup", h.Meetup)
}
