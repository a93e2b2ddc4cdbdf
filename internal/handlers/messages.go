package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

//go:generate mockgen -source=messages.go -destination=messages_mock.go -package=handlers

// MessageLister reads the audit log of a transaction.
type MessageLister interface {
	ListMessages(ctx context.Context, txID, userID string) ([]models.AuditMessage, error)
}

// ProximityVerifier checks the distance between buyer and seller.
type ProximityVerifier interface {
	Verify(ctx context.Context, txID, actorID string, buyer, seller models.Coordinates, thresholdKm float64) (models.ProximityResult, error)
}

// MessageListResponse wraps the audit log
// swagger:model MessageListResponse
type MessageListResponse struct {
	Messages []models.AuditMessage `json:"messages"`
}

// ProximityRequest carries both parties' positions
// swagger:model ProximityRequest
type ProximityRequest struct {
	// required: true
	Buyer models.Coordinates `json:"buyer"`
	// required: true
	Seller models.Coordinates `json:"seller"`
	// Optional, the server default applies when zero
	ThresholdKm float64 `json:"threshold_km"`
}

// NewListMessagesHandler returns an HTTP handler that lists the audit log of a transaction.
// @Summary List transaction messages
// @Description Returns the system messages recorded for a transaction, oldest first.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} handlers.MessageListResponse
// @Failure 403 {object} handlers.ErrorResponse "Not a party"
// @Failure 404 {object} handlers.ErrorResponse "Not found"
// @Router /transactions/{id}/messages [get]
// @Security BearerAuth
func NewListMessagesHandler(svc MessageLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		msgs, err := svc.ListMessages(r.Context(), id, claims.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if msgs == nil {
			msgs = []models.AuditMessage{}
		}
		writeJSON(w, http.StatusOK, MessageListResponse{Messages: msgs})
	}
}

// NewProximityHandler returns an HTTP handler for the advisory proximity check.
// @Summary Check proximity
// @Description Computes the distance between buyer and seller and records it in the transaction messages. Never changes the status.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body handlers.ProximityRequest true "Positions"
// @Success 200 {object} models.ProximityResult
// @Failure 400 {object} handlers.ErrorResponse "Invalid coordinates"
// @Failure 403 {object} handlers.ErrorResponse "Not a party"
// @Router /transactions/{id}/proximity [post]
// @Security BearerAuth
func NewProximityHandler(svc ProximityVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		var req ProximityRequest
		if !decode(w, r, &req) {
			return
		}

		res, err := svc.Verify(r.Context(), id, claims.UserID, req.Buyer, req.Seller, req.ThresholdKm)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// RegisterSideChannelHandlers registers the message and proximity routes
func RegisterSideChannelHandlers(r chi.Router, messages, proximity http.HandlerFunc) {
	r.Get("/transactions/{id}/messages", messages)
	r.Post("/transactions/{id}/proximity", proximity)
}
