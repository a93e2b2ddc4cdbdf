package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/services"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=transactions.go -destination=transactions_mock.go -package=handlers

// PurchaseRequester opens new transactions.
type PurchaseRequester interface {
	RequestPurchase(ctx context.Context, req services.PurchaseRequest) (*models.Transaction, error)
}

// TransactionGetter loads one transaction for a party.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, txID, userID string) (*models.Transaction, error)
}

// TransactionLister lists the caller's transactions.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// PurchaseRequest represents the JSON body for requesting a purchase
// swagger:model PurchaseRequest
type PurchaseRequest struct {
	// Item to buy
	// required: true
	ItemID string `json:"item_id"`

	// Owner of the item
	// required: true
	SellerID string `json:"seller_id"`

	// Units requested
	// required: true
	// default: 1
	Quantity int `json:"quantity"`

	// Agreed price per unit
	// required: true
	// default: 10.00
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"string"`
}

// TransactionListResponse wraps the caller's transactions
// swagger:model TransactionListResponse
type TransactionListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

// NewRequestPurchaseHandler returns an HTTP handler that opens a purchase request.
// @Summary Request a purchase
// @Description Reserves stock and opens a transaction awaiting the seller's decision.
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body handlers.PurchaseRequest true "Purchase Request"
// @Success 201 {object} models.Transaction "Transaction created"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "Item not found"
// @Failure 409 {object} handlers.ErrorResponse "Out of stock"
// @Router /transactions [post]
// @Security BearerAuth
func NewRequestPurchaseHandler(svc PurchaseRequester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}

		var req PurchaseRequest
		if !decode(w, r, &req) {
			return
		}

		tx, err := svc.RequestPurchase(r.Context(), services.PurchaseRequest{
			ItemID:    req.ItemID,
			SellerID:  req.SellerID,
			BuyerID:   claims.UserID,
			BuyerName: claims.Name,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, tx.RedactedFor(claims.UserID))
	}
}

// NewGetTransactionHandler returns an HTTP handler that loads one transaction.
// @Summary Get a transaction
// @Description Returns a transaction the caller is buyer or seller of. The pickup code is visible to the buyer only.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.ErrorResponse "Not a party"
// @Failure 404 {object} handlers.ErrorResponse "Not found"
// @Router /transactions/{id} [get]
// @Security BearerAuth
func NewGetTransactionHandler(svc TransactionGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := transactionID(w, r)
		if !ok {
			return
		}

		tx, err := svc.GetTransaction(r.Context(), id, claims.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, tx.RedactedFor(claims.UserID))
	}
}

// NewListTransactionsHandler returns an HTTP handler that lists the caller's transactions.
// @Summary List transactions
// @Description Returns every transaction where the caller is buyer or seller, newest first.
// @Tags transactions
// @Produce json
// @Success 200 {object} handlers.TransactionListResponse
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Router /transactions [get]
// @Security BearerAuth
func NewListTransactionsHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}

		txs, err := svc.ListTransactions(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := TransactionListResponse{Transactions: make([]models.Transaction, 0, len(txs))}
		for i := range txs {
			resp.Transactions = append(resp.Transactions, txs[i].RedactedFor(claims.UserID))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RegisterTransactionHandlers registers the transaction read and create routes
func RegisterTransactionHandlers(r chi.Router, create, list, get http.HandlerFunc) {
	r.Post("/transactions", create)
	r.Get("/transactions", list)
	r.Get("/transactions/{id}", get)
}
