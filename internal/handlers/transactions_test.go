package handlers

import (
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-escrow-market/internal/jwt"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequestPurchaseHandler(t *testing.T) {
	tests := []struct {
		name               string
		requestBody        any
		claims             *jwt.Claims
		setupMocks         func(m *MockPurchaseRequester)
		expectedStatusCode int
		expectedKey        string
	}{
		{
			name:        "created",
			requestBody: map[string]any{"item_id": "item-1", "seller_id": "seller-1", "quantity": 3, "unit_price": "10.00"},
			claims:      buyerClaims,
			setupMocks: func(m *MockPurchaseRequester) {
				m.EXPECT().RequestPurchase(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ any, req services.PurchaseRequest) (*models.Transaction, error) {
						assert.Equal(t, "buyer-1", req.BuyerID)
						assert.Equal(t, "Budi", req.BuyerName)
						assert.Equal(t, 3, req.Quantity)
						assert.True(t, req.UnitPrice.Equal(decimal.NewFromInt(10)))
						return sampleTransaction(models.StatusPendingSellerAcceptance), nil
					})
			},
			expectedStatusCode: http.StatusCreated,
			expectedKey:        "verification_code",
		},
		{
			name:               "invalid body",
			requestBody:        "invalid-json",
			claims:             buyerClaims,
			setupMocks:         func(m *MockPurchaseRequester) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedKey:        "error",
		},
		{
			name:               "unauthorized",
			requestBody:        map[string]any{"item_id": "item-1"},
			setupMocks:         func(m *MockPurchaseRequester) {},
			expectedStatusCode: http.StatusUnauthorized,
			expectedKey:        "error",
		},
		{
			name:        "out of stock",
			requestBody: map[string]any{"item_id": "item-1", "seller_id": "seller-1", "quantity": 30, "unit_price": 10},
			claims:      buyerClaims,
			setupMocks: func(m *MockPurchaseRequester) {
				m.EXPECT().RequestPurchase(gomock.Any(), gomock.Any()).Return(nil, services.ErrOutOfStock)
			},
			expectedStatusCode: http.StatusConflict,
			expectedKey:        "error",
		},
		{
			name:        "internal error",
			requestBody: map[string]any{"item_id": "item-1", "seller_id": "seller-1", "quantity": 1, "unit_price": 10},
			claims:      buyerClaims,
			setupMocks: func(m *MockPurchaseRequester) {
				m.EXPECT().RequestPurchase(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedKey:        "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockSvc := NewMockPurchaseRequester(ctrl)
			tt.setupMocks(mockSvc)

			rr := serve(t, http.MethodPost, "/transactions", "/transactions", tt.requestBody, tt.claims, NewRequestPurchaseHandler(mockSvc))

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			resp := decodeBody(t, rr)
			_, ok := resp[tt.expectedKey]
			assert.True(t, ok, "response should contain key %s", tt.expectedKey)
		})
	}
}

func TestGetTransactionHandler_RedactsCodeForSeller(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockTransactionGetter(ctrl)
	mockSvc.EXPECT().GetTransaction(gomock.Any(), "tx-1", "seller-1").Return(sampleTransaction(models.StatusPaid), nil)
	mockSvc.EXPECT().GetTransaction(gomock.Any(), "tx-1", "buyer-1").Return(sampleTransaction(models.StatusPaid), nil)
	mockSvc.EXPECT().GetTransaction(gomock.Any(), "tx-1", "stranger").Return(nil, services.ErrNotAuthorized)

	h := NewGetTransactionHandler(mockSvc)

	rr := serve(t, http.MethodGet, "/transactions/{id}", "/transactions/tx-1", nil, sellerClaims, h)
	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody(t, rr)
	assert.NotContains(t, resp, "verification_code")
	assert.NotContains(t, resp, "hold_ref")
	assert.Equal(t, "30", resp["final_total_price"])

	rr = serve(t, http.MethodGet, "/transactions/{id}", "/transactions/tx-1", nil, buyerClaims, h)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "KODE-AB12CD", decodeBody(t, rr)["verification_code"])

	rr = serve(t, http.MethodGet, "/transactions/{id}", "/transactions/tx-1", nil, &jwt.Claims{UserID: "stranger"}, h)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListTransactionsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockTransactionLister(ctrl)
	mockSvc.EXPECT().ListTransactions(gomock.Any(), "seller-1").Return([]models.Transaction{
		*sampleTransaction(models.StatusPaid),
		*sampleTransaction(models.StatusCompleted),
	}, nil)

	rr := serve(t, http.MethodGet, "/transactions", "/transactions", nil, sellerClaims, NewListTransactionsHandler(mockSvc))

	assert.Equal(t, http.StatusOK, rr.Code)
	txs := decodeBody(t, rr)["transactions"].([]any)
	assert.Len(t, txs, 2)
	for _, tx := range txs {
		assert.NotContains(t, tx.(map[string]any), "verification_code")
	}
}
