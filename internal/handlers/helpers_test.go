package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-escrow-market/internal/jwt"
	"github.com/sbilibin2017/gw-escrow-market/internal/middlewares"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/shopspring/decimal"
)

// serve routes one request through a chi router so {id} is resolved.
// A nil claims value sends the request unauthenticated.
func serve(t *testing.T, method, pattern, path string, body any, claims *jwt.Claims, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	switch v := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(v)
	default:
		bodyBytes, _ = json.Marshal(v)
	}

	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	if claims != nil {
		req = req.WithContext(middlewares.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

var (
	buyerClaims  = &jwt.Claims{UserID: "buyer-1", Name: "Budi"}
	sellerClaims = &jwt.Claims{UserID: "seller-1", Name: "Sari"}
)

func sampleTransaction(status models.Status) *models.Transaction {
	return &models.Transaction{
		ID:                "tx-1",
		ItemID:            "item-1",
		ItemName:          "Lamp",
		BuyerID:           "buyer-1",
		SellerID:          "seller-1",
		UnitPrice:         decimal.NewFromInt(10),
		RequestedQuantity: 3,
		Status:            status,
		VerificationCode:  "KODE-AB12CD",
		HoldRef:           "hold-1",
	}
}
