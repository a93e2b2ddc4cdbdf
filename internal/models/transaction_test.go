package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction() *Transaction {
	return &Transaction{
		ID:                "tx-1",
		BuyerID:           "buyer",
		SellerID:          "seller",
		UnitPrice:         decimal.RequireFromString("12.50"),
		RequestedQuantity: 4,
		Status:            StatusPaid,
		VerificationCode:  "KODE-ABC123",
		HoldRef:           "hold-1",
	}
}

func TestTransaction_FinalTotalPrice(t *testing.T) {
	tx := newTransaction()
	assert.True(t, tx.FinalTotalPrice().Equal(decimal.RequireFromString("50")))

	approved := 3
	tx.ApprovedQuantity = &approved
	assert.Equal(t, 3, tx.EffectiveQuantity())
	assert.True(t, tx.FinalTotalPrice().Equal(decimal.RequireFromString("37.5")))
}

func TestTransaction_Parties(t *testing.T) {
	tx := newTransaction()

	assert.True(t, tx.IsParty("buyer"))
	assert.True(t, tx.IsParty("seller"))
	assert.False(t, tx.IsParty("stranger"))
	assert.False(t, tx.IsParty(""))

	assert.Equal(t, "seller", tx.Counterpart("buyer"))
	assert.Equal(t, "buyer", tx.Counterpart("seller"))
}

func TestTransaction_RedactedFor(t *testing.T) {
	tx := newTransaction()

	buyerView := tx.RedactedFor("buyer")
	assert.Equal(t, "KODE-ABC123", buyerView.VerificationCode)
	assert.Empty(t, buyerView.HoldRef)

	sellerView := tx.RedactedFor("seller")
	assert.Empty(t, sellerView.VerificationCode)
	assert.Empty(t, sellerView.HoldRef)

	// original untouched
	assert.Equal(t, "KODE-ABC123", tx.VerificationCode)
	assert.Equal(t, "hold-1", tx.HoldRef)
}

func TestTransaction_MarshalJSON(t *testing.T) {
	tx := newTransaction()
	approved := 2
	tx.ApprovedQuantity = &approved

	data, err := json.Marshal(tx.RedactedFor("seller"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "25", got["final_total_price"])
	assert.Equal(t, "paid", got["status"])
	assert.EqualValues(t, 2, got["approved_quantity"])
	assert.NotContains(t, got, "verification_code")
	assert.NotContains(t, got, "hold_ref")
}

func TestCoordinates_Valid(t *testing.T) {
	assert.True(t, Coordinates{Latitude: -6.2, Longitude: 106.8}.Valid())
	assert.True(t, Coordinates{Latitude: 90, Longitude: -180}.Valid())
	assert.False(t, Coordinates{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, Coordinates{Latitude: 0, Longitude: 180.5}.Valid())
}
