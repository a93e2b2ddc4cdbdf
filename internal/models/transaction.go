package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Coordinates is a point on the earth surface in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`  // -90..90
	Longitude float64 `json:"longitude"` // -180..180
}

// Valid reports whether the coordinates are within range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// MeetupDetails is the pickup location chosen by the seller.
type MeetupDetails struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Transaction is the aggregate root of a single purchase negotiation.
type Transaction struct {
	ID                string          `json:"id"`                          // Immutable identifier
	ItemID            string          `json:"item_id"`                     // Snapshot of the traded item
	ItemName          string          `json:"item_name"`                   // Snapshot at request time
	ItemImageRef      string          `json:"item_image_ref"`              // Snapshot at request time
	BuyerID           string          `json:"buyer_id"`                    // Requesting party
	BuyerName         string          `json:"buyer_name"`                  // Display name of the buyer
	SellerID          string          `json:"seller_id"`                   // Owning party of the item
	SellerName        string          `json:"seller_name"`                 // Display name of the seller
	UnitPrice         decimal.Decimal `json:"unit_price"`                  // Price per unit at request time
	RequestedQuantity int             `json:"requested_quantity"`          // Set by the buyer
	ApprovedQuantity  *int            `json:"approved_quantity,omitempty"` // Set once by the seller
	Status            Status          `json:"status"`                      // Negotiation state
	VerificationCode  string          `json:"verification_code,omitempty"` // Pickup code, buyer-visible only
	HoldRef           string          `json:"hold_ref,omitempty"`          // Gateway hold reference once paid
	MeetupDetails     *MeetupDetails  `json:"meetup_details,omitempty"`    // Pickup location
	Version           int64           `json:"version"`                     // Optimistic concurrency token
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
}

// EffectiveQuantity is the approved quantity, or the requested one before approval.
func (t *Transaction) EffectiveQuantity() int {
	if t.ApprovedQuantity != nil {
		return *t.ApprovedQuantity
	}
	return t.RequestedQuantity
}

// FinalTotalPrice is always derived from the unit price and the effective quantity.
func (t *Transaction) FinalTotalPrice() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(int64(t.EffectiveQuantity())))
}

// Counterpart returns the other party of the transaction relative to userID.
func (t *Transaction) Counterpart(userID string) string {
	if userID == t.BuyerID {
		return t.SellerID
	}
	return t.BuyerID
}

// IsParty reports whether userID is the buyer or the seller.
func (t *Transaction) IsParty(userID string) bool {
	return userID != "" && (userID == t.BuyerID || userID == t.SellerID)
}

// RedactedFor returns a copy safe to show to userID. Only the buyer sees the pickup code
// and nobody outside the engine sees the gateway hold reference.
func (t *Transaction) RedactedFor(userID string) Transaction {
	c := *t
	if userID != t.BuyerID {
		c.VerificationCode = ""
	}
	c.HoldRef = ""
	return c
}

// MarshalJSON adds the derived final_total_price field.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		FinalTotalPrice decimal.Decimal `json:"final_total_price"`
	}{
		alias:           alias(t),
		FinalTotalPrice: t.FinalTotalPrice(),
	})
}
