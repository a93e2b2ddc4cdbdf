package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentConfirmation is returned by the payment gateway for capture and refund calls.
type PaymentConfirmation struct {
	Reference   string          `json:"reference"`    // Gateway-side settlement reference
	HoldRef     string          `json:"hold_ref"`     // Hold the settlement applies to
	Amount      decimal.Decimal `json:"amount"`       // Settled amount
	Status      string          `json:"status"`       // captured | refunded
	ProcessedAt time.Time       `json:"processed_at"` // Gateway timestamp
}
