package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		event   Event
		want    Status
		wantErr bool
	}{
		{"accept pending", StatusPendingSellerAcceptance, EventAccept, StatusSellerAccepted, false},
		{"reject pending", StatusPendingSellerAcceptance, EventReject, StatusSellerRejected, false},
		{"pay accepted", StatusSellerAccepted, EventPay, StatusPaid, false},
		{"redeem paid", StatusPaid, EventRedeem, StatusCompleted, false},
		{"withdraw paid", StatusPaid, EventWithdraw, StatusWithdrawn, false},
		{"pay pending", StatusPendingSellerAcceptance, EventPay, StatusPendingSellerAcceptance, true},
		{"accept twice", StatusSellerAccepted, EventAccept, StatusSellerAccepted, true},
		{"withdraw before pay", StatusSellerAccepted, EventWithdraw, StatusSellerAccepted, true},
		{"pay twice", StatusPaid, EventPay, StatusPaid, true},
		{"redeem completed", StatusCompleted, EventRedeem, StatusCompleted, true},
		{"withdraw completed", StatusCompleted, EventWithdraw, StatusCompleted, true},
		{"redeem withdrawn", StatusWithdrawn, EventRedeem, StatusWithdrawn, true},
		{"accept rejected", StatusSellerRejected, EventAccept, StatusSellerRejected, true},
		{"unknown status", Status("shipped"), EventPay, Status("shipped"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusSellerRejected.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusWithdrawn.IsTerminal())
	assert.False(t, StatusPendingSellerAcceptance.IsTerminal())
	assert.False(t, StatusSellerAccepted.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPaid.IsValid())
	assert.False(t, Status("").IsValid())
	assert.False(t, Status("PAID").IsValid())
}
