package models

import "errors"

// Status is the negotiation state of a Transaction.
type Status string

// Negotiation states.
const (
	StatusPendingSellerAcceptance Status = "pending_seller_acceptance" // initial
	StatusSellerAccepted          Status = "seller_accepted"
	StatusSellerRejected          Status = "seller_rejected" // terminal
	StatusPaid                    Status = "paid"
	StatusCompleted               Status = "completed" // terminal
	StatusWithdrawn               Status = "withdrawn" // terminal
)

// Event is an input to the negotiation state machine.
type Event string

// State machine events.
const (
	EventAccept   Event = "accept"
	EventReject   Event = "reject"
	EventPay      Event = "pay"
	EventWithdraw Event = "withdraw"
	EventRedeem   Event = "redeem"
)

// ErrInvalidTransition is returned when an event is not permitted from the current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the only place legal moves are defined.
var transitions = map[Status]map[Event]Status{
	StatusPendingSellerAcceptance: {
		EventAccept: StatusSellerAccepted,
		EventReject: StatusSellerRejected,
	},
	StatusSellerAccepted: {
		EventPay: StatusPaid,
	},
	StatusPaid: {
		EventRedeem:   StatusCompleted,
		EventWithdraw: StatusWithdrawn,
	},
}

// Transition returns the status reached by applying ev to from.
func Transition(from Status, ev Event) (Status, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return from, ErrInvalidTransition
	}
	return next, nil
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingSellerAcceptance, StatusSellerAccepted, StatusSellerRejected,
		StatusPaid, StatusCompleted, StatusWithdrawn:
		return true
	}
	return false
}
