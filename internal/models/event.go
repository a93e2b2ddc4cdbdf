package models

import "time"

// EventKind classifies domain events emitted by the escrow engine.
type EventKind string

// Domain event kinds. Status kinds mirror the state machine events.
const (
	EventKindRequested EventKind = "requested"
	EventKindAccepted  EventKind = "accepted"
	EventKindRejected  EventKind = "rejected"
	EventKindPaid      EventKind = "paid"
	EventKindWithdrawn EventKind = "withdrawn"
	EventKindCompleted EventKind = "completed"
	EventKindMeetupSet EventKind = "meetup_set"
	EventKindProximity EventKind = "proximity_checked"
)

// ProximityResult is attached to proximity events.
type ProximityResult struct {
	DistanceKm  float64 `json:"distance_km"`
	ThresholdKm float64 `json:"threshold_km"`
	Within      bool    `json:"within"`
}

// TransitionEvent is published after a transaction change has been persisted.
type TransitionEvent struct {
	Kind           EventKind        `json:"kind"`
	Transaction    Transaction      `json:"transaction"`
	PreviousStatus Status           `json:"previous_status,omitempty"`
	ActorID        string           `json:"actor_id"`
	Proximity      *ProximityResult `json:"proximity,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// Notification is a message for one user, delivered by the notification dispatcher.
type Notification struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}
