// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// UserEventsQueue is the durable queue carrying user lifecycle events.
const UserEventsQueue = "user.events"

// Event types carried in UserEvent.Type.
const (
	EventUserRegistered  = "user.registered"
	EventUserDeactivated = "user.deactivated"
)

// UserEvent is published when a user registers or when deleting a profile
// deactivates its owner.  It carries enough to write an audit line without
// querying the primary database.
type UserEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Email      string `json:"email"`
	Role       int    `json:"role"`
	ProfileID  uint64 `json:"profile_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewUserEvent stamps a fresh event id and the current UTC time.
func NewUserEvent(typ string, userID uint64, email string, role int) UserEvent {
	return UserEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		Email:      email,
		Role:       role,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
