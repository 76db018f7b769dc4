package services

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the routing key of a lifecycle event.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserUpdated    EventType = "user.updated"
	EventUserRemoved    EventType = "user.removed"
)

// Event describes a change to a user. It never carries the password hash.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"event"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(eventType EventType, userID, username, email string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Username:   username,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}
}
