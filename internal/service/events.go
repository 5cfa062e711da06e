package service

import "github.com/google/uuid"

// Event types pushed to connected websocket clients
const (
	EventNotification = "notification"
	EventJobProgress  = "job.progress"
	EventClaimUpdated = "claim.updated"
)

// Publisher pushes an event to one user, or to everyone when recipient is nil
type Publisher interface {
	Publish(recipient *uuid.UUID, eventType string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(*uuid.UUID, string, interface{}) {}

// NopPublisher discards events
var NopPublisher Publisher = nopPublisher{}
