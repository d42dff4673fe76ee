package membership

import (
	"context"
	"time"
)

// EventType names a membership change worth telling users about
type EventType string

const (
	EventInvitationReceived EventType = "invitation_received"
	EventInvitationAccepted EventType = "invitation_accepted"
	EventInvitationRejected EventType = "invitation_rejected"
	EventActivityDeleted    EventType = "activity_deleted"
)

// Event is delivered to every user in Recipients
type Event struct {
	Type          EventType `json:"type"`
	ActivityID    string    `json:"activityId"`
	ActivityTitle string    `json:"activityTitle"`
	ActorID       string    `json:"actorId"`
	Recipients    []string  `json:"-"`
	At            time.Time `json:"at"`
}

// Notifier delivers events. It must not block the request for long and its
// failures never fail the membership operation.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NopNotifier drops every event
type NopNotifier struct{}

// Notify implements Notifier
func (NopNotifier) Notify(context.Context, Event) {}
