package models

import (
	"strings"
	"time"
)

// InvitationStatus is the lifecycle state of an invitation
type InvitationStatus string

const (
	// InvitationPending is waiting for the invited user to answer
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted is terminal, the user was added to the participants
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationRejected is terminal
	InvitationRejected InvitationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed out of s
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationRejected
}

// Invitation is embedded in an activity, keyed by the invited user id
type Invitation struct {
	Status      InvitationStatus `json:"status" bson:"status"`
	InvitedBy   string           `json:"invitedBy" bson:"invitedBy"`
	InvitedAt   time.Time        `json:"invitedAt" bson:"invitedAt"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty" bson:"respondedAt,omitempty"`
}

// Decision is the answer an invited user gives
type Decision string

const (
	// DecisionAccept moves a pending invitation to accepted
	DecisionAccept Decision = "accept"
	// DecisionReject moves a pending invitation to rejected
	DecisionReject Decision = "reject"
)

// ParseDecision accepts the labels in any case, anything else is rejected
func ParseDecision(label string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(label))) {
	case DecisionAccept:
		return DecisionAccept, true
	case DecisionReject:
		return DecisionReject, true
	default:
		return "", false
	}
}
