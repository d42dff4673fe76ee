package membership

import (
	"time"

	"github.com/linesmerrill/activities-api/models"
)

// The functions below are the membership state machine. They only touch the
// activity they are given, so the engine can re-run them on a fresh read after
// losing a compare-and-swap.

// applyJoin checks join preconditions in order and adds userID
func applyJoin(a *models.Activity, userID string, now time.Time) error {
	if a.Details.HasParticipant(userID) {
		return ErrAlreadyJoined
	}
	if a.Details.IsFull() {
		return ErrFull
	}
	a.Details.Participants = append(a.Details.Participants, userID)
	a.Details.UpdatedAt = now
	return nil
}

// applyLeave removes userID, keeping the order of everyone else. The creator may
// leave too, creator rights stay with CreatorID.
func applyLeave(a *models.Activity, userID string, now time.Time) error {
	idx := -1
	for i, p := range a.Details.Participants {
		if p == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotAParticipant
	}
	participants := make([]string, 0, len(a.Details.Participants)-1)
	participants = append(participants, a.Details.Participants[:idx]...)
	participants = append(participants, a.Details.Participants[idx+1:]...)
	a.Details.Participants = participants
	a.Details.UpdatedAt = now
	return nil
}

// applyInvite adds a pending invitation for every candidate that is neither a
// participant nor already holds an invitation in any state. Returns the ids that
// were actually invited, in request order.
func applyInvite(a *models.Activity, inviterID string, candidates []string, now time.Time) ([]string, error) {
	if a.Details.CreatorID != inviterID {
		return nil, ErrNotCreator
	}
	if a.Details.Invitations == nil {
		a.Details.Invitations = map[string]models.Invitation{}
	}

	invited := []string{}
	for _, userID := range candidates {
		if userID == "" || a.Details.HasParticipant(userID) {
			continue
		}
		if _, exists := a.Details.Invitations[userID]; exists {
			continue
		}
		a.Details.Invitations[userID] = models.Invitation{
			Status:    models.InvitationPending,
			InvitedBy: inviterID,
			InvitedAt: now,
		}
		invited = append(invited, userID)
	}
	if len(invited) > 0 {
		a.Details.UpdatedAt = now
	}
	return invited, nil
}

// applyRespond moves a pending invitation to accepted or rejected. Accepting a
// full activity fails and leaves the invitation pending. Returns whether userID
// was added to the participants.
func applyRespond(a *models.Activity, userID string, decision models.Decision, now time.Time) (bool, error) {
	inv, ok := a.Details.Invitations[userID]
	if !ok {
		return false, ErrNoInvitation
	}
	if inv.Status.IsTerminal() {
		return false, ErrAlreadyResponded
	}

	added := false
	switch decision {
	case models.DecisionAccept:
		if !a.Details.HasParticipant(userID) {
			if a.Details.IsFull() {
				return false, ErrFull
			}
			a.Details.Participants = append(a.Details.Participants, userID)
			added = true
		}
		inv.Status = models.InvitationAccepted
	case models.DecisionReject:
		inv.Status = models.InvitationRejected
	default:
		return false, validationError("decision must be accept or reject")
	}

	inv.RespondedAt = &now
	a.Details.Invitations[userID] = inv
	a.Details.UpdatedAt = now
	return added, nil
}
