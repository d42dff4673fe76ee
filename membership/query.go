package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/linesmerrill/activities-api/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ActivityView is an activity shaped for one viewer
type ActivityView struct {
	models.Activity
	ParticipantCount int                     `json:"participantCount"`
	SpotsLeft        int                     `json:"spotsLeft"`
	IsFull           bool                    `json:"isFull"`
	Joined           bool                    `json:"joined"`
	InvitationStatus models.InvitationStatus `json:"invitationStatus,omitempty"`
}

// ListQuery is the public listing filter
type ListQuery struct {
	Category string
	Upcoming bool
	Page     int
	Limit    int
}

// NewView derives the viewer-specific fields. Only the creator sees every
// invitation, anyone else sees at most their own.
func NewView(a models.Activity, viewerID string) ActivityView {
	view := ActivityView{
		ParticipantCount: len(a.Details.Participants),
		SpotsLeft:        a.Details.SpotsLeft(),
		IsFull:           a.Details.IsFull(),
		Joined:           a.Details.HasParticipant(viewerID),
	}
	if inv, ok := a.Details.Invitations[viewerID]; ok {
		view.InvitationStatus = inv.Status
	}
	if a.Details.CreatorID != viewerID {
		own := map[string]models.Invitation{}
		if inv, ok := a.Details.Invitations[viewerID]; ok {
			own[viewerID] = inv
		}
		a.Details.Invitations = own
	}
	view.Activity = a
	return view
}

// Get returns one activity as seen by viewerID
func (e *Engine) Get(ctx context.Context, viewerID, activityID string) (*ActivityView, error) {
	a, err := e.load(ctx, activityID)
	if err != nil {
		return nil, err
	}
	view := NewView(*a, viewerID)
	return &view, nil
}

// List pages through activities, optionally by category and upcoming only
func (e *Engine) List(ctx context.Context, viewerID string, q ListQuery) ([]ActivityView, error) {
	filter := ActivityFilter{
		Category: strings.ToLower(strings.TrimSpace(q.Category)),
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if q.Upcoming {
		today := e.opts.Now().Truncate(24 * time.Hour)
		filter.From = &today
	}
	return e.list(ctx, viewerID, normalizePage(filter))
}

// ListJoined returns the activities the user's record says they joined. The
// activity side is authoritative, stale entries are left out.
func (e *Engine) ListJoined(ctx context.Context, userID string) ([]ActivityView, error) {
	user, err := e.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []ActivityView{}, nil
		}
		return nil, err
	}
	if len(user.Details.JoinedActivities) == 0 {
		return []ActivityView{}, nil
	}
	views, err := e.list(ctx, userID, ActivityFilter{IDs: user.Details.JoinedActivities})
	if err != nil {
		return nil, err
	}
	joined := views[:0]
	for _, v := range views {
		if v.Joined {
			joined = append(joined, v)
		}
	}
	return joined, nil
}

// ListPendingInvitations returns activities waiting on the user's answer
func (e *Engine) ListPendingInvitations(ctx context.Context, userID string) ([]ActivityView, error) {
	return e.list(ctx, userID, ActivityFilter{PendingInvitee: userID})
}

func (e *Engine) list(ctx context.Context, viewerID string, filter ActivityFilter) ([]ActivityView, error) {
	activities, err := e.activities.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, NewView(a, viewerID))
	}
	return views, nil
}

func normalizePage(f ActivityFilter) ActivityFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	return f
}
