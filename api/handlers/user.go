package handlers

import (
	"context"
	"net/http"

	"github.com/linesmerrill/activities-api/membership"
)

// User exported for testing purposes
type User struct {
	Engine *membership.Engine
}

// UserActivitiesHandler lists the activities the caller takes part in
func (u User) UserActivitiesHandler(w http.ResponseWriter, r *http.Request) {
	u.list(w, r, u.Engine.ListJoined)
}

// UserInvitationsHandler lists the activities the caller is invited to and
// has not answered yet
func (u User) UserInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	u.list(w, r, u.Engine.ListPendingInvitations)
}

func (u User) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, userID string) ([]membership.ActivityView, error)) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	views, err := fetch(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// an empty list is returned as [] instead of null
	if views == nil {
		views = []membership.ActivityView{}
	}
	writeJSON(w, http.StatusOK, views)
}
