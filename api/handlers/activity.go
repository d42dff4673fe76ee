package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/activities-api/api"
	"github.com/linesmerrill/activities-api/membership"
)

// Activity exported for testing purposes
type Activity struct {
	Engine *membership.Engine
}

// ActivityList paginated response with a list of activities
type ActivityList struct {
	Items []membership.ActivityView `json:"items"`
	Page  int                       `json:"page" example:"1"`
	Limit int                       `json:"limit" example:"20"`
}

// InviteResponse lists the users that got a new invitation
type InviteResponse struct {
	Invited []string `json:"invited"`
}

// RespondResponse is the invitation state after answering
type RespondResponse struct {
	Status string `json:"status"`
}

// CreateActivityHandler creates an activity owned by the caller
func (a Activity) CreateActivityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in membership.CreateActivityInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	activity, err := a.Engine.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, membership.NewView(*activity, userID))
}

// ActivityByIDHandler returns one activity as seen by the caller
func (a Activity) ActivityByIDHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	view, err := a.Engine.Get(r.Context(), userID, mux.Vars(r)["activity_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateActivityHandler applies a partial update, creator only
func (a Activity) UpdateActivityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in membership.UpdateActivityInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	activity, err := a.Engine.Update(r.Context(), userID, mux.Vars(r)["activity_id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membership.NewView(*activity, userID))
}

// DeleteActivityHandler deletes the activity, creator only
func (a Activity) DeleteActivityHandler(w http.ResponseWriter, r *http.Request) {
	a.noContent(w, r, a.Engine.Delete)
}

// JoinActivityHandler adds the caller to the participants
func (a Activity) JoinActivityHandler(w http.ResponseWriter, r *http.Request) {
	a.noContent(w, r, a.Engine.Join)
}

// LeaveActivityHandler removes the caller from the participants
func (a Activity) LeaveActivityHandler(w http.ResponseWriter, r *http.Request) {
	a.noContent(w, r, a.Engine.Leave)
}

// InviteUsersHandler invites users to the activity, creator only
func (a Activity) InviteUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in membership.InviteInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	invited, err := a.Engine.Invite(r.Context(), userID, mux.Vars(r)["activity_id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InviteResponse{Invited: invited})
}

// RespondToInviteHandler accepts or rejects the caller's invitation
func (a Activity) RespondToInviteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in membership.RespondInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := a.Engine.Respond(r.Context(), userID, mux.Vars(r)["activity_id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RespondResponse{Status: string(status)})
}

// ActivitiesHandler lists activities, ?category=&upcoming=true&page=&limit=
func (a Activity) ActivitiesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	query := membership.ListQuery{
		Category: q.Get("category"),
		Page:     atoiOr(q.Get("page"), 1),
		Limit:    atoiOr(q.Get("limit"), 20),
	}
	query.Upcoming, _ = strconv.ParseBool(q.Get("upcoming"))

	views, err := a.Engine.List(r.Context(), userID, query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityList{Items: views, Page: query.Page, Limit: query.Limit})
}

func (a Activity) noContent(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, activityID string) error) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), userID, mux.Vars(r)["activity_id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// callerID returns the authenticated user or answers 401
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return "", false
	}
	return userID, true
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
