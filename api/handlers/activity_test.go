package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

func boardGames(capacity int) map[string]interface{} {
	return map[string]interface{}{
		"title":    "Board games",
		"category": "Games",
		"capacity": capacity,
		"schedule": map[string]string{"date": "2099-05-10", "startTime": "18:00", "endTime": "22:00"},
	}
}

func createActivity(t *testing.T, app *App, creatorID string, body map[string]interface{}) membership.ActivityView {
	t.Helper()
	rr := call(t, app, creatorID, "POST", "/api/v1/activity", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var view membership.ActivityView
	decode(t, rr, &view)
	return view
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var m models.ErrorMessageResponse
	decode(t, rr, &m)
	return m.Code
}

func TestActivity_CreateActivityHandler(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")

	view := createActivity(t, app, "alice", boardGames(4))

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "games", view.Details.Category)
	assert.Equal(t, []string{"alice"}, view.Details.Participants)
	assert.Equal(t, 1, view.ParticipantCount)
	assert.Equal(t, 3, view.SpotsLeft)
	assert.True(t, view.Joined)
}

func TestActivity_CreateActivityHandlerValidation(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")

	body := boardGames(0)
	rr := call(t, app, "alice", "POST", "/api/v1/activity", body)
	checkResponseCode(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, membership.CodeValidation, errorCode(t, rr))

	rr = call(t, app, "alice", "POST", "/api/v1/activity", nil)
	checkResponseCode(t, http.StatusBadRequest, rr.Code)
}

func TestActivity_ActivityByIDHandler(t *testing.T) {
	app, _, _ := newTestApp(t, "alice", "bob")
	view := createActivity(t, app, "alice", boardGames(4))

	rr := call(t, app, "bob", "GET", "/api/v1/activity/"+view.ID, nil)
	checkResponseCode(t, http.StatusOK, rr.Code)
	var got membership.ActivityView
	decode(t, rr, &got)
	assert.Equal(t, view.ID, got.ID)
	assert.False(t, got.Joined)

	rr = call(t, app, "bob", "GET", "/api/v1/activity/missing", nil)
	checkResponseCode(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, membership.CodeNotFound, errorCode(t, rr))
}

func TestActivity_JoinAndLeave(t *testing.T) {
	app, users, _ := newTestApp(t, "alice", "bob", "carol")
	view := createActivity(t, app, "alice", boardGames(2))
	path := "/api/v1/activity/" + view.ID

	rr := call(t, app, "bob", "POST", path+"/join", nil)
	checkResponseCode(t, http.StatusNoContent, rr.Code)

	rr = call(t, app, "bob", "POST", path+"/join", nil)
	checkResponseCode(t, http.StatusConflict, rr.Code)
	assert.Equal(t, membership.CodeAlreadyJoined, errorCode(t, rr))

	rr = call(t, app, "carol", "POST", path+"/join", nil)
	checkResponseCode(t, http.StatusConflict, rr.Code)
	assert.Equal(t, membership.CodeFull, errorCode(t, rr))

	bob, err := users.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{view.ID}, bob.Details.JoinedActivities)

	rr = call(t, app, "bob", "POST", path+"/leave", nil)
	checkResponseCode(t, http.StatusNoContent, rr.Code)

	rr = call(t, app, "bob", "POST", path+"/leave", nil)
	checkResponseCode(t, http.StatusConflict, rr.Code)
	assert.Equal(t, membership.CodeNotAParticipant, errorCode(t, rr))

	bob, err = users.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.Details.JoinedActivities)
}

func TestActivity_UpdateActivityHandler(t *testing.T) {
	app, _, _ := newTestApp(t, "alice", "bob")
	view := createActivity(t, app, "alice", boardGames(4))
	path := "/api/v1/activity/" + view.ID

	rr := call(t, app, "alice", "PATCH", path, map[string]interface{}{"title": "Chess night"})
	checkResponseCode(t, http.StatusOK, rr.Code)
	var got membership.ActivityView
	decode(t, rr, &got)
	assert.Equal(t, "Chess night", got.Details.Title)

	rr = call(t, app, "bob", "PATCH", path, map[string]interface{}{"title": "Mine now"})
	checkResponseCode(t, http.StatusForbidden, rr.Code)

	rr = call(t, app, "alice", "PATCH", path, map[string]interface{}{"capacity": 10})
	checkResponseCode(t, http.StatusBadRequest, rr.Code)
}

func TestActivity_InviteAndRespond(t *testing.T) {
	app, _, _ := newTestApp(t, "alice", "bob", "carol")
	view := createActivity(t, app, "alice", boardGames(4))
	path := "/api/v1/activity/" + view.ID

	rr := call(t, app, "bob", "POST", path+"/invitations", map[string]interface{}{"userIds": []string{"carol"}})
	checkResponseCode(t, http.StatusForbidden, rr.Code)

	rr = call(t, app, "alice", "POST", path+"/invitations", map[string]interface{}{"userIds": []string{"bob", "alice"}})
	checkResponseCode(t, http.StatusOK, rr.Code)
	var invited InviteResponse
	decode(t, rr, &invited)
	assert.Equal(t, []string{"bob"}, invited.Invited)

	rr = call(t, app, "bob", "GET", "/api/v1/user/invitations", nil)
	checkResponseCode(t, http.StatusOK, rr.Code)
	var pending []membership.ActivityView
	decode(t, rr, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, models.InvitationPending, pending[0].InvitationStatus)

	rr = call(t, app, "carol", "PUT", path+"/invitations/respond", map[string]string{"decision": "accept"})
	checkResponseCode(t, http.StatusConflict, rr.Code)
	assert.Equal(t, membership.CodeNoInvitation, errorCode(t, rr))

	rr = call(t, app, "bob", "PUT", path+"/invitations/respond", map[string]string{"decision": "maybe"})
	checkResponseCode(t, http.StatusBadRequest, rr.Code)

	rr = call(t, app, "bob", "PUT", path+"/invitations/respond", map[string]string{"decision": "accept"})
	checkResponseCode(t, http.StatusOK, rr.Code)
	var status RespondResponse
	decode(t, rr, &status)
	assert.Equal(t, string(models.InvitationAccepted), status.Status)

	rr = call(t, app, "bob", "PUT", path+"/invitations/respond", map[string]string{"decision": "reject"})
	checkResponseCode(t, http.StatusConflict, rr.Code)
	assert.Equal(t, membership.CodeAlreadyResponded, errorCode(t, rr))

	rr = call(t, app, "bob", "GET", "/api/v1/user/activities", nil)
	checkResponseCode(t, http.StatusOK, rr.Code)
	var joined []membership.ActivityView
	decode(t, rr, &joined)
	require.Len(t, joined, 1)
	assert.Equal(t, view.ID, joined[0].ID)
}

func TestActivity_InviteEmptyList(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")
	view := createActivity(t, app, "alice", boardGames(4))
	path := "/api/v1/activity/" + view.ID

	rr := call(t, app, "alice", "POST", path+"/invitations", map[string]interface{}{"userIds": []string{}})
	checkResponseCode(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"invited": []}`, rr.Body.String())

	rr = call(t, app, "alice", "GET", path, nil)
	checkResponseCode(t, http.StatusOK, rr.Code)
	var got membership.ActivityView
	decode(t, rr, &got)
	assert.Equal(t, view.Version, got.Version)
}

func TestActivity_DeleteActivityHandler(t *testing.T) {
	app, users, _ := newTestApp(t, "alice", "bob")
	view := createActivity(t, app, "alice", boardGames(4))
	path := "/api/v1/activity/" + view.ID

	checkResponseCode(t, http.StatusNoContent, call(t, app, "bob", "POST", path+"/join", nil).Code)
	checkResponseCode(t, http.StatusForbidden, call(t, app, "bob", "DELETE", path, nil).Code)
	checkResponseCode(t, http.StatusNoContent, call(t, app, "alice", "DELETE", path, nil).Code)
	checkResponseCode(t, http.StatusNotFound, call(t, app, "alice", "GET", path, nil).Code)

	bob, err := users.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.Details.JoinedActivities)
}

func TestActivity_ActivitiesHandler(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")
	for i := 0; i < 3; i++ {
		body := boardGames(4)
		body["title"] = fmt.Sprintf("Games %d", i)
		createActivity(t, app, "alice", body)
	}
	hike := boardGames(4)
	hike["category"] = "Outdoors"
	createActivity(t, app, "alice", hike)

	rr := call(t, app, "alice", "GET", "/api/v1/activities?category=GAMES&limit=2&page=1", nil)
	checkResponseCode(t, http.StatusOK, rr.Code)
	var list ActivityList
	decode(t, rr, &list)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 2, list.Limit)

	rr = call(t, app, "alice", "GET", "/api/v1/activities?category=games&limit=2&page=2", nil)
	decode(t, rr, &list)
	assert.Len(t, list.Items, 1)

	rr = call(t, app, "alice", "GET", "/api/v1/activities?upcoming=true", nil)
	decode(t, rr, &list)
	assert.Len(t, list.Items, 4)
}

func TestUser_UserActivitiesHandlerEmpty(t *testing.T) {
	app, _, _ := newTestApp(t)

	rr := call(t, app, "nobody", "GET", "/api/v1/user/activities", nil)
	checkResponseCode(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}
