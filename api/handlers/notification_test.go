package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/api/testhelpers"
	"github.com/linesmerrill/activities-api/membership"
)

type pushed struct {
	Event membership.EventType `json:"event"`
	Data  membership.Event     `json:"data"`
}

func TestNotification_InvitationIsPushed(t *testing.T) {
	app, _, _ := newTestApp(t, "alice", "bob")
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/notifications?token=" + testhelpers.Token("bob")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return app.Hub.Connected("bob") == 1 }, time.Second, 10*time.Millisecond)

	view := createActivity(t, app, "alice", boardGames(4))
	rr := call(t, app, "alice", "POST", "/api/v1/activity/"+view.ID+"/invitations", map[string]interface{}{"userIds": []string{"bob"}})
	checkResponseCode(t, http.StatusOK, rr.Code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg pushed
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, membership.EventInvitationReceived, msg.Event)
	assert.Equal(t, view.ID, msg.Data.ActivityID)

	app.Notifier.Wait()
}

func TestNotification_RequiresToken(t *testing.T) {
	app, _, _ := newTestApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/notifications", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
