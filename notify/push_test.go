package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/databases/memdb"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

type expoServer struct {
	mu      sync.Mutex
	batches [][]ExpoPushMessage
	status  int
}

func (s *expoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var batch []ExpoPushMessage
	_ = json.NewDecoder(r.Body).Decode(&batch)
	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.mu.Unlock()
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	w.Write([]byte(`{"data": []}`))
}

func TestPusherBatches(t *testing.T) {
	expo := &expoServer{}
	srv := httptest.NewServer(expo)
	defer srv.Close()

	tokens := make([]string, 150)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("ExponentPushToken[%d]", i)
	}
	err := NewPusher(srv.URL).SendEvent(context.Background(), tokens, membership.Event{
		Type:          membership.EventActivityDeleted,
		ActivityID:    "a1",
		ActivityTitle: "Run club",
	})
	require.NoError(t, err)

	require.Len(t, expo.batches, 2)
	assert.Len(t, expo.batches[0], 100)
	assert.Len(t, expo.batches[1], 50)
	assert.Equal(t, "Run club was cancelled", expo.batches[0][0].Body)
	assert.Equal(t, "a1", expo.batches[0][0].Data["activityId"])
}

func TestPusherReportsFailedBatches(t *testing.T) {
	srv := httptest.NewServer(&expoServer{status: http.StatusBadGateway})
	defer srv.Close()

	err := NewPusher(srv.URL).SendEvent(context.Background(), []string{"t1"}, membership.Event{Type: membership.EventInvitationReceived})
	assert.Error(t, err)
}

func TestFanoutPushesToDevices(t *testing.T) {
	expo := &expoServer{}
	srv := httptest.NewServer(expo)
	defer srv.Close()

	users := memdb.NewUsers(
		models.User{ID: "u1", Details: models.UserDetails{PushTokens: []string{"t1", "t2"}}},
		models.User{ID: "u2"},
	)
	fanout := NewFanout(nil, nil, users).WithPusher(NewPusher(srv.URL))

	fanout.Notify(context.Background(), membership.Event{
		Type:          membership.EventInvitationAccepted,
		ActivityTitle: "Run club",
		Recipients:    []string{"u1", "u2"},
	})
	fanout.Wait()

	require.Len(t, expo.batches, 1)
	assert.Len(t, expo.batches[0], 2)
	assert.Equal(t, "Invitation accepted", expo.batches[0][0].Title)
}

func TestNewPusherDisabledWithoutURL(t *testing.T) {
	assert.Nil(t, NewPusher(""))
}
