package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/api/testhelpers"
	"github.com/linesmerrill/activities-api/config"
	"github.com/linesmerrill/activities-api/databases/memdb"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
	"github.com/linesmerrill/activities-api/notify"
	"github.com/linesmerrill/activities-api/payments"
)

var a App

// fakeGateway records the last checkout it was asked for
type fakeGateway struct {
	last *payments.CheckoutRequest
	err  error
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.Checkout, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.last = &req
	return &payments.Checkout{SessionID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil
}

// newTestApp wires the router over the in-memory store, the given users exist
// upfront
func newTestApp(t *testing.T, userIDs ...string) (*App, *memdb.Users, *fakeGateway) {
	t.Helper()
	users := memdb.NewUsers()
	for _, id := range userIDs {
		users.Put(models.User{ID: id, Details: models.UserDetails{Username: id}})
	}
	gateway := &fakeGateway{}
	hub := notify.NewHub()
	app := &App{
		Config: config.Config{
			JWTSecret:      testhelpers.TestSecret,
			TokenCacheTTL:  time.Minute,
			RequestTimeout: 5 * time.Second,
			BaseURL:        "https://activities.test",
		},
		Hub:      hub,
		Notifier: notify.NewFanout(hub, nil, users),
		Payments: gateway,
	}
	app.Engine = membership.New(memdb.NewActivities(), users, memdb.NewRepairs(), app.Notifier, membership.Options{
		FollowerInitialInterval: time.Millisecond,
		FollowerMaxInterval:     time.Millisecond,
	})
	app.Router = app.New()
	return app, users, gateway
}

func executeRequest(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func checkResponseCode(t *testing.T, expected, actual int) {
	if expected != actual {
		t.Errorf("Expected response code %d. Got %d\n", expected, actual)
	}
}

// call sends an authenticated json request as userID
func call(t *testing.T, app *App, userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", testhelpers.BearerHeader(userID))
	}
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/asdf", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusNotFound, response.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/health", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusOK, response.Code)

	if !strings.Contains(response.Body.String(), "alive") {
		t.Errorf("Expected 'alive' in the reponse. Got '%s'", response.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusOK, response.Code)
}

func TestApp_ActivityHandlerUnauthorized(t *testing.T) {
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/v1/activity/1234", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)

	var m map[string]string
	json.Unmarshal(response.Body.Bytes(), &m)
	if m["code"] != "UNAUTHORIZED" {
		t.Errorf("Expected the 'code' key of the reponse to be set to 'UNAUTHORIZED'. Got '%s'", m["code"])
	}
}

func TestApp_ActivityHandlerInvalidToken(t *testing.T) {
	app, _, _ := newTestApp(t)
	req, _ := http.NewRequest("GET", "/api/v1/activity/1234", nil)
	req.Header.Add("Authorization", "Bearer asdfasdf")
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)

	checkResponseCode(t, http.StatusUnauthorized, rr.Code)
}

func TestApp_ActivityHandlerWrongSecret(t *testing.T) {
	app, _, _ := newTestApp(t)
	req, _ := http.NewRequest("GET", "/api/v1/activity/1234", nil)
	req.Header.Add("Authorization", "Bearer "+testhelpers.SignedToken("other-secret", map[string]interface{}{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)

	checkResponseCode(t, http.StatusUnauthorized, rr.Code)
}
