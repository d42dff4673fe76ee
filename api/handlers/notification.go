package handlers

import (
	"net/http"

	"github.com/linesmerrill/activities-api/notify"
)

// Notification serves the per-user websocket push channel
type Notification struct {
	Hub *notify.Hub
}

// NotificationsHandler upgrades the connection and keeps it open for events
// addressed to the caller
func (n Notification) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	n.Hub.Serve(w, r, userID)
}

// queryToken lets browsers, which cannot set headers on a websocket
// handshake, pass the bearer token as ?token=
func queryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}
