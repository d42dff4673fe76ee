package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/membership"
)

const expoBatchLimit = 100

// ExpoPushMessage represents a single push notification message for the Expo push API
type ExpoPushMessage struct {
	To        string                 `json:"to"`
	Title     string                 `json:"title,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
}

// Pusher sends mobile push notifications through Expo
type Pusher struct {
	url    string
	client *http.Client
}

// NewPusher returns a pusher posting to url. An empty url returns nil, which
// disables push delivery.
func NewPusher(url string) *Pusher {
	if url == "" {
		return nil
	}
	return &Pusher{url: url, client: &http.Client{Timeout: 15 * time.Second}}
}

// pushText is the title and body shown on the device for an event
func pushText(event membership.Event) (string, string, bool) {
	switch event.Type {
	case membership.EventInvitationReceived:
		return "New invitation", fmt.Sprintf("You're invited to %s", event.ActivityTitle), true
	case membership.EventInvitationAccepted:
		return "Invitation accepted", fmt.Sprintf("Someone is joining %s", event.ActivityTitle), true
	case membership.EventInvitationRejected:
		return "Invitation declined", fmt.Sprintf("An invitation to %s was declined", event.ActivityTitle), true
	case membership.EventActivityDeleted:
		return "Activity cancelled", fmt.Sprintf("%s was cancelled", event.ActivityTitle), true
	}
	return "", "", false
}

// SendEvent pushes event to every token. Tokens are batched in groups of 100
// per the Expo API limit, a failed batch does not stop the others.
func (p *Pusher) SendEvent(ctx context.Context, tokens []string, event membership.Event) error {
	title, body, ok := pushText(event)
	if len(tokens) == 0 || !ok {
		return nil
	}
	data := map[string]interface{}{
		"type":       string(event.Type),
		"activityId": event.ActivityID,
	}

	messages := make([]ExpoPushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, ExpoPushMessage{
			To:        token,
			Title:     title,
			Body:      body,
			Sound:     "default",
			Data:      data,
			Priority:  "high",
			ChannelID: "default",
		})
	}

	var failed int
	for i := 0; i < len(messages); i += expoBatchLimit {
		end := i + expoBatchLimit
		if end > len(messages) {
			end = len(messages)
		}
		if err := p.sendBatch(ctx, messages[i:end]); err != nil {
			zap.S().Errorw("failed to send expo push batch",
				"first", i,
				"last", end-1,
				"error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d push batch(es) failed", failed)
	}
	return nil
}

func (p *Pusher) sendBatch(ctx context.Context, messages []ExpoPushMessage) error {
	jsonData, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo push API returned status %d", resp.StatusCode)
	}
	zap.S().Debugw("push notifications sent", "count", len(messages))
	return nil
}
