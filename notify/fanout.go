package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

// UserLookup resolves recipients to their user records for e-mail delivery
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// Fanout is the membership.Notifier of the service. Delivery runs in the
// background, failures are only logged.
type Fanout struct {
	hub     *Hub
	mailer  *Mailer
	pusher  *Pusher
	users   UserLookup
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewFanout wires the hub and, when mailer is not nil, invitation e-mails
func NewFanout(hub *Hub, mailer *Mailer, users UserLookup) *Fanout {
	return &Fanout{hub: hub, mailer: mailer, users: users, timeout: 30 * time.Second}
}

// WithPusher enables mobile push for users with registered devices
func (f *Fanout) WithPusher(p *Pusher) *Fanout {
	f.pusher = p
	return f
}

// Notify implements membership.Notifier
func (f *Fanout) Notify(ctx context.Context, event membership.Event) {
	ctx = context.WithoutCancel(ctx)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		f.deliver(ctx, event)
	}()
}

// Wait blocks until every pending delivery finished
func (f *Fanout) Wait() {
	f.wg.Wait()
}

func (f *Fanout) deliver(ctx context.Context, event membership.Event) {
	sendMail := event.Type == membership.EventInvitationReceived && f.mailer != nil
	for _, userID := range event.Recipients {
		if f.hub != nil {
			f.hub.Send(userID, event)
		}
		if f.users == nil || (!sendMail && f.pusher == nil) {
			continue
		}
		user, err := f.users.Get(ctx, userID)
		if err != nil {
			zap.S().Warnw("no user record for notification", "userId", userID, "error", err)
			continue
		}
		if sendMail {
			if err := f.mailer.SendInvitation(*user, event.ActivityID, event.ActivityTitle); err != nil {
				zap.S().Errorw("failed to send invitation email",
					"userId", userID,
					"activityId", event.ActivityID,
					"error", err)
			}
		}
		if f.pusher != nil {
			if err := f.pusher.SendEvent(ctx, user.Details.PushTokens, event); err != nil {
				zap.S().Errorw("failed to push notification",
					"userId", userID,
					"event", event.Type,
					"error", err)
			}
		}
	}
}
