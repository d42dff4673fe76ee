// Package membership enforces who may join an activity, how capacity holds
// under concurrent requests, how invitations move between states, and keeps the
// users' joined-activity lists following the activities.
package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/models"
)

// errNoChange tells mutate the rule passed but there is nothing to write
var errNoChange = errors.New("no change")

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	// CASAttempts bounds how often a write is re-applied after losing a version race
	CASAttempts int
	// FollowerMaxTries bounds attempts of a user-side write before it becomes a repair record
	FollowerMaxTries        uint
	FollowerInitialInterval time.Duration
	FollowerMaxInterval     time.Duration
	// FollowerTimeout bounds the whole retry loop of one user-side write
	FollowerTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.CASAttempts <= 0 {
		o.CASAttempts = 10
	}
	if o.FollowerMaxTries == 0 {
		o.FollowerMaxTries = 5
	}
	if o.FollowerInitialInterval <= 0 {
		o.FollowerInitialInterval = 50 * time.Millisecond
	}
	if o.FollowerMaxInterval <= 0 {
		o.FollowerMaxInterval = 2 * time.Second
	}
	if o.FollowerTimeout <= 0 {
		o.FollowerTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = func() string { return primitive.NewObjectID().Hex() }
	}
	return o
}

// Engine is stateless, every instance may serve any activity as long as they
// share the same stores.
type Engine struct {
	activities ActivityStore
	users      UserStore
	repairs    RepairLog
	notifier   Notifier
	opts       Options
}

// New creates an engine over the given stores. notifier may be nil.
func New(activities ActivityStore, users UserStore, repairs RepairLog, notifier Notifier, opts Options) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		activities: activities,
		users:      users,
		repairs:    repairs,
		notifier:   notifier,
		opts:       opts.withDefaults(),
	}
}

// Create stores a new activity with the creator as its only participant
func (e *Engine) Create(ctx context.Context, creatorID string, in CreateActivityInput) (*models.Activity, error) {
	activity, err := newActivity(e.opts.NewID(), creatorID, in, e.opts.Now())
	if err != nil {
		operationsTotal.WithLabelValues("create", outcome(err)).Inc()
		return nil, err
	}
	if err := e.activities.Insert(ctx, activity); err != nil {
		operationsTotal.WithLabelValues("create", "error").Inc()
		return nil, err
	}
	e.follow(ctx, models.RepairAdd, activity.ID, creatorID)

	operationsTotal.WithLabelValues("create", "ok").Inc()
	zap.S().Infow("activity created",
		"activityId", activity.ID,
		"creatorId", creatorID,
		"capacity", activity.Details.Capacity)
	return activity, nil
}

// Join adds userID to the participants. Checks run in order: the activity
// exists, the user has not joined, a spot is left.
func (e *Engine) Join(ctx context.Context, userID, activityID string) error {
	if err := requireIDs(userID, activityID); err != nil {
		return err
	}
	_, err := e.mutate(ctx, "join", activityID, func(a *models.Activity) error {
		return applyJoin(a, userID, e.opts.Now())
	})
	operationsTotal.WithLabelValues("join", outcome(err)).Inc()
	if err != nil {
		return err
	}
	e.follow(ctx, models.RepairAdd, activityID, userID)
	zap.S().Debugw("joined activity", "activityId", activityID, "userId", userID)
	return nil
}

// Leave removes userID from the participants
func (e *Engine) Leave(ctx context.Context, userID, activityID string) error {
	if err := requireIDs(userID, activityID); err != nil {
		return err
	}
	_, err := e.mutate(ctx, "leave", activityID, func(a *models.Activity) error {
		return applyLeave(a, userID, e.opts.Now())
	})
	operationsTotal.WithLabelValues("leave", outcome(err)).Inc()
	if err != nil {
		return err
	}
	e.follow(ctx, models.RepairRemove, activityID, userID)
	zap.S().Debugw("left activity", "activityId", activityID, "userId", userID)
	return nil
}

// Invite adds pending invitations for the candidates not yet covered. Only the
// creator may invite. An all-covered candidate list succeeds with nothing invited.
func (e *Engine) Invite(ctx context.Context, inviterID, activityID string, in InviteInput) ([]string, error) {
	if err := requireIDs(inviterID, activityID); err != nil {
		return nil, err
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	var invited []string
	activity, err := e.mutate(ctx, "invite", activityID, func(a *models.Activity) error {
		var err error
		invited, err = applyInvite(a, inviterID, in.UserIDs, e.opts.Now())
		if err != nil {
			return err
		}
		if len(invited) == 0 {
			return errNoChange
		}
		return nil
	})
	operationsTotal.WithLabelValues("invite", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	if len(invited) > 0 {
		e.notifier.Notify(ctx, Event{
			Type:          EventInvitationReceived,
			ActivityID:    activity.ID,
			ActivityTitle: activity.Details.Title,
			ActorID:       inviterID,
			Recipients:    invited,
			At:            e.opts.Now(),
		})
	}
	zap.S().Infow("invitations issued",
		"activityId", activityID,
		"requested", len(in.UserIDs),
		"invited", len(invited))
	return invited, nil
}

// Respond answers the caller's pending invitation. Accepting a full activity
// fails with ErrFull and the invitation stays pending.
func (e *Engine) Respond(ctx context.Context, userID, activityID string, in RespondInput) (models.InvitationStatus, error) {
	if err := requireIDs(userID, activityID); err != nil {
		return "", err
	}
	if err := checkStruct(in); err != nil {
		return "", err
	}
	decision, ok := models.ParseDecision(in.Decision)
	if !ok {
		return "", validationError("decision must be accept or reject")
	}

	var added bool
	activity, err := e.mutate(ctx, "respond", activityID, func(a *models.Activity) error {
		var err error
		added, err = applyRespond(a, userID, decision, e.opts.Now())
		return err
	})
	operationsTotal.WithLabelValues("respond", outcome(err)).Inc()
	if err != nil {
		return "", err
	}
	if added {
		e.follow(ctx, models.RepairAdd, activityID, userID)
	}

	status := activity.Details.Invitations[userID].Status
	eventType := EventInvitationRejected
	if status == models.InvitationAccepted {
		eventType = EventInvitationAccepted
	}
	e.notifier.Notify(ctx, Event{
		Type:          eventType,
		ActivityID:    activity.ID,
		ActivityTitle: activity.Details.Title,
		ActorID:       userID,
		Recipients:    []string{activity.Details.CreatorID},
		At:            e.opts.Now(),
	})
	return status, nil
}

// Update applies a creator-only partial edit. Membership fields are never touched here.
func (e *Engine) Update(ctx context.Context, userID, activityID string, in UpdateActivityInput) (*models.Activity, error) {
	if err := requireIDs(userID, activityID); err != nil {
		return nil, err
	}
	schedule, err := in.check()
	if err != nil {
		return nil, err
	}
	activity, err := e.mutate(ctx, "update", activityID, func(a *models.Activity) error {
		if a.Details.CreatorID != userID {
			return ErrNotCreator
		}
		in.applyTo(&a.Details, schedule, e.opts.Now())
		return nil
	})
	operationsTotal.WithLabelValues("update", outcome(err)).Inc()
	return activity, err
}

// Delete removes the activity and then sweeps its id out of every user record
func (e *Engine) Delete(ctx context.Context, userID, activityID string) error {
	if err := requireIDs(userID, activityID); err != nil {
		return err
	}

	var deleted *models.Activity
	for attempt := 0; attempt < e.opts.CASAttempts && deleted == nil; attempt++ {
		a, err := e.load(ctx, activityID)
		if err != nil {
			operationsTotal.WithLabelValues("delete", outcome(err)).Inc()
			return err
		}
		if a.Details.CreatorID != userID {
			operationsTotal.WithLabelValues("delete", CodeForbidden).Inc()
			return ErrNotCreator
		}
		err = e.activities.Delete(ctx, activityID, a.Version)
		switch {
		case err == nil:
			deleted = a
		case errors.Is(err, ErrVersionConflict):
			casRetriesTotal.WithLabelValues("delete").Inc()
		case errors.Is(err, ErrNotFound):
			operationsTotal.WithLabelValues("delete", CodeNotFound).Inc()
			return ErrActivityNotFound
		default:
			operationsTotal.WithLabelValues("delete", "error").Inc()
			return err
		}
	}
	if deleted == nil {
		operationsTotal.WithLabelValues("delete", CodeConcurrentModification).Inc()
		return ErrConcurrentChanges
	}
	operationsTotal.WithLabelValues("delete", "ok").Inc()

	e.follow(ctx, models.RepairSweep, activityID, "")

	recipients := make([]string, 0, len(deleted.Details.Participants))
	for _, p := range deleted.Details.Participants {
		if p != userID {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) > 0 {
		e.notifier.Notify(ctx, Event{
			Type:          EventActivityDeleted,
			ActivityID:    deleted.ID,
			ActivityTitle: deleted.Details.Title,
			ActorID:       userID,
			Recipients:    recipients,
			At:            e.opts.Now(),
		})
	}
	zap.S().Infow("activity deleted",
		"activityId", activityID,
		"participants", len(deleted.Details.Participants))
	return nil
}

// mutate reads the activity, applies rule and commits it conditionally on the
// version read. A lost race starts over from a fresh read so the rule always
// sees the state it commits against.
func (e *Engine) mutate(ctx context.Context, op, activityID string, rule func(a *models.Activity) error) (*models.Activity, error) {
	for attempt := 0; attempt < e.opts.CASAttempts; attempt++ {
		a, err := e.load(ctx, activityID)
		if err != nil {
			return nil, err
		}
		if err := rule(a); err != nil {
			if errors.Is(err, errNoChange) {
				return a, nil
			}
			return nil, err
		}
		err = e.activities.Update(ctx, a)
		switch {
		case err == nil:
			return a, nil
		case errors.Is(err, ErrVersionConflict):
			casRetriesTotal.WithLabelValues(op).Inc()
			continue
		case errors.Is(err, ErrNotFound):
			return nil, ErrActivityNotFound
		default:
			return nil, err
		}
	}
	zap.S().Warnw("gave up on contended activity",
		"activityId", activityID,
		"operation", op,
		"attempts", e.opts.CASAttempts)
	return nil, ErrConcurrentChanges
}

func (e *Engine) load(ctx context.Context, activityID string) (*models.Activity, error) {
	a, err := e.activities.Get(ctx, activityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return a, nil
}

func requireIDs(userID, activityID string) error {
	if strings.TrimSpace(userID) == "" {
		return validationError("user id is required")
	}
	if strings.TrimSpace(activityID) == "" {
		return validationError("activity id is required")
	}
	return nil
}
