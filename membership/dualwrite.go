package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/models"
)

// follow applies the user-side half of a membership change after the activity
// side committed. It retries with backoff and, once the budget is spent, hands
// the write to reconciliation instead of failing the request.
func (e *Engine) follow(ctx context.Context, action models.RepairAction, activityID, userID string) {
	// the primary write already happened, a caller hanging up must not stop the follower
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.FollowerTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.FollowerInitialInterval
	b.MaxInterval = e.opts.FollowerMaxInterval

	_, err := backoff.Retry(ctx, func() (bool, error) {
		changed, err := e.applyFollower(ctx, action, activityID, userID)
		if errors.Is(err, ErrNotFound) {
			return false, backoff.Permanent(err)
		}
		return changed, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.opts.FollowerMaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			followerRetriesTotal.WithLabelValues(string(action)).Inc()
			zap.S().Warnw("user-side membership write failed, retrying",
				"action", action,
				"activityId", activityID,
				"userId", userID,
				"retryIn", next,
				"error", err)
		}),
	)
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotFound) {
		// no user record to keep in step
		zap.S().Warnw("user record missing, skipping joined-activity update",
			"action", action,
			"activityId", activityID,
			"userId", userID)
		return
	}
	e.recordRepair(action, activityID, userID, err)
}

func (e *Engine) applyFollower(ctx context.Context, action models.RepairAction, activityID, userID string) (bool, error) {
	switch action {
	case models.RepairAdd:
		return e.users.AddJoinedActivity(ctx, userID, activityID)
	case models.RepairRemove:
		return e.users.RemoveJoinedActivity(ctx, userID, activityID)
	case models.RepairSweep:
		n, err := e.users.RemoveActivityFromAll(ctx, activityID)
		return n > 0, err
	default:
		return false, fmt.Errorf("unknown follower action %q", action)
	}
}

func (e *Engine) recordRepair(action models.RepairAction, activityID, userID string, cause error) {
	repairsRecordedTotal.WithLabelValues(string(action)).Inc()
	repair := models.MembershipRepair{
		ID:         uuid.New().String(),
		ActivityID: activityID,
		UserID:     userID,
		Action:     action,
		Reason:     cause.Error(),
		CreatedAt:  e.opts.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.FollowerTimeout)
	defer cancel()
	if err := e.repairs.Record(ctx, repair); err != nil {
		// the full reconciliation sweep still picks this up
		zap.S().Errorw("failed to record membership repair",
			"action", action,
			"activityId", activityID,
			"userId", userID,
			"cause", cause,
			"error", err)
		return
	}
	zap.S().Errorw("user-side membership write deferred to reconciliation",
		"repairId", repair.ID,
		"action", action,
		"activityId", activityID,
		"userId", userID,
		"error", cause)
}
