package membership

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/models"
)

const (
	reconcilePageSize   = 500
	reconcileRepairPage = 200
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	RepairsReplayed int `json:"repairsReplayed"`
	Added           int `json:"added"`
	Removed         int `json:"removed"`
}

// Reconcile brings the users' joined lists back in line with the activities.
// Pending repair records are replayed first, then every activity's participants
// are pushed to their user records and stale entries are pulled.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	replayed, err := e.replayRepairs(ctx)
	report.RepairsReplayed = replayed
	if err != nil {
		return report, fmt.Errorf("replay repairs: %w", err)
	}

	members := map[string]map[string]struct{}{}
	for page := 1; ; page++ {
		activities, err := e.activities.List(ctx, ActivityFilter{Page: page, Limit: reconcilePageSize})
		if err != nil {
			return report, fmt.Errorf("list activities: %w", err)
		}
		for _, a := range activities {
			set := make(map[string]struct{}, len(a.Details.Participants))
			for _, userID := range a.Details.Participants {
				set[userID] = struct{}{}
				// the page may predate a leave that committed since
				if member, err := e.isParticipant(ctx, a.ID, userID); err != nil {
					return report, err
				} else if !member {
					continue
				}
				changed, err := e.users.AddJoinedActivity(ctx, userID, a.ID)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return report, fmt.Errorf("add %s to user %s: %w", a.ID, userID, err)
				}
				if changed {
					report.Added++
					reconcileFixesTotal.WithLabelValues("added").Inc()
				}
			}
			members[a.ID] = set
		}
		if len(activities) < reconcilePageSize {
			break
		}
	}

	// collect first, removing while paging would shift the pages
	type stale struct{ userID, activityID string }
	var candidates []stale
	for page := 1; ; page++ {
		users, err := e.users.ListWithJoined(ctx, page, reconcilePageSize)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
		for _, u := range users {
			for _, activityID := range u.Details.JoinedActivities {
				if _, ok := members[activityID][u.ID]; !ok {
					candidates = append(candidates, stale{userID: u.ID, activityID: activityID})
				}
			}
		}
		if len(users) < reconcilePageSize {
			break
		}
	}

	for _, c := range candidates {
		// the snapshot may predate a join that committed since, ask again
		if member, err := e.isParticipant(ctx, c.activityID, c.userID); err != nil {
			return report, err
		} else if member {
			continue
		}
		changed, err := e.users.RemoveJoinedActivity(ctx, c.userID, c.activityID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return report, fmt.Errorf("remove %s from user %s: %w", c.activityID, c.userID, err)
		}
		if changed {
			report.Removed++
			reconcileFixesTotal.WithLabelValues("removed").Inc()
		}
	}

	zap.S().Infow("membership reconciliation finished",
		"repairsReplayed", report.RepairsReplayed,
		"added", report.Added,
		"removed", report.Removed)
	return report, nil
}

func (e *Engine) replayRepairs(ctx context.Context) (int, error) {
	repairs, err := e.repairs.Pending(ctx, reconcileRepairPage)
	if err != nil {
		return 0, err
	}
	replayed := 0
	for _, r := range repairs {
		if err := e.replay(ctx, r); err != nil {
			zap.S().Warnw("membership repair still failing",
				"repairId", r.ID,
				"action", r.Action,
				"activityId", r.ActivityID,
				"userId", r.UserID,
				"error", err)
			continue
		}
		if err := e.repairs.Resolve(ctx, r.ID, e.opts.Now()); err != nil {
			return replayed, err
		}
		replayed++
	}
	return replayed, nil
}

// replay decides from the activity what the user record should say, the
// recorded action only tells which records to look at
func (e *Engine) replay(ctx context.Context, r models.MembershipRepair) error {
	if r.Action == models.RepairSweep {
		if _, err := e.activities.Get(ctx, r.ActivityID); err == nil {
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		_, err := e.users.RemoveActivityFromAll(ctx, r.ActivityID)
		return err
	}

	member, err := e.isParticipant(ctx, r.ActivityID, r.UserID)
	if err != nil {
		return err
	}
	if member {
		_, err = e.users.AddJoinedActivity(ctx, r.UserID, r.ActivityID)
	} else {
		_, err = e.users.RemoveJoinedActivity(ctx, r.UserID, r.ActivityID)
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (e *Engine) isParticipant(ctx context.Context, activityID, userID string) (bool, error) {
	a, err := e.activities.Get(ctx, activityID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Details.HasParticipant(userID), nil
}
