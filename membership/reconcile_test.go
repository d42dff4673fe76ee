package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/databases/memdb"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

func TestReconcileRestoresConsistency(t *testing.T) {
	ctx := context.Background()
	activities := memdb.NewActivities()
	require.NoError(t, activities.Insert(ctx, &models.Activity{
		ID: "a1",
		Details: models.ActivityDetails{
			CreatorID:    "creator",
			Capacity:     4,
			Participants: []string{"creator", "A", "B"},
		},
	}))
	users := memdb.NewUsers(
		// missing a1
		models.User{ID: "creator"},
		models.User{ID: "A", Details: models.UserDetails{JoinedActivities: []string{"a1"}}},
		// a1 missing, gone is a deleted activity
		models.User{ID: "B", Details: models.UserDetails{JoinedActivities: []string{"gone"}}},
		// holds a1 without being a participant
		models.User{ID: "C", Details: models.UserDetails{JoinedActivities: []string{"a1"}}},
	)
	engine := membership.New(activities, users, memdb.NewRepairs(), nil, membership.Options{})

	report, err := engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, membership.ReconcileReport{Added: 2, Removed: 2}, report)

	for id, want := range map[string][]string{
		"creator": {"a1"},
		"A":       {"a1"},
		"B":       {"a1"},
		"C":       {},
	} {
		u, err := users.Get(ctx, id)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, u.Details.JoinedActivities, "user %s", id)
	}

	again, err := engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, membership.ReconcileReport{}, again)
}

// leaveAfterList lets a member leave right after the reconciler read its page
type leaveAfterList struct {
	*memdb.Activities
	leave func()
	done  bool
}

func (s *leaveAfterList) List(ctx context.Context, filter membership.ActivityFilter) ([]models.Activity, error) {
	page, err := s.Activities.List(ctx, filter)
	if !s.done {
		s.done = true
		s.leave()
	}
	return page, err
}

func TestReconcileSkipsUserWhoLeftAfterListing(t *testing.T) {
	ctx := context.Background()
	inner := memdb.NewActivities()
	require.NoError(t, inner.Insert(ctx, &models.Activity{
		ID: "a1",
		Details: models.ActivityDetails{
			CreatorID:    "creator",
			Capacity:     4,
			Participants: []string{"creator", "A"},
		},
	}))
	users := memdb.NewUsers(
		models.User{ID: "creator", Details: models.UserDetails{JoinedActivities: []string{"a1"}}},
		models.User{ID: "A", Details: models.UserDetails{JoinedActivities: []string{"a1"}}},
	)
	activities := &leaveAfterList{Activities: inner}
	engine := membership.New(activities, users, memdb.NewRepairs(), nil, membership.Options{})
	activities.leave = func() {
		require.NoError(t, engine.Leave(ctx, "A", "a1"))
	}

	report, err := engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, membership.ReconcileReport{}, report)

	a, err := users.Get(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, a.Details.JoinedActivities)

	stored, err := inner.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"creator"}, stored.Details.Participants)
}

func TestReconcileReplaysSweep(t *testing.T) {
	ctx := context.Background()
	repairs := memdb.NewRepairs()
	require.NoError(t, repairs.Record(ctx, models.MembershipRepair{
		ID:         "r1",
		ActivityID: "gone",
		Action:     models.RepairSweep,
		CreatedAt:  time.Now(),
	}))
	users := memdb.NewUsers(
		models.User{ID: "A", Details: models.UserDetails{JoinedActivities: []string{"gone"}}},
	)
	engine := membership.New(memdb.NewActivities(), users, repairs, nil, membership.Options{})

	report, err := engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RepairsReplayed)

	u, err := users.Get(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, u.Details.JoinedActivities)
	require.Len(t, repairs.All(), 1)
	assert.NotNil(t, repairs.All()[0].ResolvedAt)
}

func TestReconcileRepairFollowsActivityNotRecord(t *testing.T) {
	ctx := context.Background()
	activities := memdb.NewActivities()
	require.NoError(t, activities.Insert(ctx, &models.Activity{
		ID:      "a1",
		Details: models.ActivityDetails{CreatorID: "creator", Capacity: 4, Participants: []string{"creator"}},
	}))
	repairs := memdb.NewRepairs()
	// the user joined and left again before the add was ever applied
	require.NoError(t, repairs.Record(ctx, models.MembershipRepair{ID: "r1", ActivityID: "a1", UserID: "A", Action: models.RepairAdd}))
	users := memdb.NewUsers(models.User{ID: "A"}, models.User{ID: "creator"})
	engine := membership.New(activities, users, repairs, nil, membership.Options{})

	_, err := engine.Reconcile(ctx)
	require.NoError(t, err)

	u, err := users.Get(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, u.Details.JoinedActivities)
}
