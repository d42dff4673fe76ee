package membership_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/databases/memdb"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

// flakyUsers fails the first failures joined-list writes
type flakyUsers struct {
	*memdb.Users
	failures int32
	calls    int32
}

func (u *flakyUsers) AddJoinedActivity(ctx context.Context, userID, activityID string) (bool, error) {
	if atomic.AddInt32(&u.calls, 1) <= u.failures {
		return false, errors.New("connection reset")
	}
	return u.Users.AddJoinedActivity(ctx, userID, activityID)
}

func newFlakyEngine(users membership.UserStore, activities *memdb.Activities, repairs *memdb.Repairs) *membership.Engine {
	return membership.New(activities, users, repairs, nil, membership.Options{
		FollowerMaxTries:        3,
		FollowerInitialInterval: time.Millisecond,
		FollowerMaxInterval:     time.Millisecond,
		Now:                     func() time.Time { return fixedNow },
	})
}

func seedActivity(t *testing.T, activities *memdb.Activities, capacity int) {
	t.Helper()
	require.NoError(t, activities.Insert(context.Background(), &models.Activity{
		ID: "a1",
		Details: models.ActivityDetails{
			CreatorID:    "creator",
			Capacity:     capacity,
			Participants: []string{"creator"},
			Invitations:  map[string]models.Invitation{},
		},
	}))
}

func TestFollowerRetriesTransientFailures(t *testing.T) {
	activities := memdb.NewActivities()
	repairs := memdb.NewRepairs()
	users := &flakyUsers{Users: memdb.NewUsers(models.User{ID: "A"}), failures: 2}
	seedActivity(t, activities, 3)

	require.NoError(t, newFlakyEngine(users, activities, repairs).Join(context.Background(), "A", "a1"))

	u, err := users.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, u.Details.JoinedActivities)
	assert.Equal(t, int32(3), atomic.LoadInt32(&users.calls))
	assert.Empty(t, repairs.All())
}

func TestFollowerFailureBecomesRepair(t *testing.T) {
	ctx := context.Background()
	activities := memdb.NewActivities()
	repairs := memdb.NewRepairs()
	users := &flakyUsers{Users: memdb.NewUsers(models.User{ID: "A"}), failures: 100}
	seedActivity(t, activities, 3)
	engine := newFlakyEngine(users, activities, repairs)

	// the activity side is authoritative, the request still succeeds
	require.NoError(t, engine.Join(ctx, "A", "a1"))

	a, err := activities.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"creator", "A"}, a.Details.Participants)

	recorded := repairs.All()
	require.Len(t, recorded, 1)
	assert.Equal(t, models.RepairAdd, recorded[0].Action)
	assert.Equal(t, "a1", recorded[0].ActivityID)
	assert.Equal(t, "A", recorded[0].UserID)
	assert.Contains(t, recorded[0].Reason, "connection reset")
	assert.Nil(t, recorded[0].ResolvedAt)

	// once the user store recovers, reconciliation applies the write
	healed := newFlakyEngine(users.Users, activities, repairs)
	report, err := healed.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RepairsReplayed)

	u, err := users.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, u.Details.JoinedActivities)

	pending, err := repairs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFollowerSkipsMissingUser(t *testing.T) {
	activities := memdb.NewActivities()
	repairs := memdb.NewRepairs()
	seedActivity(t, activities, 3)

	require.NoError(t, newFlakyEngine(memdb.NewUsers(), activities, repairs).Join(context.Background(), "ghost", "a1"))
	assert.Empty(t, repairs.All())
}

func TestFollowerSurvivesCallerCancellation(t *testing.T) {
	activities := memdb.NewActivities()
	users := memdb.NewUsers(models.User{ID: "A"})
	seedActivity(t, activities, 3)

	// the caller goes away right after the activity write committed
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := &cancelAfterUpdate{Activities: activities, cancel: cancel}
	engine := membership.New(cancelling, users, memdb.NewRepairs(), nil, membership.Options{})
	require.NoError(t, engine.Join(ctx, "A", "a1"))

	u, err := users.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, u.Details.JoinedActivities)
}

type cancelAfterUpdate struct {
	*memdb.Activities
	cancel context.CancelFunc
}

func (c *cancelAfterUpdate) Update(ctx context.Context, a *models.Activity) error {
	err := c.Activities.Update(ctx, a)
	c.cancel()
	return err
}
