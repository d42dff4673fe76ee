package memdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

func day(d int) time.Time {
	return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestActivitiesCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewActivities()
	require.NoError(t, s.Insert(ctx, &models.Activity{ID: "a1", Details: models.ActivityDetails{Capacity: 2}}))
	assert.Error(t, s.Insert(ctx, &models.Activity{ID: "a1"}))

	first, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	second, err := s.Get(ctx, "a1")
	require.NoError(t, err)

	first.Details.Participants = append(first.Details.Participants, "u1")
	require.NoError(t, s.Update(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Details.Participants = append(second.Details.Participants, "u2")
	assert.ErrorIs(t, s.Update(ctx, second), membership.ErrVersionConflict)

	stored, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, stored.Details.Participants)

	assert.ErrorIs(t, s.Delete(ctx, "a1", 0), membership.ErrVersionConflict)
	require.NoError(t, s.Delete(ctx, "a1", 1))
	assert.ErrorIs(t, s.Delete(ctx, "a1", 1), membership.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, stored), membership.ErrNotFound)
}

func TestActivitiesReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewActivities()
	require.NoError(t, s.Insert(ctx, &models.Activity{ID: "a1", Details: models.ActivityDetails{
		Participants: []string{"creator"},
		Invitations:  map[string]models.Invitation{},
	}}))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	got.Details.Participants[0] = "someone else"
	got.Details.Invitations["u1"] = models.Invitation{Status: models.InvitationPending}

	again, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"creator"}, again.Details.Participants)
	assert.Empty(t, again.Details.Invitations)
}

func TestActivitiesList(t *testing.T) {
	ctx := context.Background()
	s := NewActivities()
	for _, a := range []models.Activity{
		{ID: "c", Details: models.ActivityDetails{Category: "games", Schedule: models.Schedule{Date: day(3)}}},
		{ID: "a", Details: models.ActivityDetails{Category: "sports", Schedule: models.Schedule{Date: day(1)}}},
		{ID: "b", Details: models.ActivityDetails{Category: "games", Schedule: models.Schedule{Date: day(2)},
			Invitations: map[string]models.Invitation{"u1": {Status: models.InvitationPending}}}},
	} {
		a := a
		require.NoError(t, s.Insert(ctx, &a))
	}

	ids := func(as []models.Activity) []string {
		out := []string{}
		for _, a := range as {
			out = append(out, a.ID)
		}
		return out
	}

	all, err := s.List(ctx, membership.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	games, err := s.List(ctx, membership.ActivityFilter{Category: "Games"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(games))

	from := day(2)
	upcoming, err := s.List(ctx, membership.ActivityFilter{From: &from, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(upcoming))

	pending, err := s.List(ctx, membership.ActivityFilter{PendingInvitee: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(pending))

	byID, err := s.List(ctx, membership.ActivityFilter{IDs: []string{"c", "a", "zzz"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(byID))
}

func TestUsersJoinedList(t *testing.T) {
	ctx := context.Background()
	s := NewUsers(models.User{ID: "u1"}, models.User{ID: "u2"})

	changed, err := s.AddJoinedActivity(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.AddJoinedActivity(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.False(t, changed)
	_, err = s.AddJoinedActivity(ctx, "u2", "a1")
	require.NoError(t, err)

	_, err = s.AddJoinedActivity(ctx, "ghost", "a1")
	assert.ErrorIs(t, err, membership.ErrNotFound)

	withJoined, err := s.ListWithJoined(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, withJoined, 2)

	n, err := s.RemoveActivityFromAll(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	changed, err = s.RemoveJoinedActivity(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUsersCreateMissing(t *testing.T) {
	s := NewUsers()
	s.CreateMissing = true
	changed, err := s.AddJoinedActivity(context.Background(), "u9", "a1")
	require.NoError(t, err)
	assert.True(t, changed)

	u, err := s.Get(context.Background(), "u9")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, u.Details.JoinedActivities)
}

func TestRepairs(t *testing.T) {
	ctx := context.Background()
	s := NewRepairs()
	require.NoError(t, s.Record(ctx, models.MembershipRepair{ID: "r1"}))
	require.NoError(t, s.Record(ctx, models.MembershipRepair{ID: "r2"}))

	require.NoError(t, s.Resolve(ctx, "r1", day(1)))
	assert.ErrorIs(t, s.Resolve(ctx, "nope", day(1)), membership.ErrNotFound)

	pending, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r2", pending[0].ID)
}

func TestLocks(t *testing.T) {
	ctx := context.Background()
	now := day(1)
	l := NewLocks()
	l.now = func() time.Time { return now }

	ok, err := l.TryAcquireLock(ctx, "job", "web.1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TryAcquireLock(ctx, "job", "web.2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = l.TryAcquireLock(ctx, "job", "web.2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.ReleaseLock(ctx, "job", "web.1"))
	ok, err = l.TryAcquireLock(ctx, "job", "web.1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.ReleaseLock(ctx, "job", "web.2"))
	ok, err = l.TryAcquireLock(ctx, "job", "web.1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
