// Package memdb keeps every store in process memory. It backs tests and the
// memory database driver, and follows the same version rules as the mongo stores.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

// Activities is an in-memory membership.ActivityStore
type Activities struct {
	mu   sync.RWMutex
	docs map[string]models.Activity
}

// NewActivities returns an empty activity store
func NewActivities() *Activities {
	return &Activities{docs: map[string]models.Activity{}}
}

// Insert implements membership.ActivityStore
func (s *Activities) Insert(ctx context.Context, activity *models.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[activity.ID]; ok {
		return errDuplicate(activity.ID)
	}
	activity.Version = 0
	s.docs[activity.ID] = copyActivity(*activity)
	return nil
}

// Get implements membership.ActivityStore
func (s *Activities) Get(ctx context.Context, id string) (*models.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.docs[id]
	if !ok {
		return nil, membership.ErrNotFound
	}
	c := copyActivity(a)
	return &c, nil
}

// Update implements membership.ActivityStore
func (s *Activities) Update(ctx context.Context, activity *models.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[activity.ID]
	if !ok {
		return membership.ErrNotFound
	}
	if stored.Version != activity.Version {
		return membership.ErrVersionConflict
	}
	activity.Version++
	s.docs[activity.ID] = copyActivity(*activity)
	return nil
}

// Delete implements membership.ActivityStore
func (s *Activities) Delete(ctx context.Context, id string, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[id]
	if !ok {
		return membership.ErrNotFound
	}
	if stored.Version != version {
		return membership.ErrVersionConflict
	}
	delete(s.docs, id)
	return nil
}

// List implements membership.ActivityStore
func (s *Activities) List(ctx context.Context, filter membership.ActivityFilter) ([]models.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids map[string]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	s.mu.RLock()
	matched := make([]models.Activity, 0, len(s.docs))
	for _, a := range s.docs {
		if filter.Category != "" && !strings.EqualFold(a.Details.Category, filter.Category) {
			continue
		}
		if filter.From != nil && a.Details.Schedule.Date.Before(*filter.From) {
			continue
		}
		if ids != nil {
			if _, ok := ids[a.ID]; !ok {
				continue
			}
		}
		if filter.PendingInvitee != "" {
			inv, ok := a.Details.Invitations[filter.PendingInvitee]
			if !ok || inv.Status != models.InvitationPending {
				continue
			}
		}
		matched = append(matched, copyActivity(a))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		di, dj := matched[i].Details.Schedule.Date, matched[j].Details.Schedule.Date
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, filter.Page, filter.Limit), nil
}

// Users is an in-memory membership.UserStore
type Users struct {
	// CreateMissing makes joined-list writes create the user record on the fly
	CreateMissing bool

	mu   sync.RWMutex
	docs map[string]models.User
}

// NewUsers returns a store holding the given users
func NewUsers(users ...models.User) *Users {
	s := &Users{docs: map[string]models.User{}}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// Put stores or replaces a user record
func (s *Users) Put(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[u.ID] = copyUser(u)
}

// Get implements membership.UserStore
func (s *Users) Get(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.docs[id]
	if !ok {
		return nil, membership.ErrNotFound
	}
	c := copyUser(u)
	return &c, nil
}

// AddJoinedActivity implements membership.UserStore
func (s *Users) AddJoinedActivity(ctx context.Context, userID, activityID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.docs[userID]
	if !ok {
		if !s.CreateMissing {
			return false, membership.ErrNotFound
		}
		u = models.User{ID: userID}
	}
	if u.Details.HasJoined(activityID) {
		return false, nil
	}
	u.Details.JoinedActivities = append(u.Details.JoinedActivities, activityID)
	s.docs[userID] = u
	return true, nil
}

// RemoveJoinedActivity implements membership.UserStore
func (s *Users) RemoveJoinedActivity(ctx context.Context, userID, activityID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.docs[userID]
	if !ok {
		if s.CreateMissing {
			return false, nil
		}
		return false, membership.ErrNotFound
	}
	var changed bool
	u.Details.JoinedActivities, changed = without(u.Details.JoinedActivities, activityID)
	s.docs[userID] = u
	return changed, nil
}

// RemoveActivityFromAll implements membership.UserStore
func (s *Users) RemoveActivityFromAll(ctx context.Context, activityID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, u := range s.docs {
		var changed bool
		u.Details.JoinedActivities, changed = without(u.Details.JoinedActivities, activityID)
		if changed {
			s.docs[id] = u
			n++
		}
	}
	return n, nil
}

// ListWithJoined implements membership.UserStore
func (s *Users) ListWithJoined(ctx context.Context, page, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	users := make([]models.User, 0, len(s.docs))
	for _, u := range s.docs {
		if len(u.Details.JoinedActivities) > 0 {
			users = append(users, copyUser(u))
		}
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paginate(users, page, limit), nil
}

// Repairs is an in-memory membership.RepairLog
type Repairs struct {
	mu   sync.Mutex
	docs []models.MembershipRepair
}

// NewRepairs returns an empty repair log
func NewRepairs() *Repairs {
	return &Repairs{}
}

// Record implements membership.RepairLog
func (s *Repairs) Record(ctx context.Context, repair models.MembershipRepair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, repair)
	return nil
}

// Pending implements membership.RepairLog, oldest first
func (s *Repairs) Pending(ctx context.Context, limit int) ([]models.MembershipRepair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := []models.MembershipRepair{}
	for _, r := range s.docs {
		if r.ResolvedAt != nil {
			continue
		}
		pending = append(pending, r)
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending, nil
}

// Resolve implements membership.RepairLog
func (s *Repairs) Resolve(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			resolved := at
			s.docs[i].ResolvedAt = &resolved
			return nil
		}
	}
	return membership.ErrNotFound
}

// All returns every record, resolved or not
func (s *Repairs) All() []models.MembershipRepair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MembershipRepair(nil), s.docs...)
}

// Locks is an in-memory scheduler lease table
type Locks struct {
	mu    sync.Mutex
	locks map[string]models.SchedulerLock
	now   func() time.Time
}

// NewLocks returns an empty lease table
func NewLocks() *Locks {
	return &Locks{locks: map[string]models.SchedulerLock{}, now: time.Now}
}

// TryAcquireLock takes the lease if it is free, expired, or already held by owner
func (l *Locks) TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if held, ok := l.locks[name]; ok && held.Owner != owner && held.ExpiresAt.After(now) {
		return false, nil
	}
	l.locks[name] = models.SchedulerLock{Name: name, Owner: owner, ExpiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseLock drops the lease if owner still holds it
func (l *Locks) ReleaseLock(ctx context.Context, name, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[name]; ok && held.Owner == owner {
		delete(l.locks, name)
	}
	return nil
}

type errDuplicate string

func (e errDuplicate) Error() string {
	return "duplicate id " + string(e)
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func without(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out, len(out) != len(ids)
}

func copyActivity(a models.Activity) models.Activity {
	a.Details.Participants = append([]string(nil), a.Details.Participants...)
	if a.Details.Invitations != nil {
		invitations := make(map[string]models.Invitation, len(a.Details.Invitations))
		for k, v := range a.Details.Invitations {
			invitations[k] = v
		}
		a.Details.Invitations = invitations
	}
	if a.Details.Location != nil {
		loc := *a.Details.Location
		loc.Coordinates = append([]float64(nil), loc.Coordinates...)
		a.Details.Location = &loc
	}
	if a.Details.Price != nil {
		price := *a.Details.Price
		a.Details.Price = &price
	}
	return a
}

func copyUser(u models.User) models.User {
	u.Details.JoinedActivities = append([]string(nil), u.Details.JoinedActivities...)
	u.Details.PushTokens = append([]string(nil), u.Details.PushTokens...)
	return u
}
