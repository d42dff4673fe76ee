package membership

import (
	"context"
	"time"

	"github.com/linesmerrill/activities-api/models"
)

// ActivityStore is the durable record of activities. Implementations must make
// Update and Delete conditional on the version the caller read, that is the only
// serialization the engine relies on.
type ActivityStore interface {
	// Insert stores a new activity with version 0
	Insert(ctx context.Context, activity *models.Activity) error
	// Get returns ErrNotFound when the id is unknown
	Get(ctx context.Context, id string) (*models.Activity, error)
	// Update replaces the details if the stored version equals activity.Version,
	// bumps activity.Version on success, returns ErrVersionConflict otherwise
	Update(ctx context.Context, activity *models.Activity) error
	// Delete removes the activity if the stored version equals version
	Delete(ctx context.Context, id string, version int64) error
	// List returns activities matching the filter ordered by schedule date
	List(ctx context.Context, filter ActivityFilter) ([]models.Activity, error)
}

// ActivityFilter narrows List. Zero values do not filter.
type ActivityFilter struct {
	Category string
	// From keeps activities scheduled on or after this day
	From *time.Time
	IDs  []string
	// PendingInvitee keeps activities holding a pending invitation for this user
	PendingInvitee string
	Page           int
	Limit          int
}

// UserStore holds the denormalized joined-activities projection. The add and
// remove operations are idempotent, the bool reports whether anything changed.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	AddJoinedActivity(ctx context.Context, userID, activityID string) (bool, error)
	RemoveJoinedActivity(ctx context.Context, userID, activityID string) (bool, error)
	// RemoveActivityFromAll pulls activityID from every user and returns how many changed
	RemoveActivityFromAll(ctx context.Context, activityID string) (int64, error)
	// ListWithJoined pages through users whose joined list is not empty
	ListWithJoined(ctx context.Context, page, limit int) ([]models.User, error)
}

// RepairLog keeps follower writes that could not be applied inline
type RepairLog interface {
	Record(ctx context.Context, repair models.MembershipRepair) error
	Pending(ctx context.Context, limit int) ([]models.MembershipRepair, error)
	Resolve(ctx context.Context, id string, at time.Time) error
}
