package models

import "time"

// RepairAction names the follower write that still has to be applied
type RepairAction string

const (
	// RepairAdd puts an activity id into a user's joined list
	RepairAdd RepairAction = "add"
	// RepairRemove pulls an activity id from a user's joined list
	RepairRemove RepairAction = "remove"
	// RepairSweep pulls a deleted activity id from every user
	RepairSweep RepairAction = "sweep"
)

// MembershipRepair records a user-side write that ran out of retries. The
// reconciler replays it against the activity, which is the source of truth.
type MembershipRepair struct {
	ID         string       `json:"_id" bson:"_id"`
	ActivityID string       `json:"activityId" bson:"activityId"`
	UserID     string       `json:"userId,omitempty" bson:"userId,omitempty"`
	Action     RepairAction `json:"action" bson:"action"`
	Reason     string       `json:"reason" bson:"reason"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}
