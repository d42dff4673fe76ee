package models

import "time"

// SchedulerLock is a lease on a background job so only one instance runs it
type SchedulerLock struct {
	Name      string    `json:"_id" bson:"_id"`
	Owner     string    `json:"owner" bson:"owner"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}
