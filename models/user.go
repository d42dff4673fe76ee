package models

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
	Version int32       `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	Email            string      `json:"email" bson:"email"`
	Name             string      `json:"name" bson:"name"`
	Username         string      `json:"username" bson:"username"`
	ProfilePicture   string      `json:"profilePicture" bson:"profilePicture"`
	JoinedActivities []string    `json:"joinedActivities" bson:"joinedActivities"`
	PushTokens       []string    `json:"pushTokens,omitempty" bson:"pushTokens,omitempty"`
	CreatedAt        interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt        interface{} `json:"updatedAt" bson:"updatedAt"`
}

// HasJoined reports whether activityID is in the user's joined list
func (d UserDetails) HasJoined(activityID string) bool {
	for _, id := range d.JoinedActivities {
		if id == activityID {
			return true
		}
	}
	return false
}
