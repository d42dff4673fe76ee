package models

import (
	"time"
)

// Activity holds the structure for the activity collection in mongo
type Activity struct {
	ID      string          `json:"_id" bson:"_id"`
	Details ActivityDetails `json:"activity" bson:"activity"`
	// Version is bumped on every write and guards compare-and-swap updates
	Version int64 `json:"__v" bson:"__v"`
}

// ActivityDetails holds the structure for the inner activity document
type ActivityDetails struct {
	Title        string                `json:"title" bson:"title"`
	Category     string                `json:"category" bson:"category"`
	Description  string                `json:"description" bson:"description"`
	ImageURL     string                `json:"imageUrl" bson:"imageUrl"`
	Schedule     Schedule              `json:"schedule" bson:"schedule"`
	Location     *Location             `json:"location,omitempty" bson:"location,omitempty"`
	Price        *Price                `json:"price,omitempty" bson:"price,omitempty"`
	CreatorID    string                `json:"creatorId" bson:"creatorId"`
	Capacity     int                   `json:"capacity" bson:"capacity"`
	Participants []string              `json:"participants" bson:"participants"`
	Invitations  map[string]Invitation `json:"invitations" bson:"invitations"`
	CreatedAt    time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// Schedule is the window an activity takes place in. Date is midnight UTC of the day,
// StartTime and EndTime are optional "15:04" clock times on that day.
type Schedule struct {
	Date      time.Time `json:"date" bson:"date"`
	StartTime string    `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime   string    `json:"endTime,omitempty" bson:"endTime,omitempty"`
}

// Location is a GeoJSON point plus a display address
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
}

// NewPoint builds a GeoJSON point, coordinates are stored longitude first
func NewPoint(lat, lng float64, address string) *Location {
	return &Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
		Address:     address,
	}
}

// Price is expressed in the currency's minor unit (cents for usd)
type Price struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// HasParticipant reports whether userID is counted against the capacity
func (d ActivityDetails) HasParticipant(userID string) bool {
	for _, p := range d.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// SpotsLeft returns how many more participants fit
func (d ActivityDetails) SpotsLeft() int {
	left := d.Capacity - len(d.Participants)
	if left < 0 {
		return 0
	}
	return left
}

// IsFull reports whether the participant list has reached capacity
func (d ActivityDetails) IsFull() bool {
	return len(d.Participants) >= d.Capacity
}

// IsPaid reports whether joining the activity has a price attached
func (d ActivityDetails) IsPaid() bool {
	return d.Price != nil && d.Price.Amount > 0
}
