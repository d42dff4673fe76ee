package membership

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/linesmerrill/activities-api/models"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var validate = validator.New()

// CreateActivityInput is the payload of an activity creation request
type CreateActivityInput struct {
	Title       string         `json:"title" validate:"required,max=120"`
	Category    string         `json:"category" validate:"required,max=60"`
	Description string         `json:"description" validate:"max=4000"`
	ImageURL    string         `json:"imageUrl" validate:"omitempty,url"`
	Capacity    int            `json:"capacity" validate:"required,min=1"`
	Schedule    ScheduleInput  `json:"schedule"`
	Location    *LocationInput `json:"location,omitempty"`
	Price       *PriceInput    `json:"price,omitempty"`
}

// ScheduleInput carries the date as YYYY-MM-DD and optional HH:MM times
type ScheduleInput struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime   string `json:"endTime,omitempty" validate:"omitempty,datetime=15:04"`
}

// LocationInput is a latitude/longitude pair with an optional address
type LocationInput struct {
	Lat     float64 `json:"lat" validate:"min=-90,max=90"`
	Lng     float64 `json:"lng" validate:"min=-180,max=180"`
	Address string  `json:"address,omitempty" validate:"max=300"`
}

// PriceInput is an amount in minor units and an ISO currency code
type PriceInput struct {
	Amount   int64  `json:"amount" validate:"min=0"`
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

// UpdateActivityInput is a partial update, nil fields are left alone.
// Capacity is only here so a request trying to change it can be refused.
type UpdateActivityInput struct {
	Title       *string        `json:"title,omitempty" validate:"omitempty,min=1,max=120"`
	Category    *string        `json:"category,omitempty" validate:"omitempty,min=1,max=60"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=4000"`
	ImageURL    *string        `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Schedule    *ScheduleInput `json:"schedule,omitempty"`
	Location    *LocationInput `json:"location,omitempty"`
	Price       *PriceInput    `json:"price,omitempty"`
	Capacity    *int           `json:"capacity,omitempty"`
}

// InviteInput lists the users the creator wants to invite
type InviteInput struct {
	UserIDs []string `json:"userIds" validate:"max=100,dive,required,excludesall=.$"`
}

// RespondInput is the invited user's answer
type RespondInput struct {
	Decision string `json:"decision" validate:"required"`
}

func checkStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
		}
		return validationError("%s", strings.Join(msgs, "; "))
	}
	return validationError("%v", err)
}

func (s ScheduleInput) toModel() (models.Schedule, error) {
	date, err := time.Parse(dateLayout, s.Date)
	if err != nil {
		return models.Schedule{}, validationError("schedule.date must be YYYY-MM-DD")
	}
	if s.StartTime != "" && s.EndTime != "" {
		start, _ := time.Parse(clockLayout, s.StartTime)
		end, _ := time.Parse(clockLayout, s.EndTime)
		if !end.After(start) {
			return models.Schedule{}, validationError("schedule.endTime must be after schedule.startTime")
		}
	}
	return models.Schedule{
		Date:      date.UTC(),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}, nil
}

func (l *LocationInput) toModel() *models.Location {
	if l == nil {
		return nil
	}
	return models.NewPoint(l.Lat, l.Lng, l.Address)
}

func (p *PriceInput) toModel() *models.Price {
	if p == nil {
		return nil
	}
	return &models.Price{Amount: p.Amount, Currency: strings.ToLower(p.Currency)}
}

// newActivity validates in and builds the activity owned by creatorID
func newActivity(id, creatorID string, in CreateActivityInput, now time.Time) (*models.Activity, error) {
	if strings.TrimSpace(creatorID) == "" {
		return nil, validationError("creator is required")
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	schedule, err := in.Schedule.toModel()
	if err != nil {
		return nil, err
	}
	return &models.Activity{
		ID: id,
		Details: models.ActivityDetails{
			Title:        strings.TrimSpace(in.Title),
			Category:     strings.ToLower(strings.TrimSpace(in.Category)),
			Description:  in.Description,
			ImageURL:     in.ImageURL,
			Schedule:     schedule,
			Location:     in.Location.toModel(),
			Price:        in.Price.toModel(),
			CreatorID:    creatorID,
			Capacity:     in.Capacity,
			Participants: []string{creatorID},
			Invitations:  map[string]models.Invitation{},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}, nil
}

// check validates the patch without looking at any stored activity
func (in UpdateActivityInput) check() (*models.Schedule, error) {
	if in.Capacity != nil {
		return nil, validationError("capacity cannot be changed after creation")
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if in.Schedule == nil {
		return nil, nil
	}
	schedule, err := in.Schedule.toModel()
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// applyTo writes the patch onto the activity details
func (in UpdateActivityInput) applyTo(d *models.ActivityDetails, schedule *models.Schedule, now time.Time) {
	if in.Title != nil {
		d.Title = strings.TrimSpace(*in.Title)
	}
	if in.Category != nil {
		d.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.ImageURL != nil {
		d.ImageURL = *in.ImageURL
	}
	if schedule != nil {
		d.Schedule = *schedule
	}
	if in.Location != nil {
		d.Location = in.Location.toModel()
	}
	if in.Price != nil {
		d.Price = in.Price.toModel()
	}
	d.UpdatedAt = now
}
