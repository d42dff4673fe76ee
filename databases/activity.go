package databases

// go generate: mockery --name ActivityDatabase

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

const activityName = "activities"

// ActivityDatabase contains the methods to use with the activity database
type ActivityDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Activity, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Activity, error)
	InsertOne(ctx context.Context, activity models.Activity) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type activityDatabase struct {
	db DatabaseHelper
}

// NewActivityDatabase initializes a new instance of activity database with the provided db connection
func NewActivityDatabase(db DatabaseHelper) ActivityDatabase {
	return &activityDatabase{
		db: db,
	}
}

func (a *activityDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Activity, error) {
	activity := &models.Activity{}
	err := a.db.Collection(activityName).FindOne(ctx, filter, opts...).Decode(&activity)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func (a *activityDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Activity, error) {
	cursor, err := a.db.Collection(activityName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (a *activityDatabase) InsertOne(ctx context.Context, activity models.Activity) error {
	_, err := a.db.Collection(activityName).InsertOne(ctx, activity)
	return err
}

func (a *activityDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return a.db.Collection(activityName).UpdateOne(ctx, filter, update, opts...)
}

func (a *activityDatabase) DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error) {
	return a.db.Collection(activityName).DeleteOne(ctx, filter)
}

func (a *activityDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return a.db.Collection(activityName).CountDocuments(ctx, filter)
}

// ActivityStore is the mongo membership.ActivityStore. Writes are conditional
// on the __v field and bump it.
type ActivityStore struct {
	DB ActivityDatabase
}

// NewActivityStore wraps an activity database
func NewActivityStore(db ActivityDatabase) *ActivityStore {
	return &ActivityStore{DB: db}
}

// Insert implements membership.ActivityStore
func (s *ActivityStore) Insert(ctx context.Context, activity *models.Activity) error {
	activity.Version = 0
	if err := s.DB.InsertOne(ctx, *activity); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// Get implements membership.ActivityStore
func (s *ActivityStore) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, notFound(err)
	}
	return activity, nil
}

// Update implements membership.ActivityStore
func (s *ActivityStore) Update(ctx context.Context, activity *models.Activity) error {
	filter := bson.M{"_id": activity.ID, "__v": activity.Version}
	update := bson.M{
		"$set": bson.M{"activity": activity.Details},
		"$inc": bson.M{"__v": 1},
	}
	res, err := s.DB.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missedWrite(ctx, activity.ID)
	}
	activity.Version++
	return nil
}

// Delete implements membership.ActivityStore
func (s *ActivityStore) Delete(ctx context.Context, id string, version int64) error {
	res, err := s.DB.DeleteOne(ctx, bson.M{"_id": id, "__v": version})
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if res.DeletedCount == 0 {
		return s.missedWrite(ctx, id)
	}
	return nil
}

// List implements membership.ActivityStore
func (s *ActivityStore) List(ctx context.Context, filter membership.ActivityFilter) ([]models.Activity, error) {
	// invitation keys are user ids, a dotted id would address a nested field
	if strings.ContainsAny(filter.PendingInvitee, ".$") {
		return []models.Activity{}, nil
	}
	opts := newMongoPaginate(filter.Limit, filter.Page).getPaginatedOpts()
	opts.SetSort(bson.D{{Key: "activity.schedule.date", Value: 1}, {Key: "_id", Value: 1}})
	return s.DB.Find(ctx, activityQuery(filter), opts)
}

// missedWrite tells a version race apart from a deleted activity
func (s *ActivityStore) missedWrite(ctx context.Context, id string) error {
	n, err := s.DB.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return membership.ErrNotFound
	}
	return membership.ErrVersionConflict
}

func activityQuery(filter membership.ActivityFilter) bson.M {
	q := bson.M{}
	if filter.Category != "" {
		q["activity.category"] = strings.ToLower(filter.Category)
	}
	if filter.From != nil {
		q["activity.schedule.date"] = bson.M{"$gte": *filter.From}
	}
	if len(filter.IDs) > 0 {
		q["_id"] = bson.M{"$in": filter.IDs}
	}
	if filter.PendingInvitee != "" {
		q["activity.invitations."+filter.PendingInvitee+".status"] = models.InvitationPending
	}
	return q
}
