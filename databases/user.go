package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.User, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.User, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindOne(ctx context.Context, filter interface{}) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.User, error) {
	cursor, err := u.db.Collection(userName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *userDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return u.db.Collection(userName).UpdateOne(ctx, filter, update, opts...)
}

func (u *userDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return u.db.Collection(userName).UpdateMany(ctx, filter, update, opts...)
}

// UserStore is the mongo membership.UserStore. It only ever touches
// user.joinedActivities, the rest of the user document belongs to the identity side.
type UserStore struct {
	DB UserDatabase
}

// NewUserStore wraps a user database
func NewUserStore(db UserDatabase) *UserStore {
	return &UserStore{DB: db}
}

// Get implements membership.UserStore
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.DB.FindOne(ctx, idFilter(id))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// AddJoinedActivity implements membership.UserStore
func (s *UserStore) AddJoinedActivity(ctx context.Context, userID, activityID string) (bool, error) {
	return s.updateJoined(ctx, userID, bson.M{"$addToSet": bson.M{"user.joinedActivities": activityID}})
}

// RemoveJoinedActivity implements membership.UserStore
func (s *UserStore) RemoveJoinedActivity(ctx context.Context, userID, activityID string) (bool, error) {
	return s.updateJoined(ctx, userID, bson.M{"$pull": bson.M{"user.joinedActivities": activityID}})
}

// RemoveActivityFromAll implements membership.UserStore
func (s *UserStore) RemoveActivityFromAll(ctx context.Context, activityID string) (int64, error) {
	res, err := s.DB.UpdateMany(ctx,
		bson.M{"user.joinedActivities": activityID},
		bson.M{"$pull": bson.M{"user.joinedActivities": activityID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep activity from users: %w", err)
	}
	return res.ModifiedCount, nil
}

// ListWithJoined implements membership.UserStore
func (s *UserStore) ListWithJoined(ctx context.Context, page, limit int) ([]models.User, error) {
	opts := newMongoPaginate(limit, page).getPaginatedOpts()
	opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	opts.SetProjection(bson.M{"user.joinedActivities": 1})
	return s.DB.Find(ctx, bson.M{"user.joinedActivities.0": bson.M{"$exists": true}}, opts)
}

func (s *UserStore) updateJoined(ctx context.Context, userID string, update bson.M) (bool, error) {
	res, err := s.DB.UpdateOne(ctx, idFilter(userID), update)
	if err != nil {
		return false, fmt.Errorf("failed to update joined activities: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, membership.ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}
