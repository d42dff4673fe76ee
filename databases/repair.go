package databases

// go generate: mockery --name RepairDatabase

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

const repairName = "membership_repairs"

// RepairDatabase contains the methods to use with the membership repair database
type RepairDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.MembershipRepair, error)
	InsertOne(ctx context.Context, repair models.MembershipRepair) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type repairDatabase struct {
	db DatabaseHelper
}

// NewRepairDatabase initializes a new instance of repair database with the provided db connection
func NewRepairDatabase(db DatabaseHelper) RepairDatabase {
	return &repairDatabase{
		db: db,
	}
}

func (r *repairDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.MembershipRepair, error) {
	cursor, err := r.db.Collection(repairName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	repairs := []models.MembershipRepair{}
	if err := cursor.All(ctx, &repairs); err != nil {
		return nil, err
	}
	return repairs, nil
}

func (r *repairDatabase) InsertOne(ctx context.Context, repair models.MembershipRepair) error {
	_, err := r.db.Collection(repairName).InsertOne(ctx, repair)
	return err
}

func (r *repairDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.db.Collection(repairName).UpdateOne(ctx, filter, update, opts...)
}

// RepairLog is the mongo membership.RepairLog
type RepairLog struct {
	DB RepairDatabase
}

// NewRepairLog wraps a repair database
func NewRepairLog(db RepairDatabase) *RepairLog {
	return &RepairLog{DB: db}
}

// Record implements membership.RepairLog
func (l *RepairLog) Record(ctx context.Context, repair models.MembershipRepair) error {
	if err := l.DB.InsertOne(ctx, repair); err != nil {
		return fmt.Errorf("failed to record repair: %w", err)
	}
	return nil
}

// Pending implements membership.RepairLog, oldest first
func (l *RepairLog) Pending(ctx context.Context, limit int) ([]models.MembershipRepair, error) {
	opts := newMongoPaginate(limit, 1).getPaginatedOpts()
	opts.SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return l.DB.Find(ctx, bson.M{"resolvedAt": bson.M{"$exists": false}}, opts)
}

// Resolve implements membership.RepairLog
func (l *RepairLog) Resolve(ctx context.Context, id string, at time.Time) error {
	res, err := l.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"resolvedAt": at}})
	if err != nil {
		return fmt.Errorf("failed to resolve repair: %w", err)
	}
	if res.MatchedCount == 0 {
		return membership.ErrNotFound
	}
	return nil
}
