package databases

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/activities-api/membership"
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

// getPaginatedOpts returns no limit when limit is zero
func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	if mp.limit <= 0 {
		return options.Find()
	}
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// idFilter matches documents keyed by either an ObjectID or a plain string id
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// notFound maps the driver's empty result onto the membership kind
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return membership.ErrNotFound
	}
	return err
}
