package ledger

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage persists entries in a MongoDB collection. One collection
// plays the role of one ledger table; several entity types may share it.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a storage over the given database and collection
// name.
func NewMongoStorage(db *mongo.Database, collection string) (*MongoStorage, error) {
	if db == nil {
		return nil, ErrStorageNotAvailable
	}
	if collection == "" {
		return nil, ErrEmptyTableName
	}
	return &MongoStorage{coll: db.Collection(collection)}, nil
}

// Append stores one entry.
func (s *MongoStorage) Append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.coll.InsertOne(ctx, entry)
	return err
}

// Query returns entries matching the criteria, most recent first.
func (s *MongoStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if criteria.Limit > 0 {
		opts = opts.SetLimit(int64(criteria.Limit))
	}

	cursor, err := s.coll.Find(ctx, mongoFilter(criteria), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of entries matching the criteria.
func (s *MongoStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	return s.coll.CountDocuments(ctx, mongoFilter(criteria))
}

func mongoFilter(criteria Criteria) bson.M {
	filter := bson.M{}
	if criteria.OwnerType != "" {
		filter["owner_type"] = criteria.OwnerType
	}
	if criteria.OwnerID != "" {
		filter["owner_id"] = criteria.OwnerID
	}
	if criteria.Event != "" {
		filter["event"] = criteria.Event
	}
	if criteria.FromState != "" {
		filter["from_state"] = criteria.FromState
	}
	if criteria.ToState != "" {
		filter["to_state"] = criteria.ToState
	}

	createdAt := bson.M{}
	if !criteria.Since.IsZero() {
		createdAt["$gte"] = criteria.Since
	}
	if !criteria.Until.IsZero() {
		createdAt["$lte"] = criteria.Until
	}
	if len(createdAt) > 0 {
		filter["created_at"] = createdAt
	}
	return filter
}
