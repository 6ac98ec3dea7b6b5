package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	featuresCollection = "features"
	metaCollection     = "catalog_meta"
	metaDocID          = "catalog"
)

// MongoStore persists the feature registry in the product's document store.
// Each feature is one document keyed by its feature key; a separate meta
// document carries a monotonically increasing catalog version.
type MongoStore struct {
	features *mongo.Collection
	meta     *mongo.Collection
}

// NewMongoStore creates a catalog store on the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		features: db.Collection(featuresCollection),
		meta:     db.Collection(metaCollection),
	}
}

func (s *MongoStore) Get(ctx context.Context, key string) (*Feature, error) {
	var f Feature
	err := s.features.FindOne(ctx, bson.M{"_id": key}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFeatureNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &f, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Feature, error) {
	cursor, err := s.features.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer cursor.Close(ctx)

	var result []Feature
	if err := cursor.All(ctx, &result); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return result, nil
}

func (s *MongoStore) Version(ctx context.Context) (string, error) {
	var doc struct {
		Version int64 `bson:"version"`
	}
	err := s.meta.FindOne(ctx, bson.M{"_id": metaDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "0", nil
		}
		return "", errors.Join(ErrStoreFailure, err)
	}
	return strconv.FormatInt(doc.Version, 10), nil
}

func (s *MongoStore) Put(ctx context.Context, f *Feature) error {
	if err := f.Validate(); err != nil {
		return err
	}

	stored := *f
	stored.UpdatedAt = time.Now().UTC()

	if _, err := s.features.ReplaceOne(ctx, bson.M{"_id": stored.Key}, stored,
		options.Replace().SetUpsert(true)); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	// Version bump is a separate write; a crash between the two leaves the
	// version behind by one, which only delays client cache refresh.
	_, err := s.meta.UpdateOne(ctx, bson.M{"_id": metaDocID},
		bson.M{"$inc": bson.M{"version": int64(1)}},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}
