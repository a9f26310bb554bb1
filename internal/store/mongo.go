package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"qroute/internal/model"
)

const mongoPathsCollection = "paths"

// Mongo stores path records as documents keyed by path ID.
type Mongo struct {
	client *mongo.Client
	paths  *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Mongo{client: client, paths: client.Database(database).Collection(mongoPathsCollection)}, nil
}

// EnsureIndexes creates the listing index.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.paths.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	return err
}

func (m *Mongo) SavePath(ctx context.Context, rec model.PathRecord) (model.PathRecord, error) {
	rec = prepare(rec)
	_, err := m.paths.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	return rec, err
}

func (m *Mongo) GetPath(ctx context.Context, id string) (model.PathRecord, error) {
	var rec model.PathRecord
	err := m.paths.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.PathRecord{}, ErrNotFound
	}
	return rec, err
}

func (m *Mongo) ListPaths(ctx context.Context, cursor string, limit int) ([]model.PathRecord, string, error) {
	limit = pageLimit(limit)
	filter := bson.M{}
	if cursor != "" {
		last, err := m.GetPath(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		filter = bson.M{"$or": bson.A{
			bson.M{"createdAt": bson.M{"$lt": last.CreatedAt}},
			bson.M{"createdAt": last.CreatedAt, "_id": bson.M{"$lt": last.ID}},
		}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := m.paths.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", err
	}
	out := []model.PathRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, "", err
	}
	return out, nextCursor(out, limit), nil
}

func (m *Mongo) Ping(ctx context.Context) error { return m.client.Ping(ctx, readpref.Primary()) }

func (m *Mongo) Close() error { return m.client.Disconnect(context.Background()) }
