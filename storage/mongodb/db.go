package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/elimu/core"
)

const (
	coursesCollection       = "courses"
	notificationsCollection = "notifications"
)

// Open connects to the configured MongoDB deployment and makes sure the indexes exist.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, conf.Mongo.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(conf.Mongo.URI).
		SetAppName(conf.AppName).
		SetTimeout(conf.Mongo.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}

	db := client.Database(conf.Mongo.Name)
	if err = ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

// Close disconnects the database client.
func Close(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.Client().Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(coursesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "course_data._id", Value: 1}}},
		{Keys: bson.D{{Key: "reviews._id", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "creating courses indexes")
	}
	_, err = db.Collection(notificationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return errors.Wrap(err, "creating notifications indexes")
}
