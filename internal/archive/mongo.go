package archive

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

// RunsCollection holds one document per discovery run, keyed by run id.
const RunsCollection = "discovery_runs"

// MongoArchiver stores reports as documents.
type MongoArchiver struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewMongoArchiver connects, pings and ensures indexes.
func NewMongoArchiver(ctx context.Context, uri, database string) (*MongoArchiver, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	runs := cli.Database(database).Collection(RunsCollection)
	_, _ = runs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "partial", Value: 1}}},
	})
	return &MongoArchiver{client: cli, runs: runs}, nil
}

// Archive implements discovery.Archiver. Re-archiving a run replaces it.
func (a *MongoArchiver) Archive(ctx context.Context, r *discovery.Report) error {
	_, err := a.runs.ReplaceOne(ctx, bson.M{"_id": r.RunID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("archive run %s: %w", r.RunID, err)
	}
	return nil
}

// Close disconnects the client.
func (a *MongoArchiver) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
