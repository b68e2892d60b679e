package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moxigen/internal/types"
)

// Collection names match the crawler's layout.
const (
	collReadmeSamples = "readme_samples"
	collSFTSamples    = "sft_samples"
)

// MongoSource reads crawled repo records from the readme_samples collection
// and doubles as a SampleSink for finished SFT samples.
type MongoSource struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoSource(ctx context.Context, uri, dbName string) (*MongoSource, error) {
	if dbName == "" {
		dbName = "moxigen"
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: mongo ping: %w", err)
	}
	return &MongoSource{client: client, db: client.Database(dbName)}, nil
}

func (m *MongoSource) Read(ctx context.Context, skip, limit int) ([]types.RepoRecord, error) {
	opts := options.Find().SetSkip(int64(skip))
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := m.db.Collection(collReadmeSamples).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var out []types.RepoRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: mongo decode: %w", err)
	}
	return out, nil
}

// InsertSamples mirrors finished samples into sft_samples.
func (m *MongoSource) InsertSamples(ctx context.Context, samples []types.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	docs := make([]any, len(samples))
	for i, s := range samples {
		docs[i] = s
	}
	_, err := m.db.Collection(collSFTSamples).InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("store: mongo insert samples: %w", err)
	}
	return nil
}

// ExportSamples returns stored SFT samples, e.g. for re-splitting a past run.
func (m *MongoSource) ExportSamples(ctx context.Context, limit int) ([]types.Sample, error) {
	opts := options.Find()
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := m.db.Collection(collSFTSamples).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: mongo export: %w", err)
	}
	defer cur.Close(ctx)

	var out []types.Sample
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: mongo decode samples: %w", err)
	}
	return out, nil
}

func (m *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
