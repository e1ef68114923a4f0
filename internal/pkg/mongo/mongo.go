package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName holds one document per registered cluster
const CollectionName = "clusters"

// Store is a MongoDB backed cluster registry
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
	now        func() time.Time
}

type clusterDocument struct {
	ObjectID       primitive.ObjectID `bson:"_id,omitempty"`
	cluster.Config `bson:",inline"`
	CreatedAt      time.Time `bson:"created_at"`
}

// NewStore connects to MongoDB and prepares the clusters collection
func NewStore(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(CollectionName)

	// Duplicate ids are allowed, so the cluster id index is not unique
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "id", Value: 1}},
		},
		{
			Keys: listSort(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	store := newStore(collection, logger)
	store.client = client

	return store, nil
}

func newStore(collection *mongo.Collection, logger *slog.Logger) *Store {
	return &Store{
		collection: collection,
		logger:     logger,
		now:        time.Now,
	}
}

// AddClusters inserts records in order. An empty slice is a no-op.
func (s *Store) AddClusters(ctx context.Context, clusters []cluster.Config) error {
	docs := newDocuments(clusters, s.now())
	if len(docs) == 0 {
		return nil
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to save clusters: %w", err)
	}

	s.logger.Info("Clusters stored", "count", len(docs))
	return nil
}

// ListClusters returns every stored record in insertion order
func (s *Store) ListClusters(ctx context.Context) ([]cluster.Config, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(listSort()))
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []clusterDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}

	return configsFromDocuments(docs), nil
}

// GetCluster returns the oldest record stored under clusterID
func (s *Store) GetCluster(ctx context.Context, clusterID string) (cluster.Config, bool, error) {
	var doc clusterDocument
	err := s.collection.FindOne(ctx, bson.M{"id": clusterID}, options.FindOne().SetSort(listSort())).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cluster.Config{}, false, nil
	}
	if err != nil {
		return cluster.Config{}, false, fmt.Errorf("database query error: %w", err)
	}

	return doc.Config, true, nil
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func listSort() bson.D {
	return bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	}
}

// newDocuments stamps every record with the same creation time; ObjectIDs keep
// the batch ordered.
func newDocuments(clusters []cluster.Config, now time.Time) []interface{} {
	docs := make([]interface{}, 0, len(clusters))
	for _, c := range clusters {
		docs = append(docs, clusterDocument{
			ObjectID:  primitive.NewObjectIDFromTimestamp(now),
			Config:    c,
			CreatedAt: now.UTC(),
		})
	}
	return docs
}

func configsFromDocuments(docs []clusterDocument) []cluster.Config {
	configs := make([]cluster.Config, len(docs))
	for i, doc := range docs {
		configs[i] = doc.Config
	}
	return configs
}
