package knowledge

import (
	"context"
	"errors"
	"time"

	"github.com/conduitchat/conduit/internal/config"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps knowledge records in a MongoDB Atlas collection with a
// vector search index named "vector_index" over the embedding field.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg *config.KnowledgeConfig) (*MongoStore, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("mongo uri is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
	}, nil
}

func (s *MongoStore) Store(ctx context.Context, content string, embedding []float32) error {
	doc := bson.M{
		"_id":        uuid.New().String(),
		"content":    content,
		"embedding":  float64Embedding(embedding),
		"created_at": time.Now().UTC(),
	}
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) Search(ctx context.Context, embedding []float32, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	// $vectorSearch requires an Atlas vector index over the embedding field
	pipeline := mongo.Pipeline{
		{
			{Key: "$vectorSearch", Value: bson.D{
				{Key: "index", Value: "vector_index"},
				{Key: "path", Value: "embedding"},
				{Key: "queryVector", Value: float64Embedding(embedding)},
				{Key: "numCandidates", Value: int64(limit * 10)},
				{Key: "limit", Value: int64(limit)},
			}},
		},
		{
			{Key: "$addFields", Value: bson.D{
				{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
			}},
		},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc struct {
			ID        string    `bson:"_id"`
			Content   string    `bson:"content"`
			Score     float64   `bson:"score"`
			CreatedAt time.Time `bson:"created_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, Record{
			ID:        doc.ID,
			Content:   doc.Content,
			Score:     doc.Score,
			CreatedAt: doc.CreatedAt,
		})
	}
	return records, cursor.Err()
}

func (s *MongoStore) Driver() string {
	return "mongo"
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Mongo stores float64 arrays; embeddings arrive as float32
func float64Embedding(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
