package knowledge

import (
	"context"
	"time"
)

// Record is one stored slab of attachment text with its embedding metadata.
// Score is backend-specific (cosine distance for postgres, vector search
// score for mongo) and only meaningful for ordering within one query.
type Record struct {
	ID        string
	Content   string
	Score     float64
	CreatedAt time.Time
}

// VectorStore is the contract for the external vector-indexed store.
// Records are append-only from this service's perspective: nothing here
// deletes or deduplicates, so the store grows with every attachment-bearing
// request. Retention is the operator's concern.
type VectorStore interface {
	// Store writes one text+embedding record
	Store(ctx context.Context, content string, embedding []float32) error
	// Search returns the nearest records to the query embedding
	Search(ctx context.Context, embedding []float32, limit int) ([]Record, error)
	// Driver names the backend ("postgres" or "mongo") for logs and metrics
	Driver() string
	// Ping reports backend connectivity for health checks
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
