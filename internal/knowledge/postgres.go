package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore keeps knowledge records in PostgreSQL with a pgvector
// embedding column. Schema lives in migrations/ and is applied with
// cmd/migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Store(ctx context.Context, content string, embedding []float32) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO knowledge_records (id, content, embedding, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), content, pgvector.NewVector(embedding), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting knowledge record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, embedding []float32, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, embedding <=> $1 AS distance, created_at
		 FROM knowledge_records
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Score, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning knowledge record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) Driver() string {
	return "postgres"
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
