// Package knowledge persists document chunks and serves vector similarity
// queries over PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nexuslab/nexus/internal/log"
)

// searchTimeout bounds a single similarity query so a slow store cannot
// stall a turn.
const searchTimeout = 10 * time.Second

// Querier defines the database operations the store needs. The interface is
// defined here, by the consumer, so tests can substitute a mock for the pgx
// pool.
type Querier interface {
	// UpsertChunk inserts or replaces one chunk row.
	UpsertChunk(ctx context.Context, collection string, chunk Chunk) error

	// SearchChunks returns up to limit chunks of a collection ordered by
	// vector similarity, most similar first.
	SearchChunks(ctx context.Context, collection string, embedding pgvector.Vector, limit int) ([]Result, error)

	// CountChunks returns the number of chunks in a collection.
	CountChunks(ctx context.Context, collection string) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error
}

// Store manages one named collection of chunks.
// Safe for concurrent use.
type Store struct {
	queries    Querier
	collection string
	logger     log.Logger
}

// New creates a Store over the given querier, scoped to one collection name.
func New(queries Querier, collection string, logger log.Logger) *Store {
	return &Store{queries: queries, collection: collection, logger: logger}
}

// Add upserts chunks into the collection. Chunks must carry embeddings of
// VectorDimension width; the database rejects anything else.
func (s *Store) Add(ctx context.Context, chunks []Chunk) error {
	for _, chunk := range chunks {
		if err := s.queries.UpsertChunk(ctx, s.collection, chunk); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
		}
	}
	s.logger.Debug("chunks stored", "collection", s.collection, "count", len(chunks))
	return nil
}

// Search returns the k most similar chunks to the query embedding, most
// similar first.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	if k <= 0 {
		k = 5
	}
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := s.queries.SearchChunks(queryCtx, s.collection, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	return results, nil
}

// Count returns the number of chunks stored in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.queries.CountChunks(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.queries.Ping(ctx)
}

// PoolQuerier implements Querier over a pgx connection pool.
type PoolQuerier struct {
	pool *pgxpool.Pool
}

// NewPoolQuerier wraps a pgx pool as a Querier.
func NewPoolQuerier(pool *pgxpool.Pool) *PoolQuerier {
	return &PoolQuerier{pool: pool}
}

// UpsertChunk implements Querier.
func (q *PoolQuerier) UpsertChunk(ctx context.Context, collection string, chunk Chunk) error {
	embedding := pgvector.NewVector(chunk.Embedding)
	_, err := q.pool.Exec(ctx, `
		INSERT INTO chunks (id, collection, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
		chunk.ID, collection, chunk.Content, embedding)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// SearchChunks implements Querier using cosine distance.
func (q *PoolQuerier) SearchChunks(ctx context.Context, collection string, embedding pgvector.Vector, limit int) ([]Result, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT content, 1 - (embedding <=> $2) AS similarity
		FROM chunks
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		collection, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Content, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}

// CountChunks implements Querier.
func (q *PoolQuerier) CountChunks(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE collection = $1`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Ping implements Querier.
func (q *PoolQuerier) Ping(ctx context.Context) error {
	if err := q.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

var _ Querier = (*PoolQuerier)(nil)
