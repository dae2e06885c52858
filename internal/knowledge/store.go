package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds a single vector search so a slow query can never
// stall the caller beyond its own deadline.
const searchTimeout = 10 * time.Second

// Store implements Retriever backed by PostgreSQL + pgvector.
// Query text is embedded with the configured embedder and matched by cosine
// distance against the passages table.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewStore creates a Store.
// logger may be nil, in which case slog.Default is used.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}
}

// Search returns up to k passages from the given partition ranked by cosine
// similarity to query. Results are deduplicated by primary key and sorted
// descending by score at the database level.
func (s *Store) Search(ctx context.Context, partition Partition, query string, k int) ([]Passage, error) {
	if !partition.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartition, partition)
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k < 1 {
		k = 1
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM passages
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vec, string(partition), k)
	if err != nil {
		return nil, fmt.Errorf("searching partition %s: %w", partition, err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var (
			p        Passage
			metaJSON []byte
		)
		if err := rows.Scan(&p.ID, &p.Content, &metaJSON, &p.Score); err != nil {
			return nil, fmt.Errorf("scanning passage row: %w", err)
		}
		p.Partition = partition
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &p.Metadata); err != nil {
				s.logger.Warn("skipping malformed passage metadata", "id", p.ID, "error", err)
			}
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passage rows: %w", err)
	}

	s.logger.Debug("partition search complete",
		"partition", partition, "k", k, "hits", len(passages))
	return passages, nil
}

// Add embeds and upserts a document into its partition.
// Re-ingesting the same ID replaces content, embedding, and metadata.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if !doc.Partition.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPartition, doc.Partition)
	}
	if doc.Content == "" {
		return fmt.Errorf("document %q has no content", doc.ID)
	}

	vec, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO passages (id, namespace, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			namespace = EXCLUDED.namespace,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		doc.ID, string(doc.Partition), doc.Content, vec, metaJSON, createdAt)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document",
		"id", doc.ID, "partition", doc.Partition, "content_length", len(doc.Content))
	return nil
}

// Count returns the number of passages stored in a partition.
func (s *Store) Count(ctx context.Context, partition Partition) (int64, error) {
	if !partition.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPartition, partition)
	}
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM passages WHERE namespace = $1`, string(partition)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting partition %s: %w", partition, err)
	}
	return n, nil
}

// embed generates the vector for a single text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("embedder returned no vector")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

var _ Retriever = (*Store)(nil)
