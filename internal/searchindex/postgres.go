package searchindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const pgUndefinedTable = "42P01"

// PostgresIndex keeps the collection in a pgvector-backed table. The table is
// not part of the schema migrations: it is created lazily by EnsureCollection
// so that a wiped collection heals on the next ingest.
type PostgresIndex struct {
	db         *pgxpool.Pool
	collection string
	dim        int
}

func NewPostgresIndex(db *pgxpool.Pool, collection string, dim int) *PostgresIndex {
	if collection == "" {
		collection = "search_documents"
	}
	if dim <= 0 {
		dim = 1536
	}
	return &PostgresIndex{db: db, collection: collection, dim: dim}
}

func (s *PostgresIndex) EnsureCollection(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			bucket TEXT NOT NULL DEFAULT '',
			source_key TEXT NOT NULL DEFAULT '',
			file_type TEXT NOT NULL DEFAULT '',
			indexed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.collection, s.dim))
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_fts ON %s
		 USING GIN (to_tsvector('english', content || ' ' || title || ' ' || description))`,
		s.collection, s.collection))
	if err != nil {
		return fmt.Errorf("create collection index %s: %w", s.collection, err)
	}

	return nil
}

func (s *PostgresIndex) Upsert(ctx context.Context, entry Entry) error {
	embedding := pgvector.NewVector(entry.Vector)

	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content, title, description, embedding, bucket, source_key, file_type, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = $2, title = $3, description = $4, embedding = $5,
			bucket = $6, source_key = $7, file_type = $8, indexed_at = $9`,
		s.collection),
		entry.ID, entry.Text, entry.Metadata.Title, entry.Metadata.Description, embedding,
		entry.Metadata.Bucket, entry.Metadata.SourceKey, entry.Metadata.FileType, entry.Metadata.Timestamp,
	)
	if err != nil {
		if isUndefinedTable(err) {
			return fmt.Errorf("%w: %s", ErrCollectionMissing, s.collection)
		}
		return fmt.Errorf("upsert entry %s: %w", entry.ID, err)
	}
	return nil
}

// Search ranks with the best score across the content, title and description
// fields, mirroring a best-fields multi-match.
func (s *PostgresIndex) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, content, title, description,
		       GREATEST(
		           ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)),
		           ts_rank(to_tsvector('english', title), plainto_tsquery('english', $1)),
		           ts_rank(to_tsvector('english', description), plainto_tsquery('english', $1))
		       ) AS score
		FROM %s
		WHERE to_tsvector('english', content || ' ' || title || ' ' || description)
		      @@ plainto_tsquery('english', $1)
		ORDER BY score DESC
		LIMIT $2`, s.collection),
		query, topK,
	)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionMissing, s.collection)
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Text, &h.Title, &h.Description, &h.Score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
