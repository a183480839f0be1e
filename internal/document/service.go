package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keikapi/AIApp/internal/models"
)

// ErrNotFound is returned when a document id has no metadata record.
var ErrNotFound = errors.New("document not found")

// Service persists document metadata. The raw bytes live in blob storage and
// the searchable text in the index; this table owns identity and ownership.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) Insert(ctx context.Context, doc *models.Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, filename, content_type, size_bytes, owner, title, description, tags, status, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Filename, doc.ContentType, doc.SizeBytes, doc.Owner,
		doc.Title, doc.Description, doc.Tags, doc.Status, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, filename, content_type, size_bytes, owner, vector_id, title, description, tags, status, uploaded_at
		 FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.Owner,
		&doc.VectorID, &doc.Title, &doc.Description, &doc.Tags, &doc.Status, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, filename, content_type, size_bytes, owner, vector_id, title, description, tags, status, uploaded_at
		 FROM documents WHERE owner = $1 ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`,
		owner, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.ContentType, &d.SizeBytes, &d.Owner,
			&d.VectorID, &d.Title, &d.Description, &d.Tags, &d.Status, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.db.Exec(ctx, "UPDATE documents SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *Service) SetVectorID(ctx context.Context, id, vectorID string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE documents SET vector_id = $1, status = $2 WHERE id = $3",
		vectorID, models.DocStatusIndexed, id,
	)
	if err != nil {
		return fmt.Errorf("update document vector id: %w", err)
	}
	return nil
}
