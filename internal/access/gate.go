package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keikapi/AIApp/internal/document"
	"github.com/keikapi/AIApp/internal/models"
	"github.com/keikapi/AIApp/internal/storage"
)

// ErrDenied is returned whenever the principal may not fetch the document's
// raw bytes. No side effects occur on denial.
var ErrDenied = errors.New("access denied")

// Grant is a minted, self-expiring capability for one document. It is never
// persisted; the signed URL carries the permission.
type Grant struct {
	DocumentID string    `json:"document_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
	IssuedTo   string    `json:"issued_to"`
}

// DocumentLookup resolves document metadata, including ownership.
type DocumentLookup interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// Gate decides whether a principal may fetch raw document bytes and mints a
// time-bounded signed URL when allowed. Ownership comes from the documents
// table, not from any property of the id itself.
type Gate struct {
	docs   DocumentLookup
	store  storage.Storage
	bucket string
	ttl    time.Duration
}

func NewGate(docs DocumentLookup, store storage.Storage, bucket string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Gate{docs: docs, store: store, bucket: bucket, ttl: ttl}
}

// Authorize issues a grant only when the principal owns the target document.
// Unknown documents are reported as denials so the caller learns nothing
// about ids it does not own.
func (g *Gate) Authorize(ctx context.Context, documentID, principal string) (*Grant, error) {
	doc, err := g.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDenied, documentID)
		}
		return nil, fmt.Errorf("resolve document: %w", err)
	}

	if doc.Owner != principal {
		return nil, fmt.Errorf("%w: %s", ErrDenied, documentID)
	}

	url, err := g.store.SignedURL(ctx, g.bucket, doc.ID, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign url: %w", err)
	}

	return &Grant{
		DocumentID: doc.ID,
		URL:        url,
		ExpiresAt:  time.Now().Add(g.ttl),
		IssuedTo:   principal,
	}, nil
}
