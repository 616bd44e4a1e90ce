// Package store persists parent-document metadata used to enrich search
// results. The retrieval pipeline only ever reads documents in batches;
// the CRUD operations exist for the CLI and ingestion tooling.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document is a parent document whose chunks live in the indexes.
type Document struct {
	ID        string    // UUID
	TenantID  string    // Owning tenant; results never cross tenants
	Name      string    // Display name shown next to results
	FileName  string    // Original upload file name
	PageCount int       // 0 if unknown
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDocument creates a document with a fresh id and timestamps.
func NewDocument(tenantID, name, fileName string) *Document {
	now := time.Now()
	return &Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		FileName:  fileName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DocumentStore provides tenant-scoped access to document metadata.
type DocumentStore interface {
	// GetDocuments fetches documents by id in a single batch query.
	// Missing ids are silently absent from the result; callers tolerate
	// the gap (a document may be deleted while its chunks are in flight).
	GetDocuments(ctx context.Context, tenantID string, ids []string) ([]*Document, error)

	// SaveDocuments inserts or updates documents.
	SaveDocuments(ctx context.Context, docs []*Document) error

	// DeleteDocument removes a document by id within a tenant.
	DeleteDocument(ctx context.Context, tenantID, id string) error

	// ListDocuments returns a tenant's documents, newest first.
	ListDocuments(ctx context.Context, tenantID string, limit int) ([]*Document, error)

	// Close releases the underlying connection.
	Close() error
}
