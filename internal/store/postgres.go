package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDocumentStore implements DocumentStore on PostgreSQL.
// It shares the connection pool with the Postgres index adapters.
type PostgresDocumentStore struct {
	db *sql.DB
	// ownsDB is set when the store opened the connection itself and
	// should close it. A shared handle is left for the owner to close.
	ownsDB bool
}

var _ DocumentStore = (*PostgresDocumentStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	page_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id, created_at DESC);
`

// NewPostgresDocumentStore opens a connection and ensures the schema exists.
func NewPostgresDocumentStore(dsn string) (*PostgresDocumentStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresDocumentStore{db: db, ownsDB: true}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresDocumentStoreWithDB wraps an existing connection pool.
func NewPostgresDocumentStoreWithDB(db *sql.DB) (*PostgresDocumentStore, error) {
	s := &PostgresDocumentStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresDocumentStore) ensureSchema() error {
	if _, err := s.db.Exec(postgresSchema); err != nil {
		return fmt.Errorf("create documents schema: %w", err)
	}
	return nil
}

// GetDocuments fetches documents by id in one query using ANY($2).
func (s *PostgresDocumentStore) GetDocuments(ctx context.Context, tenantID string, ids []string) ([]*Document, error) {
	if len(ids) == 0 {
		return []*Document{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, file_name, page_count, created_at, updated_at
		 FROM documents WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SaveDocuments upserts documents in a single transaction.
func (s *PostgresDocumentStore) SaveDocuments(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents
		(id, tenant_id, name, file_name, page_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			file_name = EXCLUDED.file_name,
			page_count = EXCLUDED.page_count,
			updated_at = now()`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, d.TenantID, d.Name, d.FileName, d.PageCount); err != nil {
			return fmt.Errorf("save document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document by id within a tenant.
func (s *PostgresDocumentStore) DeleteDocument(ctx context.Context, tenantID, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE tenant_id = $1 AND id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// ListDocuments returns a tenant's documents, newest first.
func (s *PostgresDocumentStore) ListDocuments(ctx context.Context, tenantID string, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, file_name, page_count, created_at, updated_at
		 FROM documents WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Close closes the connection pool if this store opened it.
func (s *PostgresDocumentStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
