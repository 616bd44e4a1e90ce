package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresIndex implements both VectorIndex and TextIndex on a single
// chunks table: pgvector cosine distance for semantic search and a
// generated tsvector column for keyword search. Both adapters share one
// connection pool so a hybrid query hits one database.
type PostgresIndex struct {
	db         *sql.DB
	dimensions int
	ownsDB     bool
}

var (
	_ VectorIndex = (*PostgresIndex)(nil)
	_ TextIndex   = (*textAdapter)(nil)
)

// NewPostgresIndex opens a connection and ensures the schema exists.
// Requires the pgvector extension to be installed.
func NewPostgresIndex(dsn string, dimensions int) (*PostgresIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	idx := &PostgresIndex{db: db, dimensions: dimensions, ownsDB: true}
	if err := idx.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// NewPostgresIndexWithDB wraps an existing connection pool.
func NewPostgresIndexWithDB(db *sql.DB, dimensions int) (*PostgresIndex, error) {
	idx := &PostgresIndex{db: db, dimensions: dimensions}
	if err := idx.ensureSchema(); err != nil {
		return nil, err
	}
	return idx, nil
}

// DB exposes the pool so the document store can share it.
func (p *PostgresIndex) DB() *sql.DB {
	return p.db
}

func (p *PostgresIndex) ensureSchema() error {
	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	document_id TEXT NOT NULL,
	content     TEXT NOT NULL,
	chunk_position INTEGER NOT NULL DEFAULT 0,
	page        INTEGER NOT NULL DEFAULT 0,
	metadata    JSONB NOT NULL DEFAULT '{}',
	embedding   vector(%d),
	content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
);
CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(tenant_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(tenant_id, document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON chunks USING GIN(content_tsv);
`, p.dimensions)

	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("create chunks schema: %w", err)
	}
	return nil
}

// Index upserts chunks with their embeddings.
func (p *PostgresIndex) Index(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		if len(c.Embedding) != p.dimensions {
			return ErrDimensionMismatch{Expected: p.dimensions, Got: len(c.Embedding)}
		}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(id, tenant_id, document_id, content, chunk_position, page, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			chunk_position = EXCLUDED.chunk_position,
			page = EXCLUDED.page,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta := c.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode metadata for chunk %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.TenantID, c.DocumentID,
			c.Content, c.Position, c.Page, metaJSON, pgvector.NewVector(c.Embedding)); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// Query returns the nearest chunks by cosine distance. The <=> operator
// yields distance in [0, 2]; similarity is 1 - distance/2.
func (p *PostgresIndex) Query(ctx context.Context, tenantID string, embedding []float32, limit int, minSimilarity float64) ([]*VectorHit, error) {
	if len(embedding) != p.dimensions {
		return nil, ErrDimensionMismatch{Expected: p.dimensions, Got: len(embedding)}
	}
	if limit <= 0 {
		return []*VectorHit{}, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_position, page, metadata,
		       1 - (embedding <=> $2) / 2 AS similarity
		FROM chunks
		WHERE tenant_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3`,
		tenantID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var hits []*VectorHit
	for rows.Next() {
		var h VectorHit
		var metaJSON []byte
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Content, &h.Position, &h.Page, &metaJSON, &h.Similarity); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		_ = json.Unmarshal(metaJSON, &h.Metadata)
		if h.Similarity < minSimilarity {
			continue
		}
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector hits: %w", err)
	}
	if hits == nil {
		hits = []*VectorHit{}
	}
	return hits, nil
}

// QueryText returns chunks matching the query ranked by ts_rank_cd.
// Named QueryText because Query is taken by the vector side; the
// TextIndex interface is satisfied through the textAdapter wrapper.
func (p *PostgresIndex) QueryText(ctx context.Context, tenantID, query string, limit int) ([]*TextHit, error) {
	if query == "" || limit <= 0 {
		return []*TextHit{}, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_position, page, metadata,
		       ts_rank_cd(content_tsv, plainto_tsquery('english', $2)) AS rank
		FROM chunks
		WHERE tenant_id = $1 AND content_tsv @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3`,
		tenantID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("text query: %w", err)
	}
	defer rows.Close()

	var hits []*TextHit
	for rows.Next() {
		var h TextHit
		var metaJSON []byte
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Content, &h.Position, &h.Page, &metaJSON, &h.Score); err != nil {
			return nil, fmt.Errorf("scan text hit: %w", err)
		}
		_ = json.Unmarshal(metaJSON, &h.Metadata)
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate text hits: %w", err)
	}
	if hits == nil {
		hits = []*TextHit{}
	}
	return hits, nil
}

// Delete removes chunks by id within a tenant.
func (p *PostgresIndex) Delete(ctx context.Context, tenantID string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, pq.Array(chunkIDs)); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// DeleteDocument removes all chunks belonging to a document.
func (p *PostgresIndex) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	return nil
}

// Close closes the pool if this index opened it.
func (p *PostgresIndex) Close() error {
	if !p.ownsDB {
		return nil
	}
	return p.db.Close()
}

// TextAdapter exposes the full-text side of the index as a TextIndex.
func (p *PostgresIndex) TextAdapter() TextIndex {
	return &textAdapter{p}
}

type textAdapter struct{ p *PostgresIndex }

func (a *textAdapter) Index(ctx context.Context, chunks []*Chunk) error {
	return a.p.Index(ctx, chunks)
}

func (a *textAdapter) Query(ctx context.Context, tenantID, query string, limit int) ([]*TextHit, error) {
	return a.p.QueryText(ctx, tenantID, query, limit)
}

func (a *textAdapter) Delete(ctx context.Context, tenantID string, chunkIDs []string) error {
	return a.p.Delete(ctx, tenantID, chunkIDs)
}

func (a *textAdapter) Close() error { return nil }
