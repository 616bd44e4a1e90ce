package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveTextIndex implements TextIndex on Bleve v2 with BM25 scoring.
// Tenant isolation is a keyword field conjunct on every query.
type BleveTextIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ TextIndex = (*BleveTextIndex)(nil)

// bleveChunk is the document shape Bleve indexes. Fields are stored so
// hits can be materialized without a second store lookup.
type bleveChunk struct {
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	Position   int    `json:"position"`
	Page       int    `json:"page"`
	// Metadata is stored as a JSON blob, never searched.
	MetadataJSON string `json:"metadata_json"`
}

// NewBleveTextIndex opens (or creates) a Bleve index. An empty path
// creates an in-memory index for testing. Corrupted on-disk indexes
// are cleared and recreated; callers must reindex afterwards.
func NewBleveTextIndex(path string) (*BleveTextIndex, error) {
	indexMapping := createChunkMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("text_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("text index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			slog.Info("text_index_cleared", slog.String("path", path))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("text_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("text index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create/open text index: %w", err)
	}

	return &BleveTextIndex{index: idx, path: path}, nil
}

func createChunkMapping() *mapping.IndexMappingImpl {
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true

	numField := bleve.NewNumericFieldMapping()
	numField.Store = true

	storedOnlyField := bleve.NewTextFieldMapping()
	storedOnlyField.Analyzer = keyword.Name
	storedOnlyField.Store = true
	storedOnlyField.Index = false

	chunkMapping := bleve.NewDocumentMapping()
	chunkMapping.AddFieldMappingsAt("content", contentField)
	chunkMapping.AddFieldMappingsAt("tenant_id", idField)
	chunkMapping.AddFieldMappingsAt("document_id", idField)
	chunkMapping.AddFieldMappingsAt("position", numField)
	chunkMapping.AddFieldMappingsAt("page", numField)
	chunkMapping.AddFieldMappingsAt("metadata_json", storedOnlyField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// validateIndexIntegrity checks a Bleve index directory before opening.
// Detects partial writes left behind by crashes during indexing.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Index adds or replaces chunks in one batch.
func (b *BleveTextIndex) Index(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, c := range chunks {
		doc := bleveChunk{
			TenantID:   c.TenantID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Position:   c.Position,
			Page:       c.Page,
		}
		if len(c.Metadata) > 0 {
			encoded, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for chunk %s: %w", c.ID, err)
			}
			doc.MetadataJSON = string(encoded)
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Query runs a match query on content conjoined with a tenant term filter.
func (b *BleveTextIndex) Query(ctx context.Context, tenantID, queryStr string, limit int) ([]*TextHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []*TextHit{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	tenantQuery := bleve.NewTermQuery(tenantID)
	tenantQuery.SetField("tenant_id")

	conj := bleve.NewConjunctionQuery([]query.Query{matchQuery, tenantQuery}...)

	req := bleve.NewSearchRequest(conj)
	req.Size = limit
	req.Fields = []string{"document_id", "content", "position", "page", "metadata_json"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	hits := make([]*TextHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		th := &TextHit{
			ChunkID:    hit.ID,
			DocumentID: stringField(hit.Fields, "document_id"),
			Content:    stringField(hit.Fields, "content"),
			Position:   intField(hit.Fields, "position"),
			Page:       intField(hit.Fields, "page"),
			Score:      hit.Score,
		}
		if raw := stringField(hit.Fields, "metadata_json"); raw != "" {
			// Metadata is best effort; a decode failure loses the map,
			// not the hit.
			_ = json.Unmarshal([]byte(raw), &th.Metadata)
		}
		hits = append(hits, th)
	}
	return hits, nil
}

// Delete removes chunks by id.
func (b *BleveTextIndex) Delete(ctx context.Context, tenantID string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// Count returns the number of indexed chunks across all tenants.
func (b *BleveTextIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	n, err := b.index.DocCount()
	return int(n), err
}

// Close closes the underlying Bleve index.
func (b *BleveTextIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func intField(fields map[string]interface{}, name string) int {
	if v, ok := fields[name].(float64); ok {
		return int(v)
	}
	return 0
}
