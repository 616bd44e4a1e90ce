package index

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
	"github.com/gofrs/flock"
)

// HNSWConfig configures the embedded vector index.
type HNSWConfig struct {
	Dimensions int
	M          int
	EfSearch   int
}

// ErrDimensionMismatch is returned when a vector's length does not
// match the configured embedding dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// chunkMeta is the per-chunk payload kept alongside the graph. The
// graph itself only knows uint64 keys and vectors.
type chunkMeta struct {
	ChunkID    string
	DocumentID string
	TenantID   string
	Content    string
	Position   int
	Page       int
	Metadata   map[string]string
}

// hnswSnapshot is the gob sidecar persisted next to the graph file.
type hnswSnapshot struct {
	IDMap   map[string]uint64
	Meta    map[uint64]chunkMeta
	NextKey uint64
	Config  HNSWConfig
}

// HNSWVectorIndex implements VectorIndex on a pure Go HNSW graph.
// Tenant filtering happens after the graph search, so queries overfetch
// to keep recall stable when tenants share the graph.
type HNSWVectorIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config HNSWConfig

	idMap   map[string]uint64
	meta    map[uint64]chunkMeta
	nextKey uint64

	closed bool
}

var _ VectorIndex = (*HNSWVectorIndex)(nil)

// tenantOverfetch is how many extra graph results to pull before tenant
// filtering. Graph results from other tenants are discarded.
const tenantOverfetch = 4

// NewHNSWVectorIndex creates an empty in-memory HNSW index.
func NewHNSWVectorIndex(cfg HNSWConfig) (*HNSWVectorIndex, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWVectorIndex{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		meta:   make(map[uint64]chunkMeta),
	}, nil
}

// Index adds or replaces chunks. Replacement uses lazy deletion: the
// old graph node is orphaned rather than removed, which avoids graph
// corruption when the last node would be deleted.
func (s *HNSWVectorIndex) Index(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	for _, c := range chunks {
		if len(c.Embedding) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(c.Embedding)}
		}
	}

	for _, c := range chunks {
		if existingKey, exists := s.idMap[c.ID]; exists {
			delete(s.meta, existingKey)
			delete(s.idMap, c.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[c.ID] = key
		s.meta[key] = chunkMeta{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			TenantID:   c.TenantID,
			Content:    c.Content,
			Position:   c.Position,
			Page:       c.Page,
			Metadata:   c.Metadata,
		}
	}

	return nil
}

// Query searches the graph and filters to the tenant.
func (s *HNSWVectorIndex) Query(ctx context.Context, tenantID string, embedding []float32, limit int, minSimilarity float64) ([]*VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if len(embedding) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(embedding)}
	}
	if s.graph.Len() == 0 || limit <= 0 {
		return []*VectorHit{}, nil
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)
	normalizeInPlace(query)

	nodes := s.graph.Search(query, limit*tenantOverfetch)

	hits := make([]*VectorHit, 0, limit)
	for _, node := range nodes {
		m, exists := s.meta[node.Key]
		if !exists || m.TenantID != tenantID {
			// Orphaned by lazy deletion, or another tenant's chunk.
			continue
		}

		distance := s.graph.Distance(query, node.Value)
		similarity := distanceToSimilarity(distance)
		if similarity < minSimilarity {
			continue
		}

		hits = append(hits, &VectorHit{
			ChunkID:    m.ChunkID,
			DocumentID: m.DocumentID,
			Content:    m.Content,
			Position:   m.Position,
			Page:       m.Page,
			Metadata:   m.Metadata,
			Similarity: similarity,
		})
		if len(hits) >= limit {
			break
		}
	}

	return hits, nil
}

// Delete removes chunks by id. Lazy deletion: graph nodes stay behind
// as orphans and are skipped at query time.
func (s *HNSWVectorIndex) Delete(ctx context.Context, tenantID string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	for _, id := range chunkIDs {
		key, exists := s.idMap[id]
		if !exists {
			continue
		}
		if m := s.meta[key]; m.TenantID != tenantID {
			continue
		}
		delete(s.meta, key)
		delete(s.idMap, id)
	}

	return nil
}

// Count returns the number of live chunks.
func (s *HNSWVectorIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Save persists the graph and metadata sidecar atomically. A file lock
// guards against concurrent writers from other processes.
func (s *HNSWVectorIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire save lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return s.saveSnapshot(path + ".meta")
}

func (s *HNSWVectorIndex) saveSnapshot(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}

	snap := hnswSnapshot{
		IDMap:   s.idMap,
		Meta:    s.meta,
		NextKey: s.nextKey,
		Config:  s.config,
	}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores a saved index. The metadata sidecar is loaded first
// because it carries the config the graph was built with.
func (s *HNSWVectorIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return fmt.Errorf("acquire load lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	var snap hnswSnapshot
	if err := gob.NewDecoder(metaFile).Decode(&snap); err != nil {
		_ = metaFile.Close()
		return fmt.Errorf("decode metadata: %w", err)
	}
	_ = metaFile.Close()

	s.idMap = snap.IDMap
	s.meta = snap.Meta
	s.nextKey = snap.NextKey
	s.config = snap.Config

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	return nil
}

// Close releases the graph.
func (s *HNSWVectorIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToSimilarity maps cosine distance [0, 2] onto [0, 1].
func distanceToSimilarity(distance float32) float64 {
	return 1.0 - float64(distance)/2.0
}
