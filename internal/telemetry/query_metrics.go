// Package telemetry collects in-process query metrics. Everything
// stays local; nothing is reported externally.
package telemetry

import (
	"sync"
	"time"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is a single completed search call.
type QueryEvent struct {
	TenantID    string
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the query returned nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffer contents oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}
	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current item count.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	DegradedCount       int64                   `json:"degraded_count"`
	RerankedCount       int64                   `json:"reranked_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of zero-result queries.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetrics is a thread-safe in-memory metrics collector.
type QueryMetrics struct {
	mu sync.RWMutex

	latencies       map[LatencyBucket]int64
	zeroResults     *CircularBuffer[string]
	totalQueries    int64
	zeroResultCount int64
	degradedCount   int64
	rerankedCount   int64
	startTime       time.Time
}

// NewQueryMetrics creates an empty collector.
func NewQueryMetrics() *QueryMetrics {
	return &QueryMetrics{
		latencies:   make(map[LatencyBucket]int64),
		zeroResults: NewCircularBuffer[string](100),
		startTime:   time.Now(),
	}
}

// Record captures one completed query.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.latencies[LatencyToBucket(event.Latency)]++
	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
	}
}

// RecordDegraded counts a query that completed on a reduced-fidelity
// path (text index down, rerank service failed).
func (m *QueryMetrics) RecordDegraded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degradedCount++
}

// RecordReranked counts a query that went through the cross-encoder.
func (m *QueryMetrics) RecordReranked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rerankedCount++
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		DegradedCount:       m.degradedCount,
		RerankedCount:       m.rerankedCount,
		Since:               m.startTime,
	}
}
