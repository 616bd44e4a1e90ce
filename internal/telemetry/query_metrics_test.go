package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{250 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), "latency %v", tt.latency)
	}
}

func TestCircularBuffer_WrapsAtCapacity(t *testing.T) {
	// Given: a buffer of three
	buf := NewCircularBuffer[string](3)
	for i := 1; i <= 5; i++ {
		buf.Add(fmt.Sprintf("q%d", i))
	}

	// When / Then: only the newest three remain, oldest first
	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []string{"q3", "q4", "q5"}, buf.Items())
}

func TestCircularBuffer_EmptyReturnsEmptySlice(t *testing.T) {
	buf := NewCircularBuffer[int](4)

	items := buf.Items()

	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestQueryMetrics_RecordsCountsAndZeroResults(t *testing.T) {
	// Given
	m := NewQueryMetrics()

	// When: two hits and one zero-result query
	m.Record(QueryEvent{TenantID: "acme", Query: "refunds", ResultCount: 3, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{TenantID: "acme", Query: "retention", ResultCount: 1, Latency: 60 * time.Millisecond})
	m.Record(QueryEvent{TenantID: "acme", Query: "nonsense", ResultCount: 0, Latency: 8 * time.Millisecond})

	// Then
	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"nonsense"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP100])
	assert.InDelta(t, 100.0/3.0, snap.ZeroResultPercentage(), 0.01)
}

func TestQueryMetrics_DegradedAndRerankedCounters(t *testing.T) {
	m := NewQueryMetrics()

	m.RecordDegraded()
	m.RecordDegraded()
	m.RecordReranked()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.DegradedCount)
	assert.Equal(t, int64(1), snap.RerankedCount)
}

func TestQueryMetrics_ZeroResultPercentageWithNoQueries(t *testing.T) {
	m := NewQueryMetrics()

	assert.Zero(t, m.Snapshot().ZeroResultPercentage())
}
