package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_CPUProfileWritesFile(t *testing.T) {
	// Given
	p := NewProfiler()
	path := filepath.Join(t.TempDir(), "cpu.prof")

	// When: a short profiling session
	cleanup, err := p.StartCPU(path)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		_ = i * i
	}
	cleanup()

	// Then: the profile file exists and is non-empty
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestProfiler_StartCPUTwiceFails(t *testing.T) {
	// Given: an active CPU profile
	p := NewProfiler()
	dir := t.TempDir()
	cleanup, err := p.StartCPU(filepath.Join(dir, "first.prof"))
	require.NoError(t, err)
	defer cleanup()

	// When / Then: the runtime rejects a second concurrent session
	_, err = NewProfiler().StartCPU(filepath.Join(dir, "second.prof"))
	assert.Error(t, err)
}

func TestProfiler_WriteHeapWritesFile(t *testing.T) {
	// Given
	p := NewProfiler()
	path := filepath.Join(t.TempDir(), "heap.prof")

	// When
	err := p.WriteHeap(path)

	// Then
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestProfiler_TraceWritesFile(t *testing.T) {
	// Given
	p := NewProfiler()
	path := filepath.Join(t.TempDir(), "trace.out")

	// When
	cleanup, err := p.StartTrace(path)
	require.NoError(t, err)
	cleanup()

	// Then
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestProfiler_InvalidPathFails(t *testing.T) {
	p := NewProfiler()

	_, err := p.StartCPU(filepath.Join(t.TempDir(), "missing", "cpu.prof"))
	assert.Error(t, err)

	err = p.WriteHeap(filepath.Join(t.TempDir(), "missing", "heap.prof"))
	assert.Error(t, err)
}
