package errors

import (
	std "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesClassification(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{ErrCodeStoreUnavailable, CategoryStorage, SeverityFatal, true},
		{ErrCodeDocumentMissing, CategoryStorage, SeverityWarning, false},
		{ErrCodeEmbeddingFailed, CategoryUpstream, SeverityFatal, true},
		{ErrCodeVectorQueryFailed, CategoryUpstream, SeverityFatal, true},
		{ErrCodeTextQueryFailed, CategoryUpstream, SeverityDegraded, true},
		{ErrCodeRerankFailed, CategoryUpstream, SeverityDegraded, true},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityFatal, false},
		{ErrCodeInternal, CategoryInternal, SeverityFatal, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestErrorStringIncludesCode(t *testing.T) {
	err := New(ErrCodeTextQueryFailed, "full-text index down", nil)
	assert.Equal(t, "[ERR_303_TEXT_QUERY_FAILED] full-text index down", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeVectorQueryFailed, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, std.Is(err, cause))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(ErrCodeRerankFailed, "first", nil)
	b := New(ErrCodeRerankFailed, "second", nil)
	c := New(ErrCodeRerankUnavailable, "other", nil)

	assert.True(t, std.Is(a, b))
	assert.False(t, std.Is(a, c))
}

func TestIsDegradable(t *testing.T) {
	assert.True(t, IsDegradable(New(ErrCodeTextQueryFailed, "x", nil)))
	assert.True(t, IsDegradable(New(ErrCodeRerankUnavailable, "x", nil)))
	assert.False(t, IsDegradable(New(ErrCodeVectorQueryFailed, "x", nil)))
	assert.False(t, IsDegradable(std.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeSearchFailed, "x", nil).
		WithDetail("tenant", "t1").
		WithDetail("query", "refund policy")

	assert.Equal(t, "t1", err.Details["tenant"])
	assert.Equal(t, "refund policy", err.Details["query"])
}
