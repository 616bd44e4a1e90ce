// Package errors provides structured error handling for docsift.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors
//   - 3XX: Upstream service errors (embedding, reranking, indexes)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates document store and index storage errors.
	CategoryStorage Category = "STORAGE"
	// CategoryUpstream indicates errors from external services.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines how a failure affects the retrieval pipeline.
type Severity string

const (
	// SeverityFatal indicates a load-bearing failure: the search call fails.
	SeverityFatal Severity = "FATAL"
	// SeverityDegraded indicates a degradable failure: the pipeline falls
	// back to a reduced-fidelity path and the caller still gets results.
	SeverityDegraded Severity = "DEGRADED"
	// SeverityWarning indicates a tolerated gap (e.g. missing parent
	// document during enrichment).
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreUnavailable = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeDocumentMissing  = "ERR_202_DOCUMENT_MISSING"
	ErrCodeCorruptIndex     = "ERR_203_CORRUPT_INDEX"

	// Upstream errors (300-399). Embedding and vector-index failures are
	// load-bearing; text-index and reranker failures are degradable.
	ErrCodeEmbeddingFailed   = "ERR_301_EMBEDDING_FAILED"
	ErrCodeVectorQueryFailed = "ERR_302_VECTOR_QUERY_FAILED"
	ErrCodeTextQueryFailed   = "ERR_303_TEXT_QUERY_FAILED"
	ErrCodeRerankFailed      = "ERR_304_RERANK_FAILED"
	ErrCodeRerankUnavailable = "ERR_305_RERANK_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeTenantMissing     = "ERR_403_TENANT_MISSING"
	ErrCodeDimensionMismatch = "ERR_404_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode maps error codes onto the pipeline failure taxonomy.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeTextQueryFailed, ErrCodeRerankFailed, ErrCodeRerankUnavailable:
		return SeverityDegraded
	case ErrCodeDocumentMissing:
		return SeverityWarning
	default:
		return SeverityFatal
	}
}

// isRetryableCode reports whether an operation with this code may succeed
// on retry. Upstream network failures generally are; validation never is.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeVectorQueryFailed,
		ErrCodeTextQueryFailed, ErrCodeRerankFailed, ErrCodeStoreUnavailable:
		return true
	default:
		return false
	}
}
