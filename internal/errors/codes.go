// Package errors provides structured error handling for kestrel.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (database, index files)
//   - 3XX: Retrieval backend errors
//   - 4XX: Query validation errors
//   - 5XX: Internal errors
package errors

// Category classifies errors by subsystem.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates database and index persistence errors.
	CategoryStorage Category = "STORAGE"
	// CategoryRetrieval indicates retrieval backend errors.
	CategoryRetrieval Category = "RETRIEVAL"
	// CategoryValidation indicates query validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreOpen    = "ERR_201_STORE_OPEN_FAILED"
	ErrCodeStoreQuery   = "ERR_202_STORE_QUERY_FAILED"
	ErrCodeIndexCorrupt = "ERR_203_INDEX_CORRUPT"
	ErrCodeIndexWrite   = "ERR_204_INDEX_WRITE_FAILED"

	// Retrieval errors (300-399)
	ErrCodeRetrieverTimeout     = "ERR_301_RETRIEVER_TIMEOUT"
	ErrCodeRetrieverUnavailable = "ERR_302_RETRIEVER_UNAVAILABLE"
	ErrCodeCircuitOpen          = "ERR_303_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"
	ErrCodeInvalidPrefix     = "ERR_404_INVALID_PREFIX"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeSuggestFailed   = "ERR_504_SUGGEST_FAILED"
	ErrCodeHistoryFailed   = "ERR_505_HISTORY_FAILED"
)

// categoryFromCode derives the category from the numeric portion of a code.
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
		return CategoryRetrieval
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeIndexCorrupt {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an error code represents a transient
// condition worth retrying.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRetrieverTimeout, ErrCodeRetrieverUnavailable:
		return true
	default:
		return false
	}
}
