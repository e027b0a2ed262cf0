package errors

// IndexError provides specialized error handling for index-related operations.
// This structure extends the base error system with index-specific context
// while properly supporting method chaining through all base error methods.
type IndexError struct {
	// Embed the base error to inherit all standard error functionality
	// including error chaining, structured details, and error codes.
	*baseError

	// indexKey identifies which index was being processed, i.e. the
	// concatenation of set name and record key (spec.md §4.3, "index key").
	indexKey string

	// nodeTag identifies which B+-tree node was involved in the error, if
	// applicable.
	nodeTag uint32

	// Describes what index operation was being performed when the
	// error occurred (e.g., "Search", "Insert", "Split"). This context
	// helps understand the system state and user actions that led to the error.
	operation string
}

// NewIndexError creates a new index-specific error with the provided context.
// This constructor follows the same pattern as other error types in the system,
// taking a causing error, error code, and descriptive message.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{
		baseError: NewBaseError(err, code, msg),
	}
}

// Override base error methods to return *IndexError instead of *baseError.

// WithMessage updates the error message while maintaining the IndexError type.
func (ie *IndexError) WithMessage(msg string) *IndexError {
	ie.baseError.WithMessage(msg)
	return ie
}

// WithCode sets the error code while preserving the IndexError type.
func (ie *IndexError) WithCode(code ErrorCode) *IndexError {
	ie.baseError.WithCode(code)
	return ie
}

// WithDetail adds contextual information while maintaining the IndexError type.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// Index-specific methods that add domain-specific context to the error.
// These methods enable comprehensive error reporting for index operations
// while maintaining the fluent interface pattern for readable error construction.

// WithIndexKey records which (set, record key) index was being processed
// when the error occurred.
func (ie *IndexError) WithIndexKey(indexKey string) *IndexError {
	ie.indexKey = indexKey
	return ie
}

// WithNodeTag captures which B+-tree node was involved in the error.
func (ie *IndexError) WithNodeTag(tag uint32) *IndexError {
	ie.nodeTag = tag
	return ie
}

// WithOperation records what index operation was being performed.
func (ie *IndexError) WithOperation(operation string) *IndexError {
	ie.operation = operation
	return ie
}

// Getter methods provide access to the IndexError-specific context.

// IndexKey returns the (set, record key) index identity involved in the error.
func (ie *IndexError) IndexKey() string {
	return ie.indexKey
}

// NodeTag returns the node tag associated with the error.
func (ie *IndexError) NodeTag() uint32 {
	return ie.nodeTag
}

// Operation returns the name of the operation that was being performed.
func (ie *IndexError) Operation() string {
	return ie.operation
}

// Helper functions for creating common index errors with appropriate context.

// NewIndexHeaderMismatchError creates an error for the case spec.md §4.4.3
// describes: an index file exists but its header key_bytes or
// index_id_type doesn't match what the caller expected.
func NewIndexHeaderMismatchError(indexKey string, cause error) *IndexError {
	return NewIndexError(cause, ErrorCodeIndexHeaderMismatch, "index header does not match expected key or id type").
		WithIndexKey(indexKey).
		WithOperation("Open")
}

// NewIndexCorruptionError creates an error for index corruption scenarios:
// a node whose invariants (spec.md §3.6, §8.1.6-7) don't hold.
func NewIndexCorruptionError(operation string, nodeTag uint32, cause error) *IndexError {
	return NewIndexError(cause, ErrorCodeIndexCorrupted, "index data structure corrupted").
		WithOperation(operation).
		WithNodeTag(nodeTag).
		WithDetail("corruption_detected", true)
}
