package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary: opening, reading, or writing a set file or an index
	// file.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints — an
	// invalid value type, a wrong value size for a fixed-size type, a nil
	// data item. This maps to spec.md §7's "Invalid input" row.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories: unexpected state-machine transitions, assertion
	// failures, programming errors that shouldn't occur during normal
	// operation (spec.md §7, "Unexpected state-machine transition").
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeNotReady represents spec.md §7's "Context not ready" row: the
	// process-wide context, or a handle's gate, is not in a state that
	// admits the requested operation.
	ErrorCodeNotReady ErrorCode = "NOT_READY"

	// ErrorCodeCorrupted represents spec.md §7's "Truncated or corrupt
	// on-disk structure" row — a header or node that fails a structural
	// sanity check on read.
	ErrorCodeCorrupted ErrorCode = "CORRUPT"

	// ErrorCodeUnsupported represents a request for functionality this
	// design explicitly excludes (spec.md §1 Non-goals): range scans,
	// composite-key indices, multi-insert transactions, and so on.
	ErrorCodeUnsupported ErrorCode = "UNSUPPORTED"
)

// Set-file and block-layer error codes extend the base taxonomy to handle
// the failure modes specific to FacileDB's block-chain storage (spec.md §4.2–§4.3).
const (
	// ErrorCodeChainCorrupted indicates that a data item's block chain is
	// structurally inconsistent — a broken next/prev link, a record header
	// that doesn't fit its declared size, a valid_record_num mismatch.
	ErrorCodeChainCorrupted ErrorCode = "CHAIN_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read a set
	// file's or index file's header. Headers contain the structural
	// metadata needed to interpret everything that follows.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading a block's or
	// node's payload after its header was read successfully.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeHeaderReadTimeout indicates the bounded retry-with-sleep
	// window for reading a peer-created set/index header (spec.md §4.3.5,
	// §4.4.3) was exceeded. Per spec.md §7 this is a fatal assertion: it
	// means a concurrent creator crashed mid-write.
	ErrorCodeHeaderReadTimeout ErrorCode = "HEADER_READ_TIMEOUT"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Index-specific error codes address the B+-tree index engine's failure
// modes (spec.md §4.4).
const (
	// ErrorCodeIndexCorrupted indicates the index's on-disk structure
	// violates one of spec.md §3.6/§8.1's invariants (non-existent
	// root_tag, leaf chain broken, internal-node child count mismatch).
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"

	// ErrorCodeIndexHeaderMismatch indicates an index file was opened
	// whose header key_bytes or index_id_type doesn't match what the
	// caller expected — the retry-then-reopen case of spec.md §4.4.3.
	ErrorCodeIndexHeaderMismatch ErrorCode = "INDEX_HEADER_MISMATCH"
)
