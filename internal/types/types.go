// Package types holds the domain model shared across FacileDB's layers:
// records, data items, and probes. It plays the role the teacher's
// per-package model.go files play (internal/index/model.go,
// internal/storage/model.go), lifted to package scope because the block,
// set-file, index, and engine layers all need the same vocabulary.
package types

import (
	"time"

	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

// Record is a single (key, value, type) triple (spec.md §3.2). Key is
// opaque to the store; Value must satisfy ValueType's declared size unless
// ValueType is a dynamic-size type.
type Record struct {
	Key       []byte
	Value     []byte
	ValueType valuetype.Type
}

// CompareMode selects how a probe value must relate to a candidate record's
// value during search or delete (spec.md §4.3.3).
type CompareMode int

const (
	// CompareEqual requires the candidate value to compare equal to the probe.
	CompareEqual CompareMode = iota
	// CompareAny accepts any value once key and type match.
	CompareAny
)

// Probe is the (key, value, value_type) tuple supplied to search and delete
// (spec.md GLOSSARY, "Probe record").
type Probe struct {
	Key       []byte
	Value     []byte
	ValueType valuetype.Type
}

// DataItem is an ordered list of records reconstructed from a block chain
// (spec.md §3.3), plus the block-level metadata search/scan callers need.
type DataItem struct {
	// Tag is the data item's 1-based, process-monotonic data tag.
	Tag uint64
	// Records are the item's live (non-tombstoned) records, in chain order.
	Records []Record
	// Deleted reflects the tombstone on the chain's blocks.
	Deleted bool
	// CreatedAt is the earliest created_time observed across the chain's blocks.
	CreatedAt time.Time
	// ModifiedAt is the latest modified_time observed across the chain's blocks.
	ModifiedAt time.Time
	// StartBlock is the first block's tag — the address used both to
	// reconstruct the item again and as half of an index payload.
	StartBlock uint64
}
