// Package faciledb is the public entry point for embedding FacileDB:
// construct an *Instance against a data directory, then call Insert,
// SearchEqual, DeleteEqual, and MakeRecordIndex against it. It plays the
// role the teacher's pkg/ignite package plays: a thin, idiomatic Go
// wrapper around the internal engine that returns (result, error) pairs
// rather than the sentinel-buffer/zero-count convention spec.md §7
// describes for the original C API.
package faciledb

import (
	"context"
	"fmt"

	"github.com/Mutationeme/faciledb/internal/engine"
	"github.com/Mutationeme/faciledb/internal/types"
	"github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/logger"
	"github.com/Mutationeme/faciledb/pkg/options"
	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

// Re-export the domain vocabulary callers need, so a caller never has to
// import an internal package to build a Record or a Probe.
type (
	// Record is a single (key, value, type) triple to insert (spec.md §3.2).
	Record = types.Record
	// Probe is the (key, value, value_type) tuple passed to search/delete.
	Probe = types.Probe
	// DataItem is a reconstructed, ordered list of records.
	DataItem = types.DataItem
	// CompareMode selects equality or any-value matching for a probe.
	CompareMode = types.CompareMode
	// Type names a record value type from the value-type registry.
	Type = valuetype.Type
)

// CompareEqual and CompareAny mirror types.CompareMode's two values.
const (
	CompareEqual = types.CompareEqual
	CompareAny   = types.CompareAny
)

// Value types a Record or Probe may use, re-exported from pkg/valuetype.
const (
	UINT32 = valuetype.UINT32
	STRING = valuetype.STRING
	INT32  = valuetype.INT32
	UINT64 = valuetype.UINT64
	INT64  = valuetype.INT64
	FLOAT  = valuetype.FLOAT
	DOUBLE = valuetype.DOUBLE
	HASH   = valuetype.HASH
)

// Instance is a single open FacileDB database rooted at one data
// directory. An Instance is safe for concurrent use by multiple
// goroutines; the underlying engine, gate, and context layers provide the
// admission control spec.md §4.5 and §5 describe.
type Instance struct {
	eng *engine.Engine
}

// Open constructs an Instance, applying any OptionFuncs over the library
// defaults, and brings its process-wide context up to Ready. The caller
// must call Close when done.
func Open(opts ...options.OptionFunc) (*Instance, error) {
	cfg := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.IndexOptions == nil {
		return nil, errors.NewConfigurationValidationError("indexOptions", "must not be nil")
	}

	log := logger.New("faciledb")
	eng, err := engine.New(context.Background(), &engine.Config{Options: &cfg, Logger: log})
	if err != nil {
		return nil, err
	}
	return &Instance{eng: eng}, nil
}

// Close shuts the instance down, releasing its set and index handles.
func (i *Instance) Close() error {
	return i.eng.Close()
}

// SetExists reports whether a set with the given name already exists on
// disk.
func (i *Instance) SetExists(setName string) (bool, error) {
	return i.eng.SetExists(setName)
}

// Insert appends a new data item built from records to setName, creating
// the set on first use. It returns the new data item's data tag.
func (i *Instance) Insert(setName string, records ...Record) (dataTag uint64, err error) {
	if len(records) == 0 {
		return 0, errors.NewRequiredFieldError("records")
	}
	return i.eng.Insert(setName, records)
}

// SearchEqual returns every live data item in setName with a record
// matching probe under mode.
func (i *Instance) SearchEqual(setName string, probe Probe, mode CompareMode) ([]*DataItem, error) {
	return i.eng.SearchEqual(setName, probe, mode)
}

// DeleteEqual tombstones every live data item in setName with a record
// matching probe under CompareEqual, returning how many data items were
// affected.
func (i *Instance) DeleteEqual(setName string, probe Probe) (int, error) {
	return i.eng.DeleteEqual(setName, probe)
}

// MakeRecordIndex builds a secondary index over every record with the
// given key and value type in setName. It is a no-op if that index
// already exists.
func (i *Instance) MakeRecordIndex(setName string, recordKey []byte, valueType Type) error {
	return i.eng.MakeRecordIndex(setName, recordKey, valueType)
}

// String implements fmt.Stringer for debug logging.
func (i *Instance) String() string {
	return fmt.Sprintf("faciledb.Instance{%p}", i)
}
