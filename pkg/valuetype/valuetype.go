// Package valuetype implements the FacileDB value-type registry: a closed
// enumeration of record value types, each carrying a declared size (or a
// dynamic-size sentinel) and a total comparator.
//
// The registry is modelled as a table of (size, comparator) pairs indexed by
// Type, not as virtual dispatch — the same approach the original C sources
// use via their X-macro type tables (record_value_type_table.h,
// index_id_type_table.h).
package valuetype

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Type enumerates the record value types FacileDB understands.
type Type uint32

const (
	Invalid Type = iota

	// UINT32 is a 4-byte unsigned integer, compared as unsigned.
	UINT32
	// STRING is a variable-length byte string, compared lexicographically
	// over its declared length.
	STRING
	// INT32 is a 4-byte two's-complement signed integer.
	INT32
	// UINT64 is an 8-byte unsigned integer.
	UINT64
	// INT64 is an 8-byte two's-complement signed integer.
	INT64
	// FLOAT is a 4-byte IEEE-754 single-precision float.
	FLOAT
	// DOUBLE is an 8-byte IEEE-754 double-precision float.
	DOUBLE
	// HASH is a 4-byte unsigned integer representing a prior hash of some
	// underlying bytes. It also doubles as the index-id type used for
	// dynamic-size (STRING) record values (see IDFor).
	HASH

	numTypes
)

// DynamicSize is the sentinel SizeOf returns for variable-size types.
//
// The original C headers define this sentinel inconsistently — some as 0,
// some as ~0u (see spec.md §9, "possibly-buggy source behaviour"). This
// rewrite picks 0, matching faciledb_record_value_type.h's definition.
const DynamicSize = 0

// CompareResult is the outcome of comparing two values of the same Type.
type CompareResult int

const (
	// RightGreater means the right-hand operand compares greater.
	RightGreater CompareResult = -1
	// Equal means both operands compare equal.
	Equal CompareResult = 0
	// LeftGreater means the left-hand operand compares greater.
	LeftGreater CompareResult = 1
)

type compareFunc func(a, b []byte) (CompareResult, error)

type entry struct {
	name    string
	size    uint32 // DynamicSize for variable-size types
	compare compareFunc
}

// table mirrors the original sources' X-macro type tables: one row per
// Type, naming its declared size and comparator together.
var table = map[Type]entry{
	UINT32: {"UINT32", 4, compareUint32},
	STRING: {"STRING", DynamicSize, compareString},
	INT32:  {"INT32", 4, compareInt32},
	UINT64: {"UINT64", 8, compareUint64},
	INT64:  {"INT64", 8, compareInt64},
	FLOAT:  {"FLOAT", 4, compareFloat32},
	DOUBLE: {"DOUBLE", 8, compareFloat64},
	HASH:   {"HASH", 4, compareUint32},
}

// Valid reports whether t names a known, non-invalid value type.
func Valid(t Type) bool {
	_, ok := table[t]
	return ok
}

// String returns the type's name, used in log fields and error details.
func (t Type) String() string {
	if e, ok := table[t]; ok {
		return e.name
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// SizeOf returns the type's declared byte size, and whether that size is
// dynamic (size-carried-out-of-band) rather than fixed.
func SizeOf(t Type) (size uint32, dynamic bool) {
	e, ok := table[t]
	if !ok {
		return 0, false
	}
	return e.size, e.size == DynamicSize
}

// SizeValid reports whether size is an acceptable byte length for a value
// of type t. Dynamic-size types accept any size; fixed-size types require
// an exact match.
func SizeValid(t Type, size uint32) bool {
	e, ok := table[t]
	if !ok {
		return false
	}
	if e.size == DynamicSize {
		return true
	}
	return size == e.size
}

// Compare returns the total-order comparison of a and b as values of type t.
func Compare(t Type, a, b []byte) (CompareResult, error) {
	e, ok := table[t]
	if !ok {
		return Equal, fmt.Errorf("valuetype: unknown type %d", t)
	}
	return e.compare(a, b)
}

func compareUint32(a, b []byte) (CompareResult, error) {
	if len(a) != 4 || len(b) != 4 {
		return Equal, fmt.Errorf("valuetype: UINT32/HASH value must be 4 bytes, got %d/%d", len(a), len(b))
	}
	av, bv := binary.LittleEndian.Uint32(a), binary.LittleEndian.Uint32(b)
	return compareOrdered(av, bv), nil
}

func compareInt32(a, b []byte) (CompareResult, error) {
	if len(a) != 4 || len(b) != 4 {
		return Equal, fmt.Errorf("valuetype: INT32 value must be 4 bytes, got %d/%d", len(a), len(b))
	}
	av := int32(binary.LittleEndian.Uint32(a))
	bv := int32(binary.LittleEndian.Uint32(b))
	return compareOrdered(av, bv), nil
}

func compareUint64(a, b []byte) (CompareResult, error) {
	if len(a) != 8 || len(b) != 8 {
		return Equal, fmt.Errorf("valuetype: UINT64 value must be 8 bytes, got %d/%d", len(a), len(b))
	}
	av, bv := binary.LittleEndian.Uint64(a), binary.LittleEndian.Uint64(b)
	return compareOrdered(av, bv), nil
}

func compareInt64(a, b []byte) (CompareResult, error) {
	if len(a) != 8 || len(b) != 8 {
		return Equal, fmt.Errorf("valuetype: INT64 value must be 8 bytes, got %d/%d", len(a), len(b))
	}
	av := int64(binary.LittleEndian.Uint64(a))
	bv := int64(binary.LittleEndian.Uint64(b))
	return compareOrdered(av, bv), nil
}

func compareFloat32(a, b []byte) (CompareResult, error) {
	if len(a) != 4 || len(b) != 4 {
		return Equal, fmt.Errorf("valuetype: FLOAT value must be 4 bytes, got %d/%d", len(a), len(b))
	}
	av := math.Float32frombits(binary.LittleEndian.Uint32(a))
	bv := math.Float32frombits(binary.LittleEndian.Uint32(b))
	return compareOrdered(av, bv), nil
}

func compareFloat64(a, b []byte) (CompareResult, error) {
	if len(a) != 8 || len(b) != 8 {
		return Equal, fmt.Errorf("valuetype: DOUBLE value must be 8 bytes, got %d/%d", len(a), len(b))
	}
	av := math.Float64frombits(binary.LittleEndian.Uint64(a))
	bv := math.Float64frombits(binary.LittleEndian.Uint64(b))
	return compareOrdered(av, bv), nil
}

// compareString compares lexicographically over the declared byte length,
// per spec.md §3.1.
func compareString(a, b []byte) (CompareResult, error) {
	switch bytes.Compare(a, b) {
	case 1:
		return LeftGreater, nil
	case -1:
		return RightGreater, nil
	default:
		return Equal, nil
	}
}

type ordered interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func compareOrdered[T ordered](a, b T) CompareResult {
	switch {
	case a > b:
		return LeftGreater
	case a < b:
		return RightGreater
	default:
		return Equal
	}
}

// IDFor derives the index id for a record value of the given type: the
// value itself for fixed-size types, or the xxhash of the value's bytes
// (reduced to 32 bits) for dynamic-size types such as STRING. It also
// returns the Type under which the id must be compared in the index
// (HASH for dynamic-size values, t unchanged otherwise).
//
// Any 32-bit non-cryptographic hash satisfies spec.md §1's string-hash
// requirement; xxhash is the corpus's standard choice (see
// darshanime-pebble/go.mod).
func IDFor(t Type, value []byte) (id []byte, idType Type, err error) {
	_, dynamic := SizeOf(t)
	if !dynamic {
		return value, t, nil
	}

	sum := xxhash.Sum64(value)
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(sum))
	return buf, HASH, nil
}
