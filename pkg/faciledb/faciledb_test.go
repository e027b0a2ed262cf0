package faciledb_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mutationeme/faciledb/pkg/faciledb"
	"github.com/Mutationeme/faciledb/pkg/options"
)

func openDB(t *testing.T, extra ...options.OptionFunc) *faciledb.Instance {
	t.Helper()
	opts := append([]options.OptionFunc{
		options.WithDirectory(t.TempDir()),
		options.WithIndexOrder(4),
	}, extra...)

	db, err := faciledb.Open(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func u32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

// TestInsertSingleBlock covers Scenario A (spec.md §8.3): a single
// fixed-size record round-trips through one block chain.
func TestInsertSingleBlock(t *testing.T) {
	db := openDB(t)

	tag, err := db.Insert("people", faciledb.Record{Key: []byte("age"), Value: u32(30), ValueType: faciledb.UINT32})
	require.NoError(t, err)
	require.EqualValues(t, 1, tag)

	items, err := db.SearchEqual("people",
		faciledb.Probe{Key: []byte("age"), Value: u32(30), ValueType: faciledb.UINT32}, faciledb.CompareEqual)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 1, items[0].Tag)
}

// TestInsertSpansMultipleBlocks covers Scenario B: a STRING value larger
// than one block's payload must chain across blocks and still reconstruct
// intact through the public API.
func TestInsertSpansMultipleBlocks(t *testing.T) {
	db := openDB(t, options.WithBlockPayloadSize(options.MinBlockPayloadSize))

	value := strings.Repeat("y", int(options.MinBlockPayloadSize)*2)
	_, err := db.Insert("docs", faciledb.Record{Key: []byte("body"), Value: []byte(value), ValueType: faciledb.STRING})
	require.NoError(t, err)

	items, err := db.SearchEqual("docs",
		faciledb.Probe{Key: []byte("body"), Value: []byte(value), ValueType: faciledb.STRING}, faciledb.CompareEqual)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, value, string(items[0].Records[0].Value))
}

// TestInsertMultipleDataItems covers Scenario D-style multi-insert: three
// inserts into the same set each succeed and are all independently
// searchable, each probe matching exactly one data item.
func TestInsertMultipleDataItems(t *testing.T) {
	db := openDB(t)

	ages := []uint32{10, 20, 30}
	for _, age := range ages {
		_, err := db.Insert("people", faciledb.Record{Key: []byte("age"), Value: u32(age), ValueType: faciledb.UINT32})
		require.NoError(t, err)
	}

	for _, age := range ages {
		items, err := db.SearchEqual("people",
			faciledb.Probe{Key: []byte("age"), Value: u32(age), ValueType: faciledb.UINT32}, faciledb.CompareEqual)
		require.NoError(t, err)
		require.Len(t, items, 1)
	}
}

// TestDeleteEqualPreservesUnrelatedRecords covers Scenario E: deleting
// records matching one probe must not affect data items that don't match.
func TestDeleteEqualPreservesUnrelatedRecords(t *testing.T) {
	db := openDB(t)

	_, err := db.Insert("people", faciledb.Record{Key: []byte("age"), Value: u32(10), ValueType: faciledb.UINT32})
	require.NoError(t, err)
	_, err = db.Insert("people", faciledb.Record{Key: []byte("age"), Value: u32(20), ValueType: faciledb.UINT32})
	require.NoError(t, err)

	n, err := db.DeleteEqual("people", faciledb.Probe{Key: []byte("age"), Value: u32(10), ValueType: faciledb.UINT32})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	remaining, err := db.SearchEqual("people",
		faciledb.Probe{Key: []byte("age"), Value: u32(20), ValueType: faciledb.UINT32}, faciledb.CompareEqual)
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	gone, err := db.SearchEqual("people",
		faciledb.Probe{Key: []byte("age"), Value: u32(10), ValueType: faciledb.UINT32}, faciledb.CompareEqual)
	require.NoError(t, err)
	require.Empty(t, gone)
}

// TestMakeRecordIndexAcceleratesSearchAndBacklogsExistingRecords covers
// Scenario F: MakeRecordIndex must pick up records inserted before the
// index existed (back-patching), and records inserted after must be
// indexed at Insert time, with both kinds of insert equally searchable
// through the same public API.
func TestMakeRecordIndexAcceleratesSearchAndBacklogsExistingRecords(t *testing.T) {
	db := openDB(t)

	_, err := db.Insert("people", faciledb.Record{Key: []byte("age"), Value: u32(10), ValueType: faciledb.UINT32})
	require.NoError(t, err)

	require.NoError(t, db.MakeRecordIndex("people", []byte("age"), faciledb.UINT32))

	_, err = db.Insert("people", faciledb.Record{Key: []byte("age"), Value: u32(20), ValueType: faciledb.UINT32})
	require.NoError(t, err)

	preIndex, err := db.SearchEqual("people",
		faciledb.Probe{Key: []byte("age"), Value: u32(10), ValueType: faciledb.UINT32}, faciledb.CompareEqual)
	require.NoError(t, err)
	require.Len(t, preIndex, 1, "MakeRecordIndex must back-patch records inserted before the index existed")

	postIndex, err := db.SearchEqual("people",
		faciledb.Probe{Key: []byte("age"), Value: u32(20), ValueType: faciledb.UINT32}, faciledb.CompareEqual)
	require.NoError(t, err)
	require.Len(t, postIndex, 1)

	require.NoError(t, db.MakeRecordIndex("people", []byte("age"), faciledb.UINT32), "re-creating an existing index must be a no-op, not an error")
}

func TestSetExistsReflectsInsertState(t *testing.T) {
	db := openDB(t)

	exists, err := db.SetExists("ghost")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = db.Insert("ghost", faciledb.Record{Key: []byte("k"), Value: u32(1), ValueType: faciledb.UINT32})
	require.NoError(t, err)

	exists, err = db.SetExists("ghost")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestInsertRequiresAtLeastOneRecord(t *testing.T) {
	db := openDB(t)
	_, err := db.Insert("people")
	require.Error(t, err)
}

func TestOpenRejectsNilIndexOptions(t *testing.T) {
	_, err := faciledb.Open(func(o *options.Options) { o.IndexOptions = nil })
	require.Error(t, err)
}
