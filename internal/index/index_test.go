package index

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func openIndex(t *testing.T, order int) *Index {
	t.Helper()
	idx, err := Load(&Config{
		Directory:           t.TempDir(),
		IndexSubdir:         "index",
		SetName:             "people",
		RecordKey:           []byte("age"),
		Order:               order,
		IDType:              valuetype.UINT32,
		HeaderRetryTimeout:  time.Second,
		HeaderRetryInterval: time.Millisecond,
		Logger:              testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func id32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func TestKeyConcatenatesSetAndRecordKey(t *testing.T) {
	require.Equal(t, "people_age", Key("people", []byte("age")))
}

func TestLoadRejectsOrderBelowThree(t *testing.T) {
	_, err := Load(&Config{
		Directory: t.TempDir(), IndexSubdir: "index", SetName: "s", RecordKey: []byte("k"),
		Order: 2, IDType: valuetype.UINT32, HeaderRetryTimeout: time.Second, HeaderRetryInterval: time.Millisecond,
		Logger: testLogger(),
	})
	require.Error(t, err)
}

func TestLoadRejectsDynamicIDType(t *testing.T) {
	_, err := Load(&Config{
		Directory: t.TempDir(), IndexSubdir: "index", SetName: "s", RecordKey: []byte("k"),
		Order: 4, IDType: valuetype.STRING, HeaderRetryTimeout: time.Second, HeaderRetryInterval: time.Millisecond,
		Logger: testLogger(),
	})
	require.Error(t, err)
}

func TestInsertAndSearchSingleLeaf(t *testing.T) {
	idx := openIndex(t, 4)

	require.NoError(t, idx.Insert(id32(10), Payload{DataTag: 1, StartBlock: 1}))
	require.NoError(t, idx.Insert(id32(20), Payload{DataTag: 2, StartBlock: 2}))
	require.NoError(t, idx.Insert(id32(5), Payload{DataTag: 3, StartBlock: 3}))

	results, err := idx.Search(id32(10))
	require.NoError(t, err)
	require.Equal(t, []Payload{{DataTag: 1, StartBlock: 1}}, results)

	results, err = idx.Search(id32(999))
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchReturnsAllMatchesForDuplicateID(t *testing.T) {
	idx := openIndex(t, 4)

	require.NoError(t, idx.Insert(id32(10), Payload{DataTag: 1, StartBlock: 1}))
	require.NoError(t, idx.Insert(id32(10), Payload{DataTag: 2, StartBlock: 2}))
	require.NoError(t, idx.Insert(id32(10), Payload{DataTag: 3, StartBlock: 3}))

	results, err := idx.Search(id32(10))
	require.NoError(t, err)
	require.Len(t, results, 3)
}

// TestInsertTriggersLeafSplit drives enough insertions into an order-3 tree
// (max 3 elements per node) to force a leaf split and root creation, then
// checks every inserted id is still reachable (spec.md §4.4.2).
func TestInsertTriggersLeafSplit(t *testing.T) {
	idx := openIndex(t, 3)

	values := []uint32{30, 10, 40, 20, 50, 25, 5}
	for i, v := range values {
		require.NoError(t, idx.Insert(id32(v), Payload{DataTag: uint64(i + 1), StartBlock: uint64(i + 1)}))
	}

	root, err := idx.readNode(idx.header.RootTag)
	require.NoError(t, err)
	require.False(t, root.isLeaf(), "enough inserts must have split the original leaf into a new root")

	for i, v := range values {
		results, err := idx.Search(id32(v))
		require.NoError(t, err)
		require.Contains(t, results, Payload{DataTag: uint64(i + 1), StartBlock: uint64(i + 1)})
	}
}

// TestLeafChainTraversesViaNextTag covers the B+-tree invariant (spec.md
// §3.6) that all leaves are linked by NextTag, left to right, once a split
// has occurred.
func TestLeafChainTraversesViaNextTag(t *testing.T) {
	idx := openIndex(t, 3)

	for _, v := range []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		require.NoError(t, idx.Insert(id32(v), Payload{DataTag: uint64(v), StartBlock: uint64(v)}))
	}

	var leaves []*Node
	tag := idx.header.RootTag
	for {
		n, err := idx.readNode(tag)
		require.NoError(t, err)
		if n.isLeaf() {
			leaves = append(leaves, n)
			break
		}
		tag = n.ChildTags[0]
	}
	for leaves[len(leaves)-1].NextTag != 0 {
		n, err := idx.readNode(leaves[len(leaves)-1].NextTag)
		require.NoError(t, err)
		leaves = append(leaves, n)
	}

	var seen []uint32
	for _, leaf := range leaves {
		for _, e := range leaf.Elements {
			seen = append(seen, binary.LittleEndian.Uint32(e.IndexID))
		}
	}
	require.Equal(t, []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seen, "leaf chain must yield ids in ascending order")
}

func TestLoadReopensExistingIndexFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Directory: dir, IndexSubdir: "index", SetName: "people", RecordKey: []byte("age"),
		Order: 4, IDType: valuetype.UINT32, HeaderRetryTimeout: time.Second, HeaderRetryInterval: time.Millisecond,
		Logger: testLogger(),
	}

	idx1, err := Load(cfg)
	require.NoError(t, err)
	require.NoError(t, idx1.Insert(id32(7), Payload{DataTag: 1, StartBlock: 1}))
	require.NoError(t, idx1.Close())

	idx2, err := Load(cfg)
	require.NoError(t, err)
	defer idx2.Close()

	results, err := idx2.Search(id32(7))
	require.NoError(t, err)
	require.Equal(t, []Payload{{DataTag: 1, StartBlock: 1}}, results)
}

func TestLoadDetectsIDTypeMismatch(t *testing.T) {
	dir := t.TempDir()
	base := Config{
		Directory: dir, IndexSubdir: "index", SetName: "people", RecordKey: []byte("age"),
		Order: 4, HeaderRetryTimeout: time.Second, HeaderRetryInterval: time.Millisecond, Logger: testLogger(),
	}

	cfg1 := base
	cfg1.IDType = valuetype.UINT32
	idx1, err := Load(&cfg1)
	require.NoError(t, err)
	require.NoError(t, idx1.Close())

	cfg2 := base
	cfg2.IDType = valuetype.INT32
	_, err = Load(&cfg2)
	require.Error(t, err)
}
