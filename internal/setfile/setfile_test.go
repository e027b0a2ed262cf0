package setfile

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mutationeme/faciledb/internal/types"
	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func openSet(t *testing.T, name string, payloadSize uint32) *Set {
	t.Helper()
	s, err := Load(&Config{
		Directory:           t.TempDir(),
		Name:                name,
		PayloadSize:         payloadSize,
		HeaderRetryTimeout:  time.Second,
		HeaderRetryInterval: time.Millisecond,
		Logger:              testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func uint32Record(key string, v uint32) types.Record {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return types.Record{Key: []byte(key), Value: buf, ValueType: valuetype.UINT32}
}

// TestInsertSingleBlock covers the single-block insert scenario (spec.md
// §8.3 Scenario A): one small fixed-size record fits in one block, with
// prev=0, next=0 chain terminators.
func TestInsertSingleBlock(t *testing.T) {
	s := openSet(t, "scenario_a", 64)

	dataTag, startBlock, err := s.Insert([]types.Record{uint32Record("age", 30)})
	require.NoError(t, err)
	require.EqualValues(t, 1, dataTag)
	require.EqualValues(t, 1, startBlock)
	require.EqualValues(t, 1, s.BlockNum())

	b, err := s.readBlock(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, b.DataTag)
	require.EqualValues(t, 0, b.PrevTag)
	require.EqualValues(t, 0, b.NextTag)
	require.EqualValues(t, 1, b.ValidRecordNum)
	require.EqualValues(t, 1, b.RecordPropertiesNum)
}

// TestInsertSpansMultipleBlocks covers Scenario B: a STRING value too large
// for one block's payload must chain across two blocks linked by
// prev/next tags.
func TestInsertSpansMultipleBlocks(t *testing.T) {
	s := openSet(t, "scenario_b", 50)

	value := strings.Repeat("x", 79)
	dataTag, startBlock, err := s.Insert([]types.Record{
		{Key: []byte("k"), Value: []byte(value), ValueType: valuetype.STRING},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, dataTag)
	require.EqualValues(t, 1, startBlock)
	require.EqualValues(t, 2, s.BlockNum(), "a 96-byte record in a 50-byte payload must span two blocks")

	first, err := s.readBlock(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, first.PrevTag)
	require.EqualValues(t, 2, first.NextTag)

	second, err := s.readBlock(2)
	require.NoError(t, err)
	require.EqualValues(t, 1, second.PrevTag)
	require.EqualValues(t, 0, second.NextTag)

	item, err := s.Reconstruct(startBlock)
	require.NoError(t, err)
	require.Len(t, item.Records, 1)
	require.Equal(t, value, string(item.Records[0].Value))
}

// TestInsertTwoIndependentChains covers Scenario C: two separate Insert
// calls produce two independently addressable chains.
func TestInsertTwoIndependentChains(t *testing.T) {
	s := openSet(t, "scenario_c", 64)

	tag1, start1, err := s.Insert([]types.Record{uint32Record("age", 10)})
	require.NoError(t, err)
	tag2, start2, err := s.Insert([]types.Record{uint32Record("age", 20)})
	require.NoError(t, err)

	require.NotEqual(t, tag1, tag2)
	require.NotEqual(t, start1, start2)

	item1, err := s.Reconstruct(start1)
	require.NoError(t, err)
	item2, err := s.Reconstruct(start2)
	require.NoError(t, err)

	require.EqualValues(t, 10, binary.LittleEndian.Uint32(item1.Records[0].Value))
	require.EqualValues(t, 20, binary.LittleEndian.Uint32(item2.Records[0].Value))
}

func TestSearchEqualFindsMatchingDataItem(t *testing.T) {
	s := openSet(t, "search", 64)

	_, _, err := s.Insert([]types.Record{uint32Record("age", 10)})
	require.NoError(t, err)
	_, _, err = s.Insert([]types.Record{uint32Record("age", 20)})
	require.NoError(t, err)
	_, _, err = s.Insert([]types.Record{uint32Record("age", 30)})
	require.NoError(t, err)

	probeVal := make([]byte, 4)
	binary.LittleEndian.PutUint32(probeVal, 20)
	results, err := s.SearchEqual(types.Probe{Key: []byte("age"), Value: probeVal, ValueType: valuetype.UINT32}, types.CompareEqual)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.EqualValues(t, 20, binary.LittleEndian.Uint32(results[0].Records[0].Value))
}

func TestDeleteEqualTombstonesOnlyMatchingChain(t *testing.T) {
	s := openSet(t, "delete", 64)

	_, start1, err := s.Insert([]types.Record{uint32Record("age", 10)})
	require.NoError(t, err)
	_, start2, err := s.Insert([]types.Record{uint32Record("age", 20)})
	require.NoError(t, err)

	probeVal := make([]byte, 4)
	binary.LittleEndian.PutUint32(probeVal, 10)
	n, err := s.DeleteEqual(types.Probe{Key: []byte("age"), Value: probeVal, ValueType: valuetype.UINT32})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	deletedItem, err := s.Reconstruct(start1)
	require.NoError(t, err)
	require.True(t, deletedItem.Deleted)

	survivorItem, err := s.Reconstruct(start2)
	require.NoError(t, err)
	require.False(t, survivorItem.Deleted)
	require.EqualValues(t, 20, binary.LittleEndian.Uint32(survivorItem.Records[0].Value))
}

func TestInsertRejectsEmptyRecordSet(t *testing.T) {
	s := openSet(t, "empty", 64)
	_, _, err := s.Insert(nil)
	require.Error(t, err)
}

func TestInsertRejectsWrongFixedSize(t *testing.T) {
	s := openSet(t, "badsize", 64)
	_, _, err := s.Insert([]types.Record{{Key: []byte("age"), Value: []byte{1, 2, 3}, ValueType: valuetype.UINT32}})
	require.Error(t, err)
}

func TestLoadReopensExistingSetFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Directory:           dir,
		Name:                "reopen",
		PayloadSize:         64,
		HeaderRetryTimeout:  time.Second,
		HeaderRetryInterval: time.Millisecond,
		Logger:              testLogger(),
	}

	s1, err := Load(cfg)
	require.NoError(t, err)
	_, _, err = s1.Insert([]types.Record{uint32Record("age", 1)})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Load(cfg)
	require.NoError(t, err)
	defer s2.Close()
	require.EqualValues(t, 1, s2.BlockNum())
}
