package valuetype

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeOfFixedAndDynamic(t *testing.T) {
	size, dynamic := SizeOf(UINT32)
	require.False(t, dynamic)
	require.EqualValues(t, 4, size)

	size, dynamic = SizeOf(STRING)
	require.True(t, dynamic)
	require.EqualValues(t, DynamicSize, size)
}

func TestSizeValid(t *testing.T) {
	require.True(t, SizeValid(UINT32, 4))
	require.False(t, SizeValid(UINT32, 8))
	require.True(t, SizeValid(STRING, 0))
	require.True(t, SizeValid(STRING, 1000))
	require.False(t, SizeValid(Invalid, 4))
}

func TestCompareUint32Ordering(t *testing.T) {
	a := make([]byte, 4)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(a, 1)
	binary.LittleEndian.PutUint32(b, 2)

	res, err := Compare(UINT32, a, b)
	require.NoError(t, err)
	require.Equal(t, RightGreater, res)

	res, err = Compare(UINT32, b, a)
	require.NoError(t, err)
	require.Equal(t, LeftGreater, res)

	res, err = Compare(UINT32, a, a)
	require.NoError(t, err)
	require.Equal(t, Equal, res)
}

func TestCompareInt32Signed(t *testing.T) {
	neg := make([]byte, 4)
	binary.LittleEndian.PutUint32(neg, uint32(int32(-5)))
	pos := make([]byte, 4)
	binary.LittleEndian.PutUint32(pos, uint32(int32(3)))

	res, err := Compare(INT32, neg, pos)
	require.NoError(t, err)
	require.Equal(t, RightGreater, res, "negative value must compare less than positive")
}

func TestCompareStringLexicographic(t *testing.T) {
	res, err := Compare(STRING, []byte("abc"), []byte("abd"))
	require.NoError(t, err)
	require.Equal(t, RightGreater, res)
}

func TestIDForFixedSizeReturnsValueItself(t *testing.T) {
	val := make([]byte, 4)
	binary.LittleEndian.PutUint32(val, 42)

	id, idType, err := IDFor(UINT32, val)
	require.NoError(t, err)
	require.Equal(t, UINT32, idType)
	require.Equal(t, val, id)
}

func TestIDForDynamicSizeHashesAndReportsHashType(t *testing.T) {
	id1, idType, err := IDFor(STRING, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, HASH, idType)
	require.Len(t, id1, 4)

	id2, _, err := IDFor(STRING, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, id1, id2, "hashing the same bytes must be deterministic")

	id3, _, err := IDFor(STRING, []byte("different"))
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestCompareWrongLengthIsError(t *testing.T) {
	_, err := Compare(UINT32, []byte{1, 2, 3}, []byte{1, 2, 3, 4})
	require.Error(t, err)
}
