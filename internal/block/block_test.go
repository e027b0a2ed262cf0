package block

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	payload := []byte("0123456789abcdef")
	b := &Block{
		Tag:                 1,
		DataTag:             1,
		PrevTag:             0,
		NextTag:             2,
		CreatedTime:         1000,
		ModifiedTime:        1000,
		Deleted:             0,
		ValidRecordNum:      1,
		RecordPropertiesNum: 1,
		Payload:             payload,
	}

	var buf bytes.Buffer
	buf.Grow(int(Size(uint32(len(payload)))))
	buf.Write(make([]byte, Size(uint32(len(payload)))))

	require.NoError(t, Write(bytesWriterAt{&buf}, 0, b))

	got, err := Read(bytesReaderAt{buf.Bytes()}, 0, uint32(len(payload)))
	require.NoError(t, err)

	require.Equal(t, b.Tag, got.Tag)
	require.Equal(t, b.DataTag, got.DataTag)
	require.Equal(t, b.PrevTag, got.PrevTag)
	require.Equal(t, b.NextTag, got.NextTag)
	require.Equal(t, b.ValidRecordNum, got.ValidRecordNum)
	require.Equal(t, b.RecordPropertiesNum, got.RecordPropertiesNum)
	require.Equal(t, payload, got.Payload)
}

func TestOffsetIsOneBasedFromHeader(t *testing.T) {
	const headerSize = 36
	const payloadSize = 50
	blockSize := Size(payloadSize)

	require.EqualValues(t, headerSize, Offset(1, headerSize, blockSize))
	require.EqualValues(t, headerSize+blockSize, Offset(2, headerSize, blockSize))
}

func TestRecordHeaderRoundTrip(t *testing.T) {
	h := RecordHeader{Deleted: 0, KeySize: 2, ValueSize: 4, ValueType: 1}
	buf := make([]byte, RecordHeaderSize)
	WriteRecordHeader(buf, h)
	got := ReadRecordHeader(buf)
	require.Equal(t, h, got)
}

// bytesWriterAt/bytesReaderAt adapt a byte slice to io.WriterAt/io.ReaderAt
// without pulling in a real file for a pure serialization test.

type bytesWriterAt struct{ buf *bytes.Buffer }

func (w bytesWriterAt) WriteAt(p []byte, off int64) (int, error) {
	b := w.buf.Bytes()
	copy(b[off:], p)
	return len(p), nil
}

type bytesReaderAt struct{ data []byte }

func (r bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, r.data[off:])
	return n, nil
}
