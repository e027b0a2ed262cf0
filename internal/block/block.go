// Package block implements FacileDB's Block Layer (spec.md §4.2): fixed-size
// block serialization, the block-tag-to-file-offset mapping, and the
// record-header framing records are packed into.
//
// Fields are written in declared order, one at a time, to keep on-disk
// layout independent of host struct padding (spec.md §4.2). Integers are
// little-endian; spec.md §9 leaves the source's original endianness
// ambiguous and recommends picking one explicitly.
package block

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed size, in bytes, of a block's header fields:
// block_tag, data_tag, prev_block_tag, next_block_tag, created_time,
// modified_time (6 x uint64) plus deleted, valid_record_num,
// record_properties_num (3 x uint32).
const HeaderSize = 6*8 + 3*4

// RecordHeaderSize is the fixed size, in bytes, of a record header: deleted,
// key_size, value_size, value_type (4 x uint32) — spec.md §6.1.
const RecordHeaderSize = 4 * 4

// Block is one fixed-size unit of a set file's body (spec.md §3.4).
type Block struct {
	Tag                 uint64
	DataTag             uint64
	PrevTag             uint64
	NextTag             uint64
	CreatedTime         uint64
	ModifiedTime        uint64
	Deleted             uint32
	ValidRecordNum      uint32
	RecordPropertiesNum uint32
	Payload             []byte
}

// Size returns the total on-disk size of a block whose payload is
// payloadSize bytes.
func Size(payloadSize uint32) int64 {
	return int64(HeaderSize) + int64(payloadSize)
}

// Offset returns the byte offset of block tag within a set file whose
// header occupies headerSize bytes and whose blocks are blockSize bytes
// each (spec.md §3.5): header_size + (block_tag - 1) * block_size.
//
// tag is 1-based; callers must not call Offset(0, ...).
func Offset(tag uint64, headerSize int64, blockSize int64) int64 {
	return headerSize + int64(tag-1)*blockSize
}

// RecordHeader is the fixed-width prefix of a record inside a block's
// payload (spec.md §6.1).
type RecordHeader struct {
	Deleted   uint32
	KeySize   uint32
	ValueSize uint32
	ValueType uint32
}

// Write serializes b to w at the given offset, field by field in declared
// order, so the on-disk layout never depends on host struct padding.
func Write(w io.WriterAt, offset int64, b *Block) error {
	buf := make([]byte, HeaderSize+len(b.Payload))
	n := 0
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[n:], v)
		n += 8
	}
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[n:], v)
		n += 4
	}

	putU64(b.Tag)
	putU64(b.DataTag)
	putU64(b.PrevTag)
	putU64(b.NextTag)
	putU64(b.CreatedTime)
	putU64(b.ModifiedTime)
	putU32(b.Deleted)
	putU32(b.ValidRecordNum)
	putU32(b.RecordPropertiesNum)
	copy(buf[n:], b.Payload)

	_, err := w.WriteAt(buf, offset)
	if err != nil {
		return fmt.Errorf("block: write at offset %d: %w", offset, err)
	}
	return nil
}

// Read deserializes the block at the given offset, with a payload of
// payloadSize bytes.
func Read(r io.ReaderAt, offset int64, payloadSize uint32) (*Block, error) {
	buf := make([]byte, HeaderSize+int(payloadSize))
	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("block: read at offset %d: %w", offset, err)
	}

	n := 0
	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[n:])
		n += 8
		return v
	}
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[n:])
		n += 4
		return v
	}

	b := &Block{}
	b.Tag = getU64()
	b.DataTag = getU64()
	b.PrevTag = getU64()
	b.NextTag = getU64()
	b.CreatedTime = getU64()
	b.ModifiedTime = getU64()
	b.Deleted = getU32()
	b.ValidRecordNum = getU32()
	b.RecordPropertiesNum = getU32()
	b.Payload = buf[n:]
	return b, nil
}

// WriteRecordHeader serializes a record header into dst[0:RecordHeaderSize].
func WriteRecordHeader(dst []byte, h RecordHeader) {
	binary.LittleEndian.PutUint32(dst[0:4], h.Deleted)
	binary.LittleEndian.PutUint32(dst[4:8], h.KeySize)
	binary.LittleEndian.PutUint32(dst[8:12], h.ValueSize)
	binary.LittleEndian.PutUint32(dst[12:16], h.ValueType)
}

// ReadRecordHeader deserializes a record header from src[0:RecordHeaderSize].
func ReadRecordHeader(src []byte) RecordHeader {
	return RecordHeader{
		Deleted:   binary.LittleEndian.Uint32(src[0:4]),
		KeySize:   binary.LittleEndian.Uint32(src[4:8]),
		ValueSize: binary.LittleEndian.Uint32(src[8:12]),
		ValueType: binary.LittleEndian.Uint32(src[12:16]),
	}
}
