package setfile

import (
	"encoding/binary"
	"io"
)

// fixedHeaderSize is the byte size of set_properties excluding the
// variable-length name (spec.md §6.1): block_num, created_time,
// modified_time, valid_record_num (4 x uint64) plus set_name_size (uint32).
const fixedHeaderSize = 4*8 + 4

// Header mirrors the set file's set_properties structure (spec.md §3.5).
type Header struct {
	BlockNum       uint64
	CreatedTime    uint64
	ModifiedTime   uint64
	ValidRecordNum uint64
	SetNameBytes   []byte
}

// Size returns the total header size on disk: the fixed portion plus the
// name bytes.
func (h Header) Size() int64 {
	return fixedHeaderSize + int64(len(h.SetNameBytes))
}

func readHeader(r io.ReaderAt) (Header, error) {
	fixed := make([]byte, fixedHeaderSize)
	if _, err := r.ReadAt(fixed, 0); err != nil {
		return Header{}, err
	}

	h := Header{
		BlockNum:       binary.LittleEndian.Uint64(fixed[0:8]),
		CreatedTime:    binary.LittleEndian.Uint64(fixed[8:16]),
		ModifiedTime:   binary.LittleEndian.Uint64(fixed[16:24]),
		ValidRecordNum: binary.LittleEndian.Uint64(fixed[24:32]),
	}

	nameSize := binary.LittleEndian.Uint32(fixed[32:36])
	if nameSize > 0 {
		name := make([]byte, nameSize)
		if _, err := r.ReadAt(name, fixedHeaderSize); err != nil {
			return Header{}, err
		}
		h.SetNameBytes = name
	}
	return h, nil
}

func writeHeader(w io.WriterAt, h Header) error {
	buf := make([]byte, fixedHeaderSize+len(h.SetNameBytes))
	binary.LittleEndian.PutUint64(buf[0:8], h.BlockNum)
	binary.LittleEndian.PutUint64(buf[8:16], h.CreatedTime)
	binary.LittleEndian.PutUint64(buf[16:24], h.ModifiedTime)
	binary.LittleEndian.PutUint64(buf[24:32], h.ValidRecordNum)
	binary.LittleEndian.PutUint32(buf[32:36], uint32(len(h.SetNameBytes)))
	copy(buf[36:], h.SetNameBytes)
	_, err := w.WriteAt(buf, 0)
	return err
}
