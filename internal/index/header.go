package index

import (
	"encoding/binary"
	"io"
)

// fixedHeaderSize is index_properties excluding the variable-length key
// bytes (spec.md §6.2): tag_num, root_tag, index_id_type, key_size (4 x u32).
const fixedHeaderSize = 4 * 4

// Header mirrors the index file's index_properties structure (spec.md §3.6).
type Header struct {
	TagNum      uint32
	RootTag     uint32
	IndexIDType uint32
	KeyBytes    []byte
}

// Size returns the header's total on-disk size.
func (h Header) Size() int64 {
	return fixedHeaderSize + int64(len(h.KeyBytes))
}

func readHeader(r io.ReaderAt) (Header, error) {
	fixed := make([]byte, fixedHeaderSize)
	if _, err := r.ReadAt(fixed, 0); err != nil {
		return Header{}, err
	}

	h := Header{
		TagNum:      binary.LittleEndian.Uint32(fixed[0:4]),
		RootTag:     binary.LittleEndian.Uint32(fixed[4:8]),
		IndexIDType: binary.LittleEndian.Uint32(fixed[8:12]),
	}

	keySize := binary.LittleEndian.Uint32(fixed[12:16])
	if keySize > 0 {
		key := make([]byte, keySize)
		if _, err := r.ReadAt(key, fixedHeaderSize); err != nil {
			return Header{}, err
		}
		h.KeyBytes = key
	}
	return h, nil
}

func writeHeader(w io.WriterAt, h Header) error {
	buf := make([]byte, fixedHeaderSize+len(h.KeyBytes))
	binary.LittleEndian.PutUint32(buf[0:4], h.TagNum)
	binary.LittleEndian.PutUint32(buf[4:8], h.RootTag)
	binary.LittleEndian.PutUint32(buf[8:12], h.IndexIDType)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(h.KeyBytes)))
	copy(buf[16:], h.KeyBytes)
	_, err := w.WriteAt(buf, 0)
	return err
}
