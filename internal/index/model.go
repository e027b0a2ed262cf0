package index

import "encoding/binary"

// PayloadSize is the fixed size of an index element's payload (spec.md
// §3.6): the data tag and start block tag of the data item the element
// addresses, 16 bytes total.
const PayloadSize = 16

// Payload is what a leaf element points at: the data item a matching index
// id belongs to.
type Payload struct {
	DataTag    uint64
	StartBlock uint64
}

func (p Payload) encode() []byte {
	buf := make([]byte, PayloadSize)
	binary.LittleEndian.PutUint64(buf[0:8], p.DataTag)
	binary.LittleEndian.PutUint64(buf[8:16], p.StartBlock)
	return buf
}

func decodePayload(buf []byte) Payload {
	return Payload{
		DataTag:    binary.LittleEndian.Uint64(buf[0:8]),
		StartBlock: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// Element is one (index_id, payload) pair stored in a node (spec.md §3.6).
// Elements within a node are sorted non-decreasing by IndexID.
type Element struct {
	IndexID []byte
	Payload Payload
}
