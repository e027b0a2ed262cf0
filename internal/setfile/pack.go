package setfile

import "github.com/Mutationeme/faciledb/internal/block"

// packer packs a data item's serialized record stream into fixed-size block
// payloads (spec.md §4.3.1 step 2): a record header never straddles a block
// boundary, but the key and value bytes that follow it may.
type packer struct {
	payloadSize uint32

	cur         []byte
	curHeaders  uint32
	payloads    [][]byte
	headerCount []uint32
}

func newPacker(payloadSize uint32) *packer {
	return &packer{payloadSize: payloadSize}
}

// ensureHeaderRoom flushes the current block if it can't hold a full record
// header without straddling.
func (p *packer) ensureHeaderRoom() {
	if uint32(len(p.cur))+block.RecordHeaderSize > p.payloadSize {
		p.flush()
	}
}

func (p *packer) writeHeader(buf []byte) {
	p.cur = append(p.cur, buf...)
	p.curHeaders++
}

// writeBytes appends data to the current block, flushing and continuing
// into fresh blocks as needed. Key and value bytes are allowed to straddle.
func (p *packer) writeBytes(data []byte) {
	for len(data) > 0 {
		space := int(p.payloadSize) - len(p.cur)
		if space <= 0 {
			p.flush()
			space = int(p.payloadSize)
		}
		take := space
		if take > len(data) {
			take = len(data)
		}
		p.cur = append(p.cur, data[:take]...)
		data = data[take:]
	}
}

func (p *packer) flush() {
	padded := make([]byte, p.payloadSize)
	copy(padded, p.cur)
	p.payloads = append(p.payloads, padded)
	p.headerCount = append(p.headerCount, p.curHeaders)
	p.cur = nil
	p.curHeaders = 0
}

// finish flushes any partially filled trailing block and returns the
// completed block payloads alongside each one's record_properties_num.
func (p *packer) finish() ([][]byte, []uint32) {
	if len(p.cur) > 0 {
		p.flush()
	}
	return p.payloads, p.headerCount
}
