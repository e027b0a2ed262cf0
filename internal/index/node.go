package index

import "encoding/binary"

// Node mirrors one B+-tree node (spec.md §3.6). Level 0 is a leaf.
// ChildTags is meaningful only for internal nodes; Elements holds exactly
// Length populated entries in memory (encode/decode pad to the node's fixed
// on-disk capacity).
type Node struct {
	Tag       uint32
	Level     uint32
	Length    uint32
	ParentTag uint32
	NextTag   uint32
	ChildTags []uint32
	Elements  []Element
}

func (n *Node) isLeaf() bool { return n.Level == 0 }

// nodeSize returns the fixed on-disk size of a node for the given order and
// index-id byte length.
func nodeSize(order int, idSize uint32) int64 {
	fixed := int64(5 * 4)
	children := int64(order+1) * 4
	elements := int64(order) * (int64(idSize) + PayloadSize)
	return fixed + children + elements
}

func encodeNode(n *Node, order int, idSize uint32) []byte {
	buf := make([]byte, nodeSize(order, idSize))
	off := 0
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}

	putU32(n.Tag)
	putU32(n.Level)
	putU32(n.Length)
	putU32(n.ParentTag)
	putU32(n.NextTag)

	for i := 0; i < order+1; i++ {
		var tag uint32
		if i < len(n.ChildTags) {
			tag = n.ChildTags[i]
		}
		putU32(tag)
	}

	for i := 0; i < order; i++ {
		if i < len(n.Elements) {
			e := n.Elements[i]
			copy(buf[off:off+int(idSize)], e.IndexID)
			off += int(idSize)
			copy(buf[off:off+PayloadSize], e.Payload.encode())
			off += PayloadSize
		} else {
			off += int(idSize) + PayloadSize
		}
	}

	return buf
}

func decodeNode(buf []byte, order int, idSize uint32) *Node {
	off := 0
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		return v
	}

	n := &Node{}
	n.Tag = getU32()
	n.Level = getU32()
	n.Length = getU32()
	n.ParentTag = getU32()
	n.NextTag = getU32()

	n.ChildTags = make([]uint32, order+1)
	for i := range n.ChildTags {
		n.ChildTags[i] = getU32()
	}

	n.Elements = make([]Element, 0, n.Length)
	for i := 0; i < order; i++ {
		idBytes := make([]byte, idSize)
		copy(idBytes, buf[off:off+int(idSize)])
		off += int(idSize)
		payload := decodePayload(buf[off : off+PayloadSize])
		off += PayloadSize
		if uint32(i) < n.Length {
			n.Elements = append(n.Elements, Element{IndexID: idBytes, Payload: payload})
		}
	}

	return n
}
