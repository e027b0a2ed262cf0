// Package index implements FacileDB's Index Engine (spec.md §4.4): a
// disk-resident, leaf-linked B+-tree keyed by index id, one file per
// (set name, record key) pair.
//
// It generalizes the teacher's internal/index package — same Config/New/
// Close shape and zap-logging density — from an in-memory hash map over
// disk pointers into a disk-resident tree, since spec.md §3.6 requires the
// index itself to survive a restart rather than being rebuilt from the set
// file on every load.
package index

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Mutationeme/faciledb/internal/gate"
	faciledberrors "github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

// Extension is the on-disk suffix for index files (spec.md §6.2).
const Extension = ".faciledb_index"

// Key returns the index key for a (set name, record key) pair: the
// concatenation spec.md §6.2 and the GLOSSARY's "Index key" entry describe.
func Key(setName string, recordKey []byte) string {
	return setName + "_" + string(recordKey)
}

// Path returns the path an index for indexKey would live at, under
// directory/subdir.
func Path(directory, subdir, indexKey string) string {
	return filepath.Join(directory, subdir, indexKey+Extension)
}

// Exists reports whether an index file for indexKey already exists.
func Exists(directory, subdir, indexKey string) (bool, error) {
	_, err := os.Stat(Path(directory, subdir, indexKey))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Index is one open handle over an index file.
type Index struct {
	setName   string
	recordKey []byte
	indexKey  string
	path      string

	file   *os.File
	header Header
	order  int
	idType valuetype.Type
	idSize uint32

	gate *gate.Gate
	log  *zap.SugaredLogger
}

// Config encapsulates the parameters required to load or create an index file.
type Config struct {
	Directory           string
	IndexSubdir         string
	SetName             string
	RecordKey           []byte
	Order               int
	IDType              valuetype.Type
	HeaderRetryTimeout  time.Duration
	HeaderRetryInterval time.Duration
	Logger              *zap.SugaredLogger
}

// Load opens or creates the index file for (cfg.SetName, cfg.RecordKey)
// (spec.md §4.4.3), applying the same retry-with-timeout open used for set
// files (§4.3.5) when a peer may still be writing the header.
func Load(cfg *Config) (*Index, error) {
	if cfg == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("index: invalid configuration")
	}
	if cfg.Order < 3 {
		return nil, faciledberrors.NewFieldRangeError("order", cfg.Order, 3, nil)
	}

	indexKey := Key(cfg.SetName, cfg.RecordKey)
	idSize, dynamic := valuetype.SizeOf(cfg.IDType)
	if dynamic {
		return nil, faciledberrors.NewValidationError(nil, faciledberrors.ErrorCodeInvalidInput, "index id type must be fixed-size").
			WithField("idType").WithProvided(cfg.IDType.String())
	}

	path := Path(cfg.Directory, cfg.IndexSubdir, indexKey)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, faciledberrors.ClassifyDirectoryCreationError(err, filepath.Dir(path))
	}

	cfg.Logger.Infow("loading index file", "indexKey", indexKey, "path", path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	switch {
	case err == nil:
		keyBytes := []byte(indexKey)
		header := Header{TagNum: 1, RootTag: 1, IndexIDType: uint32(cfg.IDType), KeyBytes: keyBytes}
		if err := writeHeader(file, header); err != nil {
			file.Close()
			return nil, faciledberrors.NewStorageError(err, faciledberrors.ErrorCodeIO, "failed to write initial index header").
				WithFileName(indexKey).WithPath(path)
		}

		idx := newIndex(cfg, file, header, indexKey, path, idSize)
		root := &Node{Tag: 1, Level: 0, Length: 0, ParentTag: 0, NextTag: 0, ChildTags: make([]uint32, cfg.Order+1)}
		if err := idx.writeNode(root); err != nil {
			file.Close()
			return nil, err
		}

		cfg.Logger.Infow("created new index file", "indexKey", indexKey, "path", path)
		return idx, nil

	case stdErrors.Is(err, os.ErrExist):
		existing, err := os.OpenFile(path, os.O_RDWR, 0644)
		if err != nil {
			return nil, faciledberrors.ClassifySetFileOpenError(err, path, indexKey)
		}

		header, err := waitForHeader(existing, indexKey, cfg)
		if err != nil {
			existing.Close()
			return nil, err
		}
		if header.IndexIDType != uint32(cfg.IDType) {
			existing.Close()
			return nil, faciledberrors.NewIndexHeaderMismatchError(indexKey, nil)
		}

		cfg.Logger.Infow("opened existing index file", "indexKey", indexKey, "path", path, "tagNum", header.TagNum)
		return newIndex(cfg, existing, header, indexKey, path, idSize), nil

	default:
		return nil, faciledberrors.ClassifySetFileOpenError(err, path, indexKey)
	}
}

func waitForHeader(f *os.File, indexKey string, cfg *Config) (Header, error) {
	deadline := time.Now().Add(cfg.HeaderRetryTimeout)
	for {
		header, err := readHeader(f)
		if err == nil && string(header.KeyBytes) == indexKey {
			return header, nil
		}

		if time.Now().After(deadline) {
			return Header{}, faciledberrors.NewStorageError(
				err, faciledberrors.ErrorCodeHeaderReadTimeout,
				"timed out waiting for a concurrently-created index header to become readable",
			).WithFileName(indexKey).WithPath(f.Name())
		}
		time.Sleep(cfg.HeaderRetryInterval)
	}
}

func newIndex(cfg *Config, file *os.File, header Header, indexKey, path string, idSize uint32) *Index {
	return &Index{
		setName:   cfg.SetName,
		recordKey: cfg.RecordKey,
		indexKey:  indexKey,
		path:      path,
		file:      file,
		header:    header,
		order:     cfg.Order,
		idType:    cfg.IDType,
		idSize:    idSize,
		gate:      gate.New(indexKey, file, cfg.Logger),
		log:       cfg.Logger,
	}
}

// Close releases the underlying file handle. Callers must have drained the
// gate (CloseWait) before calling Close.
func (idx *Index) Close() error {
	idx.log.Infow("closing index file", "indexKey", idx.indexKey)
	return idx.file.Close()
}

// Gate exposes the index's concurrency gate to the engine coordinator.
func (idx *Index) Gate() *gate.Gate { return idx.gate }

func (idx *Index) nodeOffset(tag uint32) int64 {
	return idx.header.Size() + int64(tag-1)*nodeSize(idx.order, idx.idSize)
}

func (idx *Index) readNode(tag uint32) (*Node, error) {
	buf := make([]byte, nodeSize(idx.order, idx.idSize))
	if _, err := idx.file.ReadAt(buf, idx.nodeOffset(tag)); err != nil {
		return nil, faciledberrors.NewIndexError(err, faciledberrors.ErrorCodePayloadReadFailure, "failed to read index node").
			WithIndexKey(idx.indexKey).WithNodeTag(tag)
	}
	return decodeNode(buf, idx.order, idx.idSize), nil
}

func (idx *Index) writeNode(n *Node) error {
	buf := encodeNode(n, idx.order, idx.idSize)
	if _, err := idx.file.WriteAt(buf, idx.nodeOffset(n.Tag)); err != nil {
		return faciledberrors.NewIndexError(err, faciledberrors.ErrorCodeIO, "failed to write index node").
			WithIndexKey(idx.indexKey).WithNodeTag(n.Tag)
	}
	return nil
}

func (idx *Index) persistHeader() error {
	if err := writeHeader(idx.file, idx.header); err != nil {
		return faciledberrors.NewStorageError(err, faciledberrors.ErrorCodeIO, "failed to persist index header").
			WithFileName(idx.indexKey).WithPath(idx.path)
	}
	return nil
}

func (idx *Index) allocTag() uint32 {
	idx.header.TagNum++
	return idx.header.TagNum
}

func (idx *Index) cmp(a, b []byte) (valuetype.CompareResult, error) {
	return valuetype.Compare(idx.idType, a, b)
}

// descendToLeaf walks from tag to the leaf that should contain id, per
// spec.md §4.4.1's descent rule (shared by search and insert).
func (idx *Index) descendToLeaf(tag uint32, id []byte) (uint32, error) {
	for {
		node, err := idx.readNode(tag)
		if err != nil {
			return 0, err
		}
		if node.isLeaf() {
			return tag, nil
		}

		pos := len(node.Elements)
		for p, e := range node.Elements {
			cmp, err := idx.cmp(e.IndexID, id)
			if err != nil {
				return 0, err
			}
			if cmp != valuetype.RightGreater {
				pos = p
				break
			}
		}
		tag = node.ChildTags[pos]
	}
}

// Search returns every payload whose index id compares equal to id
// (spec.md §4.4.1), walking across leaves via NextTag when an equal run
// straddles a leaf boundary. Descent sends an id equal to a separator key
// into the subtree left of that separator, so when the leaf reached holds
// only smaller ids the scan moves on to the next leaf. An empty result with
// a nil error means no match.
func (idx *Index) Search(id []byte) ([]Payload, error) {
	if idx.header.RootTag == 0 {
		return nil, nil
	}

	leafTag, err := idx.descendToLeaf(idx.header.RootTag, id)
	if err != nil {
		return nil, err
	}

	var results []Payload
	first := true
	for leafTag != 0 {
		leaf, err := idx.readNode(leafTag)
		if err != nil {
			return results, err
		}

		start := 0
		if first {
			start = len(leaf.Elements)
			for p, e := range leaf.Elements {
				cmp, err := idx.cmp(e.IndexID, id)
				if err != nil {
					return results, err
				}
				if cmp != valuetype.RightGreater {
					start = p
					break
				}
			}
			first = false
		}

		reachedEnd := true
		matchedInLeaf := 0
		for p := start; p < len(leaf.Elements); p++ {
			cmp, err := idx.cmp(leaf.Elements[p].IndexID, id)
			if err != nil {
				return results, err
			}
			if cmp != valuetype.Equal {
				reachedEnd = false
				break
			}
			results = append(results, leaf.Elements[p].Payload)
			matchedInLeaf++
		}

		if reachedEnd && (matchedInLeaf > 0 || start == len(leaf.Elements)) && leaf.NextTag != 0 {
			leafTag = leaf.NextTag
			continue
		}
		break
	}

	return results, nil
}

// Insert adds (id, payload) to the tree (spec.md §4.4.2), splitting leaves
// and, iteratively, ancestor internal nodes as needed.
func (idx *Index) Insert(id []byte, payload Payload) error {
	if idx.header.RootTag == 0 {
		return faciledberrors.NewIndexError(nil, faciledberrors.ErrorCodeIndexCorrupted, "index has no root").
			WithIndexKey(idx.indexKey)
	}

	leafTag, err := idx.descendToLeaf(idx.header.RootTag, id)
	if err != nil {
		return err
	}
	leaf, err := idx.readNode(leafTag)
	if err != nil {
		return err
	}

	pos := len(leaf.Elements)
	for p, e := range leaf.Elements {
		cmp, err := idx.cmp(e.IndexID, id)
		if err != nil {
			return err
		}
		if cmp == valuetype.LeftGreater {
			pos = p
			break
		}
	}

	elements := insertElement(leaf.Elements, pos, Element{IndexID: id, Payload: payload})
	if len(elements) <= idx.order {
		leaf.Elements = elements
		leaf.Length = uint32(len(elements))
		return idx.writeNode(leaf)
	}

	promote, sibling := idx.splitLeaf(elements, leaf)
	if err := idx.writeNode(leaf); err != nil {
		return err
	}
	if err := idx.writeNode(sibling); err != nil {
		return err
	}
	if err := idx.persistHeader(); err != nil {
		return err
	}

	return idx.propagateSplit(leaf, promote, sibling.Tag)
}

// splitLeaf implements the leaf half of spec.md §4.4.2: the mid element is
// kept (copy-up), not removed, since all m+1 elements must survive across
// the two leaves.
func (idx *Index) splitLeaf(elements []Element, node *Node) (Element, *Node) {
	firstHalf := len(elements) / 2

	sibling := &Node{
		Tag:       idx.allocTag(),
		Level:     node.Level,
		ParentTag: node.ParentTag,
		NextTag:   node.NextTag,
		ChildTags: make([]uint32, idx.order+1),
		Elements:  append([]Element(nil), elements[firstHalf:]...),
	}
	sibling.Length = uint32(len(sibling.Elements))

	node.Elements = append([]Element(nil), elements[:firstHalf]...)
	node.Length = uint32(len(node.Elements))
	node.NextTag = sibling.Tag

	return sibling.Elements[0], sibling
}

// propagateSplit walks up via ParentTag, converting the B+-tree's
// recursive split propagation into an explicit loop so stack depth never
// grows with tree height (spec.md §9, "Recursion").
func (idx *Index) propagateSplit(child *Node, promote Element, siblingTag uint32) error {
	for {
		if child.ParentTag == 0 {
			root := &Node{
				Tag:       idx.allocTag(),
				Level:     child.Level + 1,
				ParentTag: 0,
				ChildTags: make([]uint32, idx.order+1),
				Elements:  []Element{promote},
			}
			root.Length = 1
			root.ChildTags[0] = child.Tag
			root.ChildTags[1] = siblingTag

			child.ParentTag = root.Tag
			if err := idx.writeNode(child); err != nil {
				return err
			}
			if err := idx.setParentTag(siblingTag, root.Tag); err != nil {
				return err
			}
			if err := idx.writeNode(root); err != nil {
				return err
			}
			idx.header.RootTag = root.Tag
			return idx.persistHeader()
		}

		parent, err := idx.readNode(child.ParentTag)
		if err != nil {
			return err
		}
		pos, err := childPosition(parent, child.Tag)
		if err != nil {
			return err
		}

		newElements := insertElement(parent.Elements, pos, promote)
		newChildren := insertChildTag(parent.ChildTags[:parent.Length+1], pos+1, siblingTag)

		if len(newElements) <= idx.order {
			parent.Elements = newElements
			parent.Length = uint32(len(newElements))
			parent.ChildTags = padChildren(newChildren, idx.order+1)
			return idx.writeNode(parent)
		}

		nextPromote, sibling, err := idx.splitInternal(newElements, newChildren, parent)
		if err != nil {
			return err
		}
		if err := idx.writeNode(parent); err != nil {
			return err
		}
		if err := idx.writeNode(sibling); err != nil {
			return err
		}
		if err := idx.persistHeader(); err != nil {
			return err
		}

		child, promote, siblingTag = parent, nextPromote, sibling.Tag
	}
}

// splitInternal implements the internal-node half of spec.md §4.4.2: the
// mid element is promoted and removed from both halves; children are
// repartitioned so the first node gets ceil((m+2)/2) children, and every
// child moved to the sibling has its ParentTag rewritten.
func (idx *Index) splitInternal(elements []Element, children []uint32, node *Node) (Element, *Node, error) {
	firstChildCount := (len(children) + 1) / 2

	sibling := &Node{
		Tag:       idx.allocTag(),
		Level:     node.Level,
		ParentTag: node.ParentTag,
		ChildTags: padChildren(append([]uint32(nil), children[firstChildCount:]...), idx.order+1),
		Elements:  append([]Element(nil), elements[firstChildCount:]...),
	}
	sibling.Length = uint32(len(sibling.Elements))

	promote := elements[firstChildCount-1]
	node.Elements = append([]Element(nil), elements[:firstChildCount-1]...)
	node.Length = uint32(len(node.Elements))
	node.ChildTags = padChildren(append([]uint32(nil), children[:firstChildCount]...), idx.order+1)

	for _, childTag := range sibling.ChildTags[:sibling.Length+1] {
		if childTag == 0 {
			continue
		}
		if err := idx.setParentTag(childTag, sibling.Tag); err != nil {
			return Element{}, nil, err
		}
	}

	return promote, sibling, nil
}

func (idx *Index) setParentTag(tag uint32, parent uint32) error {
	n, err := idx.readNode(tag)
	if err != nil {
		return err
	}
	n.ParentTag = parent
	return idx.writeNode(n)
}

func childPosition(parent *Node, childTag uint32) (int, error) {
	for p, tag := range parent.ChildTags[:parent.Length+1] {
		if tag == childTag {
			return p, nil
		}
	}
	return 0, faciledberrors.NewIndexCorruptionError("propagateSplit", parent.Tag, nil)
}

func insertElement(elements []Element, pos int, e Element) []Element {
	out := make([]Element, 0, len(elements)+1)
	out = append(out, elements[:pos]...)
	out = append(out, e)
	out = append(out, elements[pos:]...)
	return out
}

func insertChildTag(children []uint32, pos int, tag uint32) []uint32 {
	out := make([]uint32, 0, len(children)+1)
	out = append(out, children[:pos]...)
	out = append(out, tag)
	out = append(out, children[pos:]...)
	return out
}

func padChildren(children []uint32, width int) []uint32 {
	out := make([]uint32, width)
	copy(out, children)
	return out
}

// NodeOrder returns the B+-tree order this index was opened with.
func (idx *Index) NodeOrder() int { return idx.order }

// IDType returns the index id type elements are compared under.
func (idx *Index) IDType() valuetype.Type { return idx.idType }
