// Package setfile implements FacileDB's Set File Layer (spec.md §4.3): the
// one-file-per-set store of block chains, keyed by a process-monotonic data
// tag and addressed by a 1-based block tag.
//
// It generalizes the teacher's internal/storage package — same Config/New
// constructor shape, same recovery-on-open posture, same zap logging
// density — to a single growing file instead of a rotating run of segment
// files, since a FacileDB set is never segmented.
package setfile

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Mutationeme/faciledb/internal/block"
	"github.com/Mutationeme/faciledb/internal/gate"
	"github.com/Mutationeme/faciledb/internal/types"
	faciledberrors "github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

// Extension is the on-disk suffix for set files (spec.md §6.1).
const Extension = ".faciledb"

// Set is one open handle over a `{directory}/{name}.faciledb` file.
type Set struct {
	name        string
	path        string
	file        *os.File
	header      Header
	payloadSize uint32
	gate        *gate.Gate
	log         *zap.SugaredLogger
}

// Config encapsulates the parameters required to load or create a set file.
type Config struct {
	Directory           string
	Name                string
	PayloadSize         uint32
	HeaderRetryTimeout  time.Duration
	HeaderRetryInterval time.Duration
	Logger              *zap.SugaredLogger
}

// Path returns the path a set named name would live at under directory.
func Path(directory, name string) string {
	return filepath.Join(directory, name+Extension)
}

// Exists reports whether a set file for name already exists under directory.
func Exists(directory, name string) (bool, error) {
	_, err := os.Stat(Path(directory, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Load opens or creates the named set file (spec.md §4.3.5): exclusive
// create on first access, or open-and-retry-until-header-matches when a
// peer may still be writing its header.
func Load(cfg *Config) (*Set, error) {
	if cfg == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("setfile: invalid configuration")
	}

	path := Path(cfg.Directory, cfg.Name)
	cfg.Logger.Infow("loading set file", "set", cfg.Name, "path", path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	switch {
	case err == nil:
		header := Header{
			BlockNum:       0,
			CreatedTime:    uint64(time.Now().Unix()),
			ModifiedTime:   uint64(time.Now().Unix()),
			ValidRecordNum: 0,
			SetNameBytes:   []byte(cfg.Name),
		}
		if err := writeHeader(file, header); err != nil {
			file.Close()
			return nil, faciledberrors.NewStorageError(err, faciledberrors.ErrorCodeIO, "failed to write initial set header").
				WithFileName(cfg.Name).WithPath(path)
		}
		cfg.Logger.Infow("created new set file", "set", cfg.Name, "path", path)
		return newSet(cfg, file, header), nil

	case stdErrors.Is(err, os.ErrExist):
		existing, err := os.OpenFile(path, os.O_RDWR, 0644)
		if err != nil {
			return nil, faciledberrors.ClassifySetFileOpenError(err, path, cfg.Name)
		}

		header, err := waitForHeader(existing, cfg)
		if err != nil {
			existing.Close()
			return nil, err
		}

		cfg.Logger.Infow("opened existing set file", "set", cfg.Name, "path", path, "blockNum", header.BlockNum)
		return newSet(cfg, existing, header), nil

	default:
		return nil, faciledberrors.ClassifySetFileOpenError(err, path, cfg.Name)
	}
}

// waitForHeader retries reading a set file's header until its name matches
// the expected name, tolerating a concurrent creator still mid-write, up to
// a bounded timeout (spec.md §4.3.5). Exceeding the timeout is a fatal
// assertion — the original creator crashed or hung.
func waitForHeader(f *os.File, cfg *Config) (Header, error) {
	deadline := time.Now().Add(cfg.HeaderRetryTimeout)
	for {
		header, err := readHeader(f)
		if err == nil && string(header.SetNameBytes) == cfg.Name {
			return header, nil
		}

		if time.Now().After(deadline) {
			return Header{}, faciledberrors.NewStorageError(
				err, faciledberrors.ErrorCodeHeaderReadTimeout,
				"timed out waiting for a concurrently-created set header to become readable",
			).WithFileName(cfg.Name).WithPath(f.Name())
		}
		time.Sleep(cfg.HeaderRetryInterval)
	}
}

func newSet(cfg *Config, file *os.File, header Header) *Set {
	return &Set{
		name:        cfg.Name,
		path:        Path(cfg.Directory, cfg.Name),
		file:        file,
		header:      header,
		payloadSize: cfg.PayloadSize,
		gate:        gate.New(cfg.Name, file, cfg.Logger),
		log:         cfg.Logger,
	}
}

// Close releases the underlying file handle. Callers must have drained the
// gate (CloseWait) before calling Close.
func (s *Set) Close() error {
	s.log.Infow("closing set file", "set", s.name)
	return s.file.Close()
}

// Gate exposes the set's concurrency gate to the engine coordinator.
func (s *Set) Gate() *gate.Gate { return s.gate }

func (s *Set) blockSize() int64 { return block.Size(s.payloadSize) }

func (s *Set) blockOffset(tag uint64) int64 {
	return block.Offset(tag, s.header.Size(), s.blockSize())
}

func (s *Set) readBlock(tag uint64) (*block.Block, error) {
	b, err := block.Read(s.file, s.blockOffset(tag), s.payloadSize)
	if err != nil {
		return nil, faciledberrors.NewStorageError(err, faciledberrors.ErrorCodePayloadReadFailure, "failed to read block").
			WithFileName(s.name).WithPath(s.path).WithBlockTag(tag)
	}
	return b, nil
}

func (s *Set) writeBlock(b *block.Block) error {
	if err := block.Write(s.file, s.blockOffset(b.Tag), b); err != nil {
		return faciledberrors.NewStorageError(err, faciledberrors.ErrorCodeIO, "failed to write block").
			WithFileName(s.name).WithPath(s.path).WithBlockTag(b.Tag)
	}
	return nil
}

// validateRecords rejects a data item whose records fail the Value-Type
// Registry's constraints (spec.md §4.3.1 "Edge cases").
func validateRecords(records []types.Record) error {
	if len(records) == 0 {
		return faciledberrors.NewValidationError(nil, faciledberrors.ErrorCodeInvalidInput, "data item must contain at least one record")
	}
	for i, r := range records {
		if !valuetype.Valid(r.ValueType) {
			return faciledberrors.NewValidationError(nil, faciledberrors.ErrorCodeInvalidInput, "invalid value type").
				WithField(fmt.Sprintf("records[%d].valueType", i))
		}
		if !valuetype.SizeValid(r.ValueType, uint32(len(r.Value))) {
			return faciledberrors.NewValidationError(nil, faciledberrors.ErrorCodeInvalidInput, "value size does not match declared size for fixed-size type").
				WithField(fmt.Sprintf("records[%d].value", i))
		}
	}
	return nil
}

// Insert serializes records into one new block chain and appends it to the
// set file (spec.md §4.3.1). It returns the new data item's data tag and
// the tag of its first block. The caller is responsible for write-gate
// acquisition (the engine coordinator holds the gate across Insert plus any
// index maintenance so the two stay atomic from a reader's perspective).
func (s *Set) Insert(records []types.Record) (dataTag uint64, startBlock uint64, err error) {
	if err := validateRecords(records); err != nil {
		return 0, 0, err
	}

	if block.RecordHeaderSize > s.payloadSize {
		return 0, 0, faciledberrors.NewStorageError(nil, faciledberrors.ErrorCodeInvalidInput, "block payload too small to hold a single record header").
			WithFileName(s.name)
	}

	p := newPacker(s.payloadSize)
	for _, r := range records {
		hdr := block.RecordHeader{
			Deleted:   0,
			KeySize:   uint32(len(r.Key)),
			ValueSize: uint32(len(r.Value)),
			ValueType: uint32(r.ValueType),
		}
		hdrBuf := make([]byte, block.RecordHeaderSize)
		block.WriteRecordHeader(hdrBuf, hdr)

		p.ensureHeaderRoom()
		p.writeHeader(hdrBuf)
		p.writeBytes(r.Key)
		p.writeBytes(r.Value)
	}
	payloads, headerCounts := p.finish()

	startTag := s.header.BlockNum + 1
	dataTag = s.header.ValidRecordNum + 1
	now := uint64(time.Now().Unix())

	for i, payload := range payloads {
		tag := startTag + uint64(i)
		var prev uint64
		if i > 0 {
			prev = tag - 1
		}
		var next uint64
		if i+1 < len(payloads) {
			next = tag + 1
		}

		b := &block.Block{
			Tag:                 tag,
			DataTag:             dataTag,
			PrevTag:             prev,
			NextTag:             next,
			CreatedTime:         now,
			ModifiedTime:        now,
			Deleted:             0,
			ValidRecordNum:      uint32(len(records)),
			RecordPropertiesNum: headerCounts[i],
			Payload:             payload,
		}
		if err := s.writeBlock(b); err != nil {
			return 0, 0, err
		}
	}

	s.header.BlockNum = startTag + uint64(len(payloads)) - 1
	s.header.ValidRecordNum = dataTag
	s.header.ModifiedTime = now
	if err := writeHeader(s.file, s.header); err != nil {
		return 0, 0, faciledberrors.NewStorageError(err, faciledberrors.ErrorCodeIO, "failed to persist set header after insert").
			WithFileName(s.name).WithPath(s.path)
	}

	s.log.Infow("inserted data item", "set", s.name, "dataTag", dataTag, "startBlock", startTag, "blocks", len(payloads))
	return dataTag, startTag, nil
}

// Reconstruct rebuilds the data item whose chain starts at startBlock
// (spec.md §4.3.2).
func (s *Set) Reconstruct(startBlock uint64) (*types.DataItem, error) {
	r, err := newChainReader(s, startBlock)
	if err != nil {
		return nil, err
	}

	item := &types.DataItem{
		Tag:        r.block.DataTag,
		StartBlock: startBlock,
		Deleted:    r.block.Deleted != 0,
	}
	minCreated := r.block.CreatedTime
	maxModified := r.block.ModifiedTime
	valid := r.block.ValidRecordNum

	var live uint32
	for live < valid {
		// The packer never splits a record header: when fewer than
		// RecordHeaderSize bytes remain in a block, those bytes are padding
		// and the header starts at the beginning of the next block.
		if len(r.block.Payload)-r.pos < block.RecordHeaderSize && r.block.NextTag != 0 {
			next, err := s.readBlock(r.block.NextTag)
			if err != nil {
				return nil, err
			}
			r.block, r.pos = next, 0
		}
		hdrBytes, err := r.readN(block.RecordHeaderSize)
		if err != nil {
			return nil, err
		}
		hdr := block.ReadRecordHeader(hdrBytes)

		keyBytes, err := r.readN(int(hdr.KeySize))
		if err != nil {
			return nil, err
		}
		valBytes, err := r.readN(int(hdr.ValueSize))
		if err != nil {
			return nil, err
		}

		if r.block.CreatedTime < minCreated {
			minCreated = r.block.CreatedTime
		}
		if r.block.ModifiedTime > maxModified {
			maxModified = r.block.ModifiedTime
		}

		if hdr.Deleted == 0 {
			item.Records = append(item.Records, types.Record{
				Key:       keyBytes,
				Value:     valBytes,
				ValueType: valuetype.Type(hdr.ValueType),
			})
			live++
		}
	}

	item.CreatedAt = time.Unix(int64(minCreated), 0)
	item.ModifiedAt = time.Unix(int64(maxModified), 0)
	return item, nil
}

// matches reports whether item contains a record satisfying the probe under
// the given compare mode (spec.md §4.3.3).
func matches(item *types.DataItem, probe types.Probe, mode types.CompareMode) (bool, error) {
	for _, r := range item.Records {
		if r.ValueType != probe.ValueType {
			continue
		}
		if string(r.Key) != string(probe.Key) {
			continue
		}
		if mode == types.CompareAny {
			return true, nil
		}
		cmp, err := valuetype.Compare(r.ValueType, r.Value, probe.Value)
		if err != nil {
			return false, err
		}
		if cmp == valuetype.Equal {
			return true, nil
		}
	}
	return false, nil
}

// SearchEqual scans every block chain for a match against probe under mode
// (spec.md §4.3.3). Scanning is the fallback path used when no index exists
// for (set name, probe key); the engine coordinator takes the indexed path
// otherwise.
func (s *Set) SearchEqual(probe types.Probe, mode types.CompareMode) ([]*types.DataItem, error) {
	var results []*types.DataItem

	for tag := uint64(1); tag <= s.header.BlockNum; tag++ {
		b, err := s.readBlock(tag)
		if err != nil {
			return results, err
		}
		if b.Deleted != 0 || b.PrevTag != 0 {
			continue
		}

		item, err := s.Reconstruct(tag)
		if err != nil {
			return results, err
		}

		ok, err := matches(item, probe, mode)
		if err != nil {
			return results, err
		}
		if ok {
			results = append(results, item)
		}
	}

	return results, nil
}

// DeleteEqual tombstones every block of every chain matching probe under
// CompareEqual (spec.md §4.3.4): the chain's bytes stay on disk, only the
// deleted flag and modified_time change.
func (s *Set) DeleteEqual(probe types.Probe) (int, error) {
	deleted := 0
	now := uint64(time.Now().Unix())

	for tag := uint64(1); tag <= s.header.BlockNum; tag++ {
		b, err := s.readBlock(tag)
		if err != nil {
			return deleted, err
		}
		if b.Deleted != 0 || b.PrevTag != 0 {
			continue
		}

		item, err := s.Reconstruct(tag)
		if err != nil {
			return deleted, err
		}
		ok, err := matches(item, probe, types.CompareEqual)
		if err != nil {
			return deleted, err
		}
		if !ok {
			continue
		}

		if err := s.tombstoneChain(tag, now); err != nil {
			return deleted, err
		}
		deleted++
	}

	if deleted > 0 {
		s.header.ModifiedTime = now
		if err := writeHeader(s.file, s.header); err != nil {
			return deleted, faciledberrors.NewStorageError(err, faciledberrors.ErrorCodeIO, "failed to persist set header after delete").
				WithFileName(s.name).WithPath(s.path)
		}
	}
	return deleted, nil
}

func (s *Set) tombstoneChain(startTag uint64, now uint64) error {
	tag := startTag
	for tag != 0 {
		b, err := s.readBlock(tag)
		if err != nil {
			return err
		}
		b.Deleted = 1
		b.ModifiedTime = now
		if err := s.writeBlock(b); err != nil {
			return err
		}
		tag = b.NextTag
	}
	return nil
}

// BlockNum returns the highest allocated block tag, for scans driven from
// outside the package (bulk index population).
func (s *Set) BlockNum() uint64 { return s.header.BlockNum }

// chainReader reads a block chain's payload bytes sequentially across block
// boundaries, fetching the next block lazily (spec.md §4.3.2).
type chainReader struct {
	set   *Set
	block *block.Block
	pos   int
}

func newChainReader(s *Set, startTag uint64) (*chainReader, error) {
	b, err := s.readBlock(startTag)
	if err != nil {
		return nil, err
	}
	return &chainReader{set: s, block: b}, nil
}

func (r *chainReader) readN(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		remaining := r.block.Payload[r.pos:]
		if len(remaining) == 0 {
			if r.block.NextTag == 0 {
				return nil, faciledberrors.NewStorageError(nil, faciledberrors.ErrorCodeChainCorrupted, "block chain ended mid-record").
					WithFileName(r.set.name).WithBlockTag(r.block.Tag)
			}
			next, err := r.set.readBlock(r.block.NextTag)
			if err != nil {
				return nil, err
			}
			r.block = next
			r.pos = 0
			continue
		}

		take := n - len(out)
		if take > len(remaining) {
			take = len(remaining)
		}
		out = append(out, remaining[:take]...)
		r.pos += take
	}
	return out, nil
}
