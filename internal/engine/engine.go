// Package engine provides the core database engine implementation for
// FacileDB.
//
// The engine is the central coordinator and entry point for every
// operation the public facade exposes. It does not itself know how a set
// file or an index file is laid out on disk; it only knows when to
// involve one. For each call it:
//   - asks the process-wide context (internal/procctx) for the set handle
//     the call needs, loading it from disk on first touch;
//   - takes the set's gate for the duration of the call, reader or writer
//     depending on the operation;
//   - on insert, additionally maintains any secondary index that already
//     exists for a touched record key;
//   - on search, consults a matching index instead of scanning the set
//     when one exists and the probe is an equality probe; delete always
//     scans the set.
//
// FacileDB has no compaction or reclamation subsystem: deleted records are
// tombstoned in place and their space is never reused. The teacher's
// compaction package has no FacileDB analogue for this reason.
package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Mutationeme/faciledb/internal/index"
	"github.com/Mutationeme/faciledb/internal/procctx"
	"github.com/Mutationeme/faciledb/internal/setfile"
	"github.com/Mutationeme/faciledb/internal/types"
	faciledberrors "github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/options"
	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

// Engine coordinates set and index access for all database operations. It
// is the only component that ever holds both a set's gate and an index's
// gate at once, and it always acquires them in the same order (set, then
// index) so that no two operations can deadlock against each other.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool
	ctx     *procctx.Context
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes a new Engine instance with the provided
// configuration, bringing the process-wide context up to Ready.
func New(ctx context.Context, config *Config) (*Engine, error) {
	pc := procctx.New(config.Options, config.Logger)
	if err := pc.Init(); err != nil {
		return nil, err
	}

	return &Engine{
		options: config.Options,
		log:     config.Logger,
		ctx:     pc,
	}, nil
}

// Close gracefully shuts down the engine, closing whatever set and index
// handle the context has cached.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}
	return e.ctx.Close()
}

// SetExists reports whether a set file with the given name already exists
// on disk. It does not open or cache the set.
func (e *Engine) SetExists(name string) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}
	return setfile.Exists(e.options.Directory, name)
}

// Insert appends a new data item built from records to the named set,
// creating the set on first use, and folds the new item into any index
// that already exists for a touched record key (spec.md §4.3.1 step 7).
func (e *Engine) Insert(name string, records []types.Record) (dataTag uint64, err error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	if name == "" {
		return 0, faciledberrors.NewRequiredFieldError("name")
	}

	set, err := e.ctx.GetSet(name)
	if err != nil {
		return 0, err
	}

	gate := set.Gate()
	if err := gate.AcquireWrite(); err != nil {
		return 0, err
	}
	defer gate.ReleaseWrite()

	dataTag, startBlock, err := set.Insert(records)
	if err != nil {
		return 0, err
	}

	if e.options.IndexOptions.Enabled {
		e.maintainIndexes(name, records, dataTag, startBlock)
	}

	return dataTag, nil
}

// maintainIndexes folds a freshly inserted data item into every secondary
// index that already exists for one of its record keys. A record whose key
// has no index is left alone; MakeRecordIndex is what creates one.
func (e *Engine) maintainIndexes(setName string, records []types.Record, dataTag, startBlock uint64) {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		key := string(r.Key)
		if seen[key] {
			continue
		}
		seen[key] = true

		exists, err := e.ctx.IndexExists(setName, r.Key)
		if err != nil || !exists {
			continue
		}

		id, idType, err := valuetype.IDFor(r.ValueType, r.Value)
		if err != nil {
			e.log.Warnw("skipping index maintenance: could not derive index id",
				"set", setName, "key", r.Key, "error", err)
			continue
		}

		idx, err := e.ctx.GetIndex(setName, r.Key, idType)
		if err != nil {
			e.log.Warnw("skipping index maintenance: could not open index",
				"set", setName, "key", r.Key, "error", err)
			continue
		}

		idxGate := idx.Gate()
		if err := idxGate.AcquireWrite(); err != nil {
			e.log.Warnw("skipping index maintenance: gate rejected writer",
				"set", setName, "key", r.Key, "error", err)
			continue
		}
		err = idx.Insert(id, index.Payload{DataTag: dataTag, StartBlock: startBlock})
		idxGate.ReleaseWrite()
		if err != nil {
			e.log.Warnw("index maintenance failed", "set", setName, "key", r.Key, "error", err)
		}
	}
}

// SearchEqual returns every live data item in the named set with a record
// matching probe under mode. It consults a secondary index instead of
// scanning the set when one exists for probe.Key and mode is an equality
// probe: an index only ever stores a single derived id per value, so it
// cannot answer a CompareAny probe, which has no specific value to derive
// an id from (spec.md §4.3.3, §4.4.1).
func (e *Engine) SearchEqual(name string, probe types.Probe, mode types.CompareMode) ([]*types.DataItem, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	set, err := e.ctx.GetSet(name)
	if err != nil {
		return nil, err
	}

	gate := set.Gate()
	if err := gate.AcquireRead(); err != nil {
		return nil, err
	}
	defer gate.ReleaseRead()

	if e.options.IndexOptions.Enabled && mode == types.CompareEqual {
		items, ok, err := e.searchViaIndex(name, set, probe)
		if err != nil {
			return nil, err
		}
		if ok {
			return items, nil
		}
	}

	return set.SearchEqual(probe, mode)
}

func (e *Engine) searchViaIndex(name string, set *setfile.Set, probe types.Probe) ([]*types.DataItem, bool, error) {
	exists, err := e.ctx.IndexExists(name, probe.Key)
	if err != nil || !exists {
		return nil, false, nil
	}

	id, idType, err := valuetype.IDFor(probe.ValueType, probe.Value)
	if err != nil {
		return nil, false, nil
	}

	idx, err := e.ctx.GetIndex(name, probe.Key, idType)
	if err != nil {
		return nil, false, nil
	}

	idxGate := idx.Gate()
	if err := idxGate.AcquireRead(); err != nil {
		return nil, false, nil
	}
	defer idxGate.ReleaseRead()

	payloads, err := idx.Search(id)
	if err != nil {
		return nil, true, err
	}

	items := make([]*types.DataItem, 0, len(payloads))
	for _, p := range payloads {
		item, err := set.Reconstruct(p.StartBlock)
		if err != nil {
			e.log.Warnw("index payload did not reconstruct, skipping",
				"set", name, "startBlock", p.StartBlock, "error", err)
			continue
		}
		if item.Deleted {
			continue
		}
		items = append(items, item)
	}
	return items, true, nil
}

// DeleteEqual tombstones every live data item in the named set with a
// record matching probe under CompareEqual, returning how many data items
// were affected. Deletion never touches an index: a stale payload pointing
// at a tombstoned chain is filtered out at search time by searchViaIndex,
// which skips reconstructed items whose Deleted flag is set, rather than
// eagerly removed (spec.md §9).
func (e *Engine) DeleteEqual(name string, probe types.Probe) (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}

	set, err := e.ctx.GetSet(name)
	if err != nil {
		return 0, err
	}

	gate := set.Gate()
	if err := gate.AcquireWrite(); err != nil {
		return 0, err
	}
	defer gate.ReleaseWrite()

	return set.DeleteEqual(probe)
}

// MakeRecordIndex builds (or, if one already exists, leaves untouched) a
// secondary index over every record with the given key and value type in
// the named set, scanning the set's existing data items to populate it
// (spec.md §4.4.4).
func (e *Engine) MakeRecordIndex(name string, recordKey []byte, valueType valuetype.Type) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.options.IndexOptions.Enabled {
		return faciledberrors.NewConfigurationValidationError("indexOptions.enabled", "index subsystem is disabled")
	}

	set, err := e.ctx.GetSet(name)
	if err != nil {
		return err
	}

	gate := set.Gate()
	if err := gate.AcquireWrite(); err != nil {
		return err
	}
	defer gate.ReleaseWrite()

	alreadyExists, err := e.ctx.IndexExists(name, recordKey)
	if err != nil {
		return err
	}

	_, dynamic := valuetype.SizeOf(valueType)
	idType := valueType
	if dynamic {
		idType = valuetype.HASH
	}

	idx, err := e.ctx.GetIndex(name, recordKey, idType)
	if err != nil {
		return err
	}

	idxGate := idx.Gate()
	if err := idxGate.AcquireWrite(); err != nil {
		return err
	}
	defer idxGate.ReleaseWrite()

	if alreadyExists {
		e.log.Infow("make_record_index is a no-op: index already exists", "set", name, "key", recordKey)
		return nil
	}

	items, err := set.SearchEqual(types.Probe{Key: recordKey, ValueType: valueType}, types.CompareAny)
	if err != nil {
		return err
	}

	for _, item := range items {
		for _, r := range item.Records {
			if r.ValueType != valueType || string(r.Key) != string(recordKey) {
				continue
			}
			id, _, err := valuetype.IDFor(r.ValueType, r.Value)
			if err != nil {
				continue
			}
			if err := idx.Insert(id, index.Payload{DataTag: item.Tag, StartBlock: item.StartBlock}); err != nil {
				return err
			}
		}
	}

	e.log.Infow("built secondary index", "set", name, "key", recordKey, "items", len(items))
	return nil
}
