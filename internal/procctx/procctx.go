// Package procctx implements FacileDB's Context Layer: the process-wide
// init/ready/closing state machine and the one-slot set/index caches
// spec.md §3.7 and §5 describe ("Shared resource policy").
//
// Named procctx rather than context to avoid shadowing the standard
// library's context package at every call site in the engine.
//
// It generalizes the teacher's atomic.Bool open/closed lifecycle
// (internal/engine.Engine.closed) into the full state machine spec.md §4.5
// calls the "Context status": unused -> initializing -> ready -> closing ->
// unused. Every public API entry point must observe ready under the
// context's own mutex; otherwise it short-circuits with a NotReadyError
// rather than touching disk.
package procctx

import (
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Mutationeme/faciledb/internal/index"
	"github.com/Mutationeme/faciledb/internal/setfile"
	"github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/filesys"
	"github.com/Mutationeme/faciledb/pkg/options"
	"github.com/Mutationeme/faciledb/pkg/valuetype"
)

// Status is one state of the process-wide context state machine.
type Status int

const (
	Unused Status = iota
	Initializing
	Ready
	Closing
)

// Context is the process-wide singleton every engine operation consults
// before touching disk: the data directory, and the one-slot set and index
// caches (spec.md §3.7: "at most one open handle per set/index inside the
// process").
type Context struct {
	mu     sync.Mutex
	status Status
	opts   *options.Options
	log    *zap.SugaredLogger

	set     *setfile.Set
	setName string

	idx    *index.Index
	idxKey string
}

// New constructs a Context in the Unused state; call Init before using it.
func New(opts *options.Options, log *zap.SugaredLogger) *Context {
	return &Context{opts: opts, log: log, status: Unused}
}

// Init transitions Unused -> Initializing -> Ready, creating the base data
// directory (and the index subdirectory, if the index subsystem is
// enabled). Init is idempotent: calling it again while already Ready is a
// no-op, matching spec.md §6.3's "double-init is ignored".
//
// The directory creation itself happens with the mutex released: spec.md
// says the context mutex must never be held across I/O, so Initializing is
// claimed under the lock, the disk work happens unlocked, and the final
// Ready/Unused transition re-acquires the lock just to commit the outcome.
func (c *Context) Init() error {
	c.mu.Lock()
	if c.status == Ready {
		c.mu.Unlock()
		return nil
	}
	if c.status != Unused {
		c.mu.Unlock()
		return errors.NewNotReadyError("context")
	}
	c.status = Initializing
	c.mu.Unlock()

	c.log.Infow("initializing context", "directory", c.opts.Directory)

	if err := filesys.CreateDir(c.opts.Directory, 0755, true); err != nil {
		c.mu.Lock()
		c.status = Unused
		c.mu.Unlock()
		return errors.ClassifyDirectoryCreationError(err, c.opts.Directory)
	}

	if c.opts.IndexOptions.Enabled {
		indexDir := filepath.Join(c.opts.Directory, c.opts.IndexOptions.Directory)
		if err := filesys.CreateDir(indexDir, 0755, true); err != nil {
			c.mu.Lock()
			c.status = Unused
			c.mu.Unlock()
			return errors.ClassifyDirectoryCreationError(err, indexDir)
		}
	}

	c.mu.Lock()
	c.status = Ready
	c.mu.Unlock()
	c.log.Infow("context ready", "directory", c.opts.Directory)
	return nil
}

func (c *Context) requireReady() error {
	if c.status != Ready {
		return errors.NewNotReadyError("context")
	}
	return nil
}

// GetSet returns the cached handle for name, loading it (and evicting
// whatever set was previously cached) if necessary.
//
// Loading and evicting both do disk I/O, so neither happens with c.mu held:
// the mutex is released for the duration of the eviction's Close and the
// new Load, then re-acquired only to commit the cache swap. A second
// GetSet racing on a different name is free to run its own I/O
// concurrently instead of queuing behind this one.
//
// The returned handle's gate is Pin()'d before c.mu is released: the
// caller hasn't gated it yet, so without the pin a concurrent GetSet for a
// different name could evict and close this exact handle between the
// return here and the caller's AcquireRead/AcquireWrite. The pin is
// consumed by that first Acquire call; callers must gate the handle
// promptly rather than holding it unacquired across other blocking work.
func (c *Context) GetSet(name string) (*setfile.Set, error) {
	c.mu.Lock()
	if err := c.requireReady(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.set != nil && c.setName == name {
		set := c.set
		set.Gate().Pin()
		c.mu.Unlock()
		return set, nil
	}
	stale, staleName := c.set, c.setName
	c.mu.Unlock()

	if stale != nil {
		c.log.Infow("evicting cached set", "previous", staleName, "next", name)
		stale.Gate().CloseWait()
		if err := stale.Close(); err != nil {
			c.log.Warnw("failed to close evicted set", "set", staleName, "error", err)
		}
	}

	set, err := setfile.Load(&setfile.Config{
		Directory:           c.opts.Directory,
		Name:                name,
		PayloadSize:         c.opts.BlockPayloadSize,
		HeaderRetryTimeout:  c.opts.HeaderRetryTimeout,
		HeaderRetryInterval: c.opts.HeaderRetryInterval,
		Logger:              c.log,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()

	if err := c.requireReady(); err != nil {
		c.mu.Unlock()
		set.Gate().CloseWait()
		set.Close()
		return nil, err
	}
	if c.set != nil && c.setName == name {
		// A concurrent GetSet(name) already won the race and cached its
		// own handle; keep that one, release ours.
		cached := c.set
		cached.Gate().Pin()
		c.mu.Unlock()
		set.Gate().CloseWait()
		if err := set.Close(); err != nil {
			c.log.Warnw("failed to close redundant set load", "set", name, "error", err)
		}
		return cached, nil
	}

	// A concurrent GetSet for yet another name may have cached in the
	// meantime; ours is the one this caller asked for, so it wins the slot.
	other, otherName := c.set, c.setName
	c.set, c.setName = set, name
	set.Gate().Pin()
	c.mu.Unlock()

	if other != nil {
		other.Gate().CloseWait()
		if err := other.Close(); err != nil {
			c.log.Warnw("failed to close superseded set", "set", otherName, "error", err)
		}
	}

	return set, nil
}

// GetIndex returns the cached handle for the (setName, recordKey) index,
// loading (and evicting whatever index was previously cached) if necessary.
// idType is the index id type to use if the index must be created. When the
// index file already exists, index.Load fails with an index-header-mismatch
// error if the id type stored in its header differs from idType. A cache hit
// returns the cached handle without comparing id types.
//
// Same double-check shape as GetSet: the mutex is released across the
// eviction's Close and the new Load, and re-acquired only to commit which
// handle ends up in the cache slot.
func (c *Context) GetIndex(setName string, recordKey []byte, idType valuetype.Type) (*index.Index, error) {
	c.mu.Lock()
	if err := c.requireReady(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	key := index.Key(setName, recordKey)
	if c.idx != nil && c.idxKey == key {
		idx := c.idx
		idx.Gate().Pin()
		c.mu.Unlock()
		return idx, nil
	}
	stale, staleKey := c.idx, c.idxKey
	c.mu.Unlock()

	if stale != nil {
		c.log.Infow("evicting cached index", "previous", staleKey, "next", key)
		stale.Gate().CloseWait()
		if err := stale.Close(); err != nil {
			c.log.Warnw("failed to close evicted index", "indexKey", staleKey, "error", err)
		}
	}

	idx, err := index.Load(&index.Config{
		Directory:           c.opts.Directory,
		IndexSubdir:         c.opts.IndexOptions.Directory,
		SetName:             setName,
		RecordKey:           recordKey,
		Order:               c.opts.IndexOptions.Order,
		IDType:              idType,
		HeaderRetryTimeout:  c.opts.HeaderRetryTimeout,
		HeaderRetryInterval: c.opts.HeaderRetryInterval,
		Logger:              c.log,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()

	if err := c.requireReady(); err != nil {
		c.mu.Unlock()
		idx.Gate().CloseWait()
		idx.Close()
		return nil, err
	}
	if c.idx != nil && c.idxKey == key {
		cached := c.idx
		cached.Gate().Pin()
		c.mu.Unlock()
		idx.Gate().CloseWait()
		if err := idx.Close(); err != nil {
			c.log.Warnw("failed to close redundant index load", "indexKey", key, "error", err)
		}
		return cached, nil
	}

	other, otherKey := c.idx, c.idxKey
	c.idx, c.idxKey = idx, key
	idx.Gate().Pin()
	c.mu.Unlock()

	if other != nil {
		other.Gate().CloseWait()
		if err := other.Close(); err != nil {
			c.log.Warnw("failed to close superseded index", "indexKey", otherKey, "error", err)
		}
	}

	return idx, nil
}

// IndexExists reports whether an index file for (setName, recordKey) exists
// on disk, without loading or caching it.
func (c *Context) IndexExists(setName string, recordKey []byte) (bool, error) {
	return index.Exists(c.opts.Directory, c.opts.IndexOptions.Directory, index.Key(setName, recordKey))
}

// Options exposes the context's configuration to the engine coordinator.
func (c *Context) Options() *options.Options { return c.opts }

// Close evicts and closes whatever set and index are cached, then
// transitions Ready -> Closing -> Unused. Errors from the two teardowns are
// aggregated rather than the first one masking the second, since closing
// the cached set and closing the cached index are independent failures.
//
// The teardown I/O (CloseWait plus each handle's Close) runs with the
// mutex released; the lock is only held to claim Closing up front and to
// commit Unused afterward.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.status != Ready {
		c.mu.Unlock()
		return errors.NewNotReadyError("context")
	}
	c.status = Closing
	set, setName := c.set, c.setName
	idx, idxKey := c.idx, c.idxKey
	c.set, c.setName = nil, ""
	c.idx, c.idxKey = nil, ""
	c.mu.Unlock()

	var err error
	if set != nil {
		set.Gate().CloseWait()
		if closeErr := set.Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
			c.log.Warnw("failed to close cached set", "set", setName, "error", closeErr)
		}
	}
	if idx != nil {
		idx.Gate().CloseWait()
		if closeErr := idx.Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
			c.log.Warnw("failed to close cached index", "indexKey", idxKey, "error", closeErr)
		}
	}

	c.mu.Lock()
	c.status = Unused
	c.mu.Unlock()
	c.log.Infow("context closed")
	return err
}
