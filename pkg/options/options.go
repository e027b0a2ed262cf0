// Package options provides data structures and functions for configuring
// FacileDB. It defines the parameters that control block sizing, index
// behaviour, and the directory layout, following the functional-options
// idiom the teacher repo uses for its segment-store configuration.
package options

import (
	"strings"
	"time"
)

// IndexOptions configures the secondary-index subsystem (spec.md §4.4).
type IndexOptions struct {
	// Enabled toggles whether the index engine is wired in at all. When
	// false, MakeRecordIndex and index-accelerated search are unsupported
	// and every search falls back to a full scan.
	//
	// Default: true
	Enabled bool `json:"enabled"`

	// Order is the B+-tree branching factor `m` (spec.md §3.6, §4.4); must
	// be at least 3.
	//
	// Default: 64
	Order int `json:"order"`

	// Directory is the subdirectory (relative to Options.Directory) where
	// index files are stored.
	//
	// Default: "index"
	Directory string `json:"directory"`
}

// Options defines the configuration parameters for a FacileDB instance.
type Options struct {
	// Directory is the base path under which `{set}.faciledb` files and the
	// `index/` subdirectory are stored (spec.md §6.1, §6.2).
	//
	// Default: "/var/lib/faciledb"
	Directory string `json:"directory"`

	// BlockPayloadSize is the number of payload bytes available per block
	// for serialized records (spec.md §4.2, §6.1).
	//
	//  - Default: 1028
	//  - Minimum: 64
	//  - Maximum: 1 << 20
	BlockPayloadSize uint32 `json:"blockPayloadSize"`

	// IndexOptions configures the B+-tree secondary index engine.
	IndexOptions *IndexOptions `json:"indexOptions"`

	// HeaderRetryTimeout bounds how long a set/index open waits for a
	// concurrent creator's header write to become readable before
	// failing the open as a fatal assertion (spec.md §4.3.5, §4.4.3, §7).
	//
	// Default: 2s
	HeaderRetryTimeout time.Duration `json:"headerRetryTimeout"`

	// HeaderRetryInterval is the sleep between header re-read attempts
	// within HeaderRetryTimeout.
	//
	// Default: 10ms
	HeaderRetryInterval time.Duration `json:"headerRetryInterval"`
}

// OptionFunc is a function type that modifies FacileDB's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions resets every field to the library defaults.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		def := NewDefaultOptions()
		*o = def
	}
}

// WithDirectory sets the base data directory.
func WithDirectory(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.Directory = directory
		}
	}
}

// WithBlockPayloadSize sets the per-block payload size, bounded by
// MinBlockPayloadSize and MaxBlockPayloadSize.
func WithBlockPayloadSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size >= MinBlockPayloadSize && size <= MaxBlockPayloadSize {
			o.BlockPayloadSize = size
		}
	}
}

// WithIndexEnabled toggles the secondary-index subsystem.
func WithIndexEnabled(enabled bool) OptionFunc {
	return func(o *Options) {
		o.IndexOptions.Enabled = enabled
	}
}

// WithIndexOrder sets the B+-tree order; values below MinIndexOrder are ignored.
func WithIndexOrder(order int) OptionFunc {
	return func(o *Options) {
		if order >= MinIndexOrder {
			o.IndexOptions.Order = order
		}
	}
}

// WithIndexDirectory sets the subdirectory index files are stored under.
func WithIndexDirectory(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.IndexOptions.Directory = directory
		}
	}
}

// WithHeaderRetryTimeout sets the bound on the header-read retry loop.
func WithHeaderRetryTimeout(timeout time.Duration) OptionFunc {
	return func(o *Options) {
		if timeout > 0 {
			o.HeaderRetryTimeout = timeout
		}
	}
}

// WithHeaderRetryInterval sets the sleep between header-read retries.
func WithHeaderRetryInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.HeaderRetryInterval = interval
		}
	}
}
