package options

import "time"

const (
	// DefaultDirectory is the default base directory where FacileDB stores
	// its set and index files. If no other directory is specified during
	// initialization, this path is used.
	DefaultDirectory = "/var/lib/faciledb"

	// DefaultBlockPayloadSize is the default per-block payload size in
	// bytes (spec.md §6.1: "1028 in the source's default build").
	DefaultBlockPayloadSize uint32 = 1028

	// MinBlockPayloadSize is the smallest payload size allowed; it must be
	// able to hold at least one record header (spec.md §4.2).
	MinBlockPayloadSize uint32 = 64

	// MaxBlockPayloadSize bounds block payload size to keep a single block
	// within one page-aligned I/O.
	MaxBlockPayloadSize uint32 = 1 << 20

	// DefaultIndexOrder is the default B+-tree branching factor.
	DefaultIndexOrder = 64

	// MinIndexOrder is the smallest order spec.md §4.4 allows.
	MinIndexOrder = 3

	// DefaultIndexDirectory is the default subdirectory (relative to the
	// base data directory) index files are stored under (spec.md §6.2).
	DefaultIndexDirectory = "index"

	// DefaultHeaderRetryTimeout bounds the header-read retry loop used
	// when opening a set/index file a peer may still be creating.
	DefaultHeaderRetryTimeout = 2 * time.Second

	// DefaultHeaderRetryInterval is the sleep between header-read retries.
	DefaultHeaderRetryInterval = 10 * time.Millisecond
)

// defaultOptions holds the default configuration settings for a FacileDB
// instance.
var defaultOptions = Options{
	Directory:        DefaultDirectory,
	BlockPayloadSize: DefaultBlockPayloadSize,
	IndexOptions: &IndexOptions{
		Enabled:   true,
		Order:     DefaultIndexOrder,
		Directory: DefaultIndexDirectory,
	},
	HeaderRetryTimeout:  DefaultHeaderRetryTimeout,
	HeaderRetryInterval: DefaultHeaderRetryInterval,
}

// NewDefaultOptions returns a copy of the library defaults, with a fresh
// IndexOptions so callers never share the package-level default's pointer.
func NewDefaultOptions() Options {
	opts := defaultOptions
	idx := *defaultOptions.IndexOptions
	opts.IndexOptions = &idx
	return opts
}
